package employee

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Transition は配属台帳の状態遷移の種別です。
type Transition string

const (
	TransitionCreated    Transition = "created"
	TransitionReassigned Transition = "reassigned"
	TransitionUnchanged  Transition = "unchanged"
	TransitionRemoved    Transition = "removed"
)

// currentAssignment は社員の現在の配属を返します。配属がなければ nil です。
func (s *Service) currentAssignment(ctx context.Context, employeeID string) (*Assignment, error) {
	current, err := s.repo.FindAssignment(ctx, employeeID)
	if errors.Is(err, ErrAssignmentNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return current, nil
}

// reconcile は current を target に合わせて配属台帳を更新します。
// target が nil の場合は未配属にします。カフェが変わった場合だけ開始日を today にします。
// target のカフェの存在確認は呼び出し元で済ませておく必要があります。
func (s *Service) reconcile(ctx context.Context, employeeID string, current *Assignment, target *string, today time.Time) (*Assignment, error) {
	var (
		result     *Assignment
		transition Transition
	)

	switch {
	case target == nil && current == nil:
		return nil, nil

	case target == nil:
		if err := s.repo.DeleteAssignment(ctx, employeeID); err != nil {
			return nil, err
		}
		transition = TransitionRemoved

	case current == nil:
		result = &Assignment{EmployeeID: employeeID, CafeID: *target, StartDate: today}
		if err := s.repo.InsertAssignment(ctx, *result); err != nil {
			return nil, err
		}
		transition = TransitionCreated

	case current.CafeID == *target:
		result = current
		transition = TransitionUnchanged

	default:
		result = &Assignment{EmployeeID: employeeID, CafeID: *target, StartDate: today}
		if err := s.repo.MoveAssignment(ctx, *result); err != nil {
			return nil, err
		}
		transition = TransitionReassigned
	}

	s.recorder.AssignmentChanged(string(transition))
	fields := []zap.Field{
		zap.String("employee_id", employeeID),
		zap.String("transition", string(transition)),
	}
	if result != nil {
		fields = append(fields, zap.String("cafe_id", result.CafeID), zap.Time("start_date", result.StartDate))
	}
	s.log.Debug("assignment reconciled", fields...)

	return result, nil
}
