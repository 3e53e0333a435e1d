package employee

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ogurasousui/cafe-staffing/internal/core/identifier"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// Recorder は配属台帳の遷移をメトリクスへ記録します。
type Recorder interface {
	AssignmentChanged(transition string)
}

type noopRecorder struct{}

func (noopRecorder) AssignmentChanged(string) {}

const (
	defaultListPageSize = 50
	maxListPageSize     = 200
)

var (
	validate = validator.New()
	tracer   = otel.Tracer("github.com/ogurasousui/cafe-staffing/internal/core/employee")
)

// Service は社員と配属に関するユースケースをまとめます。
type Service struct {
	repo     Repository
	cafes    CafeLookup
	ids      IDAllocator
	clock    Clock
	tx       TransactionManager
	log      *zap.Logger
	recorder Recorder
}

// UseCase は社員ユースケースの公開インターフェースです。
type UseCase interface {
	CreateEmployee(ctx context.Context, in CreateEmployeeInput) (*Employee, error)
	GetEmployee(ctx context.Context, in GetEmployeeInput) (*Employee, error)
	ListEmployees(ctx context.Context, in ListEmployeesInput) (*ListEmployeesResult, error)
	UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (*Employee, error)
	DeleteEmployee(ctx context.Context, in DeleteEmployeeInput) error
}

// Option は Service の任意設定です。
type Option func(*Service)

// WithLogger はロガーを設定します。
func WithLogger(log *zap.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithRecorder はメトリクスの記録先を設定します。
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// NewService は Service を生成します。
func NewService(repo Repository, cafes CafeLookup, ids IDAllocator, clock Clock, tx TransactionManager, opts ...Option) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	s := &Service{
		repo:     repo,
		cafes:    cafes,
		ids:      ids,
		clock:    clock,
		tx:       tx,
		log:      zap.NewNop(),
		recorder: noopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateEmployeeInput は社員作成時の入力です。CafeID が nil の場合は未配属で作成します。
type CreateEmployeeInput struct {
	Name   string
	Email  string
	Phone  string
	Gender Gender
	CafeID *string
}

// UpdateEmployeeInput は社員更新時の入力です。
// Name などの nil のフィールドは変更しません。CafeID だけは nil が未配属を意味します。
type UpdateEmployeeInput struct {
	ID     string
	Name   *string
	Email  *string
	Phone  *string
	Gender *Gender
	CafeID *string
}

// DeleteEmployeeInput は社員削除時の入力です。
type DeleteEmployeeInput struct {
	ID string
}

// GetEmployeeInput は社員取得時の入力です。
type GetEmployeeInput struct {
	ID string
}

// ListEmployeesInput は一覧取得時の入力です。
type ListEmployeesInput struct {
	CafeName  *string
	PageSize  int
	PageToken string
}

// ListEmployeesResult は一覧取得結果を表します。勤続日数の長い順に並びます。
type ListEmployeesResult struct {
	Employees     []*Tenure
	NextPageToken string
}

// CreateEmployee は社員 ID を払い出して新しい社員を作成します。
func (s *Service) CreateEmployee(ctx context.Context, in CreateEmployeeInput) (_ *Employee, err error) {
	ctx, span := tracer.Start(ctx, "employee.CreateEmployee")
	defer func() { endSpan(span, err) }()

	name, err := normalizeName(in.Name)
	if err != nil {
		return nil, err
	}

	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}

	phone, err := normalizePhone(in.Phone)
	if err != nil {
		return nil, err
	}

	gender, err := normalizeGender(in.Gender)
	if err != nil {
		return nil, err
	}

	cafeID := normalizeCafeID(in.CafeID)

	var created *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.ensureCafeExists(txCtx, cafeID); err != nil {
			return err
		}

		id, err := s.ids.Next(txCtx)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		emp := &Employee{
			ID:        id,
			Name:      name,
			Email:     email,
			Phone:     phone,
			Gender:    gender,
			CreatedAt: now,
			UpdatedAt: now,
		}

		result, err := s.repo.Create(txCtx, emp)
		if err != nil {
			return err
		}

		assignment, err := s.reconcile(txCtx, result.ID, nil, cafeID, normalizeDate(now))
		if err != nil {
			return err
		}
		result.Assignment = assignment

		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("employee.id", created.ID))
	s.log.Info("employee created", zap.String("employee_id", created.ID), zap.Bool("assigned", created.Assignment != nil))

	return created, nil
}

// UpdateEmployee は社員情報と配属先を更新します。
func (s *Service) UpdateEmployee(ctx context.Context, in UpdateEmployeeInput) (_ *Employee, err error) {
	ctx, span := tracer.Start(ctx, "employee.UpdateEmployee", trace.WithAttributes(attribute.String("employee.id", in.ID)))
	defer func() { endSpan(span, err) }()

	id, err := s.normalizeID(in.ID)
	if err != nil {
		return nil, err
	}

	var (
		name, email, phone *string
		gender             *Gender
	)
	if in.Name != nil {
		v, err := normalizeName(*in.Name)
		if err != nil {
			return nil, err
		}
		name = &v
	}
	if in.Email != nil {
		v, err := normalizeEmail(*in.Email)
		if err != nil {
			return nil, err
		}
		email = &v
	}
	if in.Phone != nil {
		v, err := normalizePhone(*in.Phone)
		if err != nil {
			return nil, err
		}
		phone = &v
	}
	if in.Gender != nil {
		v, err := normalizeGender(*in.Gender)
		if err != nil {
			return nil, err
		}
		gender = &v
	}

	cafeID := normalizeCafeID(in.CafeID)

	var updated *Employee
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}

		if name != nil {
			existing.Name = *name
		}
		if email != nil {
			existing.Email = *email
		}
		if phone != nil {
			existing.Phone = *phone
		}
		if gender != nil {
			existing.Gender = *gender
		}

		if err := s.ensureCafeExists(txCtx, cafeID); err != nil {
			return err
		}

		now := s.clock.Now()
		existing.UpdatedAt = now

		result, err := s.repo.Update(txCtx, existing)
		if err != nil {
			return err
		}

		current, err := s.currentAssignment(txCtx, id)
		if err != nil {
			return err
		}

		assignment, err := s.reconcile(txCtx, id, current, cafeID, normalizeDate(now))
		if err != nil {
			return err
		}
		result.Assignment = assignment

		updated = result
		return nil
	}); err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteEmployee は社員を削除します。配属も同時に削除されます。
func (s *Service) DeleteEmployee(ctx context.Context, in DeleteEmployeeInput) (err error) {
	ctx, span := tracer.Start(ctx, "employee.DeleteEmployee", trace.WithAttributes(attribute.String("employee.id", in.ID)))
	defer func() { endSpan(span, err) }()

	id, err := s.normalizeID(in.ID)
	if err != nil {
		return err
	}

	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, id)
	}); err != nil {
		return err
	}

	s.log.Info("employee deleted", zap.String("employee_id", id))
	return nil
}

// GetEmployee は現在の配属を含めて社員を取得します。
func (s *Service) GetEmployee(ctx context.Context, in GetEmployeeInput) (_ *Employee, err error) {
	ctx, span := tracer.Start(ctx, "employee.GetEmployee", trace.WithAttributes(attribute.String("employee.id", in.ID)))
	defer func() { endSpan(span, err) }()

	id, err := s.normalizeID(in.ID)
	if err != nil {
		return nil, err
	}

	var result *Employee
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		result = found
		return nil
	}); err != nil {
		return nil, err
	}

	return result, nil
}

// ListEmployees は社員の勤続日数一覧を取得します。
func (s *Service) ListEmployees(ctx context.Context, in ListEmployeesInput) (_ *ListEmployeesResult, err error) {
	ctx, span := tracer.Start(ctx, "employee.ListEmployees")
	defer func() { endSpan(span, err) }()

	limit, err := normalizePageSize(in.PageSize)
	if err != nil {
		return nil, err
	}

	offset, err := parsePageToken(in.PageToken)
	if err != nil {
		return nil, err
	}

	var cafeName *string
	if in.CafeName != nil {
		if trimmed := strings.TrimSpace(*in.CafeName); trimmed != "" {
			cafeName = &trimmed
			span.SetAttributes(attribute.String("cafe.name", trimmed))
		}
	}

	var (
		tenures   []*Tenure
		nextToken string
	)

	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, token, err := s.repo.ListTenure(txCtx, ListTenureFilter{
			CafeName: cafeName,
			Today:    normalizeDate(s.clock.Now()),
			Limit:    limit,
			Offset:   offset,
		})
		if err != nil {
			return err
		}
		tenures = result
		nextToken = token
		return nil
	}); err != nil {
		return nil, err
	}

	return &ListEmployeesResult{Employees: tenures, NextPageToken: nextToken}, nil
}

func (s *Service) ensureCafeExists(ctx context.Context, cafeID *string) error {
	if cafeID == nil {
		return nil
	}

	ok, err := s.cafes.Exists(ctx, *cafeID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("cafe %s: %w", *cafeID, ErrCafeNotFound)
	}
	return nil
}

// normalizeID は社員 ID を検証します。プレフィックスと数字の形式でない ID の社員は存在しません。
func (s *Service) normalizeID(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("id: %w", ErrInvalidID)
	}
	if _, err := identifier.ParseSuffix(s.ids.Prefix(), trimmed); err != nil {
		return "", fmt.Errorf("id %s: %w", trimmed, ErrEmployeeNotFound)
	}
	return trimmed, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func normalizeName(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if err := validate.Var(trimmed, "min=6,max=10"); err != nil {
		return "", ErrInvalidName
	}
	return trimmed, nil
}

func normalizeEmail(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if err := validate.Var(trimmed, "required,email"); err != nil {
		return "", ErrInvalidEmail
	}
	return trimmed, nil
}

func normalizePhone(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if err := validate.Var(trimmed, "len=8,number,startswith=8|startswith=9"); err != nil {
		return "", ErrInvalidPhone
	}
	return trimmed, nil
}

func normalizeGender(raw Gender) (Gender, error) {
	g := Gender(strings.TrimSpace(string(raw)))
	switch g {
	case GenderMale, GenderFemale:
		return g, nil
	default:
		return "", ErrInvalidGender
	}
}

// normalizeCafeID は空文字の配属先を未配属として扱います。
func normalizeCafeID(raw *string) *string {
	if raw == nil {
		return nil
	}

	trimmed := strings.ToLower(strings.TrimSpace(*raw))
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func normalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func normalizePageSize(pageSize int) (int, error) {
	if pageSize <= 0 {
		return defaultListPageSize, nil
	}
	if pageSize > maxListPageSize {
		return 0, ErrInvalidPageSize
	}
	return pageSize, nil
}

func parsePageToken(token string) (int, error) {
	if strings.TrimSpace(token) == "" {
		return 0, nil
	}

	offset, err := strconv.Atoi(token)
	if err != nil || offset < 0 {
		return 0, ErrInvalidPageToken
	}

	return offset, nil
}
