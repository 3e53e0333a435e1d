package handler

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ogurasousui/cafe-staffing/internal/core/employee"
)

// EmployeeGrpcHandler は EmployeeService の gRPC 実装です。
type EmployeeGrpcHandler struct {
	svc employee.UseCase
}

// NewEmployeeGrpcHandler は EmployeeGrpcHandler を生成します。
func NewEmployeeGrpcHandler(svc employee.UseCase) *EmployeeGrpcHandler {
	return &EmployeeGrpcHandler{svc: svc}
}

// CreateEmployee は社員を作成し、assigned_cafe_id があれば配属します。
func (h *EmployeeGrpcHandler) CreateEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(req); err != nil {
		return nil, err
	}

	in := employee.CreateEmployeeInput{}
	var err error
	if in.Name, err = stringField(req, "name"); err != nil {
		return nil, err
	}
	if in.Email, err = stringField(req, "email_address"); err != nil {
		return nil, err
	}
	if in.Phone, err = stringField(req, "phone_number"); err != nil {
		return nil, err
	}
	gender, err := stringField(req, "gender")
	if err != nil {
		return nil, err
	}
	in.Gender = employee.Gender(gender)
	if in.CafeID, err = optionalStringField(req, "assigned_cafe_id"); err != nil {
		return nil, err
	}

	created, err := h.svc.CreateEmployee(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(employeeFields(created))
}

// UpdateEmployee は社員情報と配属を更新します。
// assigned_cafe_id が未指定または null の場合は配属を外します。
func (h *EmployeeGrpcHandler) UpdateEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(req); err != nil {
		return nil, err
	}

	id, err := stringField(req, "id")
	if err != nil {
		return nil, err
	}

	in := employee.UpdateEmployeeInput{ID: id}
	if in.Name, err = optionalStringField(req, "name"); err != nil {
		return nil, err
	}
	if in.Email, err = optionalStringField(req, "email_address"); err != nil {
		return nil, err
	}
	if in.Phone, err = optionalStringField(req, "phone_number"); err != nil {
		return nil, err
	}
	gender, err := optionalStringField(req, "gender")
	if err != nil {
		return nil, err
	}
	if gender != nil {
		g := employee.Gender(*gender)
		in.Gender = &g
	}
	if in.CafeID, err = optionalStringField(req, "assigned_cafe_id"); err != nil {
		return nil, err
	}

	updated, err := h.svc.UpdateEmployee(ctx, in)
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(employeeFields(updated))
}

// DeleteEmployee は社員と配属を削除します。
func (h *EmployeeGrpcHandler) DeleteEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(req); err != nil {
		return nil, err
	}

	id, err := stringField(req, "id")
	if err != nil {
		return nil, err
	}

	if err := h.svc.DeleteEmployee(ctx, employee.DeleteEmployeeInput{ID: id}); err != nil {
		return nil, toStatusError(err)
	}

	return &structpb.Struct{}, nil
}

// GetEmployee は社員を取得します。
func (h *EmployeeGrpcHandler) GetEmployee(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(req); err != nil {
		return nil, err
	}

	id, err := stringField(req, "id")
	if err != nil {
		return nil, err
	}

	found, err := h.svc.GetEmployee(ctx, employee.GetEmployeeInput{ID: id})
	if err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(employeeFields(found))
}

// ListEmployees は勤続日数の長い順に社員を返します。cafe でカフェ名を絞り込めます。
func (h *EmployeeGrpcHandler) ListEmployees(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := requireRequest(req); err != nil {
		return nil, err
	}

	cafeName, err := optionalStringField(req, "cafe")
	if err != nil {
		return nil, err
	}
	pageSize, err := intField(req, "page_size")
	if err != nil {
		return nil, err
	}
	pageToken, err := stringField(req, "page_token")
	if err != nil {
		return nil, err
	}

	result, err := h.svc.ListEmployees(ctx, employee.ListEmployeesInput{
		CafeName:  cafeName,
		PageSize:  pageSize,
		PageToken: pageToken,
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	employees := make([]any, 0, len(result.Employees))
	for _, tenure := range result.Employees {
		fields := employeeFields(tenure.Employee)
		fields["days_worked"] = tenure.DaysWorked
		fields["cafe"] = stringOrNil(tenure.CafeName)
		fields["assigned_cafe_id"] = stringOrNil(tenure.CafeID)
		employees = append(employees, fields)
	}

	return toStruct(map[string]any{
		"employees":       employees,
		"next_page_token": result.NextPageToken,
	})
}

func employeeFields(e *employee.Employee) map[string]any {
	if e == nil {
		return map[string]any{}
	}

	fields := map[string]any{
		"id":               e.ID,
		"name":             e.Name,
		"email_address":    e.Email,
		"phone_number":     e.Phone,
		"gender":           string(e.Gender),
		"assigned_cafe_id": nil,
		"start_date":       nil,
		"created_at":       formatTimestamp(e.CreatedAt),
		"updated_at":       formatTimestamp(e.UpdatedAt),
	}
	if e.Assignment != nil {
		fields["assigned_cafe_id"] = e.Assignment.CafeID
		fields["start_date"] = e.Assignment.StartDate.Format(dateLayout)
	}
	return fields
}
