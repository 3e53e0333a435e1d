package employee

import (
	"context"
	"time"
)

// Repository は社員と配属の永続化の抽象です。
type Repository interface {
	Create(ctx context.Context, employee *Employee) (*Employee, error)
	Update(ctx context.Context, employee *Employee) (*Employee, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*Employee, error)

	FindAssignment(ctx context.Context, employeeID string) (*Assignment, error)
	InsertAssignment(ctx context.Context, assignment Assignment) error
	MoveAssignment(ctx context.Context, assignment Assignment) error
	DeleteAssignment(ctx context.Context, employeeID string) error

	ListTenure(ctx context.Context, filter ListTenureFilter) ([]*Tenure, string, error)
}

// ListTenureFilter は勤続日数一覧用フィルタです。
type ListTenureFilter struct {
	CafeName *string
	Today    time.Time
	Limit    int
	Offset   int
}

// CafeLookup は配属先カフェの存在確認を行います。
type CafeLookup interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// IDAllocator は新しい社員 ID を払い出します。
type IDAllocator interface {
	Next(ctx context.Context) (string, error)
	Prefix() string
}
