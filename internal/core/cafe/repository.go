package cafe

import "context"

// Repository はカフェエンティティの永続化を行うインターフェースです。
type Repository interface {
	Create(ctx context.Context, cafe *Cafe) (*Cafe, error)
	Update(ctx context.Context, cafe *Cafe) (*Cafe, error)
	// Delete はカフェを削除し、連鎖削除された配属の件数を返します。
	Delete(ctx context.Context, id string) (int, error)
	FindByID(ctx context.Context, id string) (*Cafe, error)
	Exists(ctx context.Context, id string) (bool, error)
	ListWithEmployeeCounts(ctx context.Context, filter ListCafesFilter) ([]*Roster, string, error)
}

// ListCafesFilter は一覧取得時の検索条件を表します。
type ListCafesFilter struct {
	Limit    int
	Offset   int
	Location *string
}
