package cafe

import "time"

// Cafe はカフェエンティティです。
type Cafe struct {
	ID          string
	Name        string
	Description string
	Logo        *string
	Location    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Roster はカフェと現在配属されている社員数の組です。
type Roster struct {
	Cafe      *Cafe
	Employees int
}
