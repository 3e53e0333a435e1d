package employee

import "time"

// Gender は社員の性別を表します。
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

// Employee は社員エンティティです。
type Employee struct {
	ID         string
	Name       string
	Email      string
	Phone      string
	Gender     Gender
	Assignment *Assignment
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Assignment は社員とカフェの配属を表します。社員ごとに高々 1 件です。
type Assignment struct {
	EmployeeID string
	CafeID     string
	StartDate  time.Time
}

// Tenure は社員の勤続日数と配属先カフェです。未配属の場合 DaysWorked は 0 です。
type Tenure struct {
	Employee   *Employee
	DaysWorked int
	CafeID     *string
	CafeName   *string
}
