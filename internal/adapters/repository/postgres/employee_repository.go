package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ogurasousui/cafe-staffing/internal/core/employee"
	pgdb "github.com/ogurasousui/cafe-staffing/internal/platform/db/postgres"
)

const (
	assignmentCafeForeignKey     = "employee_cafe_cafe_id_fkey"
	assignmentEmployeeForeignKey = "employee_cafe_employee_id_fkey"
)

// EmployeeRepository は PostgreSQL を利用した社員と配属の永続化の実装です。
type EmployeeRepository struct {
	pool     pgdb.Queryer
	observer QueryObserver
}

// NewEmployeeRepository は EmployeeRepository を生成します。
func NewEmployeeRepository(pool pgdb.Queryer, observer QueryObserver) *EmployeeRepository {
	return &EmployeeRepository{pool: pool, observer: observerOrNoop(observer)}
}

// Create は社員を新規作成します。主キーが重複した場合は ErrEmployeeConflict を返します。
func (r *EmployeeRepository) Create(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	defer r.observer.ObserveQuery("employee_create", time.Now())

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO employees (id, name, email_address, phone_number, gender, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, name, email_address, phone_number, gender, created_at, updated_at
    `, e.ID, e.Name, e.Email, e.Phone, string(e.Gender), e.CreatedAt, e.UpdatedAt)

	created, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return created, nil
}

// Update は社員情報を更新します。配属は更新しません。
func (r *EmployeeRepository) Update(ctx context.Context, e *employee.Employee) (*employee.Employee, error) {
	defer r.observer.ObserveQuery("employee_update", time.Now())

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE employees
           SET name = $1,
               email_address = $2,
               phone_number = $3,
               gender = $4,
               updated_at = $5
         WHERE id = $6
        RETURNING id, name, email_address, phone_number, gender, created_at, updated_at
    `, e.Name, e.Email, e.Phone, string(e.Gender), e.UpdatedAt, e.ID)

	updated, err := scanEmployee(row)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}
	return updated, nil
}

// Delete は社員を削除します。配属は外部キーの連鎖で削除されます。
func (r *EmployeeRepository) Delete(ctx context.Context, id string) error {
	defer r.observer.ObserveQuery("employee_delete", time.Now())

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return translateEmployeePgError(err)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}

// FindByID は現在の配属を含めて社員を取得します。
func (r *EmployeeRepository) FindByID(ctx context.Context, id string) (*employee.Employee, error) {
	defer r.observer.ObserveQuery("employee_find_by_id", time.Now())

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT e.id,
               e.name,
               e.email_address,
               e.phone_number,
               e.gender,
               e.created_at,
               e.updated_at,
               ec.cafe_id::text,
               ec.start_date
          FROM employees e
          LEFT JOIN employee_cafe ec ON ec.employee_id = e.id
         WHERE e.id = $1
         LIMIT 1
    `, id)

	var (
		cafeID    sql.NullString
		startDate sql.NullTime
	)
	found, err := scanEmployee(row, &cafeID, &startDate)
	if err != nil {
		return nil, translateEmployeePgError(err)
	}

	if cafeID.Valid {
		found.Assignment = &employee.Assignment{
			EmployeeID: found.ID,
			CafeID:     cafeID.String,
			StartDate:  toDate(startDate.Time),
		}
	}
	return found, nil
}

// FindAssignment は社員の配属を行ロック付きで取得します。
func (r *EmployeeRepository) FindAssignment(ctx context.Context, employeeID string) (*employee.Assignment, error) {
	defer r.observer.ObserveQuery("assignment_find", time.Now())

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT employee_id, cafe_id::text, start_date
          FROM employee_cafe
         WHERE employee_id = $1
           FOR UPDATE
    `, employeeID)

	var (
		a         employee.Assignment
		startDate time.Time
	)
	if err := row.Scan(&a.EmployeeID, &a.CafeID, &startDate); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, employee.ErrAssignmentNotFound
		}
		return nil, err
	}
	a.StartDate = toDate(startDate)
	return &a, nil
}

// InsertAssignment は配属を追加します。
func (r *EmployeeRepository) InsertAssignment(ctx context.Context, a employee.Assignment) error {
	defer r.observer.ObserveQuery("assignment_insert", time.Now())

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	_, err := exec.Exec(ctx, `
        INSERT INTO employee_cafe (employee_id, cafe_id, start_date)
        VALUES ($1, $2, $3)
    `, a.EmployeeID, a.CafeID, toDate(a.StartDate))
	return translateAssignmentPgError(err)
}

// MoveAssignment は既存の配属先と開始日を書き換えます。
func (r *EmployeeRepository) MoveAssignment(ctx context.Context, a employee.Assignment) error {
	defer r.observer.ObserveQuery("assignment_move", time.Now())

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
        UPDATE employee_cafe
           SET cafe_id = $2,
               start_date = $3
         WHERE employee_id = $1
    `, a.EmployeeID, a.CafeID, toDate(a.StartDate))
	if err != nil {
		return translateAssignmentPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrAssignmentNotFound
	}
	return nil
}

// DeleteAssignment は社員の配属を削除します。
func (r *EmployeeRepository) DeleteAssignment(ctx context.Context, employeeID string) error {
	defer r.observer.ObserveQuery("assignment_delete", time.Now())

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM employee_cafe WHERE employee_id = $1`, employeeID)
	if err != nil {
		return translateAssignmentPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrAssignmentNotFound
	}
	return nil
}

// ListTenure は社員ごとの勤続日数を長い順に取得します。
// 勤続日数は filter.Today と配属開始日の差で、未配属の社員は 0 日です。
func (r *EmployeeRepository) ListTenure(ctx context.Context, filter employee.ListTenureFilter) ([]*employee.Tenure, string, error) {
	if filter.Limit <= 0 {
		return nil, "", employee.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", employee.ErrInvalidPageToken
	}

	defer r.observer.ObserveQuery("employee_list_tenure", time.Now())

	limitWithBuffer := filter.Limit + 1

	args := []any{toDate(filter.Today)}
	whereClause := ""
	if filter.CafeName != nil {
		args = append(args, *filter.CafeName)
		whereClause = "\n         WHERE c.name = $" + strconv.Itoa(len(args))
	}

	args = append(args, limitWithBuffer)
	limitPlaceholder := "$" + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	offsetPlaceholder := "$" + strconv.Itoa(len(args))

	query := `
        SELECT e.id,
               e.name,
               e.email_address,
               e.phone_number,
               e.gender,
               e.created_at,
               e.updated_at,
               COALESCE($1::date - ec.start_date, 0) AS days_worked,
               c.id::text,
               c.name
          FROM employees e
          LEFT JOIN employee_cafe ec ON ec.employee_id = e.id
          LEFT JOIN cafes c ON c.id = ec.cafe_id` + whereClause + `
         ORDER BY days_worked DESC, e.id ASC
         LIMIT ` + limitPlaceholder + `
        OFFSET ` + offsetPlaceholder

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, "", translateEmployeePgError(err)
	}
	defer rows.Close()

	tenures := make([]*employee.Tenure, 0, filter.Limit)
	for rows.Next() {
		var (
			days     int32
			cafeID   sql.NullString
			cafeName sql.NullString
		)
		emp, err := scanEmployee(rows, &days, &cafeID, &cafeName)
		if err != nil {
			return nil, "", translateEmployeePgError(err)
		}

		tenure := &employee.Tenure{Employee: emp, DaysWorked: int(days)}
		if cafeID.Valid {
			id := cafeID.String
			tenure.CafeID = &id
		}
		if cafeName.Valid {
			name := cafeName.String
			tenure.CafeName = &name
		}
		tenures = append(tenures, tenure)
	}

	if err := rows.Err(); err != nil {
		return nil, "", translateEmployeePgError(err)
	}

	var nextToken string
	if len(tenures) == limitWithBuffer {
		tenures = tenures[:filter.Limit]
		nextToken = strconv.Itoa(filter.Offset + filter.Limit)
	}

	return tenures, nextToken, nil
}

// scanEmployee は社員の列に続けて extra の列を読み取ります。
func scanEmployee(row pgx.Row, extra ...any) (*employee.Employee, error) {
	var (
		e      employee.Employee
		gender string
	)

	dest := append([]any{
		&e.ID,
		&e.Name,
		&e.Email,
		&e.Phone,
		&gender,
		&e.CreatedAt,
		&e.UpdatedAt,
	}, extra...)

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, employee.ErrEmployeeNotFound
		}
		return nil, err
	}

	e.Gender = employee.Gender(gender)
	return &e, nil
}

func translateEmployeePgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return employee.ErrEmployeeNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return employee.ErrEmployeeConflict
	}

	return err
}

func translateAssignmentPgError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return employee.ErrEmployeeConflict
		case foreignKeyViolationCode:
			switch pgErr.ConstraintName {
			case assignmentCafeForeignKey:
				return employee.ErrCafeNotFound
			case assignmentEmployeeForeignKey:
				return employee.ErrEmployeeNotFound
			default:
				return err
			}
		}
	}

	return err
}

func toDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
