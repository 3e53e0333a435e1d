package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ogurasousui/cafe-staffing/internal/core/cafe"
	pgdb "github.com/ogurasousui/cafe-staffing/internal/platform/db/postgres"
)

// CafeRepository は PostgreSQL を利用したカフェ永続化の実装です。
type CafeRepository struct {
	pool     pgdb.Queryer
	observer QueryObserver
}

// NewCafeRepository は CafeRepository を生成します。
func NewCafeRepository(pool pgdb.Queryer, observer QueryObserver) *CafeRepository {
	return &CafeRepository{pool: pool, observer: observerOrNoop(observer)}
}

// Create はカフェを新規作成します。
func (r *CafeRepository) Create(ctx context.Context, c *cafe.Cafe) (*cafe.Cafe, error) {
	defer r.observer.ObserveQuery("cafe_create", time.Now())

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO cafes (id, name, description, logo, location, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id::text, name, description, logo, location, created_at, updated_at
    `, c.ID, c.Name, c.Description, nullableString(c.Logo), c.Location, c.CreatedAt, c.UpdatedAt)

	created, err := scanCafe(row)
	if err != nil {
		return nil, translateCafePgError(err)
	}
	return created, nil
}

// Update はカフェ情報を更新します。
func (r *CafeRepository) Update(ctx context.Context, c *cafe.Cafe) (*cafe.Cafe, error) {
	defer r.observer.ObserveQuery("cafe_update", time.Now())

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE cafes
           SET name = $1,
               description = $2,
               logo = $3,
               location = $4,
               updated_at = $5
         WHERE id = $6
        RETURNING id::text, name, description, logo, location, created_at, updated_at
    `, c.Name, c.Description, nullableString(c.Logo), c.Location, c.UpdatedAt, c.ID)

	updated, err := scanCafe(row)
	if err != nil {
		return nil, translateCafePgError(err)
	}
	return updated, nil
}

// Delete はカフェを削除し、外部キーの連鎖で削除された配属の件数を返します。
func (r *CafeRepository) Delete(ctx context.Context, id string) (int, error) {
	defer r.observer.ObserveQuery("cafe_delete", time.Now())

	// 文の開始時点のスナップショットで数えるため、連鎖削除される前の配属件数が得られる
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        WITH deleted AS (
            DELETE FROM cafes WHERE id = $1 RETURNING id
        )
        SELECT (SELECT COUNT(*) FROM deleted),
               (SELECT COUNT(*) FROM employee_cafe ec JOIN deleted d ON ec.cafe_id = d.id)
    `, id)

	var deleted, assignments int64
	if err := row.Scan(&deleted, &assignments); err != nil {
		return 0, translateCafePgError(err)
	}
	if deleted == 0 {
		return 0, cafe.ErrCafeNotFound
	}
	return int(assignments), nil
}

// FindByID は ID でカフェを取得します。
func (r *CafeRepository) FindByID(ctx context.Context, id string) (*cafe.Cafe, error) {
	defer r.observer.ObserveQuery("cafe_find_by_id", time.Now())

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT id::text, name, description, logo, location, created_at, updated_at
          FROM cafes
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanCafe(row)
	if err != nil {
		return nil, translateCafePgError(err)
	}
	return found, nil
}

// Exists はカフェが存在するかを返します。
func (r *CafeRepository) Exists(ctx context.Context, id string) (bool, error) {
	defer r.observer.ObserveQuery("cafe_exists", time.Now())

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	var exists bool
	if err := exec.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM cafes WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListWithEmployeeCounts はカフェごとの配属社員数を多い順に取得します。
// 社員のいないカフェも 0 件として含み、同数の場合は作成日時と ID の昇順です。
func (r *CafeRepository) ListWithEmployeeCounts(ctx context.Context, filter cafe.ListCafesFilter) ([]*cafe.Roster, string, error) {
	if filter.Limit <= 0 {
		return nil, "", cafe.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", cafe.ErrInvalidPageToken
	}

	defer r.observer.ObserveQuery("cafe_list_with_employee_counts", time.Now())

	limitWithBuffer := filter.Limit + 1

	args := make([]any, 0, 3)
	whereClause := ""
	if filter.Location != nil {
		args = append(args, *filter.Location)
		whereClause = "\n         WHERE c.location = $" + strconv.Itoa(len(args))
	}

	args = append(args, limitWithBuffer)
	limitPlaceholder := "$" + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	offsetPlaceholder := "$" + strconv.Itoa(len(args))

	query := `
        SELECT c.id::text, c.name, c.description, c.logo, c.location, c.created_at, c.updated_at,
               COUNT(ec.employee_id) AS employees
          FROM cafes c
          LEFT JOIN employee_cafe ec ON ec.cafe_id = c.id` + whereClause + `
         GROUP BY c.id
         ORDER BY employees DESC, c.created_at ASC, c.id ASC
         LIMIT ` + limitPlaceholder + `
        OFFSET ` + offsetPlaceholder

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, "", translateCafePgError(err)
	}
	defer rows.Close()

	rosters := make([]*cafe.Roster, 0, filter.Limit)
	for rows.Next() {
		var count int64
		c, err := scanCafeWith(rows, &count)
		if err != nil {
			return nil, "", translateCafePgError(err)
		}
		rosters = append(rosters, &cafe.Roster{Cafe: c, Employees: int(count)})
	}

	if err := rows.Err(); err != nil {
		return nil, "", translateCafePgError(err)
	}

	var nextToken string
	if len(rosters) == limitWithBuffer {
		rosters = rosters[:filter.Limit]
		nextToken = strconv.Itoa(filter.Offset + filter.Limit)
	}

	return rosters, nextToken, nil
}

func scanCafe(row pgx.Row) (*cafe.Cafe, error) {
	return scanCafeWith(row)
}

// scanCafeWith はカフェの列に続けて extra の列を読み取ります。
func scanCafeWith(row pgx.Row, extra ...any) (*cafe.Cafe, error) {
	var (
		c    cafe.Cafe
		logo sql.NullString
	)

	dest := append([]any{
		&c.ID,
		&c.Name,
		&c.Description,
		&logo,
		&c.Location,
		&c.CreatedAt,
		&c.UpdatedAt,
	}, extra...)

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cafe.ErrCafeNotFound
		}
		return nil, err
	}

	if logo.Valid {
		value := logo.String
		c.Logo = &value
	}

	return &c, nil
}

func translateCafePgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return cafe.ErrCafeNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return cafe.ErrCafeConflict
	}

	return err
}
