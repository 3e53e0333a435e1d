package postgres

import (
	"context"
	"time"

	pgdb "github.com/ogurasousui/cafe-staffing/internal/platform/db/postgres"
)

// SequenceRepository は社員 ID の払い出し済み連番を PostgreSQL で管理します。
type SequenceRepository struct {
	pool     pgdb.Queryer
	observer QueryObserver
}

// NewSequenceRepository は SequenceRepository を生成します。
func NewSequenceRepository(pool pgdb.Queryer, observer QueryObserver) *SequenceRepository {
	return &SequenceRepository{pool: pool, observer: observerOrNoop(observer)}
}

// LastIssued は prefix の行をロックし、記録済みの最大値と employees に保存済みの最大連番の大きい方を返します。
// ロックは呼び出し元のトランザクションが終わるまで保持され、同時に走る払い出しはコミットまで直列化されます。
// 直列化そのものは実 DB が必要なため `go test -tags integration ./...` の結合テストで検証します。
func (r *SequenceRepository) LastIssued(ctx context.Context, prefix string) (int64, error) {
	defer r.observer.ObserveQuery("sequence_last_issued", time.Now())

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        WITH seq AS (
            INSERT INTO employee_id_sequences (prefix, last_value)
            VALUES ($1, 0)
            ON CONFLICT (prefix) DO UPDATE SET prefix = EXCLUDED.prefix
            RETURNING last_value
        )
        SELECT GREATEST(
                   (SELECT last_value FROM seq),
                   COALESCE((
                       SELECT MAX(CAST(SUBSTRING(id FROM char_length($1) + 1) AS BIGINT))
                         FROM employees
                        WHERE left(id, char_length($1)) = $1
                          AND SUBSTRING(id FROM char_length($1) + 1) ~ '^[0-9]{1,18}$'
                   ), 0)
               )
    `, prefix)

	var last int64
	if err := row.Scan(&last); err != nil {
		return 0, err
	}
	return last, nil
}

// Record は prefix の払い出し済み連番を n に更新します。
func (r *SequenceRepository) Record(ctx context.Context, prefix string, n int64) error {
	defer r.observer.ObserveQuery("sequence_record", time.Now())

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	_, err := exec.Exec(ctx, `
        UPDATE employee_id_sequences
           SET last_value = $2
         WHERE prefix = $1
    `, prefix, n)
	return err
}
