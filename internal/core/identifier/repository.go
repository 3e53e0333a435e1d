package identifier

import "context"

// SequenceStore は払い出し済み連番の永続化を行うインターフェースです。
//
// LastIssued は呼び出し元のトランザクションが終わるまで prefix の採番を排他し、
// 記録済みの最大値と保存済み社員 ID の最大連番のうち大きい方を返します。
type SequenceStore interface {
	LastIssued(ctx context.Context, prefix string) (int64, error)
	Record(ctx context.Context, prefix string, n int64) error
}
