package identifier

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Recorder は採番結果をメトリクスへ記録します。
type Recorder interface {
	IdentifierAllocated()
	IdentifierSpaceExhausted()
}

type noopRecorder struct{}

func (noopRecorder) IdentifierAllocated()      {}
func (noopRecorder) IdentifierSpaceExhausted() {}

// Option は Allocator の任意設定です。
type Option func(*Allocator)

// WithLogger はロガーを設定します。
func WithLogger(log *zap.Logger) Option {
	return func(a *Allocator) {
		if log != nil {
			a.log = log
		}
	}
}

// WithRecorder はメトリクスの記録先を設定します。
func WithRecorder(r Recorder) Option {
	return func(a *Allocator) {
		if r != nil {
			a.recorder = r
		}
	}
}

// Allocator は社員 ID を連番で払い出します。
// 呼び出しは社員の登録と同じ読み書きトランザクション内で行う必要があります。
type Allocator struct {
	store    SequenceStore
	prefix   string
	width    int
	log      *zap.Logger
	recorder Recorder
}

// NewAllocator は Allocator を生成します。
func NewAllocator(store SequenceStore, prefix string, width int, opts ...Option) *Allocator {
	a := &Allocator{
		store:    store,
		prefix:   prefix,
		width:    width,
		log:      zap.NewNop(),
		recorder: noopRecorder{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Prefix は払い出す ID のプレフィックスを返します。
func (a *Allocator) Prefix() string {
	return a.prefix
}

// Next は次の社員 ID を返します。
func (a *Allocator) Next(ctx context.Context) (string, error) {
	last, err := a.store.LastIssued(ctx, a.prefix)
	if err != nil {
		return "", fmt.Errorf("identifier: read last issued: %w", err)
	}

	next := last + 1
	id, err := Format(a.prefix, a.width, next)
	if err != nil {
		if errors.Is(err, ErrSpaceExhausted) {
			a.recorder.IdentifierSpaceExhausted()
			a.log.Error("employee identifier space exhausted",
				zap.String("prefix", a.prefix),
				zap.Int("width", a.width),
				zap.Int64("last_issued", last),
			)
		}
		return "", err
	}

	if err := a.store.Record(ctx, a.prefix, next); err != nil {
		return "", fmt.Errorf("identifier: record %s: %w", id, err)
	}

	a.recorder.IdentifierAllocated()
	a.log.Debug("employee identifier allocated", zap.String("id", id))

	return id, nil
}
