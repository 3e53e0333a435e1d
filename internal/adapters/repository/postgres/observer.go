package postgres

import "time"

const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
)

// QueryObserver はクエリの所要時間を記録します。
type QueryObserver interface {
	ObserveQuery(query string, start time.Time)
}

type noopObserver struct{}

func (noopObserver) ObserveQuery(string, time.Time) {}

func observerOrNoop(o QueryObserver) QueryObserver {
	if o == nil {
		return noopObserver{}
	}
	return o
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}
