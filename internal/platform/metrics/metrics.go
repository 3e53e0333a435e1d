package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics はアプリケーションの監視に使う Prometheus メトリクスをまとめます。
type Metrics struct {
	DBQueryDuration       *prometheus.HistogramVec
	EmployeeIDsAllocated  prometheus.Counter
	EmployeeIDsExhausted  prometheus.Counter
	AssignmentTransitions *prometheus.CounterVec
	RPCRequests           *prometheus.CounterVec
	RPCDuration           *prometheus.HistogramVec
}

// NewMetrics は reg にメトリクスを登録して Metrics を生成します。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DBQueryDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cafestaff_db_query_duration_seconds",
			Help:    "Duration of database queries.",
			Buckets: prometheus.DefBuckets,
		}, []string{"query"}),
		EmployeeIDsAllocated: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "cafestaff_employee_ids_allocated_total",
			Help: "Total number of employee identifiers handed out by the allocator.",
		}),
		EmployeeIDsExhausted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "cafestaff_employee_id_space_exhausted_total",
			Help: "Total number of allocations rejected because the identifier space is exhausted.",
		}),
		AssignmentTransitions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "cafestaff_assignment_transitions_total",
			Help: "Assignment ledger transitions by kind.",
		}, []string{"transition"}), // created, reassigned, unchanged, removed
		RPCRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "cafestaff_rpc_requests_total",
			Help: "gRPC requests by method and status code.",
		}, []string{"method", "code"}),
		RPCDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cafestaff_rpc_duration_seconds",
			Help:    "gRPC request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}

	for _, transition := range []string{"created", "reassigned", "unchanged", "removed"} {
		m.AssignmentTransitions.WithLabelValues(transition)
	}

	return m
}

// ObserveQuery は start からの経過時間を query ラベルで記録します。
func (m *Metrics) ObserveQuery(query string, start time.Time) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
}

// IdentifierAllocated は社員 ID の払い出しを記録します。
func (m *Metrics) IdentifierAllocated() {
	if m == nil {
		return
	}
	m.EmployeeIDsAllocated.Inc()
}

// IdentifierSpaceExhausted は ID 空間枯渇による失敗を記録します。
func (m *Metrics) IdentifierSpaceExhausted() {
	if m == nil {
		return
	}
	m.EmployeeIDsExhausted.Inc()
}

// AssignmentChanged は配属台帳の遷移を記録します。
func (m *Metrics) AssignmentChanged(transition string) {
	if m == nil {
		return
	}
	m.AssignmentTransitions.WithLabelValues(transition).Inc()
}

// ObserveRPC は gRPC 呼び出しの結果と所要時間を記録します。
func (m *Metrics) ObserveRPC(method, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RPCRequests.WithLabelValues(method, code).Inc()
	m.RPCDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}
