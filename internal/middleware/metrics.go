package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// Metrics stores application metrics
type Metrics struct {
	RequestsTotal      uint64
	RequestsInProgress uint64
	RequestsSuccess    uint64
	RequestsFailed     uint64

	ScansTotal       uint64
	ScansFailed      uint64
	UpstreamFailures uint64
	ExtractFailures  uint64
	SchemaFailures   uint64
	Anomalies        uint64
	RulesFired       uint64

	ChatTotal  uint64
	ChatFailed uint64

	StartTime time.Time
}

var globalMetrics = &Metrics{
	StartTime: time.Now(),
}

func IncrementRequests()    { atomic.AddUint64(&globalMetrics.RequestsTotal, 1) }
func IncrementInProgress()  { atomic.AddUint64(&globalMetrics.RequestsInProgress, 1) }
func DecrementInProgress()  { atomic.AddUint64(&globalMetrics.RequestsInProgress, ^uint64(0)) }
func IncrementSuccess()     { atomic.AddUint64(&globalMetrics.RequestsSuccess, 1) }
func IncrementFailed()      { atomic.AddUint64(&globalMetrics.RequestsFailed, 1) }
func IncrementScans()       { atomic.AddUint64(&globalMetrics.ScansTotal, 1) }
func IncrementChat()        { atomic.AddUint64(&globalMetrics.ChatTotal, 1) }
func IncrementChatFailed()  { atomic.AddUint64(&globalMetrics.ChatFailed, 1) }
func IncrementAnomalies()   { atomic.AddUint64(&globalMetrics.Anomalies, 1) }
func AddRulesFired(n int)   { atomic.AddUint64(&globalMetrics.RulesFired, uint64(n)) }

// IncrementScansFailed counts a failed analysis by pipeline phase
// (upstream, extraction, schema; anything else only bumps the total).
func IncrementScansFailed(phase string) {
	atomic.AddUint64(&globalMetrics.ScansFailed, 1)
	switch phase {
	case "upstream":
		atomic.AddUint64(&globalMetrics.UpstreamFailures, 1)
	case "extraction":
		atomic.AddUint64(&globalMetrics.ExtractFailures, 1)
	case "schema":
		atomic.AddUint64(&globalMetrics.SchemaFailures, 1)
	}
}

// GetMetrics returns current metrics
func GetMetrics() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"requests_total":       atomic.LoadUint64(&globalMetrics.RequestsTotal),
		"requests_in_progress": atomic.LoadUint64(&globalMetrics.RequestsInProgress),
		"requests_success":     atomic.LoadUint64(&globalMetrics.RequestsSuccess),
		"requests_failed":      atomic.LoadUint64(&globalMetrics.RequestsFailed),
		"scans_total":          atomic.LoadUint64(&globalMetrics.ScansTotal),
		"scans_failed":         atomic.LoadUint64(&globalMetrics.ScansFailed),
		"scans_failed_by_phase": map[string]uint64{
			"upstream":   atomic.LoadUint64(&globalMetrics.UpstreamFailures),
			"extraction": atomic.LoadUint64(&globalMetrics.ExtractFailures),
			"schema":     atomic.LoadUint64(&globalMetrics.SchemaFailures),
		},
		"anomalies":      atomic.LoadUint64(&globalMetrics.Anomalies),
		"rules_fired":    atomic.LoadUint64(&globalMetrics.RulesFired),
		"chat_total":     atomic.LoadUint64(&globalMetrics.ChatTotal),
		"chat_failed":    atomic.LoadUint64(&globalMetrics.ChatFailed),
		"uptime_seconds": time.Since(globalMetrics.StartTime).Seconds(),
		"memory": map[string]interface{}{
			"alloc_bytes":       m.Alloc,
			"total_alloc_bytes": m.TotalAlloc,
			"sys_bytes":         m.Sys,
			"num_gc":            m.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// MetricsMiddleware tracks request metrics
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		IncrementRequests()
		IncrementInProgress()
		defer DecrementInProgress()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			IncrementSuccess()
		} else {
			IncrementFailed()
		}
	})
}

// MetricsHandler returns metrics as JSON
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(GetMetrics())
}
