package observability

import (
	"strconv"
	"sync"
	"time"
)

type routeKey struct {
	route   string
	method  string
	outcome string
}

// Metrics keeps per-route counters in process memory: request totals,
// accumulated latency and error counts keyed by domain error code.
type Metrics struct {
	mu       sync.Mutex
	requests map[routeKey]int64
	latency  map[routeKey]time.Duration
	errors   map[routeKey]int64
}

// NewMetrics initializes empty counter maps.
func NewMetrics() *Metrics {
	return &Metrics{
		requests: make(map[routeKey]int64),
		latency:  make(map[routeKey]time.Duration),
		errors:   make(map[routeKey]int64),
	}
}

// RecordRequest counts a finished request and folds its duration into the
// route's running latency total.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := routeKey{route: path, method: method, outcome: strconv.Itoa(status)}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[key]++
	m.latency[key] += duration
}

// RecordError counts a request that resolved to a domain error code.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := routeKey{route: path, method: method, outcome: code}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[key]++
}
