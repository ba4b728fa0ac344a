package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/brunodias77/bcommerce-server-sub000/internal/version"
)

// Status — итог проверки компонента.
type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

const checkTimeout = 3 * time.Second

// Checker проверяет доступность одного компонента (БД, брокер, кэш).
type Checker interface {
	CheckHealth(ctx context.Context) error
}

// CheckFunc адаптирует функцию к интерфейсу Checker.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) CheckHealth(ctx context.Context) error { return f(ctx) }

// componentResult — результат одной проверки в JSON-ответе.
type componentResult struct {
	Component  string `json:"component"`
	Status     Status `json:"status"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

type response struct {
	Status        Status            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Components    []componentResult `json:"components,omitempty"`
}

// Registry держит именованные проверки и отдаёт их состояние по HTTP.
type Registry struct {
	mu        sync.RWMutex
	checkers  map[string]Checker
	startedAt time.Time
}

// NewRegistry создаёт пустой реестр проверок.
func NewRegistry() *Registry {
	return &Registry{
		checkers:  make(map[string]Checker),
		startedAt: time.Now(),
	}
}

// Register добавляет проверку компонента. Повторная регистрация того же
// имени заменяет предыдущую проверку.
func (r *Registry) Register(name string, checker Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[name] = checker
}

// run прогоняет все проверки с таймаутом на каждую.
func (r *Registry) run(ctx context.Context) []componentResult {
	r.mu.RLock()
	names := make([]string, 0, len(r.checkers))
	for name := range r.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	checkers := make([]Checker, 0, len(names))
	for _, name := range names {
		checkers = append(checkers, r.checkers[name])
	}
	r.mu.RUnlock()

	results := make([]componentResult, 0, len(names))
	for idx, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		start := time.Now()
		err := checkers[idx].CheckHealth(checkCtx)
		cancel()

		result := componentResult{
			Component:  name,
			Status:     StatusUp,
			DurationMs: time.Since(start).Milliseconds(),
		}
		if err != nil {
			result.Status = StatusDown
			result.Error = err.Error()
		}
		results = append(results, result)
	}
	return results
}

// Handler отдаёт полный отчёт: 200 когда все компоненты доступны,
// 503 при любом отказе.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		components := r.run(req.Context())

		overall := StatusUp
		for _, component := range components {
			if component.Status == StatusDown {
				overall = StatusDown
				break
			}
		}

		v, _, _ := version.Info()
		body := response{
			Status:        overall,
			Version:       v,
			UptimeSeconds: int64(time.Since(r.startedAt).Seconds()),
			Components:    components,
		}

		statusCode := http.StatusOK
		if overall == StatusDown {
			statusCode = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_ = json.NewEncoder(w).Encode(body)
	})
}

// ReadinessHandler — готовность без тела ответа: годится для проб
// оркестратора.
func (r *Registry) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		for _, component := range r.run(req.Context()) {
			if component.Status == StatusDown {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("not ready"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
}

// LivenessHandler всегда отвечает 200: процесс жив.
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
