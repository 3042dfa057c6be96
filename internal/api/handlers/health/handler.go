package health

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/m04kA/SMC-CourtReservationService/internal/api/handlers"
)

const checkTimeout = 2 * time.Second

// Check проверка зависимости
type Check func(ctx context.Context) error

type Logger interface {
	Warn(format string, v ...interface{})
}

// Response состояние сервиса и его зависимостей
type Response struct {
	Status string            `json:"status"` // ok | degraded
	Checks map[string]string `json:"checks"`
}

type Handler struct {
	checks map[string]Check
	logger Logger
}

func NewHandler(checks map[string]Check, logger Logger) *Handler {
	return &Handler{
		checks: checks,
		logger: logger,
	}
}

// Handle GET /health
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := Response{Status: "ok", Checks: make(map[string]string, len(names))}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.Warn("GET /health - %s check failed: %v", name, err)
			resp.Status = "degraded"
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	handlers.RespondJSON(w, status, resp)
}
