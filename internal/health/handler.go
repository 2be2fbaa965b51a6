package health

import (
	"context"
	"net/http"
	"time"

	"tanbroker/internal/httputil"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	db          Pinger
	brokerage   bool
	startedAt   time.Time
	pingTimeout time.Duration
}

// NewHandler takes a nil db when the journal is not persisted. brokerage
// reports whether a brokerage session is configured.
func NewHandler(db Pinger, brokerage bool, startedAt time.Time) *Handler {
	start := startedAt.UTC()
	if start.IsZero() {
		start = time.Now().UTC()
	}
	return &Handler{db: db, brokerage: brokerage, startedAt: start, pingTimeout: time.Second}
}

type liveResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	UptimeSec int64  `json:"uptime_sec"`
	Uptime    string `json:"uptime"`
}

type readinessResponse struct {
	Status    string          `json:"status"`
	Timestamp string          `json:"timestamp"`
	UptimeSec int64           `json:"uptime_sec"`
	Brokerage string          `json:"brokerage"`
	Database  readinessDBStat `json:"database"`
}

type readinessDBStat struct {
	Configured bool   `json:"configured"`
	Reachable  bool   `json:"reachable"`
	PingMs     int64  `json:"ping_ms"`
	Error      string `json:"error,omitempty"`
}

func (h *Handler) uptime(now time.Time) time.Duration {
	uptime := now.Sub(h.startedAt)
	if uptime < 0 {
		return 0
	}
	return uptime
}

func (h *Handler) collectDB(ctx context.Context) readinessDBStat {
	if h.db == nil {
		return readinessDBStat{}
	}
	start := time.Now()
	pingCtx, cancel := context.WithTimeout(ctx, h.pingTimeout)
	err := h.db.Ping(pingCtx)
	cancel()
	stat := readinessDBStat{Configured: true, PingMs: time.Since(start).Milliseconds()}
	if err != nil {
		stat.Error = err.Error()
		return stat
	}
	stat.Reachable = true
	return stat
}

// Live does not touch any dependency.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	uptime := h.uptime(now)
	httputil.WriteJSON(w, http.StatusOK, liveResponse{
		Status:    "ok",
		Timestamp: now.Format(time.RFC3339),
		UptimeSec: int64(uptime.Seconds()),
		Uptime:    uptime.String(),
	})
}

// Ready answers 503 when a configured journal database is unreachable or
// no brokerage session is configured.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	db := h.collectDB(r.Context())
	resp := readinessResponse{
		Status:    "ok",
		Timestamp: now.Format(time.RFC3339),
		UptimeSec: int64(h.uptime(now).Seconds()),
		Brokerage: "configured",
		Database:  db,
	}
	status := http.StatusOK
	if !h.brokerage {
		resp.Brokerage = "disabled"
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	if db.Configured && !db.Reachable {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, resp)
}
