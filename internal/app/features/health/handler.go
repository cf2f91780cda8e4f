// internal/app/features/health/handler.go

// Package health reports service liveness and database reachability.
package health

import (
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/felehub/felehub/internal/app/features/shared/respond"
	"github.com/felehub/felehub/internal/app/system/timeouts"
)

type Handler struct {
	Client *mongo.Client
	Log    *zap.Logger

	startedAt time.Time
}

func NewHandler(client *mongo.Client, logger *zap.Logger) *Handler {
	return &Handler{Client: client, Log: logger, startedAt: time.Now().UTC()}
}

// ServeHealth pings the document store and reports status. A failed ping
// is a 503 so load balancers stop routing here.
func (h *Handler) ServeHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "ok"
	code := http.StatusOK

	if h.Client != nil {
		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Ping(), h.Log, "health ping")
		defer cancel()

		if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
			h.Log.Warn("health ping failed", zap.Error(err))
			status = "degraded"
			dbStatus = "unreachable"
			code = http.StatusServiceUnavailable
		}
	}

	respond.JSON(w, code, map[string]string{
		"status":   status,
		"database": dbStatus,
		"uptime":   time.Since(h.startedAt).Truncate(time.Second).String(),
	})
}
