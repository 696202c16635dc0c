package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// Health is the liveness report served at /health. Load balancers key off
// the status code; the body is for humans reading the probe by hand.
type Health struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	OpenConns int32  `json:"open_conns"`
}

// HealthHandler reports whether the API can reach its database. A failed
// ping answers 503 so the instance is taken out of rotation.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		h := Health{Status: "ok", Database: "up", OpenConns: pool.Stat().TotalConns()}
		if err := pool.Ping(ctx); err != nil {
			h.Status = "degraded"
			h.Database = err.Error()
			return c.JSON(http.StatusServiceUnavailable, h)
		}
		return c.JSON(http.StatusOK, h)
	}
}
