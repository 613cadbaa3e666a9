package handlers

import (
	"net/http"
	"time"

	"github.com/turnover-ops/backend/internal/storage"
	"github.com/turnover-ops/backend/internal/storage/models"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status      string `json:"status"`
	Date        string `json:"date"`
	DBConnected bool   `json:"db_connected"`
}

// HealthCheck returns a handler that reports service health and the current
// day in the operating timezone.
func HealthCheck(db *storage.DB, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbConnected := db.PingContext(r.Context()) == nil

		status := "healthy"
		code := http.StatusOK
		if !dbConnected {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		writeJSON(w, code, HealthResponse{
			Status:      status,
			Date:        time.Now().In(loc).Format(models.DateLayout),
			DBConnected: dbConnected,
		})
	}
}
