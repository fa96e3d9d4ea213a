package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger checks one dependency.
type Pinger func(ctx context.Context) error

// Health reports OK when every dependency answers within two seconds.
func Health(checks map[string]Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := make(map[string]string, len(checks))
		for name, ping := range checks {
			if err := ping(ctx); err != nil {
				deps[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			deps[name] = "OK"
		}
		body := gin.H{"status": "OK", "dependencies": deps}
		if status != http.StatusOK {
			body["status"] = "DEGRADED"
		}
		c.JSON(status, body)
	}
}
