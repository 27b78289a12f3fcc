package app

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/videotube-users/internal/dto"
	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker pings the stores every request depends on
type HealthChecker struct {
	infra Infrastructure
}

func NewHealthChecker(infra Infrastructure) *HealthChecker {
	return &HealthChecker{infra: infra}
}

// check pings every dependency concurrently and returns "pass" or the error text per component
func (h *HealthChecker) check(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	deps := map[string]pinger{
		"mongodb": h.infra.Mongo(),
		"redis":   h.infra.Redis(),
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]string, len(deps))
		healthy = true
	)
	for name, dep := range deps {
		name, dep := name, dep
		wg.Add(1)
		go func() {
			defer wg.Done()
			status := "pass"
			if err := dep.Ping(ctx); err != nil {
				h.infra.Logger().Warn("health check failed", zap.String("component", name), zap.Error(err))
				status = err.Error()
			}
			mu.Lock()
			defer mu.Unlock()
			results[name] = status
			if status != "pass" {
				healthy = false
			}
		}()
	}
	wg.Wait()

	return results, healthy
}

func (h *HealthChecker) Handler(c *gin.Context) {
	components, healthy := h.check(c.Request.Context())

	status, code, message := "pass", http.StatusOK, "OK"
	if !healthy {
		status, code, message = "fail", http.StatusServiceUnavailable, "Service unavailable"
	}

	c.JSON(code, dto.APIResponse{
		StatusCode: code,
		Data:       gin.H{"status": status, "service": serviceName, "components": components},
		Message:    message,
		Success:    healthy,
	})
}
