package portal

import (
	"context"

	"github.com/medrex/clinic-portal/internal/auth"
	"github.com/medrex/clinic-portal/internal/session"
	"github.com/medrex/clinic-portal/pkg/monitoring"
)

// SessionHealth is unhealthy until the initial restore has settled and
// after the lifecycle is closed
func SessionHealth(lifecycle *auth.Lifecycle) monitoring.HealthChecker {
	return monitoring.HealthCheckFunc(func(ctx context.Context) monitoring.HealthCheck {
		if lifecycle.Closed() {
			return monitoring.HealthCheck{
				Status:  monitoring.HealthStatusUnhealthy,
				Message: "session model closed",
			}
		}
		select {
		case <-lifecycle.Ready():
			return monitoring.HealthCheck{Status: monitoring.HealthStatusHealthy}
		default:
			return monitoring.HealthCheck{
				Status:  monitoring.HealthStatusUnhealthy,
				Message: "session restore in progress",
			}
		}
	})
}

// StorageHealth checks the persisted storage with a read
func StorageHealth(storage session.Storage) monitoring.HealthChecker {
	return monitoring.HealthCheckFunc(func(ctx context.Context) monitoring.HealthCheck {
		if _, _, err := storage.Get(ctx, session.KeyToken); err != nil {
			return monitoring.HealthCheck{
				Status:  monitoring.HealthStatusUnhealthy,
				Message: err.Error(),
			}
		}
		return monitoring.HealthCheck{Status: monitoring.HealthStatusHealthy}
	})
}
