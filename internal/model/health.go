package model

// HealthStatus is the status of a health component.
type HealthStatus string

const (
	// HealthStatusUp means the component is healthy.
	HealthStatusUp HealthStatus = "UP"
	// HealthStatusDown means the component is unhealthy.
	HealthStatusDown HealthStatus = "DOWN"
)

// HealthComponent is the result of a single health check (CPU, disk...).
type HealthComponent struct {
	Status  HealthStatus `json:"status"`
	Details string       `json:"details,omitempty"`
}

// HealthReport aggregates the health components of the service, the overall
// status is DOWN when any of the components is DOWN.
type HealthReport struct {
	Status     HealthStatus               `json:"status"`
	Components map[string]HealthComponent `json:"components"`
}

// NewHealthReport returns a report aggregating the received components.
func NewHealthReport(components map[string]HealthComponent) HealthReport {
	report := HealthReport{
		Status:     HealthStatusUp,
		Components: components,
	}

	for _, c := range components {
		if c.Status == HealthStatusDown {
			report.Status = HealthStatusDown
			break
		}
	}

	return report
}
