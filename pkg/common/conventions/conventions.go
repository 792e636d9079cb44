package conventions

// HTTP routing conventions of the service, the deployment probes and the
// platform gateway depend on these being stable.
const (
	// ServePrefix is the URL prefix of all the service routes.
	ServePrefix = "/user-managing"

	// HealthGeneralPath is the liveness endpoint polled by the deployment.
	HealthGeneralPath = ServePrefix + "/health/general"
	// HealthReadinessPath is the readiness endpoint polled by the deployment.
	HealthReadinessPath = ServePrefix + "/health/readiness"

	// UsersPathPrefix is the prefix of the user profile endpoints.
	UsersPathPrefix = ServePrefix + "/users"
)

// HealthPaths returns the health endpoint paths the service serves.
func HealthPaths() []string {
	return []string{HealthGeneralPath, HealthReadinessPath}
}
