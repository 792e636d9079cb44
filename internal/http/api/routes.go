package api

import (
	"net/http"
	"strings"

	"github.com/slok/go-http-metrics/middleware/std"
)

const (
	// URLParamUserID is the user ID URL parameter of the user routes.
	URLParamUserID = "userID"
)

func (a api) registerRoutes() {
	// Health endpoints polled by the deployment probes, served without auth.
	a.wrap(http.MethodGet, HealthGeneralPath, a.handlerHealthGeneral())
	a.wrap(http.MethodGet, HealthReadinessPath, a.handlerHealthReadiness())

	// User endpoints.
	userPath := ServePrefix + "/users/{" + URLParamUserID + "}"
	a.wrap(http.MethodGet, userPath, a.handlerGetUser())
	a.wrap(http.MethodPut, userPath, a.authMiddleware(a.handlerUpdateUser()))
}

func (a api) wrap(method, pattern string, h http.HandlerFunc) {
	router := a.router.With(
		std.HandlerProvider(pattern, a.metricsMiddleware),
	)

	switch strings.ToUpper(method) {
	case http.MethodGet:
		router.Get(pattern, h)
	case http.MethodPut:
		router.Put(pattern, h)
	case http.MethodPost:
		router.Post(pattern, h)
	}
}
