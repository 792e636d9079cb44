package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	appuser "github.com/nepremicnine/user-managing/internal/app/user"
	"github.com/nepremicnine/user-managing/internal/model"
)

func (a api) handlerGetUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, URLParamUserID)

		resp, err := a.userApp.GetUser(r.Context(), appuser.GetUserRequest{UserID: userID})
		if err != nil {
			a.writeError(w, r, err)
			return
		}

		a.writeJSON(w, http.StatusOK, resp.User)
	}
}

func (a api) handlerUpdateUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, URLParamUserID)

		update := model.UserUpdate{}
		err := json.NewDecoder(r.Body).Decode(&update)
		if err != nil {
			a.writeErrorMessage(w, http.StatusBadRequest, "invalid user update body")
			return
		}

		resp, err := a.userApp.UpdateUser(r.Context(), appuser.UpdateUserRequest{
			UserID: userID,
			Update: update,
		})
		if err != nil {
			a.writeError(w, r, err)
			return
		}

		a.writeJSON(w, http.StatusOK, resp.User)
	}
}

func (a api) handlerHealthGeneral() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := a.healthApp.General(r.Context())
		a.writeJSON(w, healthStatusCode(report), report)
	}
}

func (a api) handlerHealthReadiness() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := a.healthApp.Readiness(r.Context())
		a.writeJSON(w, healthStatusCode(report), report)
	}
}

func healthStatusCode(report model.HealthReport) int {
	if report.Status == model.HealthStatusDown {
		return http.StatusServiceUnavailable
	}

	return http.StatusOK
}
