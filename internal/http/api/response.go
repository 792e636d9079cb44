package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nepremicnine/user-managing/internal/log"
	commonerrors "github.com/nepremicnine/user-managing/pkg/common/errors"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

func (a api) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		a.logger.Errorf("Could not encode JSON response: %s", err)
	}
}

func (a api) writeErrorMessage(w http.ResponseWriter, code int, detail string) {
	a.writeJSON(w, code, errorResponse{Detail: detail})
}

// writeError maps application errors to HTTP status codes: missing user to
// 404, invalid input to 400, bad credentials to 401 and storage backend
// failures to 502.
func (a api) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusBadGateway
	switch {
	case errors.Is(err, commonerrors.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, commonerrors.ErrNotValid), errors.Is(err, commonerrors.ErrRequired):
		code = http.StatusBadRequest
	case errors.Is(err, commonerrors.ErrAuthentication):
		code = http.StatusUnauthorized
	}

	if code >= http.StatusInternalServerError {
		a.logger.WithValues(log.Kv{"url": r.URL, "method": r.Method}).Errorf("Request failed: %s", err)
	}

	a.writeErrorMessage(w, code, err.Error())
}
