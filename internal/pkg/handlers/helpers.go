package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ideaslabiot/IDEAS-project/internal/pkg/logging"
)

// Response is the envelope returned by every successful call
type Response struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// ErrorResponse is the body of every failed call
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func sendJSONResponse(w http.ResponseWriter, r *http.Request, status int, d interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	if err := enc.Encode(d); err != nil {
		logging.Logger(r.Context()).WithError(err).Error("sending json response")
	}
}

func sendSuccess(w http.ResponseWriter, r *http.Request, resp Response) {
	resp.Success = true
	sendJSONResponse(w, r, http.StatusOK, resp)
}

// SendError maps any failure to a 500 carrying the error text.  Device
// timeouts, bad credentials and unreachable plugs are not told apart.
func SendError(w http.ResponseWriter, r *http.Request, err error) {
	detail := http.StatusText(http.StatusInternalServerError)
	if err != nil && err.Error() != "" {
		detail = err.Error()
	}

	sendJSONResponse(w, r, http.StatusInternalServerError, ErrorResponse{Detail: detail})
}
