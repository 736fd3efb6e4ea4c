package responder

import (
	"net/http"

	apperrors "github.com/leeforge/globaltree/errors"
	"github.com/leeforge/globaltree/json"
)

var encodeFailed = []byte("{\"error\":{\"type\":\"internal\",\"message\":\"encode failed\"}}")

func writeJSON(w http.ResponseWriter, status int, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		Raw(w, http.StatusInternalServerError, encodeFailed, "application/json")
		return
	}
	Raw(w, status, raw, "application/json")
}

// Raw writes payload as-is, for SVG, PNG or plain-text bodies.
func Raw(w http.ResponseWriter, status int, payload []byte, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

// Write sends a success response with data
func Write(w http.ResponseWriter, status int, data any, opts ...Option) {
	writeJSON(w, status, Response{Data: data, Meta: *NewMeta(opts...)})
}

// OK responds with 200 OK and data
func OK(w http.ResponseWriter, data any, opts ...Option) {
	Write(w, http.StatusOK, data, opts...)
}

// WriteError sends err with the HTTP status it carries. Errors that are
// not AppErrors are reported as internal.
func WriteError(w http.ResponseWriter, err error, opts ...Option) {
	appErr := apperrors.FromError(err)
	if appErr == nil {
		appErr = apperrors.NewInternal("unknown error")
	}
	res := Response{
		Error: &Error{
			Type:    string(appErr.Type),
			Code:    appErr.Code,
			Message: appErr.Error(),
			Details: appErr.Details,
		},
		Meta: *NewMeta(opts...),
	}
	writeJSON(w, apperrors.HTTPStatus(appErr), res)
}

// NotFound responds with a not_found error for the named route.
func NotFound(w http.ResponseWriter, r *http.Request, opts ...Option) {
	WriteError(w, apperrors.NewNotFound("route", r.Method+" "+r.URL.Path), opts...)
}
