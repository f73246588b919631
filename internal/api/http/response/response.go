// Package response writes the uniform {code, message, kind?, data?} envelope.
package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dtroode/accounts-server/internal/model"
)

// Envelope wraps every JSON response body. Code mirrors the HTTP status.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
	Data    any    `json:"data,omitempty"`
}

var kindStatus = map[model.Kind]int{
	model.KindInvalidInput:          http.StatusBadRequest,
	model.KindConflict:              http.StatusConflict,
	model.KindUnauthorized:          http.StatusUnauthorized,
	model.KindNotFound:              http.StatusNotFound,
	model.KindDependencyUnavailable: http.StatusBadGateway,
	model.KindForbidden:             http.StatusForbidden,
	model.KindRateLimited:           http.StatusTooManyRequests,
}

// StatusOf maps an error kind to an HTTP status. Unclassified errors are 500.
func StatusOf(err error) int {
	if status, ok := kindStatus[model.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// JSON writes a successful envelope.
func JSON(w http.ResponseWriter, status int, message string, data any) {
	write(w, status, Envelope{Code: status, Message: message, Data: data})
}

// Error writes err as an envelope. Only the message of classified errors
// reaches the caller; anything else becomes "internal server error".
func Error(w http.ResponseWriter, err error) {
	status := StatusOf(err)

	var domainErr *model.Error
	if status == http.StatusInternalServerError || !errors.As(err, &domainErr) {
		write(w, http.StatusInternalServerError, Envelope{
			Code:    http.StatusInternalServerError,
			Message: "internal server error",
			Kind:    string(model.KindInternal),
		})
		return
	}

	env := Envelope{Code: status, Message: domainErr.Message, Kind: string(domainErr.Kind)}
	if domainErr.Field != "" {
		env.Data = map[string]string{"field": domainErr.Field}
	}
	write(w, status, env)
}

func write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// ParseFields reads a comma separated ?fields= allow-list. Nil means all fields.
func ParseFields(r *http.Request) []string {
	raw := strings.TrimSpace(r.URL.Query().Get("fields"))
	if raw == "" {
		return nil
	}
	var fields []string
	for _, f := range strings.Split(raw, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// Project returns the subset of view named by fields. Unknown names are
// ignored and view itself is never modified. An empty allow-list keeps all.
func Project(view map[string]any, fields []string) map[string]any {
	if len(fields) == 0 {
		return view
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := view[f]; ok {
			out[f] = v
		}
	}
	return out
}
