// Package respond writes the uniform {code, message, data} envelope.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"stylegen/internal/domain"
)

// Envelope codes. Zero is success on every endpoint.
const (
	CodeOK            = 0
	CodeInternal      = 1000
	CodeConfiguration = 1001
	CodeBadRequest    = 1002
	CodeUpstream      = 1003
	CodeNotFound      = 1004
)

type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes a success envelope.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Envelope{Code: CodeOK, Message: "ok", Data: data})
}

// Error maps err onto the error taxonomy and writes the envelope.
func Error(w http.ResponseWriter, err error) {
	status, code := Classify(err)
	msg := "internal error"
	if err != nil && code != CodeInternal {
		msg = err.Error()
	}
	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) && upstream.Message != "" {
		msg = upstream.Message
	}
	JSON(w, status, Envelope{Code: code, Message: msg, Data: nil})
}

// Fail writes an error envelope with an explicit status and code.
func Fail(w http.ResponseWriter, status, code int, msg string) {
	JSON(w, status, Envelope{Code: code, Message: msg, Data: nil})
}

// Classify returns the HTTP status and envelope code of err.
func Classify(err error) (int, int) {
	var upstream *domain.UpstreamError
	switch {
	case err == nil:
		return http.StatusOK, CodeOK
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusInternalServerError, CodeConfiguration
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, CodeBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.As(err, &upstream):
		if upstream.Status >= 400 && upstream.Status < 500 {
			return upstream.Status, CodeUpstream
		}
		return http.StatusBadGateway, CodeUpstream
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway, CodeUpstream
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
