package httputil

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
)

const maxRequestBody = 1 << 20

// BadRequestError reports a request body that is malformed or lacks a
// required field.
type BadRequestError struct {
	Field  string
	Reason string
}

func (e *BadRequestError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("bad request: %s: %s", e.Field, e.Reason)
	}
	return "bad request: " + e.Reason
}

// MissingField returns the error for an absent or empty required field.
func MissingField(name string) *BadRequestError {
	return &BadRequestError{Field: name, Reason: "required"}
}

// IsBadRequest reports whether err is a *BadRequestError.
func IsBadRequest(err error) bool {
	var br *BadRequestError
	return errors.As(err, &br)
}

// DecodeJSON decodes the request body into v. An empty body leaves v
// untouched so handlers see every field as missing.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
	if err != nil {
		return &BadRequestError{Reason: "reading body: " + err.Error()}
	}
	if len(data) > maxRequestBody {
		return &BadRequestError{Reason: "body too large"}
	}
	if len(data) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(data, v); err != nil {
		return &BadRequestError{Reason: "invalid JSON body"}
	}
	return nil
}

// WriteJSON encodes v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"encoding response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

// WriteError writes {"error": msg}.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}
