package httputil

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/loreboard/loreboard/pkg/errors"
)

// MaxBodySize is the largest request body DecodeJSON accepts.
const MaxBodySize = 4 << 20

// ErrorBody is the JSON shape of an error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail is the code and message of an error response.
type ErrorDetail struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes err as an error body. The status comes from the error
// code; errors without a code become a 500 with a generic message.
func WriteError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	detail := ErrorDetail{Code: errors.GetCode(err), Message: errors.UserMessage(err)}
	if detail.Code == "" {
		detail = ErrorDetail{Code: errors.ErrCodeInternal, Message: "internal error"}
	}
	WriteJSON(w, status, ErrorBody{Error: detail})
}

// DecodeJSON decodes the request body into v. Unknown fields, trailing
// data and bodies over MaxBodySize are rejected as INVALID_INPUT.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodySize+1))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if err == io.EOF {
			return errors.New(errors.ErrCodeInvalidInput, "request body is empty")
		}
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body")
	}
	if dec.More() {
		return errors.New(errors.ErrCodeInvalidInput, "request body has trailing data")
	}
	return nil
}
