package domainerrors

import (
	"encoding/json"
	"errors"
	"net/http"
)

type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteError renders an error as the standard JSON envelope. Unknown errors
// and internal errors collapse to internal_error with no description so
// storage details never leak to callers.
func WriteError(w http.ResponseWriter, err error) {
	code := CodeInternal
	description := ""

	var de *Error
	if errors.As(err, &de) {
		code = de.Code
		if code != CodeInternal {
			description = de.Description
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ToHTTPStatus(code))
	_ = json.NewEncoder(w).Encode(errorBody{
		Error:       string(code),
		Description: description,
	})
}
