package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"mesa/internal/domain"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}

// statusFor maps domain failures to HTTP statuses. Anything unrecognised is
// an internal error.
func statusFor(err error) (int, string) {
	var de *domain.Error
	if !errors.As(err, &de) {
		return http.StatusInternalServerError, "internal"
	}
	switch de.Code {
	case domain.CodeNotFound:
		return http.StatusNotFound, de.Code
	case domain.CodeDuplicateCode:
		return http.StatusConflict, de.Code
	case domain.CodeInvalidCredentials:
		return http.StatusUnauthorized, de.Code
	default:
		return http.StatusBadRequest, de.Code
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request failed")
		message = "internal server error"
	}
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// decodeJSON reads the request body into out and validates it. Failures are
// reported as malformed input with per-field details when available.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   domain.CodeMalformed,
			Message: fmt.Sprintf("invalid request body: %v", err),
		})
		return false
	}

	if err := s.validate.Struct(out); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   domain.CodeMalformed,
			Message: "validation failed",
			Fields:  validationErrorsToMap(err),
		})
		return false
	}
	return true
}

func validationErrorsToMap(err error) map[string]string {
	out := map[string]string{}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			out[fe.Namespace()] = fmt.Sprintf("failed on %s", fe.Tag())
		}
	} else {
		out["error"] = err.Error()
	}
	return out
}

// pathID parses the {id} route variable.
func pathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: id %q is not a number", domain.ErrMalformed, raw)
	}
	return id, nil
}

// pathCode returns the {code} route variable in canonical case.
func pathCode(r *http.Request) string {
	return strings.ToUpper(mux.Vars(r)["code"])
}
