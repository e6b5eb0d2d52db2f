package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/pixlkit/pixl/pkg/api"
	perrors "github.com/pixlkit/pixl/pkg/errors"
)

var (
	errNoRoute = perrors.New(perrors.ErrCodeNotFound, "no such route")
	errMethod  = perrors.New(perrors.ErrCodeInvalidInput, "method not allowed")
	errNoBus   = perrors.New(perrors.ErrCodeUnsupported, "events are disabled on this server")
)

// statusFor maps an error code to an HTTP status. INVALID_FORMAT means a
// stored file could not be decoded, which is the server's problem rather
// than the caller's.
func statusFor(code perrors.Code) int {
	switch code {
	case perrors.ErrCodeInvalidInput,
		perrors.ErrCodeInvalidCoordinates,
		perrors.ErrCodeInvalidPath,
		perrors.ErrCodeInvalidColor,
		perrors.ErrCodeInvalidDimensions,
		perrors.ErrCodeInvalidFilename:
		return http.StatusBadRequest
	case perrors.ErrCodeNotFound:
		return http.StatusNotFound
	case perrors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := perrors.GetCode(err)
	if code == "" {
		code = perrors.ErrCodeInternal
	}
	status := statusFor(code)
	if err == errMethod {
		status = http.StatusMethodNotAllowed
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "err", err, "request_id", middleware.GetReqID(r.Context()))
	} else {
		s.logger.Debug("Request rejected", "method", r.Method, "path", r.URL.Path, "code", code, "err", err)
	}

	writeJSON(w, status, api.Error{Message: message(err), Code: code})
}

// message drops the code prefix of a top-level coded error but keeps the
// context added by fmt wrapping, such as the failing operation's index.
func message(err error) string {
	if e, ok := err.(*perrors.Error); ok {
		return e.Message
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON request body into v. Errors without a code become
// INVALID_INPUT; coded errors from custom decoders keep their code.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if perrors.GetCode(err) != "" {
			return err
		}
		return perrors.Wrap(perrors.ErrCodeInvalidInput, err, "invalid request body: %v", err)
	}
	return nil
}
