package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/siwx/core"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// errorStatus maps a domain error to its HTTP status and machine-readable code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrInvalidKeyEncoding):
		return http.StatusBadRequest, "invalid_key_encoding"
	case errors.Is(err, core.ErrInvalidPrincipalEncoding):
		return http.StatusBadRequest, "invalid_principal_encoding"
	case errors.Is(err, core.ErrMappingDisabled):
		return http.StatusForbidden, "mapping_disabled"
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, core.ErrChallengeExpired):
		return http.StatusGone, "challenge_expired"
	case errors.Is(err, core.ErrVerificationFailed):
		return http.StatusUnauthorized, "verification_failed"
	case errors.Is(err, core.ErrInvalidToken),
		errors.Is(err, core.ErrTokenExpired),
		errors.Is(err, core.ErrTokenInvalidated):
		return http.StatusUnauthorized, "invalid_token"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// writeError flattens err into an ErrorResponse. Internal errors are logged
// and never echoed to the client.
func (h *Handlers) writeError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.FullPath(), "error", err)
		msg = "internal error"
	}
	writeErrorCode(c, status, code, msg)
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: message, Code: code})
}
