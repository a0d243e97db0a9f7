package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/hoferino/dealintel/pkg/shared/errors"
)

// writeError maps an apperrors.Kind to an HTTP status and writes a
// consistent JSON error body. Errors that map to 500 are returned as a bare
// 500 with no detail, since apperrors.Internal errors are never safe to
// expose to clients; the error itself is not logged (requestLogger records
// only method, path, status and duration).
func writeError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	status := statusForKind(kind)

	body := gin.H{"error": publicMessage(kind, err)}
	if status == http.StatusInternalServerError {
		body = gin.H{"error": "internal server error"}
	}
	c.JSON(status, body)
}

func statusForKind(kind apperrors.Kind) int {
	switch kind {
	case apperrors.Validation, apperrors.ParseError:
		return http.StatusBadRequest
	case apperrors.NotAuthorized:
		return http.StatusForbidden
	case apperrors.NotFound:
		return http.StatusNotFound
	case apperrors.Conflict:
		return http.StatusConflict
	case apperrors.Timeout:
		return http.StatusGatewayTimeout
	case apperrors.ProviderRateLimited:
		return http.StatusTooManyRequests
	case apperrors.ProviderUnavailable, apperrors.TransientIO:
		return http.StatusServiceUnavailable
	case apperrors.ProviderContract:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func publicMessage(kind apperrors.Kind, err error) string {
	switch kind {
	case apperrors.Validation, apperrors.ParseError, apperrors.NotFound, apperrors.Conflict, apperrors.NotAuthorized:
		return err.Error()
	default:
		return "request failed, please retry"
	}
}
