package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/hoferino/dealintel/pkg/shared/errors"
)

func TestStatusForKind_MapsEveryKnownKind(t *testing.T) {
	cases := map[apperrors.Kind]int{
		apperrors.Validation:         http.StatusBadRequest,
		apperrors.ParseError:         http.StatusBadRequest,
		apperrors.NotAuthorized:      http.StatusForbidden,
		apperrors.NotFound:           http.StatusNotFound,
		apperrors.Conflict:           http.StatusConflict,
		apperrors.Timeout:            http.StatusGatewayTimeout,
		apperrors.ProviderRateLimited: http.StatusTooManyRequests,
		apperrors.ProviderUnavailable: http.StatusServiceUnavailable,
		apperrors.TransientIO:        http.StatusServiceUnavailable,
		apperrors.ProviderContract:   http.StatusBadGateway,
		apperrors.Internal:           http.StatusInternalServerError,
	}
	for kind, want := range cases {
		require.Equal(t, want, statusForKind(kind), "kind=%s", kind)
	}
}

func TestPublicMessage_HidesInternalDetail(t *testing.T) {
	err := apperrors.New(apperrors.Internal, "api", "db connection string leaked here")
	require.Equal(t, "request failed, please retry", publicMessage(apperrors.Internal, err))

	validationErr := apperrors.New(apperrors.Validation, "api", "file field is required")
	require.Equal(t, validationErr.Error(), publicMessage(apperrors.Validation, validationErr))
}
