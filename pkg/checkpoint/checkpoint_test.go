package checkpoint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestShouldBlob_ThresholdIsTwoKB(t *testing.T) {
	require.False(t, ShouldBlob(make([]byte, blobThreshold)))
	require.True(t, ShouldBlob(make([]byte, blobThreshold+1)))
}

func TestNewRetentionService_DefaultsIntervalToOneHour(t *testing.T) {
	svc := NewRetentionService(nil, 0)
	require.Equal(t, time.Hour, svc.interval)
}

func TestNewRetentionService_HonorsExplicitInterval(t *testing.T) {
	svc := NewRetentionService(nil, 5*time.Minute)
	require.Equal(t, 5*time.Minute, svc.interval)
}

func TestRetentionWindow_IsThirtyDays(t *testing.T) {
	require.Equal(t, 30*24*time.Hour, retentionWindow)
}
