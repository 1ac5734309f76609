package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesSentinel(t *testing.T) {
	err := Wrap(ErrSourceUnavailable, "opening ix dump")
	require.NotNil(t, err)
	assert.True(t, Is(err, ErrSourceUnavailable))
	assert.Contains(t, err.Error(), "opening ix dump")
	assert.Contains(t, err.Error(), "source unavailable")
}

func TestIsConfigurationError(t *testing.T) {
	assert.False(t, IsConfigurationError(nil))
	assert.False(t, IsConfigurationError(New("other")))
	assert.True(t, IsConfigurationError(ErrConfiguration))
	assert.True(t, IsConfigurationError(Wrap(ErrConfiguration, "missing rib.db")))
}

func TestNewConfigurationError(t *testing.T) {
	err := NewConfigurationError("both file and stream specified for %s", "ix")
	assert.True(t, Is(err, ErrConfiguration))
	assert.Contains(t, err.Error(), "both file and stream specified for ix")
}

func TestIsSourceUnavailableError(t *testing.T) {
	assert.False(t, IsSourceUnavailableError(nil))
	assert.True(t, IsSourceUnavailableError(Wrapf(ErrSourceUnavailable, "dump %q", "x.json.gz")))
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{ErrConfiguration, ErrSourceUnavailable, ErrMalformedRecord, ErrInvalidAddress, ErrNotReady}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}
			assert.False(t, Is(a, b), "sentinel %v should not match %v", a, b)
		}
	}
}
