package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoom-oss/rtms-ingestion/pkg/stream"
)

func TestMergeOverride_NonZeroFieldsWin(t *testing.T) {
	base := &Config{
		HTTPAddr:          ":8080",
		LogLevel:          LogLevelOff,
		ReconnectDebounce: 3 * time.Second,
	}
	override := &Config{
		LogLevel: LogLevelDebug,
	}

	require.NoError(t, mergeOverride(base, override))

	assert.Equal(t, ":8080", base.HTTPAddr, "unset override fields leave base untouched")
	assert.Equal(t, LogLevelDebug, base.LogLevel, "set override fields replace base")
	assert.Equal(t, 3*time.Second, base.ReconnectDebounce)
}

func TestMergeOverride_CredentialMap(t *testing.T) {
	base := &Config{
		Credentials: map[stream.ProductKind]Credential{
			stream.ProductMeeting: {ClientID: "base-meeting"},
		},
	}
	override := &Config{
		Credentials: map[stream.ProductKind]Credential{
			stream.ProductWebinar: {ClientID: "override-webinar"},
		},
	}

	require.NoError(t, mergeOverride(base, override))

	assert.Contains(t, base.Credentials, stream.ProductMeeting)
	assert.Contains(t, base.Credentials, stream.ProductWebinar)
}
