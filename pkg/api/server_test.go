package api

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoom-oss/rtms-ingestion/pkg/adapters"
)

type stubCompleter struct{}

func (stubCompleter) Complete(_ context.Context, _, _ string) (string, error) { return "stub", nil }

func TestServer_ValidateWiring(t *testing.T) {
	t.Run("nothing wired", func(t *testing.T) {
		s := &Server{}
		err := s.ValidateWiring()
		require.Error(t, err)

		msg := err.Error()
		assert.Contains(t, msg, "server wiring incomplete")
		assert.Contains(t, msg, "completer")
		assert.Contains(t, msg, "hub")
		assert.Equal(t, 2, strings.Count(msg, "not set"))
	})

	t.Run("partial wiring reports only missing", func(t *testing.T) {
		s := &Server{completer: stubCompleter{}}
		err := s.ValidateWiring()
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "completer")
		assert.Contains(t, err.Error(), "hub")
	})

	t.Run("fully wired", func(t *testing.T) {
		s := &Server{completer: stubCompleter{}, hub: adapters.NewHub("", nil)}
		assert.NoError(t, s.ValidateWiring())
	})
}
