package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBackendKind(t *testing.T) {
	t.Run("Known backends parse to themselves", func(t *testing.T) {
		kind, err := ParseBackendKind("gemini")
		assert.NoError(t, err)
		assert.Equal(t, BackendGemini, kind)

		kind, err = ParseBackendKind("local")
		assert.NoError(t, err)
		assert.Equal(t, BackendLocal, kind)
	})

	t.Run("Empty backend defaults to gemini", func(t *testing.T) {
		kind, err := ParseBackendKind("")
		assert.NoError(t, err)
		assert.Equal(t, BackendGemini, kind)
	})

	t.Run("Unknown backend is a configuration error", func(t *testing.T) {
		_, err := ParseBackendKind("openai")
		assert.Error(t, err)
		assert.True(t, IsConfiguration(err))
		assert.Contains(t, err.Error(), "openai")
		assert.Contains(t, err.Error(), "EMBEDDING_BACKEND")
	})
}

func TestBackendInfoJSON(t *testing.T) {
	t.Run("Marshals the full status", func(t *testing.T) {
		info := BackendInfo{
			Configured: BackendLocal,
			Resolved:   BackendGemini,
			Model:      "text-embedding-004",
			Fallback:   true,
			Error:      "model load failed",
		}

		data, err := json.Marshal(info)
		require.NoError(t, err)

		assert.Contains(t, string(data), `"configured_backend":"local"`)
		assert.Contains(t, string(data), `"resolved_backend":"gemini"`)
		assert.Contains(t, string(data), `"fallback":true`)
	})

	t.Run("Omits empty optional fields", func(t *testing.T) {
		info := BackendInfo{Configured: BackendGemini}

		data, err := json.Marshal(info)
		require.NoError(t, err)

		assert.NotContains(t, string(data), "resolved_backend")
		assert.NotContains(t, string(data), "error")
	})
}
