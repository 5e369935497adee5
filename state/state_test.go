package state

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateOperations(t *testing.T) {
	t.Setenv("FINDER_HOME", t.TempDir())

	t.Run("load empty state", func(t *testing.T) {
		state, err := Load()
		require.NoError(t, err)
		assert.Empty(t, state)
	})

	t.Run("set and get string", func(t *testing.T) {
		require.NoError(t, Set(KeyLastTerm, "report"))
		got, err := GetString(KeyLastTerm)
		require.NoError(t, err)
		assert.Equal(t, "report", got)
	})

	t.Run("update several keys", func(t *testing.T) {
		require.NoError(t, Update(map[string]interface{}{
			KeyLastTerm:     "invoice",
			KeyLastScenario: 2,
		}))
		term, err := GetString(KeyLastTerm)
		require.NoError(t, err)
		assert.Equal(t, "invoice", term)

		idx, ok, err := GetInt(KeyLastScenario)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 2, idx)
	})

	t.Run("non-string value", func(t *testing.T) {
		require.NoError(t, Set("count", 3))
		got, err := GetString("count")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, Delete(KeyLastTerm))
		_, ok, err := Get(KeyLastTerm)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("missing int", func(t *testing.T) {
		_, ok, err := GetInt("nope")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestLoadCorruptFile(t *testing.T) {
	t.Setenv("FINDER_HOME", t.TempDir())
	require.NoError(t, Save(State{}))
	require.NoError(t, os.WriteFile(FilePath(), []byte("::: not yaml"), 0644))

	_, err := Load()
	assert.Error(t, err)
}
