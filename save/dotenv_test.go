package save

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertLine(t *testing.T) {
	t.Parallel()

	t.Run("appends missing key", func(t *testing.T) {
		t.Parallel()

		got := UpsertLine([]byte("A=1\nB=2\n"), "K", "V")
		require.Equal(t, "A=1\nB=2\nK=V\n", string(got))
	})

	t.Run("appends to content without trailing newline", func(t *testing.T) {
		t.Parallel()

		got := UpsertLine([]byte("A=1"), "K", "V")
		require.Equal(t, "A=1\nK=V\n", string(got))
	})

	t.Run("appends to empty content", func(t *testing.T) {
		t.Parallel()

		got := UpsertLine(nil, "K", "V")
		require.Equal(t, "K=V\n", string(got))
	})

	t.Run("replaces only the matching line", func(t *testing.T) {
		t.Parallel()

		in := "# comment\nA=1\nK=old\n\nKEY=untouched\nB = spaced\n"
		got := UpsertLine([]byte(in), "K", "V")
		require.Equal(t, "# comment\nA=1\nK=V\n\nKEY=untouched\nB = spaced\n", string(got))
	})

	t.Run("keeps crlf line endings", func(t *testing.T) {
		t.Parallel()

		got := UpsertLine([]byte("A=1\r\nK=old\r\nB=2\r\n"), "K", "V")
		require.Equal(t, "A=1\r\nK=V\r\nB=2\r\n", string(got))
	})

	t.Run("replaces last line without newline", func(t *testing.T) {
		t.Parallel()

		got := UpsertLine([]byte("A=1\nK=old"), "K", "V")
		require.Equal(t, "A=1\nK=V", string(got))
	})

	t.Run("does not match keys sharing a prefix", func(t *testing.T) {
		t.Parallel()

		got := UpsertLine([]byte("BOT_USER_ID_OLD=1\n"), "BOT_USER_ID", "2")
		require.Equal(t, "BOT_USER_ID_OLD=1\nBOT_USER_ID=2\n", string(got))
	})
}

func TestEnvStore(t *testing.T) {
	t.Parallel()

	t.Run("missing file loads empty", func(t *testing.T) {
		t.Parallel()

		store := NewEnvStore(afero.NewMemMapFs(), ".env")
		require.NoError(t, store.Load())

		_, ok := store.Lookup("ANY")
		require.False(t, ok)
	})

	t.Run("loads dotenv syntax", func(t *testing.T) {
		t.Parallel()

		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, ".env", []byte("# bot settings\nCLIENT_ID_OF_APP=abc\nGITHUB_URL=\"https://github.com/x\"\n"), 0o600))

		store := NewEnvStore(fs, ".env")
		require.NoError(t, store.Load())

		assert.Equal(t, "abc", store.Get("CLIENT_ID_OF_APP"))
		assert.Equal(t, "https://github.com/x", store.Get("GITHUB_URL"))
	})

	t.Run("set round trip yields exactly one line", func(t *testing.T) {
		t.Parallel()

		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, ".env", []byte("A=1\n"), 0o600))

		store := NewEnvStore(fs, ".env")
		require.NoError(t, store.Load())

		require.NoError(t, store.Set("K", "V"))
		require.NoError(t, store.Set("K", "W"))

		data, err := afero.ReadFile(fs, ".env")
		require.NoError(t, err)
		require.Equal(t, "A=1\nK=W\n", string(data))
		require.Equal(t, "W", store.Get("K"))

		reloaded := NewEnvStore(fs, ".env")
		require.NoError(t, reloaded.Load())
		require.Equal(t, "W", reloaded.Get("K"))
		require.Equal(t, "1", reloaded.Get("A"))
	})

	t.Run("set creates missing file", func(t *testing.T) {
		t.Parallel()

		fs := afero.NewMemMapFs()
		store := NewEnvStore(fs, "settings.env")
		require.NoError(t, store.Set("BOT_USER_ID", "42"))

		data, err := afero.ReadFile(fs, "settings.env")
		require.NoError(t, err)
		require.Equal(t, "BOT_USER_ID=42\n", string(data))
	})

	t.Run("rejects invalid entries", func(t *testing.T) {
		t.Parallel()

		store := NewEnvStore(afero.NewMemMapFs(), ".env")
		require.ErrorIs(t, store.Set("BAD KEY", "v"), ErrInvalidKey)
		require.ErrorIs(t, store.Set("", "v"), ErrInvalidKey)
		require.Error(t, store.Set("GOOD", "line\nbreak"))
	})
}
