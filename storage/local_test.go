package storage

import (
	"context"
	"io"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanKey(t *testing.T) {
	k, err := CleanKey("/2024/05/abc.png")
	require.NoError(t, err)
	assert.Equal(t, "2024/05/abc.png", k)

	k, err = CleanKey("2024/./05//abc.png")
	require.NoError(t, err)
	assert.Equal(t, "2024/05/abc.png", k)

	for _, bad := range []string{"", "/", "..", "../etc/passwd", "a/../../b"} {
		_, err := CleanKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestLocalRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "2024/05/a.png", []byte("png"), "image/png"))
	require.NoError(t, s.Put(ctx, "2024/06/b.jpg", []byte("jpeg!"), "image/jpeg"))

	r, obj, err := s.Get(ctx, "2024/05/a.png")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	r.Close()
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
	assert.Equal(t, "2024/05/a.png", obj.Key)
	assert.Equal(t, int64(3), obj.Size)
	assert.Equal(t, "image/png", obj.ContentType)

	objects, err := s.List(ctx)
	require.NoError(t, err)
	keys := []string{}
	for _, o := range objects {
		keys = append(keys, o.Key)
	}
	sort.Strings(keys)
	assert.Equal(t, []string{"2024/05/a.png", "2024/06/b.jpg"}, keys)

	require.NoError(t, s.Delete(ctx, "2024/05/a.png"))
	_, err = s.Stat(ctx, "2024/05/a.png")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "2024/05/a.png"), ErrNotFound)
}

func TestLocalRejectsEscapingKeys(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, s.Put(context.Background(), "../x", []byte("x"), ""))
}
