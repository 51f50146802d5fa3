package persistence

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingKV rejects every operation
type failingKV struct{}

func (failingKV) Get(context.Context, string) ([]byte, error) { return nil, errors.New("unavailable") }
func (failingKV) Set(context.Context, string, []byte) error   { return errors.New("quota exceeded") }
func (failingKV) Delete(context.Context, string) error        { return errors.New("unavailable") }

func TestLoadAbsentKey(t *testing.T) {
	a := NewAdapter(NewMemoryKV())

	got, ok := Load[[]string](context.Background(), a, KeyWishlist)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(NewMemoryKV())

	a.Save(ctx, KeyLocale, "hi")
	locale, ok := Load[string](ctx, a, KeyLocale)
	require.True(t, ok)
	assert.Equal(t, "hi", locale)

	a.Remove(ctx, KeyLocale)
	_, ok = Load[string](ctx, a, KeyLocale)
	assert.False(t, ok)
}

func TestLoadCorruptEntryIsAbsent(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(ctx, KeyCart, []byte(`[{"id":`)))
	require.NoError(t, kv.Set(ctx, KeyWishlist, []byte(`["p1"]`)))
	a := NewAdapter(kv)

	_, ok := Load[[]map[string]any](ctx, a, KeyCart)
	assert.False(t, ok)

	// one corrupt key does not block the others
	wishlist, ok := Load[[]string](ctx, a, KeyWishlist)
	require.True(t, ok)
	assert.Equal(t, []string{"p1"}, wishlist)
}

func TestFailingBackendIsSilent(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(failingKV{})

	assert.NotPanics(t, func() {
		a.Save(ctx, KeyCart, []string{"x"})
		a.Remove(ctx, KeyCart)
	})
	_, ok := Load[[]string](ctx, a, KeyCart)
	assert.False(t, ok)
}

func TestUnencodableValueKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(NewMemoryKV())

	a.Save(ctx, KeyLocale, "en")
	a.Save(ctx, KeyLocale, make(chan int))

	locale, ok := Load[string](ctx, a, KeyLocale)
	require.True(t, ok)
	assert.Equal(t, "en", locale)
}

func TestNilAdapterNoops(t *testing.T) {
	var a *Adapter
	assert.NotPanics(t, func() {
		a.Save(context.Background(), KeyCart, 1)
		a.Remove(context.Background(), KeyCart)
	})
	_, ok := Load[int](context.Background(), a, KeyCart)
	assert.False(t, ok)
}

func TestFileKV(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	kv, err := NewFileKV(dir)
	require.NoError(t, err)

	_, err = kv.Get(ctx, KeyUser)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, kv.Set(ctx, KeyUser, []byte(`{"id":"u-1"}`)))
	data, err := kv.Get(ctx, KeyUser)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"u-1"}`, string(data))

	// survives a new instance over the same directory
	kv2, err := NewFileKV(dir)
	require.NoError(t, err)
	data, err = kv2.Get(ctx, KeyUser)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"u-1"}`, string(data))

	require.NoError(t, kv.Delete(ctx, KeyUser))
	require.NoError(t, kv.Delete(ctx, KeyUser))
	_, err = os.Stat(filepath.Join(dir, KeyUser+".json"))
	assert.True(t, os.IsNotExist(err))
}
