// ABOUTME: Behavioural tests run against every KV backend
// ABOUTME: SQLite and Pebble use t.TempDir for their files

package kvstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]func() KV {
	return map[string]func() KV{
		BackendMemory: func() KV { return NewMemory() },
		BackendSQLite: func() KV {
			kv, err := NewSQLite(filepath.Join(t.TempDir(), "chorus.db"))
			require.NoError(t, err)
			return kv
		},
		BackendPebble: func() KV {
			kv, err := NewPebble(filepath.Join(t.TempDir(), "pebble"))
			require.NoError(t, err)
			return kv
		},
	}
}

func TestKV_GetSet(t *testing.T) {
	ctx := context.Background()
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			kv := open()
			defer kv.Close()

			_, err := kv.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, kv.Set(ctx, "k", []byte(`{"a":1}`)))
			got, err := kv.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, `{"a":1}`, string(got))

			require.NoError(t, kv.Set(ctx, "k", []byte(`{"a":2}`)))
			got, err = kv.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, `{"a":2}`, string(got))
		})
	}
}

func TestKV_ValueIsCopied(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()

	buf := []byte("abc")
	require.NoError(t, kv.Set(ctx, "k", buf))
	buf[0] = 'x'

	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chorus.db")

	kv, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "chorus_settings", []byte("{}")))
	require.NoError(t, kv.Close())

	kv, err = NewSQLite(path)
	require.NoError(t, err)
	defer kv.Close()
	got, err := kv.Get(ctx, "chorus_settings")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(got))
}

func TestOpen(t *testing.T) {
	kv, err := Open(BackendMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, kv)

	_, err = Open("redis", "")
	assert.Error(t, err)
}
