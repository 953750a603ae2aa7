package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoltStore(t *testing.T) {
	store, err := NewBoltStore(filepath.Join(t.TempDir(), "db", "messages.db"), "messages")
	require.NoError(t, err)
	defer store.Close()

	storeContract(t, store)
}

func TestBoltStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.db")
	ctx := context.Background()

	store, err := NewBoltStore(path, "messages")
	require.NoError(t, err)
	id, err := store.Insert(ctx, &Record{Type: "msg", ReceivedAt: time.Now(), Raw: `{"type":"msg"}`})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = NewBoltStore(path, "messages")
	require.NoError(t, err)
	defer store.Close()

	next, err := store.Insert(ctx, &Record{Type: "msg", ReceivedAt: time.Now(), Raw: `{"type":"msg"}`})
	require.NoError(t, err)
	assert.Greater(t, next, id)
}

func TestBoltStoreCanceledContext(t *testing.T) {
	store, err := NewBoltStore(filepath.Join(t.TempDir(), "messages.db"), "messages")
	require.NoError(t, err)
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Insert(ctx, &Record{Raw: `{}`})
	var storeErr *Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, BackendBolt, storeErr.Backend)
	assert.ErrorIs(t, err, context.Canceled)
}
