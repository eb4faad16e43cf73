package grantstore

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/failstore"
	"github.com/stretchr/testify/require"

	"github.com/storacha/grantlink/pkg/grant"
)

var hash = strings.Repeat("a", 64)

func newStore(t *testing.T, records ...grant.Record) *DsGrantStore {
	t.Helper()
	store, err := NewDsGrantStore(datastore.NewMapDatastore())
	require.NoError(t, err)
	for _, r := range records {
		require.NoError(t, store.Put(context.Background(), r))
	}
	return store
}

func TestDsGrantStore(t *testing.T) {
	ctx := context.Background()
	now := int64(1_700_000_000)
	no := false

	t.Run("unexpired record authorizes", func(t *testing.T) {
		store := newStore(t, grant.Record{Hash: hash, S3Key: "dir/file.txt", Expires: now + 100, OneTime: &no})

		d, err := store.Lookup(ctx, hash, "dir/file.txt", now)
		require.NoError(t, err)
		require.Equal(t, grant.Decision{Authorized: true, OneTime: false, Epoch: now}, d)
	})

	t.Run("expired record does not authorize", func(t *testing.T) {
		store := newStore(t, grant.Record{Hash: hash, S3Key: "dir/file.txt", Expires: now - 100, OneTime: &no})

		d, err := store.Lookup(ctx, hash, "dir/file.txt", now)
		require.NoError(t, err)
		require.Equal(t, grant.Decision{Epoch: now}, d)
	})

	t.Run("missing record does not authorize", func(t *testing.T) {
		store := newStore(t)

		d, err := store.Lookup(ctx, hash, "dir/file.txt", now)
		require.NoError(t, err)
		require.False(t, d.Authorized)
		require.Equal(t, now, d.Epoch)
	})

	t.Run("missing flag defaults to one-time", func(t *testing.T) {
		store := newStore(t, grant.Record{Hash: hash, S3Key: "dir/file.txt", Expires: now + 100})

		d, err := store.Lookup(ctx, hash, "dir/file.txt", now)
		require.NoError(t, err)
		require.True(t, d.Authorized)
		require.True(t, d.OneTime)
	})

	t.Run("keys are matched exactly", func(t *testing.T) {
		store := newStore(t,
			grant.Record{Hash: hash, S3Key: "dir/file.txt.bak", Expires: now + 100},
			grant.Record{Hash: hash, S3Key: "dir", Expires: now + 100},
		)

		d, err := store.Lookup(ctx, hash, "dir/file.txt", now)
		require.NoError(t, err)
		require.False(t, d.Authorized)

		d, err = store.Lookup(ctx, strings.Repeat("b", 64), "dir", now)
		require.NoError(t, err)
		require.False(t, d.Authorized)
	})

	t.Run("dot segments are distinct keys", func(t *testing.T) {
		store := newStore(t, grant.Record{Hash: hash, S3Key: "..", Expires: now + 100})

		d, err := store.Lookup(ctx, hash, ".", now)
		require.NoError(t, err)
		require.False(t, d.Authorized)

		d, err = store.Lookup(ctx, hash, "..", now)
		require.NoError(t, err)
		require.True(t, d.Authorized)
	})

	t.Run("consume expires one-time grant", func(t *testing.T) {
		store := newStore(t, grant.Record{Hash: hash, S3Key: "dir/file.txt", Expires: now + 100})

		require.NoError(t, store.Consume(ctx, hash, "dir/file.txt", now))

		d, err := store.Lookup(ctx, hash, "dir/file.txt", now)
		require.NoError(t, err)
		require.False(t, d.Authorized)

		err = store.Consume(ctx, hash, "dir/file.txt", now)
		require.ErrorIs(t, err, ErrConsumed)
	})

	t.Run("consume refuses reusable grant", func(t *testing.T) {
		store := newStore(t, grant.Record{Hash: hash, S3Key: "dir/file.txt", Expires: now + 100, OneTime: &no})

		err := store.Consume(ctx, hash, "dir/file.txt", now)
		require.ErrorIs(t, err, ErrConsumed)

		d, err := store.Lookup(ctx, hash, "dir/file.txt", now)
		require.NoError(t, err)
		require.True(t, d.Authorized)
	})

	t.Run("consume missing grant", func(t *testing.T) {
		store := newStore(t)
		require.ErrorIs(t, store.Consume(ctx, hash, "dir/file.txt", now), ErrConsumed)
	})

	t.Run("datastore failure is not a denial", func(t *testing.T) {
		boom := errors.New("boom")
		fs := failstore.NewFailstore(datastore.NewMapDatastore(), func(op string) error {
			return boom
		})
		store, err := NewDsGrantStore(fs)
		require.NoError(t, err)

		_, err = store.Lookup(ctx, hash, "dir/file.txt", now)
		var ue *UnavailableError
		require.True(t, errors.As(err, &ue))
		require.ErrorIs(t, err, boom)

		err = store.Consume(ctx, hash, "dir/file.txt", now)
		require.True(t, errors.As(err, &ue))
		require.NotErrorIs(t, err, ErrConsumed)
	})
}
