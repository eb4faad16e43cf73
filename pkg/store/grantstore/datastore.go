package grantstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ipfs/go-datastore"
	"github.com/multiformats/go-multibase"

	"github.com/storacha/grantlink/pkg/grant"
)

// DsGrantStore is a GrantStore backed by an IPFS datastore. Records are stored
// as JSON under /{hash}/{base32 key}.
type DsGrantStore struct {
	mutex sync.Mutex
	data  datastore.Datastore
}

var _ GrantStore = (*DsGrantStore)(nil)

// NewDsGrantStore creates a [GrantStore] backed by an IPFS datastore.
func NewDsGrantStore(ds datastore.Datastore) (*DsGrantStore, error) {
	return &DsGrantStore{data: ds}, nil
}

func (d *DsGrantStore) Lookup(ctx context.Context, hash string, key string, now int64) (grant.Decision, error) {
	r, err := d.get(ctx, hash, key)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return grant.Decide(nil, now), nil
		}
		return grant.Decision{}, err
	}
	var records []grant.Record
	if r.ValidAt(now) {
		records = append(records, r)
	}
	return grant.Decide(records, now), nil
}

func (d *DsGrantStore) Consume(ctx context.Context, hash string, key string, now int64) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	r, err := d.get(ctx, hash, key)
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return ErrConsumed
		}
		return err
	}
	if !r.ValidAt(now) || !r.IsOneTime() {
		return ErrConsumed
	}
	r.Expires = now
	if err := d.put(ctx, r); err != nil {
		return NewUnavailableError("writing record", err)
	}
	return nil
}

// Put adds or replaces a record. It is used to seed local stores; production
// records are written by an external process.
func (d *DsGrantStore) Put(ctx context.Context, r grant.Record) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.put(ctx, r)
}

func (d *DsGrantStore) put(ctx context.Context, r grant.Record) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	if err := d.data.Put(ctx, encodeKey(r.Hash, r.S3Key), b); err != nil {
		return fmt.Errorf("writing to datastore: %w", err)
	}
	return nil
}

func (d *DsGrantStore) get(ctx context.Context, hash string, key string) (grant.Record, error) {
	b, err := d.data.Get(ctx, encodeKey(hash, key))
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return grant.Record{}, err
		}
		return grant.Record{}, NewUnavailableError("reading record", err)
	}
	var r grant.Record
	if err := json.Unmarshal(b, &r); err != nil {
		return grant.Record{}, NewUnavailableError("decoding record", err)
	}
	return r, nil
}

// object keys may contain slashes and dot segments, which the datastore would
// treat as path components, so they are base32 encoded.
func encodeKey(hash string, key string) datastore.Key {
	enc, _ := multibase.Encode(multibase.Base32, []byte(key))
	return datastore.NewKey(fmt.Sprintf("%s/%s", hash, enc))
}
