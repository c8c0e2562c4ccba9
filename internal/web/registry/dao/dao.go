// Package dao contains the data access objects of the document registry.
package dao

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/Laisky/errors/v2"
	glog "github.com/Laisky/go-utils/v6/log"

	"github.com/Laisky/laisky-doc-registry/internal/web/registry/model"
	"github.com/Laisky/laisky-doc-registry/library/db/kv"
)

// Key scheme over the state store. The counter is a single global key,
// entries and grants are prefix-scannable.
const (
	counterKey     = "counter:entries"
	entryKeyPrefix = "entry:"
	grantKeyPrefix = "grant:"
)

func entryKey(id uint64) string {
	return entryKeyPrefix + strconv.FormatUint(id, 10)
}

func grantPrefix(id uint64) string {
	return grantKeyPrefix + strconv.FormatUint(id, 10) + ":"
}

func grantKey(id uint64, principal string) string {
	return grantPrefix(id) + principal
}

// Registry dao type
type Registry struct {
	logger glog.Logger
	store  kv.Store
}

// New create new dao
func New(logger glog.Logger, store kv.Store) *Registry {
	return &Registry{
		logger: logger,
		store:  store,
	}
}

// CurrentCounter returns the last assigned entry id, 0 if none assigned yet.
func (d *Registry) CurrentCounter(ctx context.Context) (uint64, error) {
	raw, err := d.store.Get(ctx, counterKey)
	if err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) {
			return 0, nil
		}

		return 0, errors.Wrap(err, "load entry counter")
	}

	counter, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse entry counter %q", raw)
	}

	return counter, nil
}

// AdvanceCounter persists the last assigned entry id.
func (d *Registry) AdvanceCounter(ctx context.Context, counter uint64) error {
	if err := d.store.Set(ctx, counterKey,
		[]byte(strconv.FormatUint(counter, 10))); err != nil {
		return errors.Wrap(err, "advance entry counter")
	}

	return nil
}

// GetEntry loads one entry by id.
func (d *Registry) GetEntry(ctx context.Context, id uint64) (*model.DocumentEntry, error) {
	raw, err := d.store.Get(ctx, entryKey(id))
	if err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) {
			return nil, errors.Wrapf(model.ErrEntryNotFound, "entry %d", id)
		}

		return nil, errors.Wrapf(err, "load entry %d", id)
	}

	entry := new(model.DocumentEntry)
	if err := json.Unmarshal(raw, entry); err != nil {
		return nil, errors.Wrapf(err, "decode entry %d", id)
	}

	return entry, nil
}

// PutEntry stores the entry under its id.
func (d *Registry) PutEntry(ctx context.Context, entry *model.DocumentEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrapf(err, "encode entry %d", entry.ID)
	}

	if err := d.store.Set(ctx, entryKey(entry.ID), raw); err != nil {
		return errors.Wrapf(err, "store entry %d", entry.ID)
	}

	return nil
}

// DelEntry removes the entry record.
func (d *Registry) DelEntry(ctx context.Context, id uint64) error {
	if err := d.store.Del(ctx, entryKey(id)); err != nil {
		return errors.Wrapf(err, "delete entry %d", id)
	}

	return nil
}

// GetGrant loads the grant for (entry, principal), nil if none recorded.
func (d *Registry) GetGrant(ctx context.Context,
	id uint64, principal string) (*model.PermissionGrant, error) {
	raw, err := d.store.Get(ctx, grantKey(id, principal))
	if err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) {
			return nil, nil
		}

		return nil, errors.Wrapf(err, "load grant %d/%s", id, principal)
	}

	grant := new(model.PermissionGrant)
	if err := json.Unmarshal(raw, grant); err != nil {
		return nil, errors.Wrapf(err, "decode grant %d/%s", id, principal)
	}

	return grant, nil
}

// PutGrant stores the grant under (entry, principal). Idempotent.
func (d *Registry) PutGrant(ctx context.Context, grant *model.PermissionGrant) error {
	raw, err := json.Marshal(grant)
	if err != nil {
		return errors.Wrapf(err, "encode grant %d/%s", grant.EntryID, grant.Principal)
	}

	if err := d.store.Set(ctx, grantKey(grant.EntryID, grant.Principal), raw); err != nil {
		return errors.Wrapf(err, "store grant %d/%s", grant.EntryID, grant.Principal)
	}

	return nil
}

// DelGrant removes the grant for (entry, principal).
func (d *Registry) DelGrant(ctx context.Context, id uint64, principal string) error {
	if err := d.store.Del(ctx, grantKey(id, principal)); err != nil {
		return errors.Wrapf(err, "delete grant %d/%s", id, principal)
	}

	return nil
}

// DelEntryGrants removes every grant recorded for the entry.
func (d *Registry) DelEntryGrants(ctx context.Context, id uint64) error {
	keys, err := d.store.Keys(ctx, grantPrefix(id))
	if err != nil {
		return errors.Wrapf(err, "scan grants of entry %d", id)
	}

	for _, key := range keys {
		if err := d.store.Del(ctx, key); err != nil {
			return errors.Wrapf(err, "delete grant key %s", key)
		}
	}

	return nil
}
