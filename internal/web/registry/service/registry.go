// Package service is the service layer of the document registry.
package service

import (
	"context"
	"sync"

	"github.com/Laisky/errors/v2"
	glog "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/google/uuid"

	"github.com/Laisky/laisky-doc-registry/internal/web/registry/dao"
	"github.com/Laisky/laisky-doc-registry/internal/web/registry/dto"
	"github.com/Laisky/laisky-doc-registry/internal/web/registry/model"
	"github.com/Laisky/laisky-doc-registry/library/auth"
)

// Registry registry service.
//
// Every public operation runs to completion as one serialized unit:
// the mutex guarantees no two calls observe the same next entry id and
// no partially written record is ever visible.
type Registry struct {
	logger  glog.Logger
	dao     *dao.Registry
	heights HeightSource

	// enforceReadACL gates read projections on a recorded grant.
	// Off by default: the historical surface leaves reads open.
	enforceReadACL bool

	mu sync.Mutex
}

// Option is a function that configures the registry service.
type Option func(*Registry) error

// WithEnforcedReadACL requires a permission grant on every read projection.
func WithEnforcedReadACL() Option {
	return func(s *Registry) error {
		s.enforceReadACL = true
		return nil
	}
}

// New new registry service
func New(logger glog.Logger,
	dao *dao.Registry,
	heights HeightSource,
	opts ...Option) (*Registry, error) {
	if heights == nil {
		return nil, errors.New("heights cannot be nil")
	}

	s := &Registry{
		logger:  logger,
		dao:     dao,
		heights: heights,
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, errors.Wrap(err, "apply opts")
		}
	}

	return s, nil
}

// Submit validates the metadata, assigns the next entry id, records the
// entry with the caller as creator, and grants the caller permission.
//
// The counter advance and the record insertion happen under one lock, so
// no id is ever skipped or handed to two submissions.
func (s *Registry) Submit(ctx context.Context,
	name string, byteCount uint64, summary string, tags []string) (uint64, error) {
	caller, err := auth.FromContext(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "resolve caller")
	}

	if err := validateEntryMetadata(name, byteCount, summary, tags); err != nil {
		return 0, errors.WithStack(err)
	}

	height, err := s.heights.CurrentHeight(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "current height")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	counter, err := s.dao.CurrentCounter(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	entry := &model.DocumentEntry{
		ID:               counter + 1,
		Name:             name,
		Creator:          caller,
		ByteCount:        byteCount,
		SubmissionHeight: height,
		Summary:          summary,
		Tags:             tags,
	}

	if err := s.dao.PutEntry(ctx, entry); err != nil {
		return 0, errors.WithStack(err)
	}

	if err := s.dao.AdvanceCounter(ctx, entry.ID); err != nil {
		return 0, errors.WithStack(err)
	}

	if err := s.dao.PutGrant(ctx, &model.PermissionGrant{
		EntryID:   entry.ID,
		Principal: caller,
		Granted:   true,
	}); err != nil {
		return 0, errors.WithStack(err)
	}

	s.logger.Info("submitted entry",
		zap.String("op_id", uuid.NewString()),
		zap.Uint64("entry_id", entry.ID),
		zap.String("creator", caller),
		zap.Uint64("height", height))
	return entry.ID, nil
}

// Revise replaces name/size/summary/tags of an existing entry in place.
// Only the entry's creator may revise; id, creator, and submission height
// never change. All four fields are re-validated before any mutation.
func (s *Registry) Revise(ctx context.Context, id uint64,
	name string, byteCount uint64, summary string, tags []string) error {
	caller, err := auth.FromContext(ctx)
	if err != nil {
		return errors.Wrap(err, "resolve caller")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.dao.GetEntry(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	if entry.Creator != caller {
		return errors.Wrapf(model.ErrPermissionDenied,
			"entry %d does not belong to caller", id)
	}

	if err := validateEntryMetadata(name, byteCount, summary, tags); err != nil {
		return errors.WithStack(err)
	}

	entry.Name = name
	entry.ByteCount = byteCount
	entry.Summary = summary
	entry.Tags = tags

	if err := s.dao.PutEntry(ctx, entry); err != nil {
		return errors.WithStack(err)
	}

	s.logger.Info("revised entry",
		zap.String("op_id", uuid.NewString()),
		zap.Uint64("entry_id", id),
		zap.String("creator", caller))
	return nil
}

// Withdraw irreversibly deletes the entry. Only the creator may withdraw.
// The entry's permission grants are removed with it so the ledger never
// accumulates rows pointing at absent entries.
func (s *Registry) Withdraw(ctx context.Context, id uint64) error {
	caller, err := auth.FromContext(ctx)
	if err != nil {
		return errors.Wrap(err, "resolve caller")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.dao.GetEntry(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	if entry.Creator != caller {
		return errors.Wrapf(model.ErrPermissionDenied,
			"entry %d does not belong to caller", id)
	}

	if err := s.dao.DelEntry(ctx, id); err != nil {
		return errors.WithStack(err)
	}

	if err := s.dao.DelEntryGrants(ctx, id); err != nil {
		return errors.WithStack(err)
	}

	s.logger.Info("withdrew entry",
		zap.String("op_id", uuid.NewString()),
		zap.Uint64("entry_id", id),
		zap.String("creator", caller))
	return nil
}

// ValidateSubmissionParameters performs the exact same checks as Submit
// without mutating state, for pre-flight validation by callers.
func (s *Registry) ValidateSubmissionParameters(_ context.Context,
	name string, byteCount uint64, summary string, tags []string) error {
	return validateEntryMetadata(name, byteCount, summary, tags)
}

// loadEntry is the single accessor behind every read projection.
func (s *Registry) loadEntry(ctx context.Context, id uint64) (*model.DocumentEntry, error) {
	entry, err := s.dao.GetEntry(ctx, id)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if s.enforceReadACL {
		caller, err := auth.FromContext(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "resolve caller")
		}

		granted, err := s.checkGrant(ctx, id, caller)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if !granted {
			return nil, errors.Wrapf(model.ErrPermissionDenied,
				"caller has no grant on entry %d", id)
		}
	}

	return entry, nil
}

// ViewFull returns the entry's mutable fields.
func (s *Registry) ViewFull(ctx context.Context, id uint64) (*dto.EntryProfile, error) {
	entry, err := s.loadEntry(ctx, id)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return dto.NewEntryProfile(entry)
}

// FetchEssentials returns the entry's name, size, and summary.
func (s *Registry) FetchEssentials(ctx context.Context, id uint64) (*dto.EntryEssentials, error) {
	entry, err := s.loadEntry(ctx, id)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return dto.NewEntryEssentials(entry)
}

// FetchIdentity returns the entry's name and creator.
func (s *Registry) FetchIdentity(ctx context.Context, id uint64) (*dto.EntryIdentity, error) {
	entry, err := s.loadEntry(ctx, id)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return dto.NewEntryIdentity(entry)
}

// ExtractSummary returns only the entry's summary text.
func (s *Registry) ExtractSummary(ctx context.Context, id uint64) (*dto.EntrySummary, error) {
	entry, err := s.loadEntry(ctx, id)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return dto.NewEntrySummary(entry)
}

// GenerateCompleteProfile returns every stored field of the entry.
func (s *Registry) GenerateCompleteProfile(ctx context.Context, id uint64) (*dto.CompleteProfile, error) {
	entry, err := s.loadEntry(ctx, id)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return dto.NewCompleteProfile(entry)
}

// Grant records a read grant for principal on the entry. Creator only,
// idempotent.
func (s *Registry) Grant(ctx context.Context, id uint64, principal string) error {
	caller, err := auth.FromContext(ctx)
	if err != nil {
		return errors.Wrap(err, "resolve caller")
	}

	if err := auth.ValidPrincipal(principal); err != nil {
		return errors.WithStack(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.dao.GetEntry(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	if entry.Creator != caller {
		return errors.Wrapf(model.ErrPermissionDenied,
			"entry %d does not belong to caller", id)
	}

	if err := s.dao.PutGrant(ctx, &model.PermissionGrant{
		EntryID:   id,
		Principal: principal,
		Granted:   true,
	}); err != nil {
		return errors.WithStack(err)
	}

	s.logger.Info("granted entry access",
		zap.Uint64("entry_id", id),
		zap.String("principal", principal))
	return nil
}

// Revoke removes principal's grant on the entry. Creator only.
func (s *Registry) Revoke(ctx context.Context, id uint64, principal string) error {
	caller, err := auth.FromContext(ctx)
	if err != nil {
		return errors.Wrap(err, "resolve caller")
	}

	if err := auth.ValidPrincipal(principal); err != nil {
		return errors.WithStack(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.dao.GetEntry(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	if entry.Creator != caller {
		return errors.Wrapf(model.ErrPermissionDenied,
			"entry %d does not belong to caller", id)
	}

	if err := s.dao.DelGrant(ctx, id, principal); err != nil {
		return errors.WithStack(err)
	}

	s.logger.Info("revoked entry access",
		zap.Uint64("entry_id", id),
		zap.String("principal", principal))
	return nil
}

// Check returns the stored grant flag for (entry, principal), false if
// none is recorded.
func (s *Registry) Check(ctx context.Context, id uint64, principal string) (bool, error) {
	return s.checkGrant(ctx, id, principal)
}

func (s *Registry) checkGrant(ctx context.Context, id uint64, principal string) (bool, error) {
	grant, err := s.dao.GetGrant(ctx, id, principal)
	if err != nil {
		return false, errors.WithStack(err)
	}
	if grant == nil {
		return false, nil
	}

	return grant.Granted, nil
}
