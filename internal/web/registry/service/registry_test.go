package service

import (
	"context"
	"testing"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Laisky/laisky-doc-registry/internal/web/registry/dao"
	"github.com/Laisky/laisky-doc-registry/internal/web/registry/model"
	"github.com/Laisky/laisky-doc-registry/library/auth"
	"github.com/Laisky/laisky-doc-registry/library/db/kv"
	"github.com/Laisky/laisky-doc-registry/library/log"
)

func newTestRegistry(t *testing.T, opts ...Option) *Registry {
	t.Helper()

	svc, err := New(log.Logger,
		dao.New(log.Logger, kv.NewMemory()),
		NewStepHeight(100),
		opts...)
	require.NoError(t, err)
	return svc
}

func principalCtx(t *testing.T, principal string) context.Context {
	t.Helper()

	ctx, err := auth.WithPrincipal(context.Background(), principal)
	require.NoError(t, err)
	return ctx
}

func TestSubmitAssignsSequentialIDs(t *testing.T) {
	t.Parallel()

	svc := newTestRegistry(t)
	ctx := principalCtx(t, "alice")

	for want := uint64(1); want <= 3; want++ {
		id, err := svc.Submit(ctx, "Paper A", 1024, "Summary text", []string{"ai"})
		require.NoError(t, err)
		require.Equal(t, want, id)
	}

	// failed submission must not consume an id
	_, err := svc.Submit(ctx, "", 1024, "Summary text", []string{"ai"})
	require.Error(t, err)
	require.True(t, errors.Is(err, model.ErrInvalidMetadata))

	id, err := svc.Submit(ctx, "Paper B", 1024, "Summary text", []string{"ai"})
	require.NoError(t, err)
	require.Equal(t, uint64(4), id)
}

func TestSubmitRecordsCreatorAndHeight(t *testing.T) {
	t.Parallel()

	svc := newTestRegistry(t)
	ctx := principalCtx(t, "alice")

	id, err := svc.Submit(ctx, "Paper A", 1024, "Summary text", []string{"ai", "nlp"})
	require.NoError(t, err)

	profile, err := svc.GenerateCompleteProfile(ctx, id)
	require.NoError(t, err)
	require.Equal(t, id, profile.ID)
	require.Equal(t, "alice", profile.Creator)
	require.Equal(t, uint64(100), profile.SubmissionHeight)
	require.Equal(t, []string{"ai", "nlp"}, profile.Tags)

	granted, err := svc.Check(ctx, id, "alice")
	require.NoError(t, err)
	require.True(t, granted, "creator should be self-granted on submit")
}

func TestSubmitRequiresPrincipal(t *testing.T) {
	t.Parallel()

	svc := newTestRegistry(t)

	_, err := svc.Submit(context.Background(), "Paper A", 1024, "Summary text", []string{"ai"})
	require.Error(t, err)
	require.True(t, errors.Is(err, auth.ErrNoPrincipal))
}

func TestEntryLifecycle(t *testing.T) {
	t.Parallel()

	svc := newTestRegistry(t)
	ctxP := principalCtx(t, "alice")
	ctxQ := principalCtx(t, "bob")

	id, err := svc.Submit(ctxP, "Paper A", 1024, "Summary text", []string{"ai", "nlp"})
	require.NoError(t, err)
	require.Equal(t, uint64(1), id)

	identity, err := svc.FetchIdentity(ctxQ, id)
	require.NoError(t, err, "reads are open by default")
	require.Equal(t, "Paper A", identity.Name)
	require.Equal(t, "alice", identity.Creator)

	require.NoError(t, svc.Revise(ctxP, id, "Paper A v2", 2048, "Updated", []string{"ai"}))

	profile, err := svc.ViewFull(ctxQ, id)
	require.NoError(t, err)
	require.Equal(t, "Paper A v2", profile.Name)
	require.Equal(t, uint64(2048), profile.ByteCount)
	require.Equal(t, "Updated", profile.Summary)
	require.Equal(t, []string{"ai"}, profile.Tags)

	err = svc.Revise(ctxQ, id, "hijack", 1, "hijack", []string{"x"})
	require.Error(t, err)
	require.True(t, errors.Is(err, model.ErrPermissionDenied))

	err = svc.Withdraw(ctxQ, id)
	require.Error(t, err)
	require.True(t, errors.Is(err, model.ErrPermissionDenied))

	require.NoError(t, svc.Withdraw(ctxP, id))

	_, err = svc.ViewFull(ctxP, id)
	require.Error(t, err)
	require.True(t, errors.Is(err, model.ErrEntryNotFound))
}

func TestOperationsOnUnknownEntry(t *testing.T) {
	t.Parallel()

	svc := newTestRegistry(t)
	ctx := principalCtx(t, "alice")
	const id = uint64(42)

	_, err := svc.ViewFull(ctx, id)
	require.True(t, errors.Is(err, model.ErrEntryNotFound))

	_, err = svc.FetchEssentials(ctx, id)
	require.True(t, errors.Is(err, model.ErrEntryNotFound))

	_, err = svc.FetchIdentity(ctx, id)
	require.True(t, errors.Is(err, model.ErrEntryNotFound))

	_, err = svc.ExtractSummary(ctx, id)
	require.True(t, errors.Is(err, model.ErrEntryNotFound))

	_, err = svc.GenerateCompleteProfile(ctx, id)
	require.True(t, errors.Is(err, model.ErrEntryNotFound))

	err = svc.Revise(ctx, id, "Paper A", 1024, "Summary text", []string{"ai"})
	require.True(t, errors.Is(err, model.ErrEntryNotFound))

	err = svc.Withdraw(ctx, id)
	require.True(t, errors.Is(err, model.ErrEntryNotFound))
}

func TestReviseKeepsIdentityFieldsAndRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	svc := newTestRegistry(t)
	ctx := principalCtx(t, "alice")

	id, err := svc.Submit(ctx, "Paper A", 1024, "Summary text", []string{"ai"})
	require.NoError(t, err)

	before, err := svc.GenerateCompleteProfile(ctx, id)
	require.NoError(t, err)

	// failed validation must leave the record untouched
	err = svc.Revise(ctx, id, "Paper A v2", 0, "Updated", []string{"ai"})
	require.Error(t, err)
	require.True(t, errors.Is(err, model.ErrInvalidDocumentSize))

	after, err := svc.GenerateCompleteProfile(ctx, id)
	require.NoError(t, err)
	require.Equal(t, before, after)

	require.NoError(t, svc.Revise(ctx, id, "Paper A v2", 2048, "Updated", []string{"ai"}))

	revised, err := svc.GenerateCompleteProfile(ctx, id)
	require.NoError(t, err)
	require.Equal(t, before.ID, revised.ID)
	require.Equal(t, before.Creator, revised.Creator)
	require.Equal(t, before.SubmissionHeight, revised.SubmissionHeight)
	require.Equal(t, "Paper A v2", revised.Name)
}

func TestReadProjectionsShareOneRecord(t *testing.T) {
	t.Parallel()

	svc := newTestRegistry(t)
	ctx := principalCtx(t, "alice")

	id, err := svc.Submit(ctx, "Paper A", 1024, "Summary text", []string{"ai", "nlp"})
	require.NoError(t, err)

	full, err := svc.ViewFull(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Paper A", full.Name)
	require.Equal(t, uint64(1024), full.ByteCount)
	require.Equal(t, "Summary text", full.Summary)
	require.Equal(t, []string{"ai", "nlp"}, full.Tags)

	essentials, err := svc.FetchEssentials(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Paper A", essentials.Name)
	require.Equal(t, uint64(1024), essentials.ByteCount)
	require.Equal(t, "Summary text", essentials.Summary)

	summary, err := svc.ExtractSummary(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Summary text", summary.Summary)
}

func TestValidateSubmissionParametersIsSideEffectFree(t *testing.T) {
	t.Parallel()

	svc := newTestRegistry(t)
	ctx := principalCtx(t, "alice")

	require.NoError(t, svc.ValidateSubmissionParameters(ctx,
		"Paper A", 1024, "Summary text", []string{"ai"}))

	err := svc.ValidateSubmissionParameters(ctx, "Paper A", 0, "Summary text", []string{"ai"})
	require.True(t, errors.Is(err, model.ErrInvalidDocumentSize))

	// dry-run validation must not consume an id
	id, err := svc.Submit(ctx, "Paper A", 1024, "Summary text", []string{"ai"})
	require.NoError(t, err)
	require.Equal(t, uint64(1), id)
}

func TestGrantAndRevokeAreCreatorGated(t *testing.T) {
	t.Parallel()

	svc := newTestRegistry(t)
	ctxP := principalCtx(t, "alice")
	ctxQ := principalCtx(t, "bob")

	id, err := svc.Submit(ctxP, "Paper A", 1024, "Summary text", []string{"ai"})
	require.NoError(t, err)

	err = svc.Grant(ctxQ, id, "bob")
	require.True(t, errors.Is(err, model.ErrPermissionDenied))

	require.NoError(t, svc.Grant(ctxP, id, "bob"))
	// idempotent
	require.NoError(t, svc.Grant(ctxP, id, "bob"))

	granted, err := svc.Check(ctxP, id, "bob")
	require.NoError(t, err)
	require.True(t, granted)

	err = svc.Revoke(ctxQ, id, "bob")
	require.True(t, errors.Is(err, model.ErrPermissionDenied))

	require.NoError(t, svc.Revoke(ctxP, id, "bob"))

	granted, err = svc.Check(ctxP, id, "bob")
	require.NoError(t, err)
	require.False(t, granted)
}

func TestWithdrawRemovesGrants(t *testing.T) {
	t.Parallel()

	svc := newTestRegistry(t)
	ctx := principalCtx(t, "alice")

	id, err := svc.Submit(ctx, "Paper A", 1024, "Summary text", []string{"ai"})
	require.NoError(t, err)
	require.NoError(t, svc.Grant(ctx, id, "bob"))

	require.NoError(t, svc.Withdraw(ctx, id))

	for _, principal := range []string{"alice", "bob"} {
		granted, err := svc.Check(ctx, id, principal)
		require.NoError(t, err)
		require.False(t, granted, "grants of %s should be removed with the entry", principal)
	}
}

func TestEnforcedReadACL(t *testing.T) {
	t.Parallel()

	svc := newTestRegistry(t, WithEnforcedReadACL())
	ctxP := principalCtx(t, "alice")
	ctxQ := principalCtx(t, "bob")

	id, err := svc.Submit(ctxP, "Paper A", 1024, "Summary text", []string{"ai"})
	require.NoError(t, err)

	// creator reads through its self-grant
	_, err = svc.ViewFull(ctxP, id)
	require.NoError(t, err)

	_, err = svc.ViewFull(ctxQ, id)
	require.True(t, errors.Is(err, model.ErrPermissionDenied))

	require.NoError(t, svc.Grant(ctxP, id, "bob"))

	_, err = svc.ViewFull(ctxQ, id)
	require.NoError(t, err)
}

func TestConcurrentSubmissionsReceiveUniqueIDs(t *testing.T) {
	t.Parallel()

	const n = 32

	svc := newTestRegistry(t)
	ctx := principalCtx(t, "alice")

	ids := make(chan uint64, n)
	var pool errgroup.Group
	for i := 0; i < n; i++ {
		pool.Go(func() error {
			id, err := svc.Submit(ctx, "Paper A", 1024, "Summary text", []string{"ai"})
			if err != nil {
				return err
			}

			ids <- id
			return nil
		})
	}
	require.NoError(t, pool.Wait())
	close(ids)

	seen := map[uint64]bool{}
	for id := range ids {
		require.False(t, seen[id], "id %d assigned twice", id)
		seen[id] = true
	}

	// dense assignment, no id skipped
	for want := uint64(1); want <= n; want++ {
		require.True(t, seen[want], "id %d never assigned", want)
	}
}
