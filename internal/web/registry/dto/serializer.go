// Package dto holds the read projections returned by the registry service.
//
// Every projection is a fixed field subset of one DocumentEntry; they are
// populated by name from the stored record so the lookups cannot diverge.
package dto

import (
	"github.com/Laisky/errors/v2"
	"github.com/jinzhu/copier"

	"github.com/Laisky/laisky-doc-registry/internal/web/registry/model"
)

// EntryProfile is the full mutable view of an entry.
type EntryProfile struct {
	Name      string   `json:"name"`
	ByteCount uint64   `json:"byte_count"`
	Summary   string   `json:"summary"`
	Tags      []string `json:"tags"`
}

// EntryEssentials carries the fields shown in listings.
type EntryEssentials struct {
	Name      string `json:"name"`
	ByteCount uint64 `json:"byte_count"`
	Summary   string `json:"summary"`
}

// EntryIdentity identifies an entry and who submitted it.
type EntryIdentity struct {
	Name    string `json:"name"`
	Creator string `json:"creator"`
}

// EntrySummary carries only the summary text.
type EntrySummary struct {
	Summary string `json:"summary"`
}

// CompleteProfile is every stored field of an entry.
type CompleteProfile struct {
	ID               uint64   `json:"entry_id"`
	Name             string   `json:"name"`
	Creator          string   `json:"creator"`
	ByteCount        uint64   `json:"byte_count"`
	SubmissionHeight uint64   `json:"submission_height"`
	Summary          string   `json:"summary"`
	Tags             []string `json:"tags"`
}

func project[T any](entry *model.DocumentEntry) (*T, error) {
	out := new(T)
	if err := copier.Copy(out, entry); err != nil {
		return nil, errors.Wrap(err, "copy")
	}

	return out, nil
}

// NewEntryProfile builds the full mutable view of the entry.
func NewEntryProfile(entry *model.DocumentEntry) (*EntryProfile, error) {
	return project[EntryProfile](entry)
}

// NewEntryEssentials builds the listing view of the entry.
func NewEntryEssentials(entry *model.DocumentEntry) (*EntryEssentials, error) {
	return project[EntryEssentials](entry)
}

// NewEntryIdentity builds the identity view of the entry.
func NewEntryIdentity(entry *model.DocumentEntry) (*EntryIdentity, error) {
	return project[EntryIdentity](entry)
}

// NewEntrySummary builds the summary-only view of the entry.
func NewEntrySummary(entry *model.DocumentEntry) (*EntrySummary, error) {
	return project[EntrySummary](entry)
}

// NewCompleteProfile builds the view containing every stored field.
func NewCompleteProfile(entry *model.DocumentEntry) (*CompleteProfile, error) {
	return project[CompleteProfile](entry)
}
