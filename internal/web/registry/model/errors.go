package model

import "github.com/Laisky/errors/v2"

var (
	// ErrNotAuthorized reserved for future admin-only operations,
	// no current operation returns it.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrEntryNotFound indicates the referenced entry id does not exist.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrDuplicateEntry reserved, id collisions are structurally prevented.
	ErrDuplicateEntry = errors.New("duplicate entry")
	// ErrInvalidMetadata indicates a name/summary/tag constraint violation.
	ErrInvalidMetadata = errors.New("invalid metadata")
	// ErrInvalidDocumentSize indicates the byte count is out of range.
	ErrInvalidDocumentSize = errors.New("invalid document size")
	// ErrPermissionDenied indicates the caller is not the entry's creator.
	ErrPermissionDenied = errors.New("permission denied")
)
