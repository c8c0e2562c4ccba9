// Package model contains all the models used by the document registry.
package model

// DocumentEntry is one cataloged document's metadata record.
type DocumentEntry struct {
	// ID unique identifier for the entry, assigned sequentially starting at 1
	ID uint64 `json:"entry_id"`
	// Name display name of the document
	Name string `json:"name"`
	// Creator principal that submitted the entry, immutable after creation
	Creator string `json:"creator"`
	// ByteCount size of the document in bytes
	ByteCount uint64 `json:"byte_count"`
	// SubmissionHeight ordering marker recorded at creation time, immutable
	SubmissionHeight uint64 `json:"submission_height"`
	// Summary short description of the document
	Summary string `json:"summary"`
	// Tags ordered labels attached to the document
	Tags []string `json:"tags"`
}

// PermissionGrant records that a principal may access an entry.
type PermissionGrant struct {
	// EntryID the entry this grant applies to
	EntryID uint64 `json:"entry_id"`
	// Principal the principal this grant applies to
	Principal string `json:"principal"`
	// Granted whether access is granted
	Granted bool `json:"granted"`
}
