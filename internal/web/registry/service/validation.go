package service

import (
	"github.com/Laisky/errors/v2"

	"github.com/Laisky/laisky-doc-registry/internal/web/registry/model"
)

const (
	// maxEntryNameLen caps the byte length of entry names.
	maxEntryNameLen = 80
	// maxSummaryLen caps the byte length of entry summaries.
	maxSummaryLen = 256
	// maxTagLen caps the byte length of a single tag.
	maxTagLen = 40
	// maxTagCount caps the number of tags per entry.
	maxTagCount = 8
	// maxByteCount is the exclusive upper bound of the document size.
	maxByteCount = 2_000_000_000
)

// validateEntryMetadata applies the submission field constraints.
// It checks every field before any state is touched, so a failed
// validation never leaves a partial write behind.
func validateEntryMetadata(name string, byteCount uint64, summary string, tags []string) error {
	if err := validateEntryName(name); err != nil {
		return errors.WithStack(err)
	}
	if err := validateByteCount(byteCount); err != nil {
		return errors.WithStack(err)
	}
	if err := validateSummary(summary); err != nil {
		return errors.WithStack(err)
	}
	if err := validateTags(tags); err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func validateEntryName(name string) error {
	if len(name) < 1 || len(name) > maxEntryNameLen {
		return errors.Wrapf(model.ErrInvalidMetadata,
			"name length %d must be within [1, %d]", len(name), maxEntryNameLen)
	}

	return nil
}

func validateByteCount(byteCount uint64) error {
	if byteCount < 1 || byteCount >= maxByteCount {
		return errors.Wrapf(model.ErrInvalidDocumentSize,
			"byte count %d must be within [1, %d)", byteCount, maxByteCount)
	}

	return nil
}

func validateSummary(summary string) error {
	if len(summary) < 1 || len(summary) > maxSummaryLen {
		return errors.Wrapf(model.ErrInvalidMetadata,
			"summary length %d must be within [1, %d]", len(summary), maxSummaryLen)
	}

	return nil
}

func validateTags(tags []string) error {
	if len(tags) < 1 || len(tags) > maxTagCount {
		return errors.Wrapf(model.ErrInvalidMetadata,
			"tag count %d must be within [1, %d]", len(tags), maxTagCount)
	}

	for i, tag := range tags {
		if len(tag) < 1 || len(tag) > maxTagLen {
			return errors.Wrapf(model.ErrInvalidMetadata,
				"tag %d length %d must be within [1, %d]", i, len(tag), maxTagLen)
		}
	}

	return nil
}
