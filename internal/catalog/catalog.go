// Package catalog reads the external bibliographic database and turns its
// raw tag data into identifiers the cover pipeline understands.
package catalog

import (
	"context"
	"time"
)

// ManifestationRecord is one current record of the external catalog.
type ManifestationRecord struct {
	ID           int
	LastModified time.Time
	Precedence   int
}

// RenameEvent says the catalog replaced OldID with NewID. The same event
// can be reported more than once.
type RenameEvent struct {
	OldID int
	NewID int
}

// TagRow is a raw subfield value attached to a catalog record.
type TagRow struct {
	ManifestationID int
	Data            string
}

// IdentifierTags groups the tag subfields identifiers are extracted from.
type IdentifierTags struct {
	Links []string // 856$u
	ISBNs []string // 020$a
	OCLCs []string // 035$a
}

// Source is the query surface of the external catalog.
type Source interface {
	ListManifestations(ctx context.Context) ([]ManifestationRecord, error)
	ListRenameEvents(ctx context.Context) ([]RenameEvent, error)
	ListWorkTags(ctx context.Context) ([]TagRow, error)
	ListIdentifierTags(ctx context.Context, manifestationID int) (IdentifierTags, error)
}
