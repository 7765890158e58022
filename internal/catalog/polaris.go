package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	workTag        = 24
	workSubfield   = "a"
	linkTag        = 856
	linkSubfield   = "u"
	isbnTag        = 20
	isbnSubfield   = "a"
	oclcTag        = 35
	oclcSubfield   = "a"
	renameTranType = 3024
	mergeTranType  = 3001
)

const manifestationsQuery = `
SELECT
	br.BibliographicRecordID AS id,
	br.MARCModificationDate AS modified,
	tom.Precedence AS precedence
FROM Polaris.Polaris.BibliographicRecords AS br WITH (NOLOCK)
JOIN Polaris.Polaris.MARCTypeOfMaterial AS tom WITH (NOLOCK)
	ON br.PrimaryMARCTOMID = tom.MARCTypeOfMaterialID`

const tagsQuery = `
SELECT
	tag.BibliographicRecordID AS manifestation_id,
	tag.TagNumber AS tag_number,
	sub.Subfield AS subfield,
	sub.Data AS data
FROM Polaris.Polaris.BibliographicTags AS tag WITH (NOLOCK)
LEFT OUTER JOIN Polaris.Polaris.BibliographicSubfields AS sub WITH (NOLOCK)
	ON tag.BibliographicTagID = sub.BibliographicTagID`

// renameDetail names a transaction type and the detail subtypes holding the
// old and new record ids.
type renameDetail struct {
	tranType   int
	oldSubtype int
	newSubtype int
}

var renameDetails = []renameDetail{
	{tranType: renameTranType, oldSubtype: 38, newSubtype: 278},
	{tranType: renameTranType, oldSubtype: 36, newSubtype: 279},
	{tranType: mergeTranType, oldSubtype: 38, newSubtype: 278},
	{tranType: mergeTranType, oldSubtype: 36, newSubtype: 278},
}

const renameSelect = `
SELECT td.numValue AS old_id, td1.numValue AS new_id
FROM PolarisTransactions.Polaris.TransactionHeaders th WITH (NOLOCK)
INNER JOIN PolarisTransactions.Polaris.TransactionDetails td WITH (NOLOCK)
	ON th.TransactionID = td.TransactionID AND td.TransactionSubTypeID = ?
INNER JOIN PolarisTransactions.Polaris.TransactionDetails td1 WITH (NOLOCK)
	ON th.TransactionID = td1.TransactionID AND td1.TransactionSubTypeID = ?
WHERE th.TransactionTypeID = ?
	AND td1.numValue IS NOT NULL
	AND td1.numValue > 0`

func renameEventsQuery() (string, []any) {
	parts := make([]string, 0, len(renameDetails))
	args := make([]any, 0, 3*len(renameDetails))
	for _, d := range renameDetails {
		parts = append(parts, renameSelect)
		args = append(args, d.oldSubtype, d.newSubtype, d.tranType)
	}
	return strings.Join(parts, "\nUNION"), args
}

type manifestationRow struct {
	ID         int
	Modified   string
	Precedence int
}

type tagRow struct {
	ManifestationID int
	TagNumber       int
	Subfield        string
	Data            string
}

type renameRow struct {
	OldID int
	NewID int
}

// Polaris reads a Polaris ILS database over its SQL Server interface.
type Polaris struct {
	db  *gorm.DB
	loc *time.Location
}

// NewPolaris connects to the catalog. tz is the zone MARC timestamps are
// written in.
func NewPolaris(dsn, tz string) (*Polaris, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load catalog timezone %q: %w", tz, err)
	}
	db, err := gorm.Open(sqlserver.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to catalog: %w", err)
	}
	return &Polaris{db: db, loc: loc}, nil
}

func (p *Polaris) ListManifestations(ctx context.Context) ([]ManifestationRecord, error) {
	var rows []manifestationRow
	if err := p.db.WithContext(ctx).Raw(manifestationsQuery).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list manifestations: %w", err)
	}
	return toManifestationRecords(rows, p.loc), nil
}

func (p *Polaris) ListRenameEvents(ctx context.Context) ([]RenameEvent, error) {
	var rows []renameRow
	query, args := renameEventsQuery()
	err := p.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list rename events: %w", err)
	}
	events := make([]RenameEvent, 0, len(rows))
	for _, r := range rows {
		events = append(events, RenameEvent{OldID: r.OldID, NewID: r.NewID})
	}
	return events, nil
}

func (p *Polaris) ListWorkTags(ctx context.Context) ([]TagRow, error) {
	var rows []tagRow
	err := p.db.WithContext(ctx).
		Raw(tagsQuery+" WHERE tag.TagNumber = ? AND sub.Subfield = ?", workTag, workSubfield).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list work tags: %w", err)
	}
	out := make([]TagRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, TagRow{ManifestationID: r.ManifestationID, Data: r.Data})
	}
	return out, nil
}

func (p *Polaris) ListIdentifierTags(ctx context.Context, manifestationID int) (IdentifierTags, error) {
	var rows []tagRow
	err := p.db.WithContext(ctx).
		Raw(tagsQuery+" WHERE tag.BibliographicRecordID = ? AND tag.TagNumber IN (?, ?, ?)",
			manifestationID, linkTag, isbnTag, oclcTag).
		Scan(&rows).Error
	if err != nil {
		return IdentifierTags{}, fmt.Errorf("list identifier tags for %d: %w", manifestationID, err)
	}
	return groupIdentifierTags(rows), nil
}

// Close releases the catalog connection pool.
func (p *Polaris) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toManifestationRecords(rows []manifestationRow, loc *time.Location) []ManifestationRecord {
	out := make([]ManifestationRecord, 0, len(rows))
	for _, r := range rows {
		rec := ManifestationRecord{ID: r.ID, Precedence: r.Precedence}
		// records with an unreadable stamp are always refreshed
		if t, err := ParseMARCTime(r.Modified, loc); err == nil {
			rec.LastModified = t
		} else {
			rec.LastModified = time.Now().In(loc)
		}
		out = append(out, rec)
	}
	return out
}

func groupIdentifierTags(rows []tagRow) IdentifierTags {
	var tags IdentifierTags
	for _, r := range rows {
		subfield := strings.ToLower(strings.TrimSpace(r.Subfield))
		switch {
		case r.TagNumber == linkTag && subfield == linkSubfield:
			tags.Links = append(tags.Links, r.Data)
		case r.TagNumber == isbnTag && subfield == isbnSubfield:
			tags.ISBNs = append(tags.ISBNs, r.Data)
		case r.TagNumber == oclcTag && subfield == oclcSubfield:
			tags.OCLCs = append(tags.OCLCs, r.Data)
		}
	}
	return tags
}
