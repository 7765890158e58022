// Package works answers work level questions: which identifiers and covers
// a work reaches through its manifestations, and aggregate statistics.
package works

import (
	"gorm.io/gorm"

	"github.com/DarienLibrary/covercache-public/internal/database"
	"github.com/DarienLibrary/covercache-public/internal/entities"
)

// workIdentifierIDs selects the identifier ids reachable from a work.
const workIdentifierIDs = `
SELECT mi.identifier_id FROM manifestation_identifiers mi
JOIN manifestations m ON m.id = mi.manifestation_id
WHERE m.work_id = ?`

// Repository handles work queries.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new works repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Exists reports whether the work is stored.
func (r *Repository) Exists(id int) (bool, error) {
	var n int64
	err := r.db.Model(&entities.Work{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

// Manifestations returns the work's manifestations, highest precedence
// first and newest id first among equals.
func (r *Repository) Manifestations(workID int) ([]entities.Manifestation, error) {
	var ms []entities.Manifestation
	err := r.db.Where("work_id = ?", workID).Order("precedence DESC, id DESC").Find(&ms).Error
	return ms, err
}

// Identifiers returns the distinct identifiers of a work in manifestation
// order, then in the order they were attached.
func (r *Repository) Identifiers(workID int) ([]entities.Identifier, error) {
	var rows []entities.Identifier
	err := r.db.Table("identifiers").
		Select("identifiers.*").
		Joins("JOIN manifestation_identifiers mi ON mi.identifier_id = identifiers.id").
		Joins("JOIN manifestations m ON m.id = mi.manifestation_id").
		Where("m.work_id = ?", workID).
		Order("m.precedence DESC, m.id DESC, identifiers.id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]entities.Identifier, 0, len(rows))
	seen := make(map[uint]bool, len(rows))
	for _, ident := range rows {
		if !seen[ident.ID] {
			seen[ident.ID] = true
			out = append(out, ident)
		}
	}
	return out, nil
}

// Covers returns every cover reachable from the work, unranked.
func (r *Repository) Covers(workID int) ([]entities.Cover, error) {
	var covers []entities.Cover
	err := r.db.Where("identifier_id IN ("+workIdentifierIDs+")", workID).
		Order("id ASC").
		Find(&covers).Error
	return covers, err
}

// HasCover reports whether any cover is reachable from the work.
func (r *Repository) HasCover(workID int) (bool, error) {
	var n int64
	err := r.db.Model(&entities.Cover{}).
		Where("identifier_id IN ("+workIdentifierIDs+")", workID).
		Count(&n).Error
	return n > 0, err
}

// CoverlessIDs returns the ids of works without any cover.
func (r *Repository) CoverlessIDs() ([]int, error) {
	var ids []int
	err := r.db.Raw(`
SELECT w.id FROM works w
WHERE NOT EXISTS (
	SELECT 1 FROM manifestations m
	JOIN manifestation_identifiers mi ON mi.manifestation_id = m.id
	JOIN covers c ON c.identifier_id = mi.identifier_id
	WHERE m.work_id = w.id
)
ORDER BY w.id`).Scan(&ids).Error
	return ids, err
}

// IdentifierValues returns the values of the work's identifiers from one
// source.
func (r *Repository) IdentifierValues(workID int, source entities.SourceName) ([]string, error) {
	idents, err := r.Identifiers(workID)
	if err != nil {
		return nil, err
	}
	var values []string
	for _, ident := range idents {
		if ident.Source == source {
			values = append(values, ident.Value)
		}
	}
	return values, nil
}

// WithCoversByISBN returns the ids of works that have at least one cover and
// reach one of the given ISBN identifiers.
func (r *Repository) WithCoversByISBN(isbns []string) ([]int, error) {
	if len(isbns) == 0 {
		return nil, nil
	}
	var ids []int
	err := r.db.Raw(`
SELECT DISTINCT m.work_id FROM manifestations m
JOIN manifestation_identifiers mi ON mi.manifestation_id = m.id
JOIN identifiers i ON i.id = mi.identifier_id
WHERE m.work_id IS NOT NULL
	AND i.source = ?
	AND i.value IN ?
	AND EXISTS (
		SELECT 1 FROM manifestations m2
		JOIN manifestation_identifiers mi2 ON mi2.manifestation_id = m2.id
		JOIN covers c ON c.identifier_id = mi2.identifier_id
		WHERE m2.work_id = m.work_id
	)
ORDER BY m.work_id`, entities.SourceISBN, isbns).Scan(&ids).Error
	return ids, err
}

// Get returns a stored work.
func (r *Repository) Get(id int) (*entities.Work, error) {
	var w entities.Work
	if err := r.db.First(&w, id).Error; err != nil {
		return nil, database.NotFound(err)
	}
	return &w, nil
}
