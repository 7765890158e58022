// Package manifestations applies catalog changes to locally stored
// manifestations: renames, pruning, identifier refresh and work grouping.
package manifestations

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/DarienLibrary/covercache-public/internal/database"
	"github.com/DarienLibrary/covercache-public/internal/entities"
)

const deleteBatchSize = 500

// Repository handles manifestation records.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new manifestations repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Get returns a manifestation with its identifiers.
func (r *Repository) Get(id int) (*entities.Manifestation, error) {
	var m entities.Manifestation
	err := r.db.Preload("Identifiers", func(db *gorm.DB) *gorm.DB {
		return db.Order("identifiers.id ASC")
	}).First(&m, id).Error
	if err != nil {
		return nil, database.NotFound(err)
	}
	return &m, nil
}

// IDs returns the ids of all stored manifestations in ascending order.
func (r *Repository) IDs() ([]int, error) {
	var ids []int
	err := r.db.Model(&entities.Manifestation{}).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

// Rename moves a manifestation to the id the catalog now uses for it. When
// a manifestation already exists at newID the identifiers of both are
// united. Returns false when nothing is stored at oldID.
func (r *Repository) Rename(oldID, newID int) (bool, error) {
	if oldID == newID {
		return false, nil
	}
	renamed := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var source entities.Manifestation
		err := tx.Preload("Identifiers").First(&source, oldID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		var target entities.Manifestation
		err = tx.First(&target, newID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			target = entities.Manifestation{
				ID:              newID,
				Precedence:      source.Precedence,
				WorkID:          source.WorkID,
				DateLastChecked: source.DateLastChecked,
			}
			if err := tx.Create(&target).Error; err != nil {
				return fmt.Errorf("create manifestation %d: %w", newID, err)
			}
		} else if err != nil {
			return err
		}

		if len(source.Identifiers) > 0 {
			if err := tx.Model(&target).Association("Identifiers").Append(source.Identifiers); err != nil {
				return fmt.Errorf("attach identifiers to %d: %w", newID, err)
			}
		}
		if err := deleteManifestations(tx, []int{oldID}); err != nil {
			return err
		}
		renamed = true
		return nil
	})
	return renamed, err
}

// Prune deletes every stored manifestation whose id is not in current and
// returns the deleted ids.
func (r *Repository) Prune(current []int) ([]int, error) {
	keep := make(map[int]bool, len(current))
	for _, id := range current {
		keep[id] = true
	}
	local, err := r.IDs()
	if err != nil {
		return nil, err
	}
	var dead []int
	for _, id := range local {
		if !keep[id] {
			dead = append(dead, id)
		}
	}
	if len(dead) == 0 {
		return nil, nil
	}

	err = r.db.Transaction(func(tx *gorm.DB) error {
		for start := 0; start < len(dead); start += deleteBatchSize {
			end := min(start+deleteBatchSize, len(dead))
			if err := deleteManifestations(tx, dead[start:end]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dead, nil
}

// Ensure returns the manifestation with the given id, creating it with the
// catalog precedence when missing. An existing row gets its precedence
// updated if the catalog changed it.
func (r *Repository) Ensure(id, precedence int) (*entities.Manifestation, error) {
	var m entities.Manifestation
	err := r.db.First(&m, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		m = entities.Manifestation{ID: id, Precedence: precedence}
		if err := r.db.Create(&m).Error; err != nil {
			return nil, err
		}
		return &m, nil
	}
	if err != nil {
		return nil, err
	}
	if m.Precedence != precedence {
		m.Precedence = precedence
		if err := r.db.Model(&m).Update("precedence", precedence).Error; err != nil {
			return nil, err
		}
	}
	return &m, nil
}

// ReplaceIdentifiers sets the catalog derived identifiers of a manifestation.
// Staff identifiers already attached are kept. Identifiers are looked up by
// (source, value) and created when new.
func (r *Repository) ReplaceIdentifiers(id int, found []entities.Identifier, checkedAt time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var m entities.Manifestation
		if err := tx.Preload("Identifiers").First(&m, id).Error; err != nil {
			return database.NotFound(err)
		}

		var next []entities.Identifier
		seen := make(map[uint]bool)
		for _, ident := range m.Identifiers {
			if ident.Source == entities.SourceStaff {
				next = append(next, ident)
				seen[ident.ID] = true
			}
		}
		for _, f := range found {
			ident, err := findOrCreateIdentifier(tx, f.Source, f.Value)
			if err != nil {
				return err
			}
			if !seen[ident.ID] {
				next = append(next, *ident)
				seen[ident.ID] = true
			}
		}

		assoc := tx.Model(&m).Association("Identifiers")
		if len(next) == 0 {
			if err := assoc.Clear(); err != nil {
				return err
			}
		} else if err := assoc.Replace(next); err != nil {
			return err
		}
		return tx.Model(&m).Update("date_last_checked", checkedAt).Error
	})
}

// AssignWorks points manifestations at their works, creating works as
// needed. Manifestations that are not stored are ignored. Returns the
// number of manifestations whose work changed.
func (r *Repository) AssignWorks(assignments map[int]int) (int, error) {
	ids := make([]int, 0, len(assignments))
	for id := range assignments {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	changed := 0
	err := r.db.Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			workID := assignments[id]
			var m entities.Manifestation
			err := tx.Select("id", "work_id").First(&m, id).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if m.WorkID != nil && *m.WorkID == workID {
				continue
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entities.Work{ID: workID}).Error; err != nil {
				return fmt.Errorf("create work %d: %w", workID, err)
			}
			if err := tx.Model(&entities.Manifestation{}).Where("id = ?", id).Update("work_id", workID).Error; err != nil {
				return err
			}
			changed++
		}
		return nil
	})
	return changed, err
}

func deleteManifestations(tx *gorm.DB, ids []int) error {
	if err := tx.Exec("DELETE FROM manifestation_identifiers WHERE manifestation_id IN ?", ids).Error; err != nil {
		return err
	}
	return tx.Delete(&entities.Manifestation{}, ids).Error
}

func findOrCreateIdentifier(tx *gorm.DB, source entities.SourceName, value string) (*entities.Identifier, error) {
	ident := entities.Identifier{Source: source, Value: value}
	err := tx.Where(entities.Identifier{Source: source, Value: value}).FirstOrCreate(&ident).Error
	if err != nil {
		return nil, fmt.Errorf("find or create identifier %s:%s: %w", source, value, err)
	}
	return &ident, nil
}
