// Package identifiers stores identifiers, their throttle stamps and the
// covers fetched for them.
package identifiers

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/DarienLibrary/covercache-public/internal/database"
	"github.com/DarienLibrary/covercache-public/internal/entities"
)

// Repository handles identifier and cover records.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new identifiers repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Find looks an identifier up by source and value.
func (r *Repository) Find(source entities.SourceName, value string) (*entities.Identifier, error) {
	var ident entities.Identifier
	err := r.db.Where("source = ? AND value = ?", source, value).First(&ident).Error
	if err != nil {
		return nil, database.NotFound(err)
	}
	return &ident, nil
}

// FindOrCreate returns the identifier for (source, value) and whether this
// call created it.
func (r *Repository) FindOrCreate(source entities.SourceName, value string) (*entities.Identifier, bool, error) {
	ident, err := r.Find(source, value)
	if err == nil {
		return ident, false, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, false, err
	}
	ident = &entities.Identifier{Source: source, Value: value}
	if err := r.db.Create(ident).Error; err != nil {
		// lost a race with another writer
		if existing, findErr := r.Find(source, value); findErr == nil {
			return existing, false, nil
		}
		return nil, false, err
	}
	return ident, true, nil
}

// MarkChecked stamps the identifier as looked up at the given time.
func (r *Repository) MarkChecked(id uint, at time.Time) error {
	return r.db.Model(&entities.Identifier{}).Where("id = ?", id).Update("date_last_checked", at).Error
}

// CountCovers returns how many covers were fetched for the identifier.
func (r *Repository) CountCovers(id uint) (int64, error) {
	var n int64
	err := r.db.Model(&entities.Cover{}).Where("identifier_id = ?", id).Count(&n).Error
	return n, err
}

// Covers returns the covers of an identifier, newest first.
func (r *Repository) Covers(id uint) ([]entities.Cover, error) {
	var covers []entities.Cover
	err := r.db.Where("identifier_id = ?", id).Order("created_at DESC, id DESC").Find(&covers).Error
	return covers, err
}

// CreateCover stores a cover record for an already written image file.
func (r *Repository) CreateCover(cover *entities.Cover) error {
	return r.db.Omit("Identifier").Create(cover).Error
}

// Attach links an identifier to a manifestation. Linking twice is a no-op.
func (r *Repository) Attach(identifierID uint, manifestationID int) error {
	return r.db.Exec(
		"INSERT INTO manifestation_identifiers (manifestation_id, identifier_id) VALUES (?, ?) ON CONFLICT DO NOTHING",
		manifestationID, identifierID,
	).Error
}

// Delete removes an identifier that has no covers, together with its
// manifestation links.
func (r *Repository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&entities.Cover{}).Where("identifier_id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return errors.New("identifier has covers")
		}
		if err := tx.Exec("DELETE FROM manifestation_identifiers WHERE identifier_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&entities.Identifier{}, id).Error
	})
}
