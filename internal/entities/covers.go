package entities

import (
	"time"
)

// SourceName tags both identifiers (where a value came from) and covers
// (which image provider produced the file).
type SourceName string

const (
	SourceISBN  SourceName = "isbn"
	SourceOCLC  SourceName = "oclc"
	SourceLink  SourceName = "link"
	SourceStaff SourceName = "staff"

	SourceAmazon      SourceName = "amazon"
	SourceBibliotheca SourceName = "bibliotheca"
	SourceOverdrive   SourceName = "overdrive"
	SourceSyndetics   SourceName = "syndetics"
	SourceWorldcat    SourceName = "worldcat"
	SourceZola        SourceName = "zola"
)

// Work groups catalog records that represent the same title.
type Work struct {
	ID             int             `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Manifestations []Manifestation `gorm:"foreignKey:WorkID" json:"-"`
}

// Manifestation mirrors one record of the external catalog. Its ID is the
// catalog record ID and changes when the catalog renames or merges records.
type Manifestation struct {
	ID              int          `gorm:"primaryKey;autoIncrement:false" json:"id"`
	DateLastChecked *time.Time   `json:"date_last_checked,omitempty"`
	Precedence      int          `gorm:"not null;default:0" json:"precedence"`
	WorkID          *int         `gorm:"index" json:"work_id,omitempty"`
	Work            *Work        `gorm:"foreignKey:WorkID" json:"-"`
	Identifiers     []Identifier `gorm:"many2many:manifestation_identifiers;" json:"identifiers,omitempty"`
}

// Identifier is an external reference that an image provider can resolve.
// (Source, Value) is unique.
type Identifier struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Source          SourceName      `gorm:"size:32;not null;uniqueIndex:idx_identifier_source_value" json:"source"`
	Value           string          `gorm:"size:256;not null;uniqueIndex:idx_identifier_source_value" json:"value"`
	DateLastChecked *time.Time      `json:"date_last_checked,omitempty"`
	Manifestations  []Manifestation `gorm:"many2many:manifestation_identifiers;" json:"-"`
	Covers          []Cover         `gorm:"foreignKey:IdentifierID" json:"covers,omitempty"`
}

// Cover is one fetched and resized image.
type Cover struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	IdentifierID uint       `gorm:"index;not null" json:"identifier_id"`
	Identifier   Identifier `gorm:"foreignKey:IdentifierID" json:"-"`
	Source       SourceName `gorm:"size:32;index" json:"source"`
	Filename     string     `gorm:"size:512;not null" json:"filename"`
	Width        int        `json:"width"`
	Height       int        `json:"height"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Work) TableName() string {
	return "works"
}

func (Manifestation) TableName() string {
	return "manifestations"
}

func (Identifier) TableName() string {
	return "identifiers"
}

func (Cover) TableName() string {
	return "covers"
}

// NeedsCheck reports whether the identifier is due for another provider
// lookup given the retry period.
func (i *Identifier) NeedsCheck(now time.Time, retry time.Duration) bool {
	return i.DateLastChecked == nil || i.DateLastChecked.Before(now.Add(-retry))
}
