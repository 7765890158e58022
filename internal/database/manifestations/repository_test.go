package manifestations

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/DarienLibrary/covercache-public/internal/database"
	"github.com/DarienLibrary/covercache-public/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "covercache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db.DB), db.DB
}

func seedManifestation(t *testing.T, db *gorm.DB, id int, idents ...entities.Identifier) {
	t.Helper()
	m := entities.Manifestation{ID: id, Identifiers: idents}
	require.NoError(t, db.Create(&m).Error)
}

func identifierValues(m *entities.Manifestation) []string {
	var out []string
	for _, ident := range m.Identifiers {
		out = append(out, string(ident.Source)+":"+ident.Value)
	}
	return out
}

func TestRepository_RenameToNewID(t *testing.T) {
	repo, db := setupTestDB(t)
	seedManifestation(t, db, 10, entities.Identifier{Source: entities.SourceISBN, Value: "9780136091813"})

	renamed, err := repo.Rename(10, 20)
	require.NoError(t, err)
	assert.True(t, renamed)

	_, err = repo.Get(10)
	assert.ErrorIs(t, err, database.ErrNotFound)

	m, err := repo.Get(20)
	require.NoError(t, err)
	assert.Equal(t, []string{"isbn:9780136091813"}, identifierValues(m))
}

func TestRepository_RenameMergesIntoExisting(t *testing.T) {
	repo, db := setupTestDB(t)
	seedManifestation(t, db, 10, entities.Identifier{Source: entities.SourceISBN, Value: "9780136091813"})
	seedManifestation(t, db, 20, entities.Identifier{Source: entities.SourceOCLC, Value: "123"})

	_, err := repo.Rename(10, 20)
	require.NoError(t, err)

	m, err := repo.Get(20)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"isbn:9780136091813", "oclc:123"}, identifierValues(m))

	var idents int64
	require.NoError(t, db.Model(&entities.Identifier{}).Count(&idents).Error)
	assert.Equal(t, int64(2), idents, "identifiers are moved, never duplicated")
}

func TestRepository_RenameMissingSource(t *testing.T) {
	repo, _ := setupTestDB(t)

	renamed, err := repo.Rename(10, 20)
	require.NoError(t, err)
	assert.False(t, renamed)

	_, err = repo.Get(20)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestRepository_RenameChainThenPrune(t *testing.T) {
	repo, db := setupTestDB(t)
	seedManifestation(t, db, 1, entities.Identifier{Source: entities.SourceISBN, Value: "9780136091813"})
	seedManifestation(t, db, 2, entities.Identifier{Source: entities.SourceOCLC, Value: "42"})

	// 1 -> 2 -> 3 resolved to terminal ids
	for _, edge := range [][2]int{{2, 3}, {1, 3}} {
		_, err := repo.Rename(edge[0], edge[1])
		require.NoError(t, err)
	}
	dead, err := repo.Prune([]int{3})
	require.NoError(t, err)
	assert.Empty(t, dead)

	m, err := repo.Get(3)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"isbn:9780136091813", "oclc:42"}, identifierValues(m))
}

func TestRepository_Prune(t *testing.T) {
	repo, db := setupTestDB(t)
	shared := entities.Identifier{Source: entities.SourceISBN, Value: "9780136091813"}
	seedManifestation(t, db, 1, shared)
	seedManifestation(t, db, 2)
	seedManifestation(t, db, 3)

	dead, err := repo.Prune([]int{2, 99})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, dead)

	ids, err := repo.IDs()
	require.NoError(t, err)
	assert.Equal(t, []int{2}, ids)

	var links int64
	require.NoError(t, db.Table("manifestation_identifiers").Count(&links).Error)
	assert.Zero(t, links)

	var idents int64
	require.NoError(t, db.Model(&entities.Identifier{}).Count(&idents).Error)
	assert.Equal(t, int64(1), idents, "identifiers outlive their manifestations")
}

func TestRepository_Ensure(t *testing.T) {
	repo, _ := setupTestDB(t)

	m, err := repo.Ensure(5, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Precedence)
	assert.Nil(t, m.DateLastChecked)

	m, err = repo.Ensure(5, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, m.Precedence)

	stored, err := repo.Get(5)
	require.NoError(t, err)
	assert.Equal(t, 7, stored.Precedence)
}

func TestRepository_ReplaceIdentifiersKeepsStaff(t *testing.T) {
	repo, db := setupTestDB(t)
	seedManifestation(t, db, 1,
		entities.Identifier{Source: entities.SourceStaff, Value: "https://example.org/cover.jpg"},
		entities.Identifier{Source: entities.SourceOCLC, Value: "old"},
	)

	checked := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	err := repo.ReplaceIdentifiers(1, []entities.Identifier{
		{Source: entities.SourceISBN, Value: "9780136091813"},
		{Source: entities.SourceISBN, Value: "9780136091813"},
	}, checked)
	require.NoError(t, err)

	m, err := repo.Get(1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"staff:https://example.org/cover.jpg", "isbn:9780136091813"}, identifierValues(m))
	require.NotNil(t, m.DateLastChecked)
	assert.True(t, checked.Equal(*m.DateLastChecked))
}

func TestRepository_ReplaceIdentifiersReusesExisting(t *testing.T) {
	repo, db := setupTestDB(t)
	shared := entities.Identifier{Source: entities.SourceISBN, Value: "9780136091813"}
	require.NoError(t, db.Create(&shared).Error)
	seedManifestation(t, db, 1)
	seedManifestation(t, db, 2)

	now := time.Now()
	require.NoError(t, repo.ReplaceIdentifiers(1, []entities.Identifier{{Source: shared.Source, Value: shared.Value}}, now))
	require.NoError(t, repo.ReplaceIdentifiers(2, []entities.Identifier{{Source: shared.Source, Value: shared.Value}}, now))

	var idents int64
	require.NoError(t, db.Model(&entities.Identifier{}).Count(&idents).Error)
	assert.Equal(t, int64(1), idents)

	require.NoError(t, repo.ReplaceIdentifiers(2, nil, now))
	m, err := repo.Get(2)
	require.NoError(t, err)
	assert.Empty(t, m.Identifiers)
}

func TestRepository_AssignWorks(t *testing.T) {
	repo, db := setupTestDB(t)
	seedManifestation(t, db, 1)
	seedManifestation(t, db, 2)

	changed, err := repo.AssignWorks(map[int]int{1: 100, 2: 100, 3: 200})
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	var works []entities.Work
	require.NoError(t, db.Find(&works).Error)
	require.Len(t, works, 1)
	assert.Equal(t, 100, works[0].ID)

	changed, err = repo.AssignWorks(map[int]int{1: 100, 2: 101})
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	m, err := repo.Get(2)
	require.NoError(t, err)
	require.NotNil(t, m.WorkID)
	assert.Equal(t, 101, *m.WorkID)
}
