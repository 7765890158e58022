package works

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/DarienLibrary/covercache-public/internal/acquisition"
	"github.com/DarienLibrary/covercache-public/internal/config"
	"github.com/DarienLibrary/covercache-public/internal/covers"
	"github.com/DarienLibrary/covercache-public/internal/database"
	"github.com/DarienLibrary/covercache-public/internal/database/identifiers"
	workstore "github.com/DarienLibrary/covercache-public/internal/database/works"
	"github.com/DarienLibrary/covercache-public/internal/entities"
	"github.com/DarienLibrary/covercache-public/internal/sources"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, width, height))))
	return buf.Bytes()
}

type staticRecommender map[int][]int

func (r staticRecommender) ForWork(_ context.Context, workID int) ([]int, error) {
	return r[workID], nil
}

type fixture struct {
	db      *gorm.DB
	idents  *identifiers.Repository
	server  *httptest.Server
	service *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "covercache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	files, err := covers.NewStore(filepath.Join(t.TempDir(), "covers"), "/media/covers/")
	require.NoError(t, err)

	wide, amazon := pngBytes(t, 400, 600), pngBytes(t, 300, 450)
	mux := http.NewServeMux()
	mux.HandleFunc("/wide.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(wide)
	})
	mux.HandleFunc("/amazon/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(amazon)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	precedence := []entities.SourceName{entities.SourceStaff, entities.SourceAmazon}
	staff := sources.NewStaff()
	registry := sources.NewRegistry(precedence, staff, sources.NewAmazon(server.URL+"/amazon/"))
	fetcher := sources.NewFetcher(config.Acquisition{RequestTimeout: 5 * time.Second})

	worksRepo := workstore.NewRepository(db.DB)
	idents := identifiers.NewRepository(db.DB)
	engine := acquisition.NewEngine(worksRepo, idents, registry, fetcher,
		covers.NewProcessor(200, 0, 90), files, 24*time.Hour)

	service := NewService(Dependencies{
		Works:       worksRepo,
		Identifiers: idents,
		Acquirer:    engine,
		Staff:       staff,
		Recommender: staticRecommender{1: {2}},
		URLs:        files,
		Precedence:  precedence,
	})
	return &fixture{db: db.DB, idents: idents, server: server, service: service}
}

func (f *fixture) seedWork(t *testing.T, workID int, manifestations ...entities.Manifestation) {
	t.Helper()
	require.NoError(t, f.db.Create(&entities.Work{ID: workID}).Error)
	for i := range manifestations {
		manifestations[i].WorkID = &workID
		require.NoError(t, f.db.Create(&manifestations[i]).Error)
	}
}

func (f *fixture) countIdentifiers(t *testing.T, source entities.SourceName) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&entities.Identifier{}).Where("source = ?", source).Count(&n).Error)
	return n
}

func TestService_GetCoversUnknownWork(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.GetCovers(42)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, IsNotFound(err))
}

func TestService_GetCoversWithoutCovers(t *testing.T) {
	f := newFixture(t)
	f.seedWork(t, 1, entities.Manifestation{ID: 10})

	got, err := f.service.GetCovers(1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestService_PollSourcesStoresCover(t *testing.T) {
	f := newFixture(t)
	f.seedWork(t, 1, entities.Manifestation{ID: 100, Identifiers: []entities.Identifier{
		{Source: entities.SourceISBN, Value: "9780136091813"},
	}})

	require.NoError(t, f.service.PollSources(context.Background(), 1))

	got, err := f.service.GetCovers(1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, entities.SourceAmazon, got[0].Source)
	assert.Equal(t, 200, got[0].Width)
	assert.Contains(t, got[0].URL, "/media/covers/isbn_9780136091813_")
}

func TestService_PollSourcesUnknownWork(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.service.PollSources(context.Background(), 7), ErrNotFound)
}

func TestService_OverrideAttachesToFirstManifestation(t *testing.T) {
	f := newFixture(t)
	f.seedWork(t, 1,
		entities.Manifestation{ID: 10, Precedence: 1},
		entities.Manifestation{ID: 11, Precedence: 5},
	)
	url := f.server.URL + "/wide.png"

	got, err := f.service.Override(context.Background(), 1, url)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, entities.SourceStaff, got[0].Source)
	assert.Equal(t, 200, got[0].Width)

	var linked []int
	require.NoError(t, f.db.Raw(
		"SELECT manifestation_id FROM manifestation_identifiers mi JOIN identifiers i ON i.id = mi.identifier_id WHERE i.source = ?",
		entities.SourceStaff).Scan(&linked).Error)
	assert.Equal(t, []int{11}, linked)

	covers, err := f.service.GetCovers(1)
	require.NoError(t, err)
	require.Len(t, covers, 1)
	assert.Equal(t, entities.SourceStaff, covers[0].Source)
}

func TestService_OverrideExistingCoverIsRejected(t *testing.T) {
	f := newFixture(t)
	f.seedWork(t, 1, entities.Manifestation{ID: 10})
	url := f.server.URL + "/wide.png"

	_, err := f.service.Override(context.Background(), 1, url)
	require.NoError(t, err)

	_, err = f.service.Override(context.Background(), 1, url)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, int64(1), f.countIdentifiers(t, entities.SourceStaff))

	var covers int64
	require.NoError(t, f.db.Model(&entities.Cover{}).Count(&covers).Error)
	assert.Equal(t, int64(1), covers)
}

func TestService_OverrideFailureRollsBackIdentifier(t *testing.T) {
	f := newFixture(t)
	f.seedWork(t, 1, entities.Manifestation{ID: 10})

	_, err := f.service.Override(context.Background(), 1, f.server.URL+"/missing.png")
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.Zero(t, f.countIdentifiers(t, entities.SourceStaff))
}

func TestService_OverrideRejections(t *testing.T) {
	f := newFixture(t)
	f.seedWork(t, 1, entities.Manifestation{ID: 10})
	f.seedWork(t, 2)

	tests := []struct {
		name   string
		workID int
		url    string
		want   error
	}{
		{"unknown work", 99, "http://example.com/a.jpg", ErrNotFound},
		{"no manifestations", 2, "http://example.com/a.jpg", ErrNoManifestations},
		{"not a url", 1, "not a url", ErrInvalidURL},
		{"unsupported scheme", 1, "ftp://example.com/a.jpg", ErrInvalidURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Override(context.Background(), tt.workID, tt.url)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Zero(t, f.countIdentifiers(t, entities.SourceStaff))
}

func TestService_Recommendations(t *testing.T) {
	f := newFixture(t)
	f.seedWork(t, 1, entities.Manifestation{ID: 10})
	f.seedWork(t, 2, entities.Manifestation{ID: 20})
	_, err := f.service.Override(context.Background(), 2, f.server.URL+"/wide.png")
	require.NoError(t, err)

	got, err := f.service.Recommendations(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].ID)
	require.Len(t, got[0].Covers, 1)
	assert.Equal(t, entities.SourceStaff, got[0].Covers[0].Source)

	_, err = f.service.Recommendations(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Stats(t *testing.T) {
	f := newFixture(t)
	f.seedWork(t, 1, entities.Manifestation{ID: 10})
	_, err := f.service.Override(context.Background(), 1, f.server.URL+"/wide.png")
	require.NoError(t, err)

	stats, err := f.service.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Works)
	assert.Equal(t, int64(1), stats.WorksWithCovers)
	assert.Equal(t, int64(1), stats.IdentifiersBySource[entities.SourceStaff])
}
