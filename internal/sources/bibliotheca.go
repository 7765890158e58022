package sources

import (
	"context"
	"net/url"
	"time"

	"github.com/DarienLibrary/covercache-public/internal/entities"
)

const defaultBibliothecaURL = "http://ebook.3m.com/delivery/img"

// Bibliotheca serves covers for its e-book document ids.
type Bibliotheca struct {
	baseURL string
}

func NewBibliotheca(baseURL string) *Bibliotheca {
	if baseURL == "" {
		baseURL = defaultBibliothecaURL
	}
	return &Bibliotheca{baseURL: baseURL}
}

func (b *Bibliotheca) Name() entities.SourceName { return entities.SourceBibliotheca }

func (b *Bibliotheca) Applies(ident *entities.Identifier) bool { return ident.Source == entities.SourceBibliotheca }

func (b *Bibliotheca) ImageURL(_ context.Context, ident *entities.Identifier) (string, bool) {
	if !b.Applies(ident) {
		return "", false
	}
	q := url.Values{}
	q.Set("type", "DOCUMENTIMAGE")
	q.Set("documentID", ident.Value)
	q.Set("size", "LARGE")
	return b.baseURL + "?" + q.Encode(), true
}

func (b *Bibliotheca) Validate(resp *Response) bool { return statusOK(resp) }

func (b *Bibliotheca) Filename(ident *entities.Identifier, now time.Time) string {
	return identifierFilename(ident, now)
}
