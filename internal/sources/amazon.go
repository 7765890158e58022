package sources

import (
	"context"
	"time"

	"github.com/DarienLibrary/covercache-public/internal/entities"
	"github.com/DarienLibrary/covercache-public/internal/isbn"
)

const defaultAmazonURL = "http://images.amazon.com/images/P/"

// Amazon serves covers by ISBN-10.
type Amazon struct {
	baseURL string
}

func NewAmazon(baseURL string) *Amazon {
	if baseURL == "" {
		baseURL = defaultAmazonURL
	}
	return &Amazon{baseURL: baseURL}
}

func (a *Amazon) Name() entities.SourceName { return entities.SourceAmazon }

func (a *Amazon) Applies(ident *entities.Identifier) bool { return ident.Source == entities.SourceISBN }

func (a *Amazon) ImageURL(_ context.Context, ident *entities.Identifier) (string, bool) {
	if !a.Applies(ident) {
		return "", false
	}
	isbn10, ok := isbn.To10(ident.Value)
	if !ok {
		return "", false
	}
	return a.baseURL + isbn10 + ".01.20TRZZZZ_.jpg", true
}

func (a *Amazon) Validate(resp *Response) bool { return statusOK(resp) }

func (a *Amazon) Filename(ident *entities.Identifier, now time.Time) string {
	return identifierFilename(ident, now)
}
