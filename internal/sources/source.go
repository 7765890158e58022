// Package sources holds the image provider adapters. Each adapter turns an
// identifier into an image URL and decides whether a fetched response is a
// real cover. Adapters never return errors to their caller: anything that
// goes wrong means "no cover from this provider".
package sources

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/DarienLibrary/covercache-public/internal/entities"
)

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Source is an image provider.
type Source interface {
	Name() entities.SourceName
	// Applies reports whether the provider can look the identifier up.
	Applies(ident *entities.Identifier) bool
	// ImageURL derives the image location for an identifier. ok is false
	// when the provider does not apply to the identifier or the lookup failed.
	ImageURL(ctx context.Context, ident *entities.Identifier) (url string, ok bool)
	Validate(resp *Response) bool
	Filename(ident *entities.Identifier, now time.Time) string
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9-]+`)

// identifierFilename names a cover after the identifier it was fetched for.
func identifierFilename(ident *entities.Identifier, now time.Time) string {
	value := unsafeFilenameChars.ReplaceAllString(ident.Value, "_")
	return fmt.Sprintf("%s_%s_%d.jpg", ident.Source, value, now.Unix())
}

// sourceOnlyFilename leaves the value out, for URL valued identifiers.
func sourceOnlyFilename(ident *entities.Identifier, now time.Time) string {
	return fmt.Sprintf("%s_%d.jpg", ident.Source, now.Unix())
}

func statusOK(resp *Response) bool {
	return resp != nil && resp.StatusCode == http.StatusOK
}
