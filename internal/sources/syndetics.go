package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/DarienLibrary/covercache-public/internal/entities"
)

const defaultSyndeticsURL = "http://syndetics.com/index.aspx"

// Syndetics serves covers by ISBN for subscribing libraries. It answers
// with a non-image body when it has nothing.
type Syndetics struct {
	baseURL  string
	clientID string
}

func NewSyndetics(baseURL, clientID string) *Syndetics {
	if baseURL == "" {
		baseURL = defaultSyndeticsURL
	}
	return &Syndetics{baseURL: baseURL, clientID: clientID}
}

func (s *Syndetics) Name() entities.SourceName { return entities.SourceSyndetics }

func (s *Syndetics) Applies(ident *entities.Identifier) bool {
	return ident.Source == entities.SourceISBN && s.clientID != ""
}

func (s *Syndetics) ImageURL(_ context.Context, ident *entities.Identifier) (string, bool) {
	if !s.Applies(ident) {
		return "", false
	}
	return fmt.Sprintf("%s?isbn=%s/lc.jpg&client=%s", s.baseURL, url.QueryEscape(ident.Value), url.QueryEscape(s.clientID)), true
}

func (s *Syndetics) Validate(resp *Response) bool {
	return resp != nil && strings.HasPrefix(resp.Header.Get("Content-Type"), "image")
}

func (s *Syndetics) Filename(ident *entities.Identifier, now time.Time) string {
	return identifierFilename(ident, now)
}
