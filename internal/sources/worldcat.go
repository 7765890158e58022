package sources

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/DarienLibrary/covercache-public/internal/entities"
)

const (
	defaultWorldcatPageURL  = "http://www.worldcat.org/oclc/"
	defaultWorldcatImageURL = "http://coverart.oclc.org/ImageWebSvc/oclc/+-+%s_400.jpg"
)

var worldcatCoverArt = regexp.MustCompile(`coverart\.oclc\.org/ImageWebSvc/oclc/\+-\+(\d+)_140\.jpg`)

// Worldcat finds the cover art id embedded in a record page and requests
// the large rendition of it.
type Worldcat struct {
	fetcher         *Fetcher
	pageURL         string
	imageURL        string
	placeholderHash string
}

func NewWorldcat(fetcher *Fetcher, pageURL, imageURL, placeholderHash string) *Worldcat {
	if pageURL == "" {
		pageURL = defaultWorldcatPageURL
	}
	if imageURL == "" {
		imageURL = defaultWorldcatImageURL
	}
	return &Worldcat{fetcher: fetcher, pageURL: pageURL, imageURL: imageURL, placeholderHash: placeholderHash}
}

func (w *Worldcat) Name() entities.SourceName { return entities.SourceWorldcat }

func (w *Worldcat) Applies(ident *entities.Identifier) bool { return ident.Source == entities.SourceOCLC }

func (w *Worldcat) ImageURL(ctx context.Context, ident *entities.Identifier) (string, bool) {
	if !w.Applies(ident) {
		return "", false
	}
	resp, err := w.fetcher.Get(ctx, w.pageURL+url.PathEscape(ident.Value))
	if err != nil {
		log.Debug().Err(err).Str("oclc", ident.Value).Msg("worldcat page fetch failed")
		return "", false
	}
	if !statusOK(resp) {
		return "", false
	}
	m := worldcatCoverArt.FindSubmatch(resp.Body)
	if m == nil {
		return "", false
	}
	return fmt.Sprintf(w.imageURL, m[1]), true
}

func (w *Worldcat) Validate(resp *Response) bool {
	return notPlaceholder(resp, w.placeholderHash)
}

func (w *Worldcat) Filename(ident *entities.Identifier, now time.Time) string {
	return identifierFilename(ident, now)
}
