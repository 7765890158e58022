package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/DarienLibrary/covercache-public/internal/config"
	"github.com/DarienLibrary/covercache-public/internal/entities"
)

// Overdrive looks the cover location up in the product metadata API. The
// API needs an OAuth client credentials token, which is cached and renewed
// by the token source.
type Overdrive struct {
	fetcher      *Fetcher
	client       *http.Client
	apiURL       string
	collectionID string
	enabled      bool
}

type overdriveMetadata struct {
	Images struct {
		Cover struct {
			Href string `json:"href"`
		} `json:"cover"`
	} `json:"images"`
}

func NewOverdrive(fetcher *Fetcher, cfg config.Overdrive) *Overdrive {
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	// the token source keeps this context for refreshes
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, fetcher.Client())

	return &Overdrive{
		fetcher:      fetcher,
		client:       &http.Client{Transport: &oauth2.Transport{Source: cc.TokenSource(tokenCtx), Base: fetcher.Client().Transport}, Timeout: fetcher.Client().Timeout},
		apiURL:       strings.TrimSuffix(cfg.APIURL, "/"),
		collectionID: cfg.CollectionID,
		enabled:      cfg.ClientID != "" && cfg.ClientSecret != "" && cfg.CollectionID != "",
	}
}

func (o *Overdrive) Name() entities.SourceName { return entities.SourceOverdrive }

func (o *Overdrive) Applies(ident *entities.Identifier) bool {
	return ident.Source == entities.SourceOverdrive && o.enabled
}

func (o *Overdrive) ImageURL(ctx context.Context, ident *entities.Identifier) (string, bool) {
	if !o.Applies(ident) {
		return "", false
	}
	endpoint := fmt.Sprintf("%s/v1/collections/%s/products/%s/metadata",
		o.apiURL, url.PathEscape(o.collectionID), url.PathEscape(ident.Value))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", false
	}

	resp, err := o.fetcher.Do(o.client, req)
	if err != nil {
		// token failures surface here too
		log.Warn().Err(err).Str("overdrive_id", ident.Value).Msg("overdrive metadata request failed")
		return "", false
	}
	if !statusOK(resp) {
		return "", false
	}

	var meta overdriveMetadata
	if err := json.Unmarshal(resp.Body, &meta); err != nil || meta.Images.Cover.Href == "" {
		return "", false
	}
	return meta.Images.Cover.Href, true
}

func (o *Overdrive) Validate(resp *Response) bool { return statusOK(resp) }

func (o *Overdrive) Filename(ident *entities.Identifier, now time.Time) string {
	return identifierFilename(ident, now)
}
