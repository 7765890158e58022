package sources

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/DarienLibrary/covercache-public/internal/entities"
)

const (
	defaultZolaImageURL          = "https://api.zo.la/v4/image/display"
	defaultZolaRecommendationURL = "https://api.zo.la/v4/recommendation/rec"
)

// Zola serves covers by ISBN and also recommends related titles.
type Zola struct {
	fetcher           *Fetcher
	imageURL          string
	recommendationURL string
	key               string
	secret            string
	placeholderHash   string
	now               func() time.Time
}

type ZolaOptions struct {
	ImageURL          string
	RecommendationURL string
	Key               string
	Secret            string
	PlaceholderHash   string
}

func NewZola(fetcher *Fetcher, opts ZolaOptions) *Zola {
	z := &Zola{
		fetcher:           fetcher,
		imageURL:          opts.ImageURL,
		recommendationURL: opts.RecommendationURL,
		key:               opts.Key,
		secret:            opts.Secret,
		placeholderHash:   opts.PlaceholderHash,
		now:               time.Now,
	}
	if z.imageURL == "" {
		z.imageURL = defaultZolaImageURL
	}
	if z.recommendationURL == "" {
		z.recommendationURL = defaultZolaRecommendationURL
	}
	return z
}

func (z *Zola) Name() entities.SourceName { return entities.SourceZola }

func (z *Zola) Applies(ident *entities.Identifier) bool { return ident.Source == entities.SourceISBN }

func (z *Zola) ImageURL(_ context.Context, ident *entities.Identifier) (string, bool) {
	if !z.Applies(ident) {
		return "", false
	}
	return z.imageURL + "?id=" + url.QueryEscape(ident.Value), true
}

func (z *Zola) Validate(resp *Response) bool {
	return notPlaceholder(resp, z.placeholderHash)
}

func (z *Zola) Filename(ident *entities.Identifier, now time.Time) string {
	return identifierFilename(ident, now)
}

// signature is md5(key + secret + unix timestamp) in hex.
func (z *Zola) signature() string {
	sum := md5.Sum([]byte(z.key + z.secret + strconv.FormatInt(z.now().Unix(), 10)))
	return hex.EncodeToString(sum[:])
}

type zolaRecommendations struct {
	Status string `json:"status"`
	Data   *struct {
		List []struct {
			VersionISBNs []string `json:"version_isbns"`
		} `json:"list"`
	} `json:"data"`
}

// Recommend returns the ISBNs of every edition of the titles Zola
// recommends for the given ISBN.
func (z *Zola) Recommend(ctx context.Context, isbn string, limit int) ([]string, error) {
	q := url.Values{}
	q.Set("action", "get")
	q.Set("isbn", isbn)
	q.Set("key", z.key)
	q.Set("signature", z.signature())
	q.Set("limit", strconv.Itoa(limit))

	resp, err := z.fetcher.Get(ctx, z.recommendationURL+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("zola recommendations: %w", err)
	}
	if !statusOK(resp) {
		return nil, fmt.Errorf("zola recommendations: status %d", resp.StatusCode)
	}

	var body zolaRecommendations
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("zola recommendations: decode: %w", err)
	}
	if body.Status != "success" || body.Data == nil {
		return nil, nil
	}
	var isbns []string
	for _, item := range body.Data.List {
		isbns = append(isbns, item.VersionISBNs...)
	}
	return isbns, nil
}
