// Package images looks up pictures for lesson content and inlines them as data URLs,
// so browsers never hotlink third-party hosts.
package images

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/proxy"
)

// MaxImageSize caps the bytes read from an image host.
const MaxImageSize = 8 << 20

var ErrNoResults = errors.New("no image found")

type (
	SearchRequest struct {
		Query string `json:"query" validate:"required,notblank"`
	}

	Image struct {
		DataURL   string `json:"data_url"`
		SourceURL string `json:"source_url"`
		MimeType  string `json:"mime_type"`
	}

	searchResponse struct {
		Items []struct {
			Link  string `json:"link"`
			Mime  string `json:"mime"`
			Title string `json:"title"`
		} `json:"items"`
	}
)

func (sr *SearchRequest) Validate(validate *validator.Validate) error {
	sr.Query = core.CleanString(sr.Query)
	return validate.Struct(sr)
}

type (
	Searcher interface {
		Search(ctx context.Context, query string) (Image, error)
	}

	// Client searches with the Google Custom Search JSON API.
	Client struct {
		conf   core.ImagesConfig
		client proxy.Doer
	}
)

var _ Searcher = (*Client)(nil)

// NewClient returns an image search Client. A nil client means http.DefaultClient.
func NewClient(conf core.ImagesConfig, client proxy.Doer) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	if conf.Endpoint == "" {
		conf.Endpoint = core.DefaultImagesEndpoint
	}
	return &Client{conf: conf, client: client}
}

func (c *Client) checkConfig() error {
	var missing []string
	if c.conf.APIKey == "" {
		missing = append(missing, "GOOGLE_CSE_API_KEY")
	}
	if c.conf.EngineID == "" {
		missing = append(missing, "GOOGLE_CSE_CX")
	}
	if len(missing) > 0 {
		return core.NewConfigError(missing...)
	}
	return nil
}

// Search finds the first image for query and returns its bytes as a data URL.
func (c *Client) Search(ctx context.Context, query string) (Image, error) {
	if err := c.checkConfig(); err != nil {
		return Image{}, err
	}

	link, err := c.firstLink(ctx, query)
	if err != nil {
		return Image{}, err
	}
	return c.fetch(ctx, link)
}

func (c *Client) firstLink(ctx context.Context, query string) (string, error) {
	q := make(url.Values)
	q.Set("key", c.conf.APIKey)
	q.Set("cx", c.conf.EngineID)
	q.Set("q", query)
	q.Set("searchType", "image")
	q.Set("num", "1")
	q.Set("safe", "active")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.conf.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", errors.Wrap(err, "building search request")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", core.NewUpstreamError("image search", 0, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", core.NewUpstreamError("image search", resp.StatusCode, nil)
	}

	var result searchResponse
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", core.NewUpstreamError("image search", 0, errors.Wrap(err, "decoding search results"))
	}
	for _, item := range result.Items {
		if item.Link != "" {
			return item.Link, nil
		}
	}
	return "", ErrNoResults
}

func (c *Client) fetch(ctx context.Context, link string) (Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return Image{}, core.NewUpstreamError("image host", 0, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return Image{}, core.NewUpstreamError("image host", 0, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return Image{}, core.NewUpstreamError("image host", resp.StatusCode, nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageSize+1))
	if err != nil {
		return Image{}, core.NewUpstreamError("image host", 0, err)
	}
	if len(data) > MaxImageSize {
		return Image{}, core.NewUpstreamError("image host", 0, errors.New("image too large"))
	}

	mimeType := mediaType(resp.Header.Get("Content-Type"))
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	return Image{
		DataURL:   "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
		SourceURL: link,
		MimeType:  mimeType,
	}, nil
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return mt
}
