package sitemap

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/shopster-storefront/pkg/backend"
	"github.com/angelmondragon/shopster-storefront/pkg/config"
	"github.com/angelmondragon/shopster-storefront/pkg/logger"
)

const (
	// CacheControl is sent with the rendered sitemap.
	CacheControl = "public, s-maxage=3600, stale-while-revalidate=86400"

	crawlPageSize = 100
	xmlns         = "http://www.sitemaps.org/schemas/sitemap/0.9"
)

var staticPages = []string{"/", "/products", "/blog", "/signin", "/signup", "/forgot-password"}

type productRef struct {
	Slug      string `json:"slug"`
	UpdatedAt string `json:"updated_at"`
	Modified  string `json:"modified"`
}

// Entry is one <url> element.
type Entry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr"`
	URLs    []Entry  `xml:"url"`
}

// Builder renders the sitemap from static pages and the product catalog.
type Builder struct {
	client *backend.Client
	site   config.SiteConfig
	logg   *logger.Logger
	now    func() time.Time
}

// NewBuilder constructs a sitemap builder.
func NewBuilder(client *backend.Client, site config.SiteConfig, logg *logger.Logger) (*Builder, error) {
	if client == nil {
		return nil, fmt.Errorf("backend client required")
	}
	return &Builder{client: client, site: site, logg: logg, now: time.Now}, nil
}

// Entries lists every sitemap URL. A failed crawl keeps the products gathered so far.
func (b *Builder) Entries(ctx context.Context) []Entry {
	entries := make([]Entry, 0, len(staticPages))
	for _, path := range staticPages {
		entries = append(entries, Entry{Loc: b.site.AbsoluteURL(path)})
	}

	products, err := backend.FetchAll[productRef](ctx, b.client, "sitemap.products", "/api/products/", crawlPageSize, nil)
	if err != nil && b.logg != nil {
		b.logg.Warn(b.logg.WithField(ctx, "collected", len(products)), "sitemap product crawl stopped early")
	}

	now := b.now().UTC().Format(time.RFC3339)
	for _, p := range products {
		slug := strings.TrimSpace(p.Slug)
		if slug == "" {
			continue
		}
		entries = append(entries, Entry{
			Loc:     b.site.AbsoluteURL("/products/" + slug),
			LastMod: firstNonEmpty(p.UpdatedAt, p.Modified, now),
		})
	}
	return entries
}

// Render returns the sitemap XML document.
func (b *Builder) Render(ctx context.Context) ([]byte, error) {
	doc := urlSet{Xmlns: xmlns, URLs: b.Entries(ctx)}
	body, err := xml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode sitemap: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
