package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/shopster-storefront/internal/auth"
	"github.com/angelmondragon/shopster-storefront/internal/reviews"
	"github.com/angelmondragon/shopster-storefront/pkg/config"
	"github.com/angelmondragon/shopster-storefront/pkg/logger"
	"github.com/angelmondragon/shopster-storefront/pkg/types"
)

//go:embed templates
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const (
	layoutFile   = "templates/layout.html"
	partialsGlob = "templates/partials/*.html"
	pagesDir     = "templates/pages"
)

// Meta is the per-page SEO metadata.
type Meta struct {
	Title       string
	Description string
	Keywords    string
	// Path is the canonical site-relative path.
	Path    string
	Image   string
	Type    string
	NoIndex bool
}

// Flash is a one-shot notice carried across a redirect.
type Flash struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Page is what every template receives.
type Page struct {
	Meta    Meta
	Site    config.SiteConfig
	Session *auth.Session
	Flash   *Flash
	// Search toggles the header search box.
	Search bool
	// CartCount feeds the header cart badge.
	CartCount int
	Data      any
}

// SignedIn reports whether the page has a usable session.
func (p Page) SignedIn() bool {
	return p.Session != nil && p.Session.AccessToken != "" && !p.Session.NeedsSignIn()
}

// IsStaff reports whether the signed-in user may see the admin links.
func (p Page) IsStaff() bool {
	return p.SignedIn() && p.Session.User.IsStaff
}

// FullTitle joins the page title and the site name.
func (p Page) FullTitle() string {
	title := strings.TrimSpace(p.Meta.Title)
	if title == "" || title == p.Site.Name {
		return p.Site.Name
	}
	return title + " | " + p.Site.Name
}

// Description falls back to the site description.
func (p Page) Description() string {
	if d := strings.TrimSpace(p.Meta.Description); d != "" {
		return d
	}
	return p.Site.Description
}

// Canonical returns the absolute canonical URL.
func (p Page) Canonical() string {
	return p.Site.AbsoluteURL(p.Meta.Path)
}

// OGImage returns the absolute share image.
func (p Page) OGImage() string {
	if img := strings.TrimSpace(p.Meta.Image); img != "" {
		return p.Site.AbsoluteURL(img)
	}
	return p.Site.OGImage
}

// OGType defaults to website.
func (p Page) OGType() string {
	if p.Meta.Type != "" {
		return p.Meta.Type
	}
	return "website"
}

// Pager links a listing to its neighbouring pages. Zero means no such page.
type Pager struct {
	Base  string
	Query url.Values
	Prev  int
	Next  int
}

// NewPager builds the pager for page current of a listing served at base. The previous
// page is derived from current since listings omit the page number on the first link.
func NewPager(base string, query url.Values, current int, next *int) Pager {
	p := Pager{Base: base, Query: query}
	if current > 1 {
		p.Prev = current - 1
	}
	if next != nil && *next > current {
		p.Next = *next
	}
	return p
}

// Static serves the embedded browser scripts mounted at /static/.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("static assets: %v", err))
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// Renderer holds one parsed template set per page.
type Renderer struct {
	templates map[string]*template.Template
	site      config.SiteConfig
	search    bool
	badge     func(*http.Request) int
	logg      *logger.Logger
}

// New parses the embedded templates. Every page is parsed together with the layout and
// the shared partials.
func New(site config.SiteConfig, searchEnabled bool, logg *logger.Logger) (*Renderer, error) {
	pages, err := fs.Glob(templateFS, pagesDir+"/*.html")
	if err != nil {
		return nil, fmt.Errorf("list page templates: %w", err)
	}
	partials, err := fs.Glob(templateFS, partialsGlob)
	if err != nil {
		return nil, fmt.Errorf("list partial templates: %w", err)
	}

	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		name := strings.TrimSuffix(path.Base(page), ".html")
		files := append([]string{layoutFile}, partials...)
		files = append(files, page)
		tmpl, err := template.New(path.Base(layoutFile)).Funcs(funcs(site)).ParseFS(templateFS, files...)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		templates[name] = tmpl
	}
	return &Renderer{templates: templates, site: site, search: searchEnabled, logg: logg}, nil
}

// SetCartBadge installs the lookup that fills Page.CartCount when a handler left it zero.
func (r *Renderer) SetCartBadge(fn func(*http.Request) int) {
	r.badge = fn
}

// Has reports whether a page template exists.
func (r *Renderer) Has(name string) bool {
	_, ok := r.templates[name]
	return ok
}

// Render executes the named page into a buffer and writes it with status. Template
// failures never leave a half-written page.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, status int, name string, page Page) {
	tmpl, ok := r.templates[name]
	if !ok {
		r.fail(w, req, fmt.Errorf("unknown template %q", name))
		return
	}
	page.Site = r.site
	page.Search = r.search
	if page.CartCount == 0 && r.badge != nil {
		page.CartCount = r.badge(req)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", page); err != nil {
		r.fail(w, req, fmt.Errorf("render %s: %w", name, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (r *Renderer) fail(w http.ResponseWriter, req *http.Request, err error) {
	if r.logg != nil {
		r.logg.Error(req.Context(), "view.render_failed", err)
	}
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func funcs(site config.SiteConfig) template.FuncMap {
	return template.FuncMap{
		"money": func(m types.Money, currency string) string {
			return m.Format(currency)
		},
		"absURL":          site.AbsoluteURL,
		"moderationLabel": reviews.ModerationLabel,
		"date":            formatDate,
		"stars":           stars,
		"add":             func(a, b int) int { return a + b },
		"pageURL":         pageURL,
		"rating": func(v *float64) string {
			if v == nil {
				return ""
			}
			return strconv.FormatFloat(*v, 'f', 1, 64)
		},
		"safeHTML": func(s string) template.HTML {
			// Post bodies are trusted backend HTML.
			return template.HTML(s)
		},
	}
}

// formatDate renders RFC3339 timestamps as dd.mm.yyyy and leaves anything else as is.
func formatDate(raw any) string {
	switch v := raw.(type) {
	case time.Time:
		return v.Format("02.01.2006")
	case *time.Time:
		if v == nil {
			return ""
		}
		return v.Format("02.01.2006")
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t.Format("02.01.2006")
		}
		return v
	default:
		return ""
	}
}

// stars renders a 1..5 rating as filled and empty stars.
func stars(rating int) string {
	if rating < 0 {
		rating = 0
	}
	if rating > 5 {
		rating = 5
	}
	return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
}

// pageURL rewrites the page parameter of base while keeping the other filters.
func pageURL(base string, values url.Values, page int) string {
	q := url.Values{}
	for k, v := range values {
		if k == "page" {
			continue
		}
		q[k] = v
	}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	if encoded := q.Encode(); encoded != "" {
		return base + "?" + encoded
	}
	return base
}
