package content

import (
	"strings"
	"time"
)

// PostSummary is a blog listing entry.
type PostSummary struct {
	ID              int64      `json:"id"`
	Slug            string     `json:"slug"`
	Title           string     `json:"title"`
	Summary         string     `json:"summary"`
	PublishedAt     *time.Time `json:"published_at"`
	MetaTitle       string     `json:"meta_title"`
	MetaDescription string     `json:"meta_description"`
	MetaKeywords    string     `json:"meta_keywords"`
	OGImage         string     `json:"og_image"`
	Tags            []string   `json:"tags"`
}

// Post is a full blog post. Body is backend-authored HTML.
type Post struct {
	PostSummary
	Body string `json:"body"`
}

// Teaser returns the summary, falling back to the meta description.
func (p PostSummary) Teaser() string {
	if s := strings.TrimSpace(p.Summary); s != "" {
		return s
	}
	return p.MetaDescription
}

// SEOTitle returns the meta title or the post title.
func (p PostSummary) SEOTitle() string {
	if s := strings.TrimSpace(p.MetaTitle); s != "" {
		return s
	}
	return p.Title
}

// SEODescription returns the meta description, the summary or fallback.
func (p PostSummary) SEODescription(fallback string) string {
	for _, s := range []string{p.MetaDescription, p.Summary} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return fallback
}

// PublishedLabel formats the publish date, or "Draft" when unpublished.
func (p PostSummary) PublishedLabel() string {
	if p.PublishedAt == nil || p.PublishedAt.IsZero() {
		return "Draft"
	}
	return p.PublishedAt.Format("02.01.2006")
}
