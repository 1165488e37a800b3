package controllers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/angelmondragon/shopster-storefront/api/validators"
	"github.com/angelmondragon/shopster-storefront/api/views"
	"github.com/angelmondragon/shopster-storefront/internal/content"
	"github.com/angelmondragon/shopster-storefront/pkg/logger"
	"github.com/angelmondragon/shopster-storefront/pkg/pagination"
	"github.com/go-chi/chi/v5"
)

type blogData struct {
	Posts pagination.Page[content.PostSummary]
	Query content.Query
	Pager views.Pager
}

// BlogIndex lists posts, optionally narrowed by tag or search term.
func BlogIndex(svc ContentService, rdr *views.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		query := content.Query{
			Tag:    strings.TrimSpace(q.Get("tag")),
			Search: strings.TrimSpace(q.Get("search")),
		}
		page := validators.PageParam(r)
		posts := svc.Posts(r.Context(), page, query)

		keep := url.Values{}
		if query.Tag != "" {
			keep.Set("tag", query.Tag)
		}
		if query.Search != "" {
			keep.Set("search", query.Search)
		}

		meta := views.Meta{
			Title:       "Blog",
			Description: "News, guides and announcements.",
			Path:        "/blog",
			NoIndex:     query.Search != "",
		}
		if query.Tag != "" {
			meta.Title = "Blog: " + query.Tag
		}
		rdr.Render(w, r, http.StatusOK, "blog", newPage(w, r, meta, blogData{
			Posts: posts,
			Query: query,
			Pager: views.NewPager("/blog", keep, page, posts.NextPage),
		}))
	}
}

// BlogPost renders one post or the 404 page.
func BlogPost(svc ContentService, rdr *views.Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		post, err := svc.Post(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			renderError(rdr, logg, w, r, err)
			return
		}
		if post == nil {
			renderNotFound(rdr, w, r)
			return
		}
		meta := views.Meta{
			Title:       post.SEOTitle(),
			Description: post.SEODescription(""),
			Keywords:    post.MetaKeywords,
			Path:        "/blog/" + post.Slug,
			Image:       post.OGImage,
			Type:        "article",
		}
		rdr.Render(w, r, http.StatusOK, "post", newPage(w, r, meta, post))
	}
}
