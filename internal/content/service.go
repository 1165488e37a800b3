package content

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/angelmondragon/shopster-storefront/pkg/backend"
	pkgerrors "github.com/angelmondragon/shopster-storefront/pkg/errors"
	"github.com/angelmondragon/shopster-storefront/pkg/logger"
	"github.com/angelmondragon/shopster-storefront/pkg/pagination"
)

const (
	// PostsPerPage is the blog listing page size.
	PostsPerPage = 10

	postsPath = "/api/content/posts/"
)

// Query narrows the blog listing.
type Query struct {
	Tag    string
	Search string
}

// Service reads blog content from the backend.
type Service struct {
	client *backend.Client
	logg   *logger.Logger
}

// NewService builds the content service.
func NewService(client *backend.Client, logg *logger.Logger) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("backend client required")
	}
	return &Service{client: client, logg: logg}, nil
}

// Posts returns one page of posts. Failures yield an empty page.
func (s *Service) Posts(ctx context.Context, page int, q Query) pagination.Page[PostSummary] {
	result, err := backend.FetchPage[PostSummary](ctx, s.client, "posts.list", postsPath, pagination.Params{
		Page:     page,
		PageSize: PostsPerPage,
		Query: map[string]string{
			"tag":    strings.TrimSpace(q.Tag),
			"search": strings.TrimSpace(q.Search),
		},
	}, "")
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "failed to fetch posts", err)
		}
		return pagination.Empty[PostSummary]()
	}
	return result
}

// Post loads one post by slug. A non-2xx response yields nil without error.
func (s *Service) Post(ctx context.Context, slug string) (*Post, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, nil
	}
	resp, err := s.client.Do(ctx, backend.Request{
		Path:      postsPath + url.PathEscape(slug) + "/",
		Operation: "posts.get",
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, nil
	}
	var post Post
	if err := json.Unmarshal(resp.Body, &post); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode post")
	}
	if post.Tags == nil {
		post.Tags = []string{}
	}
	return &post, nil
}
