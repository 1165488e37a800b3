package reviews

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/angelmondragon/shopster-storefront/pkg/backend"
	pkgerrors "github.com/angelmondragon/shopster-storefront/pkg/errors"
	"github.com/angelmondragon/shopster-storefront/pkg/pagination"
)

const (
	reviewsPath    = "/api/reviews/"
	reviewPageSize = 10
)

// Service talks to the backend review endpoints.
type Service struct {
	client *backend.Client
}

// NewService builds the review service.
func NewService(client *backend.Client) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("backend client required")
	}
	return &Service{client: client}, nil
}

// List fetches one page of reviews for a product.
func (s *Service) List(ctx context.Context, productSlug string, page int, accessToken string) (pagination.Page[Review], error) {
	slug := strings.TrimSpace(productSlug)
	if slug == "" {
		return pagination.Empty[Review](), pkgerrors.New(pkgerrors.CodeValidation, "product slug is required")
	}
	result, err := backend.FetchPage[Review](ctx, s.client, "reviews.list", reviewsPath, pagination.Params{
		Page:     page,
		PageSize: reviewPageSize,
		Query:    map[string]string{"product_slug": slug},
	}, accessToken)
	if err != nil {
		return pagination.Empty[Review](), surface(err, "Failed to load reviews.")
	}
	return result, nil
}

// Create submits a new review.
func (s *Service) Create(ctx context.Context, payload Payload, accessToken string) (*Review, error) {
	payload.Title = strings.TrimSpace(payload.Title)
	payload.Body = strings.TrimSpace(payload.Body)
	payload.AuthorName = strings.TrimSpace(payload.AuthorName)
	if strings.TrimSpace(accessToken) != "" {
		payload.AuthorName = ""
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	var out Review
	if err := s.client.SendJSON(ctx, "reviews.create", http.MethodPost, reviewsPath, payload, accessToken, &out); err != nil {
		return nil, surface(err, "Failed to save review.")
	}
	return &out, nil
}

// Update edits an existing review owned by the caller.
func (s *Service) Update(ctx context.Context, id int64, payload UpdatePayload, accessToken string) (*Review, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "review id is required")
	}
	payload.Title = strings.TrimSpace(payload.Title)
	payload.Body = strings.TrimSpace(payload.Body)
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	var out Review
	if err := s.client.SendJSON(ctx, "reviews.update", http.MethodPatch, reviewPath(id), payload, accessToken, &out); err != nil {
		return nil, surface(err, "Failed to save review.")
	}
	return &out, nil
}

// Delete removes a review owned by the caller.
func (s *Service) Delete(ctx context.Context, id int64, accessToken string) error {
	if id <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "review id is required")
	}
	if err := s.client.SendJSON(ctx, "reviews.delete", http.MethodDelete, reviewPath(id), nil, accessToken, nil); err != nil {
		return surface(err, "Failed to delete review.")
	}
	return nil
}

func reviewPath(id int64) string {
	return fmt.Sprintf("%s%d/", reviewsPath, id)
}

// surface replaces the error message with the joined backend field messages, the
// detail, the status text or fallback, in that order.
func surface(err error, fallback string) error {
	se := backend.AsStatusError(err)
	if se == nil {
		return err
	}
	msg := backend.Message(err, "")
	if msg == "" {
		msg = backend.DetailOr(err, http.StatusText(se.Status))
	}
	if msg == "" {
		msg = fallback
	}
	code := pkgerrors.CodeDependency
	if typed := pkgerrors.As(err); typed != nil {
		code = typed.Code()
	}
	return pkgerrors.Wrap(code, err, msg)
}
