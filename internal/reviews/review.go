package reviews

import (
	"github.com/angelmondragon/shopster-storefront/pkg/validation"
)

// Moderation states reported by the backend.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// User is the review author as exposed to other visitors. ID is nil for anonymous reviews.
type User struct {
	ID   *int64 `json:"id"`
	Name string `json:"name"`
}

// ProductInfo identifies the reviewed product.
type ProductInfo struct {
	ID   int64  `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Review is a product review as returned by the backend.
type Review struct {
	ID               int64        `json:"id"`
	Product          *ProductInfo `json:"product,omitempty"`
	ProductID        *int64       `json:"product_id,omitempty"`
	Rating           int          `json:"rating"`
	Title            string       `json:"title"`
	Body             string       `json:"body"`
	VerifiedPurchase bool         `json:"verified_purchase"`
	ModerationStatus string       `json:"moderation_status"`
	ModerationNote   string       `json:"moderation_note,omitempty"`
	CreatedAt        string       `json:"created_at"`
	UpdatedAt        string       `json:"updated_at"`
	User             User         `json:"user"`
	IsOwner          bool         `json:"is_owner"`
}

// ModerationLabel returns the display label for a moderation status.
func ModerationLabel(status string) string {
	switch status {
	case StatusApproved:
		return "Approved"
	case StatusPending:
		return "Pending moderation"
	case StatusRejected:
		return "Rejected"
	default:
		return status
	}
}

// Merge appends fetched reviews that are not already present, keeping the order of
// existing first.
func Merge(existing, fetched []Review) []Review {
	merged := make([]Review, 0, len(existing)+len(fetched))
	seen := make(map[int64]struct{}, len(existing)+len(fetched))
	for _, r := range existing {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		merged = append(merged, r)
	}
	for _, r := range fetched {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		seen[r.ID] = struct{}{}
		merged = append(merged, r)
	}
	return merged
}

// Prepend puts r first and drops any older copy of it.
func Prepend(existing []Review, r Review) []Review {
	out := make([]Review, 0, len(existing)+1)
	out = append(out, r)
	for _, item := range existing {
		if item.ID != r.ID {
			out = append(out, item)
		}
	}
	return out
}

// Payload is the body sent when creating a review.
type Payload struct {
	ProductID  int64  `json:"product_id" form:"product_id" validate:"required,gt=0"`
	Rating     int    `json:"rating" form:"rating" validate:"min=1,max=5"`
	Title      string `json:"title,omitempty" form:"title" validate:"max=200"`
	Body       string `json:"body" form:"body" validate:"required"`
	AuthorName string `json:"author_name,omitempty" form:"author_name" validate:"max=120"`
}

// Validate checks the payload before it is sent.
func (p Payload) Validate() error {
	return validation.Struct(p)
}

// UpdatePayload is the PATCH body for an existing review.
type UpdatePayload struct {
	Rating int    `json:"rating" form:"rating" validate:"min=1,max=5"`
	Title  string `json:"title" form:"title" validate:"max=200"`
	Body   string `json:"body" form:"body" validate:"required"`
}

// Validate checks the payload before it is sent.
func (p UpdatePayload) Validate() error {
	return validation.Struct(p)
}
