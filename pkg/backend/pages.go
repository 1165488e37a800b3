package backend

import (
	"context"
	"net/http"
	"net/url"

	pkgerrors "github.com/angelmondragon/shopster-storefront/pkg/errors"
	"github.com/angelmondragon/shopster-storefront/pkg/pagination"
)

// FetchPage GETs one page of a listing endpoint and normalizes it.
func FetchPage[T any](ctx context.Context, c *Client, op, path string, params pagination.Params, token string) (pagination.Page[T], error) {
	query := url.Values{}
	params.Apply(query)

	resp, err := c.Do(ctx, Request{
		Method:      http.MethodGet,
		Path:        path,
		Query:       query,
		AccessToken: token,
		Operation:   op,
	})
	if err != nil {
		return pagination.Empty[T](), err
	}
	if !resp.OK() {
		return pagination.Empty[T](), classify(newStatusError(http.MethodGet, path, resp.StatusCode, resp.Body))
	}
	page, err := pagination.Decode[T](resp.Body)
	if err != nil {
		return pagination.Empty[T](), pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode backend listing")
	}
	return page, nil
}

// FetchAll walks a listing by following its next links until none remain. Items
// collected before a failure are returned together with the error.
func FetchAll[T any](ctx context.Context, c *Client, op, path string, pageSize int, query map[string]string) ([]T, error) {
	var out []T
	page := 1
	for {
		result, err := FetchPage[T](ctx, c, op, path, pagination.Params{
			Page:     page,
			PageSize: pageSize,
			Query:    query,
		}, "")
		if err != nil {
			return out, err
		}
		out = append(out, result.Items...)
		if !result.HasMore() || *result.NextPage <= page {
			return out, nil
		}
		page = *result.NextPage
	}
}
