package errors

import (
	"errors"
	"fmt"
)

type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	UpstreamStatus int    `json:"upstream_status,omitempty"`
	UpstreamPath   string `json:"upstream_path,omitempty"`
}

// UpstreamError is implemented by errors that originate from a remote HTTP response.
type UpstreamError interface {
	error
	StatusCode() int
	Path() string
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
	}

	if te := As(err); te != nil {
		d.Code = te.Code()
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var upstream UpstreamError
	if errors.As(err, &upstream) {
		d.UpstreamStatus = upstream.StatusCode()
		d.UpstreamPath = upstream.Path()
	}

	return d
}
