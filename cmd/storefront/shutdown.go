package main

import (
	"context"
	"io"

	"go.uber.org/multierr"
)

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// shutdown drains the server before closing the shared clients and reports every failure.
func shutdown(ctx context.Context, server shutdowner, closers ...io.Closer) error {
	err := server.Shutdown(ctx)
	for _, c := range closers {
		if c == nil {
			continue
		}
		err = multierr.Append(err, c.Close())
	}
	return err
}
