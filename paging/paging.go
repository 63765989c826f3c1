// Package paging drains offset-paginated sources whose backend caps the page size.
package paging

import (
	"context"
	"errors"
)

const (
	DefaultPageSize = 1000
	DefaultMaxPages = 1000
)

// ErrPageLimit is returned when MaxPages full pages were read without
// reaching the end of the data.
var ErrPageLimit = errors.New("paging: page limit reached before end of data")

type Options struct {
	PageSize int `yaml:"page_size"`
	MaxPages int `yaml:"max_pages"`
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.MaxPages <= 0 {
		o.MaxPages = DefaultMaxPages
	}
	return o
}

// FetchFunc reads one window of at most limit items starting at offset.
type FetchFunc[T any] func(ctx context.Context, offset, limit int) ([]T, error)

// FetchAll reads consecutive pages until one comes back shorter than the
// page size.
func FetchAll[T any](ctx context.Context, opts Options, fetch FetchFunc[T]) ([]T, error) {
	opts = opts.withDefaults()
	var all []T
	for page := 0; page < opts.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		items, err := fetch(ctx, page*opts.PageSize, opts.PageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if len(items) < opts.PageSize {
			return all, nil
		}
	}
	return nil, ErrPageLimit
}
