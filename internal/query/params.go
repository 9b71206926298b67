package query

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/devmsrajput/yt-backend/internal/models"
)

const (
	// DefaultPageSize is used when a request omits the limit parameter.
	DefaultPageSize = 10
	// MaxPageSize bounds how many rows a single page may carry.
	MaxPageSize = 20
)

var (
	// ErrInvalidPage indicates a page number that is not a positive integer.
	ErrInvalidPage = errors.New("page must be a positive integer")
	// ErrInvalidLimit indicates a page size outside 1..MaxPageSize.
	ErrInvalidLimit = fmt.Errorf("limit must be between 1 and %d", MaxPageSize)
	// ErrInvalidSort indicates a sort field or direction outside the allow-list.
	ErrInvalidSort = errors.New("unsupported sort")
)

// IsInvalidParams reports whether err was caused by malformed list parameters.
func IsInvalidParams(err error) bool {
	return errors.Is(err, ErrInvalidPage) || errors.Is(err, ErrInvalidLimit) || errors.Is(err, ErrInvalidSort)
}

// Page selects a 1-based window of Size rows.
type Page struct {
	Number int
	Size   int
}

// Validate checks the page bounds.
func (p Page) Validate() error {
	if p.Number < 1 {
		return ErrInvalidPage
	}
	if p.Size < 1 || p.Size > MaxPageSize {
		return ErrInvalidLimit
	}
	return nil
}

// Offset is the number of rows preceding the page.
func (p Page) Offset() int64 {
	return int64(p.Number-1) * int64(p.Size)
}

// Meta computes pagination metadata for total matching rows.
func Meta(total int64, p Page) models.PageMeta {
	meta := models.PageMeta{TotalCount: total, PageNumber: p.Number, PageSize: p.Size}
	if total > 0 && p.Size > 0 {
		meta.TotalPages = (total + int64(p.Size) - 1) / int64(p.Size)
	}
	return meta
}

// Sort orders a plan by a single column with the primary key as tiebreaker.
type Sort struct {
	Column string
	Desc   bool
}

// SortFields maps public sort names to qualified columns.
type SortFields map[string]string

// ListOptions describes the sorting a list endpoint accepts.
type ListOptions struct {
	Sortable    SortFields
	DefaultSort string
	DefaultDesc bool
}

// List is the validated paging and sorting of a list request.
type List struct {
	Page Page
	Sort Sort
}

// ParsePage reads page and limit from values.
func ParsePage(values url.Values) (Page, error) {
	number, err := positiveInt(values.Get("page"), 1)
	if err != nil {
		return Page{}, ErrInvalidPage
	}
	size, err := positiveInt(values.Get("limit"), DefaultPageSize)
	if err != nil {
		return Page{}, ErrInvalidLimit
	}

	page := Page{Number: number, Size: size}
	if err := page.Validate(); err != nil {
		return Page{}, err
	}
	return page, nil
}

// ParseList reads page, limit, sortBy and sortType from values.
func ParseList(values url.Values, opts ListOptions) (List, error) {
	page, err := ParsePage(values)
	if err != nil {
		return List{}, err
	}
	list := List{Page: page}

	field := strings.TrimSpace(values.Get("sortBy"))
	if field == "" {
		field = opts.DefaultSort
	}
	column, ok := opts.Sortable[field]
	if !ok {
		return List{}, fmt.Errorf("%w: field %q", ErrInvalidSort, field)
	}

	desc := opts.DefaultDesc
	switch strings.ToLower(strings.TrimSpace(values.Get("sortType"))) {
	case "":
	case "asc":
		desc = false
	case "desc", "dec":
		desc = true
	default:
		return List{}, fmt.Errorf("%w: direction %q", ErrInvalidSort, values.Get("sortType"))
	}

	list.Sort = Sort{Column: column, Desc: desc}
	return list, nil
}

func positiveInt(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, errors.New("not positive")
	}
	return n, nil
}
