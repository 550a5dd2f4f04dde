package repository

import "github.com/garnizeh/cddrecords/pkg/models"

// PageRequest selects a zero-based page of Size elements.
type PageRequest struct {
	Number int
	Size   int
}

// Validate rejects non-positive sizes and negative page numbers.
func (p PageRequest) Validate() error {
	if p.Size <= 0 {
		return &models.ValidationError{Entity: "page", Field: "size", Reason: "must be positive"}
	}
	if p.Number < 0 {
		return &models.ValidationError{Entity: "page", Field: "number", Reason: "must not be negative"}
	}
	return nil
}

// Offset is the number of elements before the first one of this page.
func (p PageRequest) Offset() int64 {
	return int64(p.Number) * int64(p.Size)
}

// Page is one slice of a larger result set plus its pagination metadata.
type Page[T any] struct {
	Items         []T   `json:"items"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"total_elements"`
	TotalPages    int   `json:"total_pages"`
}

// NewPage computes the derived totals for items fetched with req out of total
// matching elements.
func NewPage[T any](items []T, req PageRequest, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if req.Size > 0 {
		pages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return Page[T]{
		Items:         items,
		Number:        req.Number,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    pages,
	}
}

func (p Page[T]) HasNext() bool { return p.Number < p.TotalPages-1 }

func (p Page[T]) HasPrevious() bool { return p.Number > 0 }

func (p Page[T]) IsFirst() bool { return p.Number == 0 }

func (p Page[T]) IsLast() bool { return !p.HasNext() }

// Next returns the request for the following page.
func (p Page[T]) Next() PageRequest {
	return PageRequest{Number: p.Number + 1, Size: p.Size}
}
