// Package browse describes filter-only listings of the repository catalog.
package browse

import "time"

// Sort is a SORTABLE attribute a listing can be ordered by, highest first.
type Sort string

const (
	// SortNone keeps the backend order.
	SortNone Sort = ""
	// SortStars orders by star count.
	SortStars Sort = "stars"
	// SortCreated orders by creation date.
	SortCreated Sort = "created_ts"
)

// Filter narrows a listing. Zero values match everything.
type Filter struct {
	Tag          string
	CreatedAfter time.Time
	StarsMin     *int
}
