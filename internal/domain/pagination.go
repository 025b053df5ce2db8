package domain

// Pagination carries cursor paging inputs through service and repository layers.
type Pagination struct {
	PageSize  int
	PageToken string
}

// CursorPage is one page of results plus the opaque token addressing the next page.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}
