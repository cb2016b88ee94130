// ABOUTME: Parameter and result types for data provider operations.
// ABOUTME: Mirrors the admin framework's list, sort, filter, and record shapes.

package dataprovider

// Record is one resource as returned by the backend.
type Record = map[string]any

// Filter holds list filters. The "q" key is the free-text search.
type Filter map[string]any

// Sort orders
const (
	SortAsc  = "ASC"
	SortDesc = "DESC"
)

type Pagination struct {
	Page    int
	PerPage int
}

type Sort struct {
	Field string
	Order string
}

type GetListParams struct {
	Pagination Pagination
	Sort       Sort
	Filter     Filter
}

type GetOneParams struct {
	ID any
}

type GetManyParams struct {
	IDs []any
}

// GetManyReferenceParams lists records whose Target field equals ID.
type GetManyReferenceParams struct {
	Target     string
	ID         any
	Pagination Pagination
	Sort       Sort
	Filter     Filter
}

type CreateParams struct {
	Data Record
}

type UpdateParams struct {
	ID           any
	Data         Record
	PreviousData Record
}

type UpdateManyParams struct {
	IDs  []any
	Data Record
}

type DeleteParams struct {
	ID           any
	PreviousData Record
}

type DeleteManyParams struct {
	IDs []any
}

// ListResult is a page of records plus the backend's total count.
type ListResult struct {
	Data  []Record `json:"data"`
	Total int      `json:"total"`
}

type OneResult struct {
	Data Record `json:"data"`
}

type ManyResult struct {
	Data []Record `json:"data"`
}

// IDsResult lists the identifiers a batch operation touched.
type IDsResult struct {
	Data []any `json:"data"`
}
