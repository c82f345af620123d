package domain

// Category is one node of the category tree. Names are unique across the whole tree,
// not per parent.
type Category struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

type Organization struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Image references a product picture and the local path it was (or would have been) saved to.
type Image struct {
	ID   int64  `json:"id"`
	URL  string `json:"url"`
	Path string `json:"path"`
}

type Product struct {
	ID             int64   `json:"id"`
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	CategoryID     int64   `json:"category_id"`
	Price          float64 `json:"price"`
	Description    *string `json:"description,omitempty"`
	ImageID        *int64  `json:"image_id,omitempty"`
	OrganizationID *int64  `json:"organization_id,omitempty"`
}
