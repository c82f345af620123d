package domain

// Field names with a dedicated slot on Record. Anything else lands in Record.Extra.
const (
	FieldTitle       = "title"
	FieldPrice       = "price"
	FieldDescription = "description"
	FieldImage       = "image"
	FieldCategory    = "category"
	FieldURL         = "url"
)

// CategoryPath is an ordered list of category names, root first.
type CategoryPath []string

// Leaf returns the last (most specific) category name.
func (p CategoryPath) Leaf() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Record is the structured result of extracting one product page.
// A nil pointer means the field was not found on the page.
type Record struct {
	URL         string            `json:"url"`
	Title       *string           `json:"title,omitempty"`
	Price       *string           `json:"price,omitempty"`
	Description *string           `json:"description,omitempty"`
	ImageURL    *string           `json:"image,omitempty"`
	Category    CategoryPath      `json:"category,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// Set stores a scalar field value under its dedicated slot, or in Extra.
func (r *Record) Set(name, value string) {
	switch name {
	case FieldTitle:
		r.Title = &value
	case FieldPrice:
		r.Price = &value
	case FieldDescription:
		r.Description = &value
	case FieldImage:
		r.ImageURL = &value
	case FieldURL:
		// the source URL always wins
	default:
		if r.Extra == nil {
			r.Extra = make(map[string]string)
		}
		r.Extra[name] = value
	}
}
