package models

// Category is an arXiv category code (e.g. "cs.AI") with a human-readable
// description. Rows are created on first sighting and never updated.
type Category struct {
	CategoryCode string `json:"category_code" gorm:"primaryKey;column:category_code;type:varchar(50)"`
	Description  string `json:"description,omitempty"`
}

// TableName sets the explicit table name for GORM.
func (Category) TableName() string {
	return "categories_meta"
}

// PaperCategory links a paper to every category it was cross-listed in.
// The relation is boolean: insert-or-ignore, never updated or removed.
type PaperCategory struct {
	PaperID      string `json:"paper_id" gorm:"primaryKey;type:varchar(50)"`
	CategoryCode string `json:"category_code" gorm:"primaryKey;type:varchar(50)"`
}

// TableName sets the explicit table name for GORM.
func (PaperCategory) TableName() string {
	return "paper_categories"
}
