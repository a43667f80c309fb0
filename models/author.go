package models

// Author is a paper author, deduplicated by exact display name. No
// name-disambiguation is attempted: same name, same row.
type Author struct {
	AuthorID uint   `json:"author_id" gorm:"primaryKey;column:author_id"`
	Name     string `json:"name" gorm:"type:varchar(512);uniqueIndex;not null"`
}

// TableName sets the explicit table name for GORM.
func (Author) TableName() string {
	return "authors"
}

// PaperAuthor links a paper to one of its authors. AuthorOrder is the
// 1-based position in the source record's author list; re-ingestion
// overwrites the order for an existing pair.
type PaperAuthor struct {
	PaperID     string `json:"paper_id" gorm:"primaryKey;type:varchar(50)"`
	AuthorID    uint   `json:"author_id" gorm:"primaryKey"`
	AuthorOrder int    `json:"author_order" gorm:"not null"`
}

// TableName sets the explicit table name for GORM.
func (PaperAuthor) TableName() string {
	return "paper_authors"
}
