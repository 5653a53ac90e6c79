package model

const (
	UncategorizedID   = "cat-0"
	UncategorizedName = "Uncategorized"
	UncategorizedIcon = "AlertCircle"
)

type Category struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Icon string `json:"icon" db:"icon"`
}

// Uncategorized is the permanent fallback category.
func Uncategorized() Category {
	return Category{ID: UncategorizedID, Name: UncategorizedName, Icon: UncategorizedIcon}
}

type CategoryRequest struct {
	Name string `json:"name" validate:"min=2"`
	Icon string `json:"icon" validate:"required"`
}
