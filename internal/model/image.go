package model

import "time"

const (
	PlaceholderImageURL  = "https://placehold.co/600x400"
	PlaceholderImageHint = "placeholder"
)

type Image struct {
	ID          string    `json:"id" db:"id"`
	Description string    `json:"description" db:"description"`
	ImageURL    string    `json:"imageUrl" db:"image_url"`
	ImageHint   string    `json:"imageHint" db:"image_hint"`
	UploadedBy  *string   `json:"uploadedBy,omitempty" db:"uploaded_by"`
	BlobKey     *string   `json:"-" db:"blob_key"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// IsUserUpload reports whether the image came from a submission rather than
// the seeded placeholder set.
func (i *Image) IsUserUpload() bool {
	return i != nil && i.UploadedBy != nil && *i.UploadedBy != ""
}
