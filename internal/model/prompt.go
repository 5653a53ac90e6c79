package model

import "time"

type PromptStatus string

const (
	PromptStatusPending  PromptStatus = "pending"
	PromptStatusApproved PromptStatus = "approved"
)

const MinPromptTextLength = 10

type Prompt struct {
	ID             string       `json:"id" db:"id"`
	Text           string       `json:"text" db:"text"`
	CategoryID     string       `json:"categoryId" db:"category_id"`
	ImageID        string       `json:"imageId" db:"image_id"`
	Status         PromptStatus `json:"status" db:"status"`
	SubmittedBy    *string      `json:"submittedBy,omitempty" db:"submitted_by"`
	FavoritesCount int          `json:"favoritesCount" db:"favorites_count"`
	CopiesCount    int          `json:"copiesCount" db:"copies_count"`
	CreatedAt      time.Time    `json:"createdAt" db:"created_at"`
}

func (p *Prompt) IsApproved() bool {
	return p.Status == PromptStatusApproved
}

// SubmitPromptRequest is the parsed submission form. Image validation needs
// the upload itself, so it is checked separately from the struct tags.
type SubmitPromptRequest struct {
	Text       string  `json:"text" validate:"min=10"`
	CategoryID string  `json:"categoryId" validate:"required"`
	Image      *Upload `json:"-"`
}

// Upload is an in-memory image file taken from a multipart form.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (u *Upload) Size() int {
	if u == nil {
		return 0
	}
	return len(u.Data)
}
