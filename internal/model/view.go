package model

// FullPrompt is a prompt joined with its category, image and submitter.
type FullPrompt struct {
	Prompt
	Category      Category `json:"category"`
	ImageURL      string   `json:"imageUrl"`
	ImageHint     string   `json:"imageHint"`
	SubmitterName string   `json:"submitterName,omitempty"`
	IsFavorite    bool     `json:"isFavorite"`
}

type HomeView struct {
	Prompts    []FullPrompt      `json:"prompts"`
	Categories []Category        `json:"categories"`
	AdCodes    map[string]string `json:"adCodes"`
	User       *User             `json:"user,omitempty"`
}

type PromptDetailView struct {
	Prompt  FullPrompt        `json:"prompt"`
	Related []FullPrompt      `json:"related"`
	AdCodes map[string]string `json:"adCodes"`
	User    *User             `json:"user,omitempty"`
}

type AdminView struct {
	Prompts      []FullPrompt `json:"prompts"`
	Categories   []Category   `json:"categories"`
	AdCodes      []AdCode     `json:"adCodes"`
	PendingCount int          `json:"pendingCount"`
	TotalCount   int          `json:"totalCount"`
}

type SubmitView struct {
	Categories []Category `json:"categories"`
	User       *User      `json:"user,omitempty"`
}
