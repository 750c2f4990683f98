// Package icon holds the domain types for generated logos and the
// generation pipeline.
package icon

import "time"

// Icon is a saved library entry owned by one user.
type Icon struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	ImageURL  string    `json:"imageUrl"`
	Style     string    `json:"style"`
	Prompt    string    `json:"prompt"`
	Tags      []string  `json:"tags"`
	Favorite  bool      `json:"favorite"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// GenerationRequest describes one generation invocation after validation.
type GenerationRequest struct {
	UserID         string
	Prompt         string
	Style          string
	IsImprovement  bool
	SourceImageURL string
}

// VariantCount returns how many image variants are attempted for the
// request. Improvements refine a single image; fresh generations always
// produce three candidates, regardless of what the caller asked for.
func (r GenerationRequest) VariantCount() int {
	if r.IsImprovement {
		return 1
	}
	return 3
}

// PromptBundle is the decomposition of the raw prompt text: the subject
// before the first comma, and every later segment re-joined as cumulative
// improvement instructions.
type PromptBundle struct {
	BasePrompt   string
	Improvements string
	Style        string
}

// GenerationResult is the outcome of one generation run. Images are data
// URLs or remote URLs in generation order.
type GenerationResult struct {
	Success      bool     `json:"success"`
	Images       []string `json:"icons"`
	ErrorMessage string   `json:"error,omitempty"`
}

// ThoughtEvent is one chunk of narration text streamed while images are
// being produced. It lives only for the duration of a stream.
type ThoughtEvent struct {
	Content string `json:"content"`
}

// ProviderImage is one raw image result from the AI provider. Providers
// return inline bytes, a direct URL, or an opaque payload, depending on the
// model and endpoint; normalization into a displayable URL happens in the
// orchestrator.
type ProviderImage struct {
	Data     []byte
	MIMEType string
	URL      string
	Raw      []byte
}

// ListFilter narrows and orders a library listing.
type ListFilter struct {
	Style    string
	Tag      string
	Favorite *bool
	SortBy   string // created_at or name
	Order    string // asc or desc
	Limit    int
	Offset   int
}
