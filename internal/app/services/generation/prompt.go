package generation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/logoforge/logoforge/internal/app/domain/icon"
)

// colorKeywords flags improvement instructions that ask for a color change.
// Matching is by keyword presence anywhere in the text, case-insensitive.
var colorKeywords = regexp.MustCompile(`(?i)blue|color|red|green|yellow|orange|purple|pink|black|white`)

var ordinals = [...]string{"first", "second", "third"}

// SplitImprovement decomposes raw prompt text into the base subject and the
// cumulative improvement instructions. Text before the first comma is the
// subject; everything after is re-joined as one instruction string. A prompt
// without a comma passes through unchanged with empty instructions.
func SplitImprovement(promptText string) (basePrompt, improvements string) {
	idx := strings.Index(promptText, ",")
	if idx < 0 {
		return promptText, ""
	}
	return strings.TrimSpace(promptText[:idx]), strings.TrimSpace(promptText[idx+1:])
}

// ComposePrompt builds the PromptBundle for a request.
func ComposePrompt(req icon.GenerationRequest) icon.PromptBundle {
	base, improvements := SplitImprovement(req.Prompt)
	return icon.PromptBundle{BasePrompt: base, Improvements: improvements, Style: req.Style}
}

// BuildNarrationPrompt returns the instruction for the streamed narration
// call. Narration is user-facing flavor text; it never produces images.
func BuildNarrationPrompt(req icon.GenerationRequest, bundle icon.PromptBundle) string {
	if !req.IsImprovement {
		return fmt.Sprintf(
			"You are a professional logo designer. Briefly narrate, step by step, how you will design %d distinct logo concepts for %q in the %s style. "+
				"Each concept will have a transparent background and be clean, professional and brand-ready. "+
				"Keep the narration short and friendly. Do not produce any images in this response.",
			req.VariantCount(), bundle.BasePrompt, bundle.Style)
	}

	if colorKeywords.MatchString(bundle.Improvements) {
		return fmt.Sprintf(
			"You are a professional logo designer refining an existing logo for %q in the %s style. "+
				"Briefly narrate how you will apply these cumulative changes: %s. "+
				"The requested color change is mandatory and must be visually unambiguous in the result. "+
				"Keep the narration short and friendly. Do not produce any images in this response.",
			bundle.BasePrompt, bundle.Style, bundle.Improvements)
	}
	return fmt.Sprintf(
		"You are a professional logo designer refining an existing logo for %q in the %s style. "+
			"Briefly narrate how you will apply these cumulative changes: %s. "+
			"Choose appropriate colors yourself. "+
			"Keep the narration short and friendly. Do not produce any images in this response.",
		bundle.BasePrompt, bundle.Style, bundle.Improvements)
}

// BuildImagePrompt returns the synthesis instruction for one variant.
// Variant indexes past the known ordinals reuse the last ordinal.
func BuildImagePrompt(req icon.GenerationRequest, bundle icon.PromptBundle, variant int) string {
	if !req.IsImprovement {
		ord := ordinals[len(ordinals)-1]
		if variant >= 0 && variant < len(ordinals) {
			ord = ordinals[variant]
		}
		return fmt.Sprintf(
			"Create the %s variation of a logo for %q in the %s style. "+
				"Flat professional mark, transparent background, brand-ready, no text artifacts, suitable as an app icon.",
			ord, bundle.BasePrompt, bundle.Style)
	}

	if colorKeywords.MatchString(bundle.Improvements) {
		return fmt.Sprintf(
			"Refine the existing logo for %q, keep the same core identity, and apply ALL of these cumulative changes: %s. "+
				"The color change is mandatory and must be clearly visible. "+
				"Transparent background, professional, brand-ready.",
			bundle.BasePrompt, bundle.Improvements)
	}
	// The change list is intentionally repeated here; do not dedupe.
	return fmt.Sprintf(
		"Refine the existing logo for %q, keep the same core identity, and apply ALL of these cumulative changes: %s. "+
			"Apply ALL of these cumulative changes: %s. "+
			"Choose appropriate colors. Transparent background, professional, brand-ready.",
		bundle.BasePrompt, bundle.Improvements, bundle.Improvements)
}
