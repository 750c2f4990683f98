package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/logoforge/logoforge/internal/app/domain/icon"
	"github.com/logoforge/logoforge/internal/errors"
	"github.com/logoforge/logoforge/internal/httputil"
	"github.com/logoforge/logoforge/internal/middleware"
)

const maxPromptLength = 200

type generateRequest struct {
	Prompt         string `json:"prompt"`
	Style          string `json:"style"`
	IsImprovement  bool   `json:"isImprovement"`
	SourceImageURL string `json:"sourceImageUrl"`
	// Count is accepted for compatibility and ignored; the variant count
	// is fixed by the request mode.
	Count int `json:"count"`
}

// parseGenerateRequest validates the request body into a domain request.
// Prompt length and style membership are enforced here; the orchestrator
// assumes them.
func (h *Handler) parseGenerateRequest(r *http.Request) (icon.GenerationRequest, error) {
	var body generateRequest
	if err := httputil.DecodeJSON(r.Body, &body); err != nil {
		return icon.GenerationRequest{}, errors.BadRequest("invalid JSON body")
	}

	body.Prompt = strings.TrimSpace(body.Prompt)
	switch {
	case body.Prompt == "":
		return icon.GenerationRequest{}, errors.BadRequest("prompt is required")
	case len(body.Prompt) > maxPromptLength:
		return icon.GenerationRequest{}, errors.BadRequest("prompt must be at most 200 characters")
	case body.Style == "":
		return icon.GenerationRequest{}, errors.BadRequest("style is required")
	case !h.catalog.HasStyle(body.Style):
		return icon.GenerationRequest{}, errors.BadRequest("unknown style")
	}

	userID := middleware.GetUserID(r.Context())
	req := icon.GenerationRequest{
		UserID:         userID,
		Prompt:         body.Prompt,
		Style:          body.Style,
		IsImprovement:  body.IsImprovement,
		SourceImageURL: body.SourceImageURL,
	}

	if req.IsImprovement && req.SourceImageURL == "" {
		// Degrades to a text-only refine with no reference image.
		h.log.WithField("user_id", userID).Warn("improvement request without sourceImageUrl")
	}
	return req, nil
}

func (h *Handler) generationTimeout(req icon.GenerationRequest) time.Duration {
	if req.IsImprovement {
		return h.limits.ImprovementTimeout
	}
	return h.limits.GenerateTimeout
}

// handleGenerate is the non-streaming sibling: one JSON response with the
// full result, including image URLs.
func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseGenerateRequest(r)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.generationTimeout(req))
	defer cancel()

	result := h.generator.Run(ctx, req, nil)
	httputil.WriteJSON(w, http.StatusOK, result)
}

// handleGenerateStream runs the orchestrator behind an SSE stream. Event
// order is start, zero or more thoughts, then exactly one of complete or
// error, then the [DONE] sentinel.
func (h *Handler) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseGenerateRequest(r)
	if err != nil {
		httputil.WriteServiceError(w, err)
		return
	}

	stream, err := newSSEStream(w)
	if err != nil {
		httputil.WriteServiceError(w, errors.Internal("streaming unsupported", err))
		return
	}

	stream.send(startEvent{Type: "start", Message: "Starting icon generation..."})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	resultCh := make(chan icon.GenerationResult, 1)
	go func() {
		resultCh <- h.generator.Run(ctx, req, func(chunk string) {
			stream.send(thoughtEvent{Type: "thought", Content: chunk})
		})
	}()

	timer := time.NewTimer(h.generationTimeout(req))
	defer timer.Stop()

	select {
	case result := <-resultCh:
		var errMsg *string
		if result.ErrorMessage != "" {
			errMsg = &result.ErrorMessage
		}
		// Image URLs are intentionally omitted; clients fetch them via the
		// non-streaming endpoint or the library.
		stream.sendTerminal(completeEvent{Type: "complete", Success: result.Success, Icons: []string{}, Error: errMsg})
	case <-timer.C:
		cancel()
		stream.sendTerminal(errorEvent{Type: "error", Error: "generation timed out"})
	case <-r.Context().Done():
		cancel()
		stream.markClosed()
	}

	stream.finish()
}
