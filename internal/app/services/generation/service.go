// Package generation drives the AI provider calls for one icon request:
// prompt composition, the streamed narration call, the sequential image
// variant loop, and failure classification.
package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/logoforge/logoforge/internal/app/domain/icon"
	"github.com/logoforge/logoforge/internal/metrics"
	"github.com/logoforge/logoforge/pkg/logger"
)

// Provider is the AI backend the orchestrator talks to.
type Provider interface {
	// StreamNarration streams narration text chunks into emit until the
	// narration call completes.
	StreamNarration(ctx context.Context, prompt string, emit func(chunk string)) error
	// GenerateImage synthesizes one image from a text prompt.
	GenerateImage(ctx context.Context, prompt string) (icon.ProviderImage, error)
	// EditImage refines the image at sourceURL according to the prompt.
	EditImage(ctx context.Context, prompt, sourceURL string) (icon.ProviderImage, error)
}

// ProgressSink receives narration chunks while a run is in flight. A nil
// sink skips the narration call entirely.
type ProgressSink func(chunk string)

// cannedNarration stands in for the narration stream when the provider's
// text call fails. Narration is UI sugar; its loss never fails the run.
var cannedNarration = [4]string{
	"Analyzing your prompt and style preferences...",
	"Sketching initial concepts...",
	"Refining shapes and composition...",
	"Rendering the final artwork...",
}

// Service orchestrates one generation run per call. It holds no per-request
// state; a single instance serves all requests.
type Service struct {
	provider Provider
	log      *logger.Logger
}

// New creates the orchestrator.
func New(provider Provider, log *logger.Logger) (*Service, error) {
	if provider == nil {
		return nil, fmt.Errorf("generation: provider is required")
	}
	if log == nil {
		log = logger.NewDefault("generation")
	}
	return &Service{provider: provider, log: log}, nil
}

// Run executes the narration call and the image variant loop for one
// request. The caller has already validated the prompt and reserved
// credits. Run never returns an error; failures are folded into the
// result so the transport can stream them uniformly.
func (s *Service) Run(ctx context.Context, req icon.GenerationRequest, sink ProgressSink) icon.GenerationResult {
	started := time.Now()
	bundle := ComposePrompt(req)
	log := s.log.WithFields(map[string]any{
		"user_id":     req.UserID,
		"improvement": req.IsImprovement,
		"style":       req.Style,
	})

	if sink != nil {
		s.narrate(ctx, req, bundle, sink, log)
	}

	count := req.VariantCount()
	var (
		images      []string
		billingHalt bool
		lastErr     error
	)

	for i := 0; i < count; i++ {
		if sink != nil {
			sink(fmt.Sprintf("Generating variation %d of %d...", i+1, count))
		}

		prompt := BuildImagePrompt(req, bundle, i)

		var (
			img icon.ProviderImage
			err error
		)
		if req.IsImprovement && req.SourceImageURL != "" {
			img, err = s.provider.EditImage(ctx, prompt, req.SourceImageURL)
		} else {
			img, err = s.provider.GenerateImage(ctx, prompt)
		}

		if err != nil {
			if isBillingHardLimit(err) {
				log.WithError(err).Error("image call hit provider billing limit, stopping run")
				metrics.RecordVariant("billing_halt")
				billingHalt = true
				break
			}
			log.WithError(err).WithField("variant", i).Warn("image call failed, skipping variant")
			metrics.RecordVariant("error")
			lastErr = err
			continue
		}

		url, err := NormalizeImage(img)
		if err != nil {
			log.WithError(err).WithField("variant", i).Warn("image response not displayable, skipping variant")
			metrics.RecordVariant("unusable")
			continue
		}

		metrics.RecordVariant("success")
		images = append(images, url)
	}

	switch {
	case billingHalt:
		// A billing halt discards any partial successes.
		metrics.RecordGenerationRun("billing_halt", time.Since(started))
		return icon.GenerationResult{Success: false, Images: []string{}, ErrorMessage: msgBillingExhausted}
	case len(images) == 0:
		metrics.RecordGenerationRun("empty", time.Since(started))
		return icon.GenerationResult{Success: false, Images: []string{}, ErrorMessage: classifyFailure(lastErr)}
	case len(images) < count:
		metrics.RecordGenerationRun("partial", time.Since(started))
		return icon.GenerationResult{Success: true, Images: images}
	default:
		metrics.RecordGenerationRun("success", time.Since(started))
		return icon.GenerationResult{Success: true, Images: images}
	}
}

// narrate streams narration into the sink, falling back to canned status
// lines when the provider's text call fails.
func (s *Service) narrate(ctx context.Context, req icon.GenerationRequest, bundle icon.PromptBundle, sink ProgressSink, log *logger.Logger) {
	prompt := BuildNarrationPrompt(req, bundle)
	if err := s.provider.StreamNarration(ctx, prompt, sink); err != nil {
		log.WithError(err).Warn("narration call failed, using canned status lines")
		for _, line := range cannedNarration {
			sink(line)
		}
	}
}
