package generation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logoforge/logoforge/internal/app/domain/icon"
)

type fakeProvider struct {
	narrationChunks []string
	narrationErr    error

	generateResults []icon.ProviderImage
	generateErrs    []error
	generateCalls   int

	editResult icon.ProviderImage
	editErr    error
	editCalls  int
	editSource string
}

func (f *fakeProvider) StreamNarration(ctx context.Context, prompt string, emit func(string)) error {
	if f.narrationErr != nil {
		return f.narrationErr
	}
	for _, c := range f.narrationChunks {
		emit(c)
	}
	return nil
}

func (f *fakeProvider) GenerateImage(ctx context.Context, prompt string) (icon.ProviderImage, error) {
	i := f.generateCalls
	f.generateCalls++
	var err error
	if i < len(f.generateErrs) {
		err = f.generateErrs[i]
	}
	var img icon.ProviderImage
	if i < len(f.generateResults) {
		img = f.generateResults[i]
	}
	return img, err
}

func (f *fakeProvider) EditImage(ctx context.Context, prompt, sourceURL string) (icon.ProviderImage, error) {
	f.editCalls++
	f.editSource = sourceURL
	return f.editResult, f.editErr
}

func inlinePNG(b string) icon.ProviderImage {
	return icon.ProviderImage{Data: []byte(b), MIMEType: "image/png"}
}

func TestRunAttemptsExactlyThreeVariants(t *testing.T) {
	p := &fakeProvider{
		generateResults: []icon.ProviderImage{inlinePNG("a"), inlinePNG("b"), inlinePNG("c")},
	}
	svc, err := New(p, nil)
	require.NoError(t, err)

	res := svc.Run(context.Background(), icon.GenerationRequest{Prompt: "fox", Style: "modern"}, nil)

	assert.Equal(t, 3, p.generateCalls)
	assert.Zero(t, p.editCalls)
	assert.True(t, res.Success)
	assert.Len(t, res.Images, 3)
}

func TestRunImprovementAttemptsOneVariant(t *testing.T) {
	p := &fakeProvider{editResult: inlinePNG("refined")}
	svc, err := New(p, nil)
	require.NoError(t, err)

	req := icon.GenerationRequest{
		Prompt:         "fox, bolder",
		Style:          "modern",
		IsImprovement:  true,
		SourceImageURL: "https://cdn.example.com/orig.png",
	}
	res := svc.Run(context.Background(), req, nil)

	assert.Equal(t, 1, p.editCalls)
	assert.Zero(t, p.generateCalls)
	assert.Equal(t, "https://cdn.example.com/orig.png", p.editSource)
	assert.True(t, res.Success)
	assert.Len(t, res.Images, 1)
}

func TestRunImprovementWithoutSourceFallsBackToGenerate(t *testing.T) {
	p := &fakeProvider{generateResults: []icon.ProviderImage{inlinePNG("x")}}
	svc, err := New(p, nil)
	require.NoError(t, err)

	req := icon.GenerationRequest{Prompt: "fox, bolder", Style: "modern", IsImprovement: true}
	res := svc.Run(context.Background(), req, nil)

	assert.Equal(t, 1, p.generateCalls)
	assert.Zero(t, p.editCalls)
	assert.True(t, res.Success)
}

func TestRunBillingHaltStopsLoopAndDiscardsPartials(t *testing.T) {
	p := &fakeProvider{
		generateResults: []icon.ProviderImage{inlinePNG("a"), {}, {}},
		generateErrs:    []error{nil, errors.New("provider: billing hard limit reached"), nil},
	}
	svc, err := New(p, nil)
	require.NoError(t, err)

	res := svc.Run(context.Background(), icon.GenerationRequest{Prompt: "fox", Style: "modern"}, nil)

	assert.Equal(t, 2, p.generateCalls, "no variant attempted after the billing error")
	assert.False(t, res.Success)
	assert.Empty(t, res.Images, "partial successes are discarded on billing halt")
	assert.Contains(t, res.ErrorMessage, "billing limit")
}

func TestRunBillingHaltOnFirstCall(t *testing.T) {
	p := &fakeProvider{
		generateErrs: []error{errors.New("billing_hard_limit")},
	}
	svc, err := New(p, nil)
	require.NoError(t, err)

	res := svc.Run(context.Background(), icon.GenerationRequest{Prompt: "fox", Style: "modern"}, nil)

	assert.Equal(t, 1, p.generateCalls)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.ErrorMessage)
}

func TestRunPartialSuccessIsSuccess(t *testing.T) {
	p := &fakeProvider{
		generateResults: []icon.ProviderImage{{}, inlinePNG("only"), {}},
		generateErrs:    []error{errors.New("rate limit exceeded"), nil, errors.New("internal error")},
	}
	svc, err := New(p, nil)
	require.NoError(t, err)

	res := svc.Run(context.Background(), icon.GenerationRequest{Prompt: "fox", Style: "modern"}, nil)

	assert.Equal(t, 3, p.generateCalls, "non-billing errors must not stop the loop")
	assert.True(t, res.Success)
	assert.Len(t, res.Images, 1)
	assert.Empty(t, res.ErrorMessage)
}

func TestRunAllVariantsFailed(t *testing.T) {
	p := &fakeProvider{
		generateErrs: []error{errors.New("boom"), errors.New("boom"), errors.New("boom")},
	}
	svc, err := New(p, nil)
	require.NoError(t, err)

	res := svc.Run(context.Background(), icon.GenerationRequest{Prompt: "fox", Style: "modern"}, nil)

	assert.False(t, res.Success)
	assert.Empty(t, res.Images)
	assert.Equal(t, msgGeneric, res.ErrorMessage)
}

func TestRunUndisplayableResponseIsPerVariantFailure(t *testing.T) {
	p := &fakeProvider{
		generateResults: []icon.ProviderImage{{Raw: []byte(`{"status":"ok"}`)}, inlinePNG("b"), inlinePNG("c")},
	}
	svc, err := New(p, nil)
	require.NoError(t, err)

	res := svc.Run(context.Background(), icon.GenerationRequest{Prompt: "fox", Style: "modern"}, nil)

	assert.Equal(t, 3, p.generateCalls)
	assert.True(t, res.Success)
	assert.Len(t, res.Images, 2)
}

func TestRunNarrationStreamsToSink(t *testing.T) {
	p := &fakeProvider{
		narrationChunks: []string{"thinking about ", "your logo"},
		generateResults: []icon.ProviderImage{inlinePNG("a"), inlinePNG("b"), inlinePNG("c")},
	}
	svc, err := New(p, nil)
	require.NoError(t, err)

	var chunks []string
	res := svc.Run(context.Background(), icon.GenerationRequest{Prompt: "fox", Style: "modern"}, func(c string) {
		chunks = append(chunks, c)
	})

	require.True(t, res.Success)
	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Equal(t, "thinking about ", chunks[0])
	assert.Equal(t, "your logo", chunks[1])
}

func TestRunNarrationFailureIsNonFatal(t *testing.T) {
	p := &fakeProvider{
		narrationErr:    errors.New("narration model unavailable"),
		generateResults: []icon.ProviderImage{inlinePNG("a"), inlinePNG("b"), inlinePNG("c")},
	}
	svc, err := New(p, nil)
	require.NoError(t, err)

	var chunks []string
	res := svc.Run(context.Background(), icon.GenerationRequest{Prompt: "fox", Style: "modern"}, func(c string) {
		chunks = append(chunks, c)
	})

	assert.True(t, res.Success, "narration failure alone must not fail the run")
	assert.Equal(t, 3, p.generateCalls)

	var canned int
	for _, c := range chunks {
		for _, line := range cannedNarration {
			if c == line {
				canned++
			}
		}
	}
	assert.Equal(t, len(cannedNarration), canned, "all canned status lines streamed instead")
}

func TestRunNilSinkSkipsNarration(t *testing.T) {
	p := &fakeProvider{
		narrationErr:    errors.New("should never be called"),
		generateResults: []icon.ProviderImage{inlinePNG("a"), inlinePNG("b"), inlinePNG("c")},
	}
	svc, err := New(p, nil)
	require.NoError(t, err)

	res := svc.Run(context.Background(), icon.GenerationRequest{Prompt: "fox", Style: "modern"}, nil)
	assert.True(t, res.Success)
}

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"billing", errors.New("Billing hard limit has been reached"), msgBillingExhausted},
		{"quota", errors.New("RESOURCE_EXHAUSTED: quota exceeded"), msgQuotaExceeded},
		{"auth", errors.New("API key not valid"), msgProviderAuth},
		{"content policy", errors.New("blocked by safety settings"), msgContentPolicy},
		{"rate limit", errors.New("429 too many requests"), msgRateLimited},
		{"unknown", errors.New("connection reset by peer"), msgGeneric},
		{"nil", nil, msgGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyFailure(tt.err); got != tt.want {
				t.Fatalf("classifyFailure(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsBillingHardLimit(t *testing.T) {
	if isBillingHardLimit(errors.New("rate limit exceeded")) {
		t.Fatal("rate limiting must not be treated as a billing halt")
	}
	if !isBillingHardLimit(errors.New("your billing limit was exceeded")) {
		t.Fatal("billing limit text should be detected")
	}
	if isBillingHardLimit(nil) {
		t.Fatal("nil error is not a billing halt")
	}
}

func TestNewRequiresProvider(t *testing.T) {
	_, err := New(nil, nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "provider"))
}
