package conversation

import (
	"context"
	"errors"
	"sync"
)

type fakeChat struct {
	mu        sync.Mutex
	responses []*ChatResponse
	errs      []error
	requests  []ChatRequest
}

func (f *fakeChat) Generate(_ context.Context, req ChatRequest) (*ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := len(f.requests)
	f.requests = append(f.requests, req)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i >= len(f.responses) {
		return nil, errors.New("unexpected chat call")
	}
	return f.responses[i], nil
}

type fakeImages struct {
	media   *Media
	err     error
	prompts []string
}

func (f *fakeImages) GenerateImage(_ context.Context, prompt string) (*Media, error) {
	f.prompts = append(f.prompts, prompt)
	return f.media, f.err
}

type fakeSpeech struct {
	media  *Media
	err    error
	voices []Voice
	texts  []string
}

func (f *fakeSpeech) Synthesize(_ context.Context, text string, voice Voice) (*Media, error) {
	f.texts = append(f.texts, text)
	f.voices = append(f.voices, voice)
	return f.media, f.err
}

func photoRequest(desc string) *ChatResponse {
	return &ChatResponse{ToolCalls: []ToolCall{{
		ID:   "call-1",
		Name: SendPhotoToolName,
		Args: map[string]any{PhotoDescriptionArg: desc},
	}}}
}

func authenticated(context.Context) (string, bool) { return "user-1", true }
func anonymous(context.Context) (string, bool)     { return "", false }
