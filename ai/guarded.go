package ai

import (
	"context"

	"companion-chat/backend/internal/conversation"
	"companion-chat/backend/pkg/logger"
	"companion-chat/backend/pkg/resilience"
)

// GuardedImages fails fast while the image backend keeps failing
type GuardedImages struct {
	next    conversation.ImageModel
	breaker *resilience.CircuitBreaker
}

// GuardImages wraps next in a circuit breaker
func GuardImages(next conversation.ImageModel, log *logger.Logger) *GuardedImages {
	return &GuardedImages{
		next:    next,
		breaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("image-model"), log),
	}
}

// GenerateImage delegates through the breaker
func (g *GuardedImages) GenerateImage(ctx context.Context, prompt string) (*conversation.Media, error) {
	var media *conversation.Media
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		media, err = g.next.GenerateImage(ctx, prompt)
		return err
	})
	return media, err
}

// Stats exposes the breaker counters
func (g *GuardedImages) Stats() resilience.Stats {
	return g.breaker.Stats()
}

// GuardedSpeech fails fast while the speech backend keeps failing
type GuardedSpeech struct {
	next    conversation.SpeechModel
	breaker *resilience.CircuitBreaker
}

// GuardSpeech wraps next in a circuit breaker
func GuardSpeech(next conversation.SpeechModel, log *logger.Logger) *GuardedSpeech {
	return &GuardedSpeech{
		next:    next,
		breaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("speech-model"), log),
	}
}

// Synthesize delegates through the breaker
func (g *GuardedSpeech) Synthesize(ctx context.Context, text string, voice conversation.Voice) (*conversation.Media, error) {
	var media *conversation.Media
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		media, err = g.next.Synthesize(ctx, text, voice)
		return err
	})
	return media, err
}

// Stats exposes the breaker counters
func (g *GuardedSpeech) Stats() resilience.Stats {
	return g.breaker.Stats()
}

// Guard wraps the media models of m. The chat model is left alone: its
// failures already abort the turn.
func Guard(m *Models, log *logger.Logger) *Models {
	return &Models{
		Chat:   m.Chat,
		Images: GuardImages(m.Images, log),
		Speech: GuardSpeech(m.Speech, log),
	}
}
