package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"companion-chat/backend/internal/models"
	"companion-chat/backend/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "companion-chat/backend/conversation"

// ErrChatUnavailable wraps any failure of the chat model. The turn is
// aborted and no partial reply is returned.
var ErrChatUnavailable = errors.New("chat model unavailable")

// Config tunes the orchestrator
type Config struct {
	Temperature    float32
	CooldownWindow time.Duration
	Now            func() time.Time
}

// DefaultConfig returns the production settings
func DefaultConfig() Config {
	return Config{
		Temperature:    1.1,
		CooldownWindow: DefaultCooldown,
		Now:            time.Now,
	}
}

// Request is one user message together with everything needed to answer it
type Request struct {
	History    []models.Message
	Character  models.Character
	UserText   string
	WantsVoice bool
	// Identity is consulted only when the model asks for a photo. A nil
	// Identity treats the caller as anonymous.
	Identity Identity
}

// Reply is the character's answer. Image and Audio are optional extras.
type Reply struct {
	Text  string
	Image *Media
	Audio *Media
}

// Orchestrator answers user messages using the chat, image and speech models
type Orchestrator struct {
	chat   ChatModel
	images ImageModel
	speech SpeechModel
	cfg    Config
	log    *logger.Logger

	tracer   trace.Tracer
	turns    metric.Int64Counter
	degraded metric.Int64Counter
}

// New creates an orchestrator. speech may be nil, in which case voice
// replies are never produced.
func New(chat ChatModel, images ImageModel, speech SpeechModel, log *logger.Logger, cfg Config) *Orchestrator {
	defaults := DefaultConfig()
	if cfg.Temperature == 0 {
		cfg.Temperature = defaults.Temperature
	}
	if cfg.CooldownWindow <= 0 {
		cfg.CooldownWindow = defaults.CooldownWindow
	}
	if cfg.Now == nil {
		cfg.Now = defaults.Now
	}

	meter := otel.Meter(instrumentationName)
	turns, _ := meter.Int64Counter("conversation_turns",
		metric.WithDescription("Completed conversation turns by outcome"))
	degraded, _ := meter.Int64Counter("conversation_media_failures",
		metric.WithDescription("Image or speech generations that failed and were dropped"))

	return &Orchestrator{
		chat:     chat,
		images:   images,
		speech:   speech,
		cfg:      cfg,
		log:      log.WithComponent("conversation"),
		tracer:   otel.Tracer(instrumentationName),
		turns:    turns,
		degraded: degraded,
	}
}

// Respond produces the character's reply to req.UserText. Only a chat model
// failure is returned as an error; photo and voice failures leave the
// corresponding field empty.
func (o *Orchestrator) Respond(ctx context.Context, req Request) (*Reply, error) {
	ctx, span := o.tracer.Start(ctx, "conversation.Respond",
		trace.WithAttributes(
			attribute.String("character", req.Character.Name),
			attribute.Int("history.length", len(req.History)),
			attribute.Bool("voice", req.WantsVoice),
		))
	defer span.End()

	log := logger.FromContext(ctx, o.log).With("character", req.Character.Name)
	machine := newTurnMachine(log)

	cooldown := CheckCooldown(req.History, o.cfg.Now(), o.cfg.CooldownWindow)
	span.SetAttributes(attribute.Bool("cooldown.active", cooldown.Active))
	if cooldown.Active {
		log.Debug("Photo cooldown active", "minutes_since", cooldown.MinutesSince)
	}

	chatReq := ChatRequest{
		SystemInstruction: BuildSystemInstruction(req.Character, cooldown),
		Temperature:       o.cfg.Temperature,
		Turns:             append(TranslateHistory(req.History), Turn{Role: RoleUser, Text: req.UserText}),
	}
	if !cooldown.Active {
		chatReq.Tools = []ToolDeclaration{SendPhotoTool()}
	}

	resp, err := o.chat.Generate(ctx, chatReq)
	if err != nil {
		return nil, o.chatFailed(ctx, span, err)
	}

	reply := &Reply{}
	outcome := "text"

	call := photoCall(resp, chatReq)
	if call == nil {
		reply.Text = resp.Text
		if err := machine.advance(StateDone); err != nil {
			return nil, err
		}
	} else {
		if err := machine.advance(StateToolRequested); err != nil {
			return nil, err
		}

		if o.photoLimitReached(ctx, req) {
			log.Info("Photo limit reached for anonymous caller")
			reply.Text = PhotoLimitReply
			outcome = "photo_limit"
			if err := machine.advance(StateDone); err != nil {
				return nil, err
			}
		} else {
			image, result := o.takePhoto(ctx, log, req.Character, call)

			chatReq.Turns = append(chatReq.Turns,
				Turn{Role: RoleModel, ToolCall: call},
				Turn{Role: RoleUser, ToolResult: &ToolResult{CallID: call.ID, Name: call.Name, Result: result}},
			)
			if err := machine.advance(StateAwaitingFollowUp); err != nil {
				return nil, err
			}

			followUp, err := o.chat.Generate(ctx, chatReq)
			if err != nil {
				return nil, o.chatFailed(ctx, span, err)
			}

			reply.Text = followUp.Text
			reply.Image = image
			outcome = "photo"
			if image == nil {
				outcome = "photo_failed"
			}
			if err := machine.advance(StateDone); err != nil {
				return nil, err
			}
		}
	}

	if req.WantsVoice && strings.TrimSpace(reply.Text) != "" {
		reply.Audio = o.speak(ctx, log, req.Character, reply.Text)
	}

	o.turns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	span.SetAttributes(attribute.String("outcome", outcome))
	return reply, nil
}

// photoCall returns the first tool call if it asks for a photo and the photo
// tool was actually offered.
func photoCall(resp *ChatResponse, req ChatRequest) *ToolCall {
	if len(resp.ToolCalls) == 0 {
		return nil
	}
	call := resp.ToolCalls[0]
	if call.Name != SendPhotoToolName || !req.HasTool(SendPhotoToolName) {
		return nil
	}
	return &call
}

// photoLimitReached enforces one free photo per anonymous conversation
func (o *Orchestrator) photoLimitReached(ctx context.Context, req Request) bool {
	if req.Identity != nil {
		if _, ok := req.Identity(ctx); ok {
			return false
		}
	}
	return CountImages(req.History) >= 1
}

// takePhoto generates the selfie and returns the function result to report
// back to the chat model.
func (o *Orchestrator) takePhoto(ctx context.Context, log *logger.Logger, c models.Character, call *ToolCall) (*Media, string) {
	ctx, span := o.tracer.Start(ctx, "conversation.takePhoto")
	defer span.End()

	prompt := BuildImagePrompt(c.Appearance, call.StringArg(PhotoDescriptionArg))

	image, err := o.images.GenerateImage(ctx, prompt)
	if err == nil && (image == nil || len(image.Data) == 0) {
		err = errors.New("image model returned no image data")
	}
	if err != nil {
		log.Warn("Photo generation failed", "error", err.Error())
		span.RecordError(err)
		o.degraded.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "image")))
		return nil, PhotoFailedResult
	}

	return image, PhotoSentResult
}

func (o *Orchestrator) speak(ctx context.Context, log *logger.Logger, c models.Character, text string) *Media {
	if o.speech == nil {
		return nil
	}

	ctx, span := o.tracer.Start(ctx, "conversation.speak")
	defer span.End()

	voice := SelectVoice(c)
	audio, err := o.speech.Synthesize(ctx, text, voice)
	if err == nil && (audio == nil || len(audio.Data) == 0) {
		err = errors.New("speech model returned no audio")
	}
	if err != nil {
		log.Warn("Speech synthesis failed", "voice", string(voice), "error", err.Error())
		span.RecordError(err)
		o.degraded.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", "speech")))
		return nil
	}

	return audio
}

func (o *Orchestrator) chatFailed(ctx context.Context, span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "chat model failed")
	o.turns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "error")))
	return fmt.Errorf("%w: %w", ErrChatUnavailable, err)
}
