// Package ai adapts hosted model APIs to the conversation model interfaces.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"companion-chat/backend/internal/conversation"

	"google.golang.org/genai"
)

// Default Gemini model names
const (
	GeminiChatModel   = "gemini-2.5-flash"
	GeminiImageModel  = "gemini-2.5-flash-image"
	GeminiSpeechModel = "gemini-2.5-flash-preview-tts"

	geminiPCMRate = 24000
)

var (
	ErrNoCandidates = errors.New("model returned no candidates")
	ErrNoImage      = errors.New("model returned no image data")
	ErrNoAudio      = errors.New("model returned no audio data")
)

// contentGenerator is the part of genai.Models the client uses
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// ModelNames selects the concrete models behind each capability
type ModelNames struct {
	Chat   string
	Image  string
	Speech string
}

func (m ModelNames) withDefaults(chat, image, speech string) ModelNames {
	if m.Chat == "" {
		m.Chat = chat
	}
	if m.Image == "" {
		m.Image = image
	}
	if m.Speech == "" {
		m.Speech = speech
	}
	return m
}

// GeminiClient implements the chat, image and speech models on the Gemini API
type GeminiClient struct {
	models contentGenerator
	names  ModelNames
}

// NewGeminiClient connects to the Gemini developer API
func NewGeminiClient(ctx context.Context, apiKey string, names ModelNames) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return newGeminiClient(client.Models, names), nil
}

func newGeminiClient(models contentGenerator, names ModelNames) *GeminiClient {
	return &GeminiClient{
		models: models,
		names:  names.withDefaults(GeminiChatModel, GeminiImageModel, GeminiSpeechModel),
	}
}

// Generate runs one chat completion
func (g *GeminiClient) Generate(ctx context.Context, req conversation.ChatRequest) (*conversation.ChatResponse, error) {
	temperature := req.Temperature
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: req.SystemInstruction}}},
		Temperature:       &temperature,
	}
	if len(req.Tools) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: geminiTools(req.Tools)}}
	}

	resp, err := g.models.GenerateContent(ctx, g.names.Chat, geminiContents(req.Turns), config)
	if err != nil {
		return nil, err
	}

	parts, err := firstCandidateParts(resp)
	if err != nil {
		return nil, err
	}

	out := &conversation.ChatResponse{}
	var text strings.Builder
	for _, part := range parts {
		switch {
		case part.Thought:
			continue
		case part.FunctionCall != nil:
			out.ToolCalls = append(out.ToolCalls, conversation.ToolCall{
				ID:        part.FunctionCall.ID,
				Name:      part.FunctionCall.Name,
				Args:      part.FunctionCall.Args,
				Signature: part.ThoughtSignature,
			})
		case part.Text != "":
			text.WriteString(part.Text)
		}
	}
	out.Text = text.String()
	return out, nil
}

// GenerateImage returns the first inline image of the response
func (g *GeminiClient) GenerateImage(ctx context.Context, prompt string) (*conversation.Media, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	resp, err := g.models.GenerateContent(ctx, g.names.Image, contents, nil)
	if err != nil {
		return nil, err
	}

	parts, err := firstCandidateParts(resp)
	if err != nil {
		return nil, err
	}
	for _, part := range parts {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			mime := part.InlineData.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			return &conversation.Media{Data: part.InlineData.Data, MIMEType: mime}, nil
		}
	}
	return nil, ErrNoImage
}

// Synthesize speaks text with a prebuilt voice. Gemini returns raw 16-bit
// PCM, which is wrapped in a WAV container so browsers can play it.
func (g *GeminiClient) Synthesize(ctx context.Context, text string, voice conversation.Voice) (*conversation.Media, error) {
	config := &genai.GenerateContentConfig{
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: string(voice)},
			},
		},
	}
	config.ResponseModalities = append(config.ResponseModalities, "AUDIO")

	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	resp, err := g.models.GenerateContent(ctx, g.names.Speech, contents, config)
	if err != nil {
		return nil, err
	}

	parts, err := firstCandidateParts(resp)
	if err != nil {
		return nil, err
	}
	for _, part := range parts {
		if part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		wav, err := PCMToWAV(part.InlineData.Data, pcmSampleRate(part.InlineData.MIMEType))
		if err != nil {
			return nil, err
		}
		return &conversation.Media{Data: wav, MIMEType: "audio/wav"}, nil
	}
	return nil, ErrNoAudio
}

func firstCandidateParts(resp *genai.GenerateContentResponse) ([]*genai.Part, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrNoCandidates
	}
	return resp.Candidates[0].Content.Parts, nil
}

func geminiTools(tools []conversation.ToolDeclaration) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		schema := &genai.Schema{
			Type:       genai.TypeObject,
			Properties: make(map[string]*genai.Schema, len(t.Parameters)),
		}
		for _, p := range t.Parameters {
			schema.Properties[p.Name] = &genai.Schema{
				Type:        genai.TypeString,
				Description: p.Description,
			}
			if p.Required {
				schema.Required = append(schema.Required, p.Name)
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  schema,
		})
	}
	return decls
}

func geminiContents(turns []conversation.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := genai.Role(genai.RoleUser)
		if t.Role == conversation.RoleModel {
			role = genai.RoleModel
		}

		var part *genai.Part
		switch {
		case t.ToolCall != nil:
			part = &genai.Part{
				FunctionCall: &genai.FunctionCall{
					ID:   t.ToolCall.ID,
					Name: t.ToolCall.Name,
					Args: t.ToolCall.Args,
				},
				ThoughtSignature: t.ToolCall.Signature,
			}
		case t.ToolResult != nil:
			part = &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       t.ToolResult.CallID,
				Name:     t.ToolResult.Name,
				Response: map[string]any{"result": t.ToolResult.Result},
			}}
		default:
			part = &genai.Part{Text: t.Text}
		}

		contents = append(contents, genai.NewContentFromParts([]*genai.Part{part}, role))
	}
	return contents
}

// pcmSampleRate reads the rate parameter of a mime type such as
// "audio/L16;codec=pcm;rate=24000".
func pcmSampleRate(mimeType string) int {
	for _, param := range strings.Split(mimeType, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if !ok || !strings.EqualFold(key, "rate") {
			continue
		}
		if rate, err := strconv.Atoi(value); err == nil && rate > 0 {
			return rate
		}
	}
	return geminiPCMRate
}
