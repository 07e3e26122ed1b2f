package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"companion-chat/backend/internal/conversation"

	"github.com/bytedance/sonic"
	"github.com/sashabaranov/go-openai"
)

// Default OpenAI model names
const (
	OpenAIChatModel   = openai.GPT4oMini
	OpenAIImageModel  = openai.CreateImageModelDallE3
	OpenAISpeechModel = string(openai.TTSModel1)
)

// openAIAPI is the part of openai.Client the adapter uses
type openAIAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateImage(ctx context.Context, req openai.ImageRequest) (openai.ImageResponse, error)
	CreateSpeech(ctx context.Context, req openai.CreateSpeechRequest) (openai.RawResponse, error)
}

// OpenAIClient implements the chat, image and speech models on the OpenAI API
type OpenAIClient struct {
	api   openAIAPI
	names ModelNames
}

// NewOpenAIClient creates an OpenAI-backed client
func NewOpenAIClient(apiKey string, names ModelNames) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}
	return newOpenAIClient(openai.NewClient(apiKey), names), nil
}

func newOpenAIClient(api openAIAPI, names ModelNames) *OpenAIClient {
	return &OpenAIClient{
		api:   api,
		names: names.withDefaults(OpenAIChatModel, OpenAIImageModel, OpenAISpeechModel),
	}
}

// Generate runs one chat completion
func (o *OpenAIClient) Generate(ctx context.Context, req conversation.ChatRequest) (*conversation.ChatResponse, error) {
	messages, err := openAIMessages(req)
	if err != nil {
		return nil, err
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       o.names.Chat,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if len(req.Tools) > 0 {
		tools, err := openAITools(req.Tools)
		if err != nil {
			return nil, err
		}
		chatReq.Tools = tools
	}

	resp, err := o.api.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoCandidates
	}

	msg := resp.Choices[0].Message
	out := &conversation.ChatResponse{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, conversation.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: decodeArguments(tc.Function.Arguments),
		})
	}
	return out, nil
}

// GenerateImage renders prompt and returns the decoded PNG
func (o *OpenAIClient) GenerateImage(ctx context.Context, prompt string) (*conversation.Media, error) {
	resp, err := o.api.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          o.names.Image,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, ErrNoImage
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return &conversation.Media{Data: data, MIMEType: "image/png"}, nil
}

// Synthesize speaks text with the OpenAI voice closest to voice
func (o *OpenAIClient) Synthesize(ctx context.Context, text string, voice conversation.Voice) (*conversation.Media, error) {
	resp, err := o.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(o.names.Speech),
		Input:          text,
		Voice:          openAIVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read speech: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNoAudio
	}
	return &conversation.Media{Data: data, MIMEType: "audio/mpeg"}, nil
}

func openAIVoice(v conversation.Voice) openai.SpeechVoice {
	switch v {
	case conversation.VoiceSoftFemale:
		return openai.VoiceShimmer
	case conversation.VoiceFemale:
		return openai.VoiceNova
	case conversation.VoiceDeepMale:
		return openai.VoiceOnyx
	default:
		return openai.VoiceEcho
	}
}

func openAIMessages(req conversation.ChatRequest) ([]openai.ChatCompletionMessage, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Turns)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: req.SystemInstruction,
	})

	for _, t := range req.Turns {
		switch {
		case t.ToolCall != nil:
			args, err := sonic.MarshalString(t.ToolCall.Args)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal tool arguments: %w", err)
			}
			messages = append(messages, openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleAssistant,
				ToolCalls: []openai.ToolCall{{
					ID:   t.ToolCall.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      t.ToolCall.Name,
						Arguments: args,
					},
				}},
			})
		case t.ToolResult != nil:
			messages = append(messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    t.ToolResult.Result,
				ToolCallID: t.ToolResult.CallID,
			})
		case t.Role == conversation.RoleModel:
			messages = append(messages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: t.Text,
			})
		default:
			messages = append(messages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: t.Text,
			})
		}
	}
	return messages, nil
}

func openAITools(tools []conversation.ToolDeclaration) ([]openai.Tool, error) {
	out := make([]openai.Tool, 0, len(tools))
	for _, tool := range tools {
		properties := make(map[string]interface{}, len(tool.Parameters))
		required := make([]string, 0, len(tool.Parameters))
		for _, p := range tool.Parameters {
			properties[p.Name] = map[string]interface{}{
				"type":        "string",
				"description": p.Description,
			}
			if p.Required {
				required = append(required, p.Name)
			}
		}

		parameters := map[string]interface{}{
			"type":       "object",
			"properties": properties,
		}
		if len(required) > 0 {
			parameters["required"] = required
		}

		paramsJSON, err := sonic.Marshal(parameters)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal parameters: %w", err)
		}

		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  json.RawMessage(paramsJSON),
			},
		})
	}
	return out, nil
}

// decodeArguments parses the JSON argument string of a tool call. Malformed
// arguments are kept under raw_arguments.
func decodeArguments(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := sonic.UnmarshalString(raw, &args); err != nil {
		return map[string]any{"raw_arguments": raw}
	}
	return args
}
