// Package conversation turns one user message into a character reply,
// deciding along the way whether to generate a photo and whether to speak
// the answer aloud.
package conversation

import (
	"context"
	"encoding/base64"
)

// Role of a turn sent to the chat model
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ToolParameter is a single string argument of a declared tool
type ToolParameter struct {
	Name        string
	Description string
	Required    bool
}

// ToolDeclaration describes a function the chat model may call
type ToolDeclaration struct {
	Name        string
	Description string
	Parameters  []ToolParameter
}

// ToolCall is a function call requested by the chat model
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any

	// Signature is an opaque provider token that must be sent back with the
	// call when it is replayed in a follow-up request.
	Signature []byte
}

// StringArg returns the named argument if it is a string
func (c *ToolCall) StringArg(name string) string {
	if c == nil || c.Args == nil {
		return ""
	}
	s, _ := c.Args[name].(string)
	return s
}

// ToolResult reports the outcome of a ToolCall back to the chat model
type ToolResult struct {
	CallID string
	Name   string
	Result string
}

// Turn is one entry of the chat transcript. Exactly one of Text, ToolCall or
// ToolResult is set.
type Turn struct {
	Role       Role
	Text       string
	ToolCall   *ToolCall
	ToolResult *ToolResult
}

// ChatRequest is a single stateless chat model call
type ChatRequest struct {
	SystemInstruction string
	Temperature       float32
	Tools             []ToolDeclaration
	Turns             []Turn
}

// HasTool reports whether a tool with name is offered
func (r ChatRequest) HasTool(name string) bool {
	for _, t := range r.Tools {
		if t.Name == name {
			return true
		}
	}
	return false
}

// ChatResponse is what the chat model produced: text, tool calls, or both
type ChatResponse struct {
	Text      string
	ToolCalls []ToolCall
}

// Media is generated binary content such as a photo or a voice clip
type Media struct {
	Data     []byte
	MIMEType string
}

// DataURL encodes the media as a data: URL the client can render directly
func (m *Media) DataURL() string {
	if m == nil || len(m.Data) == 0 {
		return ""
	}
	return "data:" + m.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(m.Data)
}

// ChatModel is a hosted language model
type ChatModel interface {
	Generate(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// ImageModel generates a picture from a prompt. A response without image
// bytes must be reported as an error.
type ImageModel interface {
	GenerateImage(ctx context.Context, prompt string) (*Media, error)
}

// SpeechModel synthesizes text with a prebuilt voice
type SpeechModel interface {
	Synthesize(ctx context.Context, text string, voice Voice) (*Media, error)
}

// Identity reports the authenticated user behind ctx, if any
type Identity func(ctx context.Context) (userID string, ok bool)
