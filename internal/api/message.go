package api

import (
	"context"
	stderrors "errors"
	"net/http"

	"companion-chat/backend/internal/conversation"
	"companion-chat/backend/internal/models"
	"companion-chat/backend/pkg/errors"
	"companion-chat/backend/pkg/logger"
	"companion-chat/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// Responder answers one user message
type Responder interface {
	Respond(ctx context.Context, req conversation.Request) (*conversation.Reply, error)
}

// SendMessageRequest is the body of POST /chat/messages. The client owns the
// history and sends it back in full on every turn.
type SendMessageRequest struct {
	History   []models.Message `json:"history" binding:"dive"`
	Character models.Character `json:"character"`
	Message   string           `json:"message" binding:"required"`
	Voice     bool             `json:"voice"`
}

// SendMessageResponse carries the reply. Image and audio are data URLs and
// are null when the turn produced none.
type SendMessageResponse struct {
	Text  string  `json:"text"`
	Image *string `json:"image"`
	Audio *string `json:"audio"`
}

// MessageHandler serves the chat endpoint
type MessageHandler struct {
	responder Responder
	logger    *logger.Logger
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(responder Responder, logger *logger.Logger) *MessageHandler {
	return &MessageHandler{responder: responder, logger: logger}
}

// SendMessage runs one conversation turn
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.NewBadRequestError(errors.CodeInvalidRequest, "Invalid request format").WithDetails(err.Error()))
		return
	}

	if err := req.Character.Validate(); err != nil {
		c.Error(errors.NewBadRequestError(errors.CodeInvalidCharacter, "Invalid character").WithDetails(err.Error()))
		return
	}
	req.Character.ApplyDefaults()

	ctx := middleware.WithRequestContext(c.Request.Context(), c)
	reply, err := h.responder.Respond(ctx, conversation.Request{
		History:    req.History,
		Character:  req.Character,
		UserText:   req.Message,
		WantsVoice: req.Voice,
		Identity:   middleware.CurrentUser,
	})
	if err != nil {
		c.Error(chatError(err))
		return
	}

	c.JSON(http.StatusOK, NewSendMessageResponse(reply))
}

// NewSendMessageResponse renders a reply with its media as data URLs
func NewSendMessageResponse(reply *conversation.Reply) SendMessageResponse {
	return SendMessageResponse{
		Text:  reply.Text,
		Image: dataURL(reply.Image),
		Audio: dataURL(reply.Audio),
	}
}

func dataURL(m *conversation.Media) *string {
	if m == nil || len(m.Data) == 0 {
		return nil
	}
	s := m.DataURL()
	return &s
}

func chatError(err error) *errors.AppError {
	if stderrors.Is(err, conversation.ErrChatUnavailable) {
		return errors.NewBadGatewayError(errors.CodeChatUnavailable, "The character could not answer right now").WithCause(err)
	}
	return errors.FromError(err)
}
