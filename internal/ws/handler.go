package ws

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"sync"
	"time"

	"companion-chat/backend/internal/api"
	"companion-chat/backend/internal/conversation"
	"companion-chat/backend/pkg/errors"
	"companion-chat/backend/pkg/logger"
	"companion-chat/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next message from the peer, pongs included
	pongWait = 60 * time.Second

	// Maximum frame size allowed from peer. History may carry photos.
	maxMessageSize = 20 << 20
)

// Frame types
const (
	FrameChat  = "chat"
	FrameReply = "reply"
	FrameError = "error"
	FramePing  = "ping"
	FramePong  = "pong"
)

// Frame is the envelope of every WebSocket message
type Frame struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content,omitempty"`
}

// ErrorContent is the payload of an error frame
type ErrorContent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Hub tracks the open connections
type Hub struct {
	responder api.Responder
	upgrader  websocket.Upgrader
	logger    *logger.Logger
	pongWait  time.Duration

	mu      sync.Mutex
	clients map[*Client]struct{}
}

// NewHub creates a hub answering chat frames with responder
func NewHub(responder api.Responder, log *logger.Logger) *Hub {
	return &Hub{
		responder: responder,
		upgrader: websocket.Upgrader{
			CheckOrigin:      func(r *http.Request) bool { return true },
			HandshakeTimeout: 10 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
		logger:   log.WithComponent("ws"),
		pongWait: pongWait,
		clients:  make(map[*Client]struct{}),
	}
}

// ActiveConnections returns the number of open connections
func (h *Hub) ActiveConnections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// Client is one WebSocket connection. Chat frames are answered one at a
// time in the order they arrive.
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan Frame
	hub  *Hub
	ctx  context.Context
	log  *logger.Logger
}

// ServeWs upgrades the request and serves the connection until it closes.
// The caller's identity comes from the request context set by the auth
// middleware.
func (h *Hub) ServeWs(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.LogError(err, "WebSocket upgrade failed")
		return
	}

	id := uuid.New().String()
	ctx := middleware.WithRequestContext(context.WithoutCancel(c.Request.Context()), c)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client := &Client{
		ID:   id,
		Conn: conn,
		Send: make(chan Frame, 8),
		hub:  h,
		ctx:  ctx,
		log:  h.logger.With("client_id", id).WithUserID(middleware.GetUserID(ctx)),
	}
	h.register(client)
	client.log.Info("Client connected")

	done := make(chan struct{})
	go func() {
		client.writePump()
		close(done)
	}()

	client.readPump()

	cancel()
	close(client.Send)
	<-done
	h.unregister(client)
	client.log.Info("Client disconnected")
}

// readPump handles frames one at a time. A chat turn runs inline and may
// outlast the read deadline, so the deadline restarts once it is answered.
func (c *Client) readPump() {
	wait := c.hub.pongWait
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(wait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(wait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.LogError(err, "WebSocket read failed")
			}
			return
		}
		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.sendError(errors.CodeInvalidRequest, "Malformed frame")
		} else {
			c.handleFrame(frame)
		}
		c.Conn.SetReadDeadline(time.Now().Add(wait))
	}
}

func (c *Client) handleFrame(frame Frame) {
	switch frame.Type {
	case FrameChat:
		c.handleChat(frame.Content)
	case FramePing:
		c.Send <- Frame{Type: FramePong}
	default:
		c.sendError(errors.CodeInvalidRequest, "Unknown frame type "+frame.Type)
	}
}

func (c *Client) handleChat(content json.RawMessage) {
	var req api.SendMessageRequest
	if err := json.Unmarshal(content, &req); err != nil {
		c.sendError(errors.CodeInvalidRequest, "Invalid chat frame")
		return
	}
	// same rules as the HTTP binding
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		c.sendError(errors.CodeInvalidRequest, "Invalid chat frame: "+err.Error())
		return
	}
	if err := req.Character.Validate(); err != nil {
		c.sendError(errors.CodeInvalidCharacter, err.Error())
		return
	}
	req.Character.ApplyDefaults()

	reply, err := c.hub.responder.Respond(c.ctx, conversation.Request{
		History:    req.History,
		Character:  req.Character,
		UserText:   req.Message,
		WantsVoice: req.Voice,
		Identity:   middleware.CurrentUser,
	})
	if err != nil {
		if stderrors.Is(err, conversation.ErrChatUnavailable) {
			c.sendError(errors.CodeChatUnavailable, "The character could not answer right now")
		} else {
			c.sendError(errors.CodeInternal, "An unexpected error occurred")
		}
		c.log.LogError(err, "Chat turn failed")
		return
	}

	body, err := json.Marshal(api.NewSendMessageResponse(reply))
	if err != nil {
		c.log.LogError(err, "Failed to encode reply")
		return
	}
	c.Send <- Frame{Type: FrameReply, Content: body}
}

func (c *Client) sendError(code, message string) {
	body, _ := json.Marshal(ErrorContent{Code: code, Message: message})
	c.Send <- Frame{Type: FrameError, Content: body}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.pongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteJSON(frame); err != nil {
				c.log.LogError(err, "WebSocket write failed")
				c.drain()
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.drain()
				return
			}
		}
	}
}

// drain closes the connection, which ends the read loop, and discards
// frames until Send is closed so the read loop never blocks on it.
func (c *Client) drain() {
	c.Conn.Close()
	for range c.Send {
	}
}
