package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"companion-chat/backend/internal/conversation"
	"companion-chat/backend/internal/models"
	"companion-chat/backend/internal/service"
	apperrors "companion-chat/backend/pkg/errors"
	"companion-chat/backend/pkg/logger"
	"companion-chat/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// asUser simulates the auth middleware
func asUser(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id != "" {
			c.Set("userId", id)
			c.Request = c.Request.WithContext(middleware.WithUserID(c.Request.Context(), id))
		}
		c.Next()
	}
}

func newEngine(user string) *gin.Engine {
	r := gin.New()
	r.Use(apperrors.ErrorHandler(), asUser(user))
	return r
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

var sofia = models.Character{
	Name:        "Sofia",
	Age:         24,
	Description: "Art student",
	Appearance:  "long dark hair, green eyes",
}

type fakeResponder struct {
	reply *conversation.Reply
	err   error
	got   conversation.Request
	user  string
}

func (f *fakeResponder) Respond(ctx context.Context, req conversation.Request) (*conversation.Reply, error) {
	f.got = req
	if req.Identity != nil {
		f.user, _ = req.Identity(ctx)
	}
	return f.reply, f.err
}

func TestSendMessageEncodesMediaAsDataURLs(t *testing.T) {
	responder := &fakeResponder{reply: &conversation.Reply{
		Text:  "here's me at the beach",
		Image: &conversation.Media{Data: []byte("img"), MIMEType: "image/png"},
	}}
	r := newEngine("42")
	r.POST("/chat/messages", NewMessageHandler(responder, logger.Discard()).SendMessage)

	w := doJSON(r, http.MethodPost, "/chat/messages", gin.H{
		"history": []models.Message{
			{Role: models.RoleUser, Type: models.TypeText, Content: "hi", Timestamp: 1},
		},
		"character": sofia,
		"message":   "send a pic",
		"voice":     true,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "here's me at the beach", resp["text"])
	assert.Equal(t, "data:image/png;base64,aW1n", resp["image"])
	assert.Nil(t, resp["audio"])

	assert.Equal(t, "send a pic", responder.got.UserText)
	assert.True(t, responder.got.WantsVoice)
	assert.Len(t, responder.got.History, 1)
	assert.Equal(t, models.DefaultPersonality, responder.got.Character.Personality)
	assert.Equal(t, "42", responder.user)
}

func TestSendMessageAnonymousIdentity(t *testing.T) {
	responder := &fakeResponder{reply: &conversation.Reply{Text: "hey"}}
	r := newEngine("")
	r.POST("/chat/messages", NewMessageHandler(responder, logger.Discard()).SendMessage)

	w := doJSON(r, http.MethodPost, "/chat/messages", gin.H{"character": sofia, "message": "hi"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, responder.user)
}

func TestSendMessageRejectsInvalidCharacter(t *testing.T) {
	responder := &fakeResponder{}
	r := newEngine("")
	r.POST("/chat/messages", NewMessageHandler(responder, logger.Discard()).SendMessage)

	young := sofia
	young.Age = 17
	w := doJSON(r, http.MethodPost, "/chat/messages", gin.H{"character": young, "message": "hi"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.CodeInvalidCharacter, errorCode(t, w))
	assert.Empty(t, responder.got.UserText)

	w = doJSON(r, http.MethodPost, "/chat/messages", gin.H{"character": sofia})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.CodeInvalidRequest, errorCode(t, w))
}

func TestSendMessageChatFailureIsBadGateway(t *testing.T) {
	responder := &fakeResponder{err: fmt.Errorf("%w: %w", conversation.ErrChatUnavailable, errors.New("quota"))}
	r := newEngine("")
	r.POST("/chat/messages", NewMessageHandler(responder, logger.Discard()).SendMessage)

	w := doJSON(r, http.MethodPost, "/chat/messages", gin.H{"character": sofia, "message": "hi"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, apperrors.CodeChatUnavailable, errorCode(t, w))
	assert.NotContains(t, w.Body.String(), "text")
}

type fakeCharacterStore struct {
	saved   []models.Character
	saveErr error
}

func (f *fakeCharacterStore) Save(_ context.Context, c *models.Character, owner string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if owner == "" {
		return service.ErrOwnerRequired
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %w", service.ErrInvalidCharacter, err)
	}
	c.ID = fmt.Sprintf("c%d", len(f.saved)+1)
	c.OwnerID = owner
	f.saved = append([]models.Character{*c}, f.saved...)
	return nil
}

func (f *fakeCharacterStore) ListByOwner(_ context.Context, owner string) []models.Character {
	out := []models.Character{}
	for _, c := range f.saved {
		if c.OwnerID == owner {
			out = append(out, c)
		}
	}
	return out
}

func TestCharacterEndpoints(t *testing.T) {
	store := &fakeCharacterStore{}
	h := NewCharacterHandler(store, logger.Discard())
	r := newEngine("7")
	r.GET("/characters/presets", h.ListPresets)
	r.GET("/characters", h.ListCharacters)
	r.POST("/characters", h.SaveCharacter)

	w := doJSON(r, http.MethodGet, "/characters/presets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var presets []models.Character
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &presets))
	assert.Len(t, presets, len(service.Presets()))

	w = doJSON(r, http.MethodPost, "/characters", sofia)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
	assert.NotContains(t, w.Body.String(), "user_id")

	w = doJSON(r, http.MethodGet, "/characters", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Character
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Sofia", list[0].Name)
}

func TestSaveCharacterFailures(t *testing.T) {
	store := &fakeCharacterStore{}
	h := NewCharacterHandler(store, logger.Discard())
	r := newEngine("7")
	r.POST("/characters", h.SaveCharacter)

	young := sofia
	young.Age = 16
	w := doJSON(r, http.MethodPost, "/characters", young)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)

	store.saveErr = errors.New("disk full")
	w = doJSON(r, http.MethodPost, "/characters", sofia)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
	assert.NotContains(t, w.Body.String(), "disk full")
}

type fakeAvatars struct {
	media *conversation.Media
	err   error
}

func (f *fakeAvatars) GenerateAvatar(context.Context, string) (*conversation.Media, error) {
	return f.media, f.err
}

func TestGenerateAvatar(t *testing.T) {
	avatars := &fakeAvatars{media: &conversation.Media{Data: []byte("img"), MIMEType: "image/png"}}
	r := newEngine("")
	r.POST("/avatars", NewAvatarHandler(avatars).GenerateAvatar)

	w := doJSON(r, http.MethodPost, "/avatars", gin.H{"appearance": "red hair"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"avatarUrl":"data:image/png;base64,aW1n"}`, w.Body.String())

	avatars.err = service.ErrAvatarUnavailable
	w = doJSON(r, http.MethodPost, "/avatars", gin.H{"appearance": "red hair"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, apperrors.CodeImageUnavailable, errorCode(t, w))

	w = doJSON(r, http.MethodPost, "/avatars", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type fakeAccounts struct {
	users map[string]*models.User
}

func (f *fakeAccounts) CreateUser(_ context.Context, req *models.CreateUserRequest) (*models.User, string, error) {
	if _, ok := f.users[req.Email]; ok {
		return nil, "", service.ErrUserAlreadyExists
	}
	u := &models.User{ID: uint(len(f.users) + 1), Name: req.Name, Email: req.Email, Password: req.Password}
	f.users[req.Email] = u
	return u, "token", nil
}

func (f *fakeAccounts) Login(_ context.Context, req *models.LoginRequest) (*models.User, string, error) {
	u, ok := f.users[req.Email]
	if !ok || u.Password != req.Password {
		return nil, "", service.ErrInvalidCredentials
	}
	return u, "token", nil
}

func (f *fakeAccounts) GetUserByID(_ context.Context, id uint) (*models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, service.ErrUserNotFound
}

func TestAuthEndpoints(t *testing.T) {
	accounts := &fakeAccounts{users: map[string]*models.User{}}
	h := NewAuthHandler(accounts, logger.Discard())

	r := newEngine("")
	r.POST("/auth/signup", h.Signup)
	r.POST("/auth/login", h.Login)

	creds := gin.H{"name": "Ana", "email": "ana@example.com", "password": "s3cret-pass"}
	w := doJSON(r, http.MethodPost, "/auth/signup", creds)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"token":"token"`)
	assert.NotContains(t, w.Body.String(), "s3cret-pass")

	w = doJSON(r, http.MethodPost, "/auth/signup", creds)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperrors.CodeEmailTaken, errorCode(t, w))

	w = doJSON(r, http.MethodPost, "/auth/login", gin.H{"email": "ana@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, apperrors.CodeBadCredentials, errorCode(t, w))

	w = doJSON(r, http.MethodPost, "/auth/login", gin.H{"email": "ana@example.com", "password": "s3cret-pass"})
	assert.Equal(t, http.StatusOK, w.Code)

	me := newEngine("1")
	me.GET("/auth/me", h.Me)
	w = doJSON(me, http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ana@example.com")

	missing := newEngine("99")
	missing.GET("/auth/me", h.Me)
	w = doJSON(missing, http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
