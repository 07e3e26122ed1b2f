package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"companion-chat/backend/internal/conversation"
	"companion-chat/backend/internal/models"
	"companion-chat/backend/internal/repository"
	"companion-chat/backend/pkg/cache"
	"companion-chat/backend/pkg/jwt"
	"companion-chat/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCharacterRepo struct {
	mu        sync.Mutex
	rows      []models.Character
	createErr error
	listErr   error
	listCalls int
}

func (r *fakeCharacterRepo) Create(_ context.Context, c *models.Character) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	c.ID = "id-" + c.Name
	c.CreatedAt = time.Unix(int64(len(r.rows)), 0)
	r.rows = append(r.rows, *c)
	return nil
}

func (r *fakeCharacterRepo) ListByOwner(_ context.Context, ownerID string) ([]models.Character, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []models.Character
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].OwnerID == ownerID {
			out = append(out, r.rows[i])
		}
	}
	return out, nil
}

func newCharacter(name string, age int) *models.Character {
	return &models.Character{
		Name:        name,
		Age:         age,
		Description: "likes dogs",
		Appearance:  "curly hair",
	}
}

func newMemoryStore(t *testing.T) cache.Store {
	c := cache.NewCache(cache.Options{DefaultExpiration: time.Minute})
	t.Cleanup(c.Close)
	return cache.NewMemoryStore(c)
}

func TestSaveAppliesDefaultsAndOwner(t *testing.T) {
	repo := &fakeCharacterRepo{}
	svc := NewCharacterService(repo, nil, time.Minute, logger.Discard())

	c := newCharacter("Ava", 22)
	require.NoError(t, svc.Save(context.Background(), c, "user-1"))

	require.Len(t, repo.rows, 1)
	saved := repo.rows[0]
	assert.Equal(t, "user-1", saved.OwnerID)
	assert.Equal(t, models.DefaultPersonality, saved.Personality)
	assert.Equal(t, models.PlaceholderAvatarURL("Ava"), saved.AvatarURL)
}

func TestSaveRejectsInvalidCharacters(t *testing.T) {
	repo := &fakeCharacterRepo{}
	svc := NewCharacterService(repo, nil, time.Minute, logger.Discard())
	ctx := context.Background()

	err := svc.Save(ctx, newCharacter("Kid", 17), "user-1")
	assert.ErrorIs(t, err, ErrInvalidCharacter)
	assert.ErrorIs(t, err, models.ErrUnderage)

	err = svc.Save(ctx, newCharacter("", 30), "user-1")
	assert.ErrorIs(t, err, models.ErrMissingName)

	err = svc.Save(ctx, newCharacter("Ava", 30), "")
	assert.ErrorIs(t, err, ErrOwnerRequired)

	assert.Empty(t, repo.rows)
}

func TestSaveSurfacesStoreErrors(t *testing.T) {
	repo := &fakeCharacterRepo{createErr: errors.New("connection reset")}
	svc := NewCharacterService(repo, nil, time.Minute, logger.Discard())

	err := svc.Save(context.Background(), newCharacter("Ava", 30), "user-1")
	assert.ErrorContains(t, err, "connection reset")
}

func TestListByOwnerNewestFirst(t *testing.T) {
	repo := &fakeCharacterRepo{}
	svc := NewCharacterService(repo, nil, time.Minute, logger.Discard())
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, newCharacter("First", 30), "owner"))
	require.NoError(t, svc.Save(ctx, newCharacter("Other", 30), "someone-else"))
	require.NoError(t, svc.Save(ctx, newCharacter("Second", 30), "owner"))

	list := svc.ListByOwner(ctx, "owner")
	require.Len(t, list, 2)
	assert.Equal(t, "Second", list[0].Name)
	assert.Equal(t, "First", list[1].Name)
}

func TestListByOwnerErrorReturnsEmpty(t *testing.T) {
	repo := &fakeCharacterRepo{listErr: errors.New("relation does not exist")}
	svc := NewCharacterService(repo, nil, time.Minute, logger.Discard())

	list := svc.ListByOwner(context.Background(), "owner")
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestListByOwnerCachesUntilSave(t *testing.T) {
	repo := &fakeCharacterRepo{}
	svc := NewCharacterService(repo, newMemoryStore(t), time.Minute, logger.Discard())
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, newCharacter("Ava", 30), "owner"))

	first := svc.ListByOwner(ctx, "owner")
	second := svc.ListByOwner(ctx, "owner")
	assert.Equal(t, 1, repo.listCalls)
	assert.Equal(t, first[0].Name, second[0].Name)
	assert.Equal(t, "owner", second[0].OwnerID)

	require.NoError(t, svc.Save(ctx, newCharacter("Bea", 30), "owner"))
	third := svc.ListByOwner(ctx, "owner")
	assert.Equal(t, 2, repo.listCalls)
	assert.Len(t, third, 2)
}

func TestPresetsAreAdultsAndValid(t *testing.T) {
	presets := Presets()
	require.NotEmpty(t, presets)

	seen := map[string]bool{}
	for _, p := range presets {
		assert.GreaterOrEqual(t, p.Age, models.MinimumAge, p.Name)
		assert.NoError(t, p.Validate(), p.Name)
		assert.False(t, seen[p.ID], "duplicate preset id %s", p.ID)
		seen[p.ID] = true
	}

	// callers get a copy
	presets[0].Name = "changed"
	assert.NotEqual(t, "changed", Presets()[0].Name)
}

type fakeImageModel struct {
	media  *conversation.Media
	err    error
	prompt string
}

func (f *fakeImageModel) GenerateImage(_ context.Context, prompt string) (*conversation.Media, error) {
	f.prompt = prompt
	return f.media, f.err
}

func TestGenerateAvatar(t *testing.T) {
	images := &fakeImageModel{media: &conversation.Media{Data: []byte{1}, MIMEType: "image/png"}}
	svc := NewAvatarService(images, logger.Discard())

	media, err := svc.GenerateAvatar(context.Background(), "silver hair, blue eyes")
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,AQ==", media.DataURL())
	assert.Contains(t, images.prompt, "Subject details: silver hair, blue eyes.")

	_, err = svc.GenerateAvatar(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrAppearanceRequired)

	images.err = errors.New("safety filter")
	_, err = svc.GenerateAvatar(context.Background(), "silver hair")
	assert.ErrorIs(t, err, ErrAvatarUnavailable)

	images.err = nil
	images.media = nil
	_, err = svc.GenerateAvatar(context.Background(), "silver hair")
	assert.ErrorIs(t, err, ErrAvatarUnavailable)
}

type fakeUserRepo struct {
	users map[string]*models.User
	next  uint
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*models.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, u *models.User) error {
	if err := u.BeforeCreate(nil); err != nil {
		return err
	}
	r.next++
	u.ID = r.next
	r.users[u.Email] = u
	return nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	u, ok := r.users[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uint) (*models.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) TouchLogin(context.Context, *models.User) error { return nil }

func TestUserSignupAndLogin(t *testing.T) {
	tokens, err := jwt.NewService("secret", time.Hour)
	require.NoError(t, err)
	svc := NewUserService(newFakeUserRepo(), tokens)
	ctx := context.Background()

	user, token, err := svc.CreateUser(ctx, &models.CreateUserRequest{Name: "Sam", Email: "Sam@Example.com", Password: "hunter22!"})
	require.NoError(t, err)
	assert.Equal(t, "sam@example.com", user.Email)
	assert.NotEqual(t, "hunter22!", user.Password)

	claims, err := tokens.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	_, _, err = svc.CreateUser(ctx, &models.CreateUserRequest{Name: "Sam", Email: "sam@example.com", Password: "whatever1"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	_, _, err = svc.Login(ctx, &models.LoginRequest{Email: "sam@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, &models.LoginRequest{Email: "nobody@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	loggedIn, _, err := svc.Login(ctx, &models.LoginRequest{Email: "SAM@example.com", Password: "hunter22!"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.False(t, loggedIn.LastLogin.IsZero())

	_, err = svc.GetUserByID(ctx, 99)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
