package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"roomstyler/internal/util"
	"roomstyler/pkg/ai"
	"roomstyler/pkg/auth"
	"roomstyler/pkg/domain"
	"roomstyler/pkg/storage"
	"roomstyler/pkg/store"
)

const (
	defaultMaxRecommendations = 5
	defaultPresignExpiry      = time.Hour
	minPasswordLength         = 8
)

// Config holds runtime configuration for the core application.
type Config struct {
	Store              store.Store
	Sessions           store.SessionStore
	AI                 ai.Service
	Objects            storage.ObjectStore
	Environment        string
	MaxRecommendations int
	PresignExpiry      time.Duration
	HTTPClient         *http.Client
}

// App is the core application wiring storage, sessions, the object
// store and the AI provider adapter behind the HTTP layer.
type App struct {
	store              store.Store
	sessions           store.SessionStore
	ai                 ai.Service
	objects            storage.ObjectStore
	environment        string
	maxRecommendations int
	presignExpiry      time.Duration
	httpClient         *http.Client
}

// New constructs the application.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if cfg.AI == nil {
		return nil, fmt.Errorf("ai service required")
	}
	if cfg.Objects == nil {
		return nil, fmt.Errorf("object store required")
	}
	maxRecs := cfg.MaxRecommendations
	if maxRecs <= 0 {
		maxRecs = defaultMaxRecommendations
	}
	presignExpiry := cfg.PresignExpiry
	if presignExpiry <= 0 {
		presignExpiry = defaultPresignExpiry
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	environment := strings.ToLower(strings.TrimSpace(cfg.Environment))
	if environment == "" {
		environment = "development"
	}
	return &App{
		store:              cfg.Store,
		sessions:           cfg.Sessions,
		ai:                 cfg.AI,
		objects:            cfg.Objects,
		environment:        environment,
		maxRecommendations: maxRecs,
		presignExpiry:      presignExpiry,
		httpClient:         httpClient,
	}, nil
}

func (a *App) isProduction() bool {
	return a.environment == "production"
}

// SignUp registers a user and opens a session.
func (a *App) SignUp(email, password, displayName string) (domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.User{}, "", fmt.Errorf("%w: valid email required", ErrInvalidArgument)
	}
	if len(password) < minPasswordLength {
		return domain.User{}, "", fmt.Errorf("%w: password must be at least %d characters", ErrInvalidArgument, minPasswordLength)
	}
	taken, err := a.store.HasUserEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("check email: %w", err)
	}
	if taken {
		return domain.User{}, "", ErrEmailTaken
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:           util.NewID(),
		Email:        email,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: hash,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, "", fmt.Errorf("save user: %w", err)
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("open session: %w", err)
	}
	return user, token, nil
}

// Login validates credentials and opens a session.
func (a *App) Login(email, password string) (domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("load user: %w", err)
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("open session: %w", err)
	}
	return user, token, nil
}

// Logout revokes a session token.
func (a *App) Logout(token string) error {
	return a.sessions.DeleteSession(token)
}

// AuthUser resolves a session token to its user.
func (a *App) AuthUser(token string) (domain.User, bool, error) {
	userID, ok, err := a.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		return domain.User{}, false, err
	}
	user, ok, err := a.store.GetUserByID(userID)
	if err != nil || !ok {
		return domain.User{}, false, err
	}
	return user, true, nil
}

// UploadRoomImage streams an upload into the object store and records it.
// A row-write failure compensates with a best-effort object delete so no
// orphan blob is left behind.
func (a *App) UploadRoomImage(ctx context.Context, user domain.User, filename, contentType string, r io.Reader, size int64) (domain.RoomImage, error) {
	if strings.TrimSpace(filename) == "" {
		return domain.RoomImage{}, fmt.Errorf("%w: filename required", ErrInvalidArgument)
	}
	key := storage.RoomImageKey(user.ID, filename)
	if err := a.objects.Put(ctx, key, r, size, contentType); err != nil {
		return domain.RoomImage{}, fmt.Errorf("store room image: %w", err)
	}
	img := domain.RoomImage{
		ID:               util.NewID(),
		OwnerID:          user.ID,
		OriginalFilename: filename,
		StorageKey:       key,
		ContentType:      contentType,
		SizeBytes:        size,
		CreatedAt:        time.Now().UTC(),
	}
	if err := a.store.SaveRoomImage(img); err != nil {
		if delErr := a.objects.Delete(ctx, key); delErr != nil {
			util.LoggerFromContext(ctx).Warn("orphan room image object", "key", key, "err", delErr)
		}
		return domain.RoomImage{}, fmt.Errorf("save room image: %w", err)
	}
	return img, nil
}

// ListRoomImages returns the caller's uploads.
func (a *App) ListRoomImages(user domain.User) ([]domain.RoomImage, error) {
	return a.store.ListRoomImagesByOwner(user.ID)
}

// DeleteRoomImage removes an upload the caller owns. The object delete
// is best-effort once the row is gone.
func (a *App) DeleteRoomImage(ctx context.Context, user domain.User, id string) error {
	img, err := a.ownedRoomImage(user, id)
	if err != nil {
		return err
	}
	if err := a.store.DeleteRoomImage(id); err != nil {
		return fmt.Errorf("delete room image: %w", err)
	}
	if err := a.objects.Delete(ctx, img.StorageKey); err != nil {
		util.LoggerFromContext(ctx).Warn("room image object delete failed", "key", img.StorageKey, "err", err)
	}
	return nil
}

// History returns a page of the caller's design sessions, newest first,
// with presigned URLs for generated images.
func (a *App) History(ctx context.Context, user domain.User, page, pageSize int) ([]domain.DesignSession, int, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	items, total, err := a.store.ListDesignSessionsByUser(user.ID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list design sessions: %w", err)
	}
	for i := range items {
		if items[i].GeneratedImageKey == "" {
			continue
		}
		url, err := a.objects.PresignGet(ctx, items[i].GeneratedImageKey, a.presignExpiry)
		if err != nil {
			util.LoggerFromContext(ctx).Warn("presign generated image failed", "session_id", items[i].ID, "err", err)
			continue
		}
		items[i].GeneratedImageURL = url
	}
	return items, total, nil
}

// Stats returns the aggregate counts for the admin dashboard.
func (a *App) Stats() (domain.Stats, error) {
	users, err := a.store.UserCount()
	if err != nil {
		return domain.Stats{}, fmt.Errorf("count users: %w", err)
	}
	items, err := a.store.FurnitureItemCount()
	if err != nil {
		return domain.Stats{}, fmt.Errorf("count furniture: %w", err)
	}
	images, err := a.store.RoomImageCount()
	if err != nil {
		return domain.Stats{}, fmt.Errorf("count room images: %w", err)
	}
	sessions, err := a.store.DesignSessionCount()
	if err != nil {
		return domain.Stats{}, fmt.Errorf("count design sessions: %w", err)
	}
	visuals, err := a.store.VisualizationCount()
	if err != nil {
		return domain.Stats{}, fmt.Errorf("count visualizations: %w", err)
	}
	return domain.Stats{
		Users:          users,
		FurnitureItems: items,
		RoomImages:     images,
		DesignSessions: sessions,
		Visualizations: visuals,
	}, nil
}

// ownedRoomImage loads a room image and enforces ownership. Admins may
// not bypass this: design flows always act on the caller's own room.
func (a *App) ownedRoomImage(user domain.User, id string) (domain.RoomImage, error) {
	img, ok, err := a.store.GetRoomImage(id)
	if err != nil {
		return domain.RoomImage{}, fmt.Errorf("load room image: %w", err)
	}
	if !ok {
		return domain.RoomImage{}, fmt.Errorf("%w: room image", ErrNotFound)
	}
	if img.OwnerID != user.ID {
		return domain.RoomImage{}, ErrForbidden
	}
	return img, nil
}
