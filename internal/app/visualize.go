package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"roomstyler/internal/util"
	"roomstyler/pkg/ai"
	"roomstyler/pkg/domain"
	"roomstyler/pkg/storage"
)

const maxGeneratedImageBytes = 20 << 20

// VisualizationRequest is the validated input of the visualization
// workflow. Unlike recommendation ids, every furniture id here must
// resolve against the catalog.
type VisualizationRequest struct {
	RoomImageID      string
	FurnitureItemIDs []string
	SessionID        string
}

// GenerateRoomVisual composes the room photo with the selected catalog
// items into a single generated image stored under a fresh user-scoped
// key. The session upsert is best-effort: its failure is reported in
// the result, not as an error, and the URL is still returned.
func (a *App) GenerateRoomVisual(ctx context.Context, user domain.User, req VisualizationRequest) (domain.VisualizationResult, error) {
	ids := trimNonEmpty(req.FurnitureItemIDs)
	if len(ids) == 0 {
		return domain.VisualizationResult{}, fmt.Errorf("%w: at least one furniture item id required", ErrInvalidArgument)
	}
	img, err := a.ownedRoomImage(user, req.RoomImageID)
	if err != nil {
		return domain.VisualizationResult{}, err
	}

	// Resolve every id before any AI call is made.
	items := make([]domain.FurnitureItem, 0, len(ids))
	for _, id := range ids {
		item, ok, err := a.store.GetFurnitureItem(id)
		if err != nil {
			return domain.VisualizationResult{}, fmt.Errorf("load furniture item: %w", err)
		}
		if !ok {
			return domain.VisualizationResult{}, fmt.Errorf("%w: furniture item %s", ErrNotFound, id)
		}
		items = append(items, item)
	}

	roomURL, err := a.objects.PresignGet(ctx, img.StorageKey, a.presignExpiry)
	if err != nil {
		return domain.VisualizationResult{}, fmt.Errorf("presign room image: %w", err)
	}

	prompt := buildVisualizationPrompt(roomURL, items)
	generatedURL, err := a.ai.GenerateImage(ctx, prompt, ai.ImageOptions{Width: 1024, Height: 1024})
	if err != nil {
		return domain.VisualizationResult{}, fmt.Errorf("%w: %v", ErrVisualizationFailed, err)
	}

	key, err := a.persistGeneratedImage(ctx, user.ID, generatedURL)
	if err != nil {
		return domain.VisualizationResult{}, fmt.Errorf("%w: %v", ErrVisualizationFailed, err)
	}
	url, err := a.objects.PresignGet(ctx, key, a.presignExpiry)
	if err != nil {
		return domain.VisualizationResult{}, fmt.Errorf("%w: presign generated image: %v", ErrVisualizationFailed, err)
	}

	result := domain.VisualizationResult{URL: url}
	sessionID, sessionErr := a.upsertVisualizationSession(user, img.ID, ids, key, req.SessionID)
	if sessionErr != nil {
		util.LoggerFromContext(ctx).Warn("visualization session write failed", "err", sessionErr)
		result.SessionErr = sessionErr
		return result, nil
	}
	result.SessionID = sessionID
	return result, nil
}

// persistGeneratedImage downloads the provider-hosted image and
// re-uploads it under our own key. A partial write is compensated with
// a best-effort delete.
func (a *App) persistGeneratedImage(ctx context.Context, userID, generatedURL string) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, generatedURL, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}
	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("download generated image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("download generated image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxGeneratedImageBytes))
	if err != nil {
		return "", fmt.Errorf("read generated image: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("generated image empty")
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	key := storage.VisualKey(userID)
	if err := a.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		if delErr := a.objects.Delete(ctx, key); delErr != nil {
			util.LoggerFromContext(ctx).Warn("orphan generated image object", "key", key, "err", delErr)
		}
		return "", fmt.Errorf("store generated image: %w", err)
	}
	return key, nil
}

func (a *App) upsertVisualizationSession(user domain.User, roomImageID string, ids []string, key, sessionID string) (string, error) {
	now := time.Now().UTC()
	sessionID = strings.TrimSpace(sessionID)
	if sessionID != "" {
		session, ok, err := a.store.GetDesignSession(sessionID)
		if err != nil {
			return "", fmt.Errorf("load design session: %w", err)
		}
		if ok && session.UserID == user.ID {
			session.SelectedFurnitureIDs = ids
			session.GeneratedImageKey = key
			session.UpdatedAt = now
			if err := a.store.SaveDesignSession(session); err != nil {
				return "", fmt.Errorf("update design session: %w", err)
			}
			return session.ID, nil
		}
		// Unknown or foreign session id: fall through to a fresh row.
	}
	session := domain.DesignSession{
		ID:                   util.NewID(),
		UserID:               user.ID,
		RoomImageID:          roomImageID,
		SelectedFurnitureIDs: ids,
		GeneratedImageKey:    key,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := a.store.SaveDesignSession(session); err != nil {
		return "", fmt.Errorf("create design session: %w", err)
	}
	return session.ID, nil
}

func buildVisualizationPrompt(roomURL string, items []domain.FurnitureItem) string {
	var sb strings.Builder
	sb.WriteString("Compose a photorealistic image of the room shown at ")
	sb.WriteString(roomURL)
	sb.WriteString(" with the following furniture added. Preserve the original room's lighting, colors and style, and place each piece at an appropriate scale and position:\n")
	for i, item := range items {
		fmt.Fprintf(&sb, "%d. %s", i+1, item.Name)
		if strings.TrimSpace(item.Description) != "" {
			fmt.Fprintf(&sb, " - %s", item.Description)
		}
		fmt.Fprintf(&sb, " (price %.2f USD", item.Price)
		if len(item.ImageURLs) > 0 {
			fmt.Fprintf(&sb, ", reference image %s", item.ImageURLs[0])
		}
		sb.WriteString(")\n")
	}
	sb.WriteString("Do not remove existing fixtures. Output a single composite image.")
	return sb.String()
}
