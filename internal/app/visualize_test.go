package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"roomstyler/pkg/domain"
)

func newImageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("pngbytes"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func seedCatalog(t *testing.T, env *testEnv, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if err := env.store.SaveFurnitureItem(domain.FurnitureItem{ID: id, Name: id, Price: 100}); err != nil {
			t.Fatalf("seed item %s: %v", id, err)
		}
	}
}

func TestGenerateRoomVisualStoresImageAndSession(t *testing.T) {
	env := newTestEnv(t, "development")
	user := env.mustSignUp(t, "a@example.com")
	img := env.mustUploadRoomImage(t, user)
	seedCatalog(t, env, "sofa", "lamp")
	env.ai.generateURL = newImageServer(t).URL + "/gen.png"

	result, err := env.app.GenerateRoomVisual(context.Background(), user, VisualizationRequest{
		RoomImageID:      img.ID,
		FurnitureItemIDs: []string{"sofa", "lamp"},
	})
	if err != nil {
		t.Fatalf("generate visual: %v", err)
	}
	if result.SessionErr != nil {
		t.Fatalf("session err = %v, want nil", result.SessionErr)
	}
	if result.SessionID == "" {
		t.Fatalf("expected a session id")
	}
	if !strings.Contains(result.URL, "visuals/"+user.ID+"/") {
		t.Fatalf("url = %q, want presigned user-scoped visuals key", result.URL)
	}

	session, ok, err := env.store.GetDesignSession(result.SessionID)
	if err != nil || !ok {
		t.Fatalf("session not saved: %v", err)
	}
	if session.GeneratedImageKey == "" {
		t.Fatalf("session missing generated image key")
	}
	if len(session.SelectedFurnitureIDs) != 2 {
		t.Fatalf("selected ids = %v", session.SelectedFurnitureIDs)
	}
	if _, ok := env.objects.objects[session.GeneratedImageKey]; !ok {
		t.Fatalf("generated image not re-uploaded to object store")
	}
}

func TestGenerateRoomVisualFailsBeforeAICallOnUnknownItem(t *testing.T) {
	env := newTestEnv(t, "development")
	user := env.mustSignUp(t, "a@example.com")
	img := env.mustUploadRoomImage(t, user)
	seedCatalog(t, env, "sofa")

	_, err := env.app.GenerateRoomVisual(context.Background(), user, VisualizationRequest{
		RoomImageID:      img.ID,
		FurnitureItemIDs: []string{"sofa", "ghost"},
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown item error = %v, want ErrNotFound", err)
	}
	if env.ai.generateCalls != 0 {
		t.Fatalf("AI called %d times before id resolution failed, want 0", env.ai.generateCalls)
	}
}

func TestGenerateRoomVisualValidatesInput(t *testing.T) {
	env := newTestEnv(t, "development")
	user := env.mustSignUp(t, "a@example.com")
	img := env.mustUploadRoomImage(t, user)

	_, err := env.app.GenerateRoomVisual(context.Background(), user, VisualizationRequest{
		RoomImageID:      img.ID,
		FurnitureItemIDs: []string{" ", ""},
	})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("empty ids error = %v, want ErrInvalidArgument", err)
	}
}

func TestGenerateRoomVisualEnforcesImageOwnership(t *testing.T) {
	env := newTestEnv(t, "development")
	owner := env.mustSignUp(t, "owner@example.com")
	other := env.mustSignUp(t, "other@example.com")
	img := env.mustUploadRoomImage(t, owner)
	seedCatalog(t, env, "sofa")

	_, err := env.app.GenerateRoomVisual(context.Background(), other, VisualizationRequest{
		RoomImageID:      img.ID,
		FurnitureItemIDs: []string{"sofa"},
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign image error = %v, want ErrForbidden", err)
	}
}

func TestGenerateRoomVisualProviderFailure(t *testing.T) {
	env := newTestEnv(t, "development")
	user := env.mustSignUp(t, "a@example.com")
	img := env.mustUploadRoomImage(t, user)
	seedCatalog(t, env, "sofa")
	env.ai.generateErr = errors.New("image generation not supported")

	_, err := env.app.GenerateRoomVisual(context.Background(), user, VisualizationRequest{
		RoomImageID:      img.ID,
		FurnitureItemIDs: []string{"sofa"},
	})
	if !errors.Is(err, ErrVisualizationFailed) {
		t.Fatalf("provider failure error = %v, want ErrVisualizationFailed", err)
	}
	if n, _ := env.store.VisualizationCount(); n != 0 {
		t.Fatalf("no visualization should be recorded, got %d", n)
	}
}

func TestGenerateRoomVisualUpdatesOwnSession(t *testing.T) {
	env := newTestEnv(t, "development")
	user := env.mustSignUp(t, "a@example.com")
	img := env.mustUploadRoomImage(t, user)
	seedCatalog(t, env, "sofa", "lamp")
	env.ai.generateURL = newImageServer(t).URL + "/gen.png"

	first, err := env.app.GenerateRoomVisual(context.Background(), user, VisualizationRequest{
		RoomImageID:      img.ID,
		FurnitureItemIDs: []string{"sofa"},
	})
	if err != nil {
		t.Fatalf("first visual: %v", err)
	}

	second, err := env.app.GenerateRoomVisual(context.Background(), user, VisualizationRequest{
		RoomImageID:      img.ID,
		FurnitureItemIDs: []string{"sofa", "lamp"},
		SessionID:        first.SessionID,
	})
	if err != nil {
		t.Fatalf("second visual: %v", err)
	}
	if second.SessionID != first.SessionID {
		t.Fatalf("session id changed: %q -> %q", first.SessionID, second.SessionID)
	}
	session, _, _ := env.store.GetDesignSession(second.SessionID)
	if len(session.SelectedFurnitureIDs) != 2 {
		t.Fatalf("session selections = %v, want updated pair", session.SelectedFurnitureIDs)
	}
	if n, _ := env.store.DesignSessionCount(); n != 1 {
		t.Fatalf("session count = %d, want 1", n)
	}
}

func TestGenerateRoomVisualForeignSessionIDCreatesFreshRow(t *testing.T) {
	env := newTestEnv(t, "development")
	owner := env.mustSignUp(t, "owner@example.com")
	other := env.mustSignUp(t, "other@example.com")
	ownerImg := env.mustUploadRoomImage(t, owner)
	otherImg := env.mustUploadRoomImage(t, other)
	seedCatalog(t, env, "sofa")
	env.ai.generateURL = newImageServer(t).URL + "/gen.png"

	ownerResult, err := env.app.GenerateRoomVisual(context.Background(), owner, VisualizationRequest{
		RoomImageID:      ownerImg.ID,
		FurnitureItemIDs: []string{"sofa"},
	})
	if err != nil {
		t.Fatalf("owner visual: %v", err)
	}

	otherResult, err := env.app.GenerateRoomVisual(context.Background(), other, VisualizationRequest{
		RoomImageID:      otherImg.ID,
		FurnitureItemIDs: []string{"sofa"},
		SessionID:        ownerResult.SessionID,
	})
	if err != nil {
		t.Fatalf("other visual: %v", err)
	}
	if otherResult.SessionID == ownerResult.SessionID {
		t.Fatalf("a foreign session id must not be hijacked")
	}
	ownerSession, _, _ := env.store.GetDesignSession(ownerResult.SessionID)
	if ownerSession.UserID != owner.ID {
		t.Fatalf("owner session reassigned to %q", ownerSession.UserID)
	}
}
