package store

import (
	"testing"
	"time"

	"roomstyler/pkg/domain"
)

func TestMemoryStoreUserRoundTrip(t *testing.T) {
	m := NewMemoryStore()
	u := domain.User{ID: "u1", Email: "a@example.com", Role: domain.RoleUser}
	if err := m.SaveUser(u); err != nil {
		t.Fatalf("save user: %v", err)
	}
	ok, err := m.HasUserEmail("a@example.com")
	if err != nil || !ok {
		t.Fatalf("HasUserEmail = %v, %v", ok, err)
	}
	got, ok, err := m.GetUserByEmail("a@example.com")
	if err != nil || !ok || got.ID != "u1" {
		t.Fatalf("GetUserByEmail = %+v, %v, %v", got, ok, err)
	}
	if _, ok, _ := m.GetUserByID("missing"); ok {
		t.Fatalf("GetUserByID should miss for unknown id")
	}
	n, _ := m.UserCount()
	if n != 1 {
		t.Fatalf("UserCount = %d, want 1", n)
	}
}

func TestMemoryStoreSessionPagination(t *testing.T) {
	m := NewMemoryStore()
	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		session := domain.DesignSession{
			ID:        string(rune('a' + i)),
			UserID:    "u1",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := m.SaveDesignSession(session); err != nil {
			t.Fatalf("save session: %v", err)
		}
	}
	if err := m.SaveDesignSession(domain.DesignSession{ID: "other", UserID: "u2", CreatedAt: base}); err != nil {
		t.Fatalf("save session: %v", err)
	}

	page, total, err := m.ListDesignSessionsByUser("u1", 0, 2)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if total != 5 {
		t.Fatalf("total = %d, want 5", total)
	}
	if len(page) != 2 {
		t.Fatalf("page size = %d, want 2", len(page))
	}
	// Newest first.
	if page[0].ID != "e" || page[1].ID != "d" {
		t.Fatalf("page order = %s, %s; want e, d", page[0].ID, page[1].ID)
	}

	tail, total, err := m.ListDesignSessionsByUser("u1", 4, 2)
	if err != nil || total != 5 || len(tail) != 1 {
		t.Fatalf("tail page = %d items, total %d, err %v", len(tail), total, err)
	}

	empty, total, err := m.ListDesignSessionsByUser("u1", 10, 2)
	if err != nil || total != 5 || len(empty) != 0 {
		t.Fatalf("past-end page = %d items, total %d, err %v", len(empty), total, err)
	}
}

func TestMemoryStoreCountSessionsSelectingItem(t *testing.T) {
	m := NewMemoryStore()
	_ = m.SaveDesignSession(domain.DesignSession{ID: "s1", UserID: "u1", SelectedFurnitureIDs: []string{"sofa", "lamp"}})
	_ = m.SaveDesignSession(domain.DesignSession{ID: "s2", UserID: "u1", SelectedFurnitureIDs: []string{"sofa", "sofa"}})
	_ = m.SaveDesignSession(domain.DesignSession{ID: "s3", UserID: "u2", SelectedFurnitureIDs: []string{"table"}})

	n, err := m.CountSessionsSelectingItem("sofa")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Fatalf("count = %d, want 2 (a session counts once)", n)
	}
	n, _ = m.CountSessionsSelectingItem("rug")
	if n != 0 {
		t.Fatalf("count = %d, want 0", n)
	}
}

func TestMemoryStoreVisualizationCount(t *testing.T) {
	m := NewMemoryStore()
	_ = m.SaveDesignSession(domain.DesignSession{ID: "s1", UserID: "u1"})
	_ = m.SaveDesignSession(domain.DesignSession{ID: "s2", UserID: "u1", GeneratedImageKey: "visuals/u1/x.png"})
	n, err := m.VisualizationCount()
	if err != nil || n != 1 {
		t.Fatalf("VisualizationCount = %d, %v; want 1", n, err)
	}
}

func TestMemoryStorePlacementsKeepInsertionOrder(t *testing.T) {
	m := NewMemoryStore()
	boxes := []domain.PlacementBox{
		{ID: "p1", GeneratedImageID: "g1", FurnitureItemID: "sofa", Width: 10, Height: 10},
		{ID: "p2", GeneratedImageID: "g1", FurnitureItemID: "lamp", Width: 5, Height: 5},
		{ID: "p3", GeneratedImageID: "g2", FurnitureItemID: "rug", Width: 8, Height: 4},
	}
	if err := m.SavePlacements(boxes); err != nil {
		t.Fatalf("save placements: %v", err)
	}

	got, err := m.ListPlacementsByGeneratedImage("g1")
	if err != nil {
		t.Fatalf("list placements: %v", err)
	}
	if len(got) != 2 || got[0].ID != "p1" || got[1].ID != "p2" {
		t.Fatalf("placements = %+v, want p1, p2 in order", got)
	}

	// Upsert keeps the slot, not a duplicate.
	if err := m.SavePlacement(domain.PlacementBox{ID: "p1", GeneratedImageID: "g1", FurnitureItemID: "sofa", Width: 20, Height: 20}); err != nil {
		t.Fatalf("save placement: %v", err)
	}
	got, _ = m.ListPlacementsByGeneratedImage("g1")
	if len(got) != 2 || got[0].Width != 20 {
		t.Fatalf("upsert placements = %+v, want updated p1 first", got)
	}
}

func TestMemoryStoreFurnitureDelete(t *testing.T) {
	m := NewMemoryStore()
	_ = m.SaveFurnitureItem(domain.FurnitureItem{ID: "f1", Name: "Sofa"})
	_ = m.SaveFurnitureItem(domain.FurnitureItem{ID: "f2", Name: "Lamp"})
	if err := m.DeleteFurnitureItem("f1"); err != nil {
		t.Fatalf("delete item: %v", err)
	}
	items, err := m.ListFurnitureItems()
	if err != nil || len(items) != 1 || items[0].ID != "f2" {
		t.Fatalf("items = %+v, %v; want only f2", items, err)
	}
}
