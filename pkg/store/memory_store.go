package store

import (
	"sort"
	"sync"

	"roomstyler/pkg/domain"
)

// MemoryStore keeps everything in-process. It backs tests and local
// development without Postgres.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]domain.User
	email      map[string]string // email -> user ID
	images     map[string]domain.RoomImage
	items      map[string]domain.FurnitureItem
	itemOrder  []string
	sessions   map[string]domain.DesignSession
	placements map[string]domain.PlacementBox
	placeOrder []string
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]domain.User),
		email:      make(map[string]string),
		images:     make(map[string]domain.RoomImage),
		items:      make(map[string]domain.FurnitureItem),
		sessions:   make(map[string]domain.DesignSession),
		placements: make(map[string]domain.PlacementBox),
	}
}

// SaveUser registers or replaces a user.
func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

// HasUserEmail checks if email exists.
func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.email[email]
	return ok, nil
}

// GetUserByEmail looks up a user by email.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.email[email]; ok {
		u, exists := m.users[id]
		return u, exists, nil
	}
	return domain.User{}, false, nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// UserCount returns number of users.
func (m *MemoryStore) UserCount() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

// SaveRoomImage stores an upload record.
func (m *MemoryStore) SaveRoomImage(img domain.RoomImage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images[img.ID] = img
	return nil
}

// GetRoomImage retrieves a room image.
func (m *MemoryStore) GetRoomImage(id string) (domain.RoomImage, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	img, ok := m.images[id]
	return img, ok, nil
}

// ListRoomImagesByOwner returns a user's uploads, newest first.
func (m *MemoryStore) ListRoomImagesByOwner(ownerID string) ([]domain.RoomImage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.RoomImage, 0)
	for _, img := range m.images {
		if img.OwnerID == ownerID {
			res = append(res, img)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

// DeleteRoomImage removes an upload record.
func (m *MemoryStore) DeleteRoomImage(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.images, id)
	return nil
}

// RoomImageCount returns number of uploads.
func (m *MemoryStore) RoomImageCount() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.images), nil
}

// SaveFurnitureItem stores or replaces a catalog entry.
func (m *MemoryStore) SaveFurnitureItem(item domain.FurnitureItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.items[item.ID]; !exists {
		m.itemOrder = append(m.itemOrder, item.ID)
	}
	m.items[item.ID] = item
	return nil
}

// GetFurnitureItem retrieves one catalog entry.
func (m *MemoryStore) GetFurnitureItem(id string) (domain.FurnitureItem, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	return item, ok, nil
}

// ListFurnitureItems returns the catalog in insertion order.
func (m *MemoryStore) ListFurnitureItems() ([]domain.FurnitureItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.FurnitureItem, 0, len(m.itemOrder))
	for _, id := range m.itemOrder {
		if item, ok := m.items[id]; ok {
			res = append(res, item)
		}
	}
	return res, nil
}

// DeleteFurnitureItem removes a catalog entry.
func (m *MemoryStore) DeleteFurnitureItem(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	filtered := m.itemOrder[:0]
	for _, itemID := range m.itemOrder {
		if itemID != id {
			filtered = append(filtered, itemID)
		}
	}
	m.itemOrder = filtered
	return nil
}

// FurnitureItemCount returns number of catalog entries.
func (m *MemoryStore) FurnitureItemCount() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items), nil
}

// SaveDesignSession stores or replaces a design session.
func (m *MemoryStore) SaveDesignSession(session domain.DesignSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session
	return nil
}

// GetDesignSession retrieves one design session.
func (m *MemoryStore) GetDesignSession(id string) (domain.DesignSession, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	return session, ok, nil
}

// ListDesignSessionsByUser returns a page of sessions, newest first.
func (m *MemoryStore) ListDesignSessionsByUser(userID string, offset, limit int) ([]domain.DesignSession, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]domain.DesignSession, 0)
	for _, session := range m.sessions {
		if session.UserID == userID {
			all = append(all, session)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	if offset >= total {
		return []domain.DesignSession{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// CountSessionsSelectingItem counts sessions referencing the item.
func (m *MemoryStore) CountSessionsSelectingItem(itemID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, session := range m.sessions {
		for _, id := range session.SelectedFurnitureIDs {
			if id == itemID {
				count++
				break
			}
		}
	}
	return count, nil
}

// DesignSessionCount returns number of design sessions.
func (m *MemoryStore) DesignSessionCount() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions), nil
}

// VisualizationCount returns sessions carrying a generated image.
func (m *MemoryStore) VisualizationCount() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, session := range m.sessions {
		if session.GeneratedImageKey != "" {
			count++
		}
	}
	return count, nil
}

// SavePlacement stores or replaces one bounding box.
func (m *MemoryStore) SavePlacement(box domain.PlacementBox) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.savePlacementLocked(box)
	return nil
}

// SavePlacements stores a batch of bounding boxes.
func (m *MemoryStore) SavePlacements(boxes []domain.PlacementBox) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, box := range boxes {
		m.savePlacementLocked(box)
	}
	return nil
}

func (m *MemoryStore) savePlacementLocked(box domain.PlacementBox) {
	if _, exists := m.placements[box.ID]; !exists {
		m.placeOrder = append(m.placeOrder, box.ID)
	}
	m.placements[box.ID] = box
}

// GetPlacement retrieves one bounding box.
func (m *MemoryStore) GetPlacement(id string) (domain.PlacementBox, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	box, ok := m.placements[id]
	return box, ok, nil
}

// ListPlacementsByGeneratedImage returns boxes in insertion order.
func (m *MemoryStore) ListPlacementsByGeneratedImage(generatedImageID string) ([]domain.PlacementBox, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.PlacementBox, 0)
	for _, id := range m.placeOrder {
		if box, ok := m.placements[id]; ok && box.GeneratedImageID == generatedImageID {
			res = append(res, box)
		}
	}
	return res, nil
}
