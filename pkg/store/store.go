package store

import (
	"time"

	"roomstyler/pkg/domain"
)

// Store defines persistence operations over the five core entities.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByID(id string) (domain.User, bool, error)
	UserCount() (int, error)

	// room images
	SaveRoomImage(domain.RoomImage) error
	GetRoomImage(id string) (domain.RoomImage, bool, error)
	ListRoomImagesByOwner(ownerID string) ([]domain.RoomImage, error)
	DeleteRoomImage(id string) error
	RoomImageCount() (int, error)

	// furniture catalog
	SaveFurnitureItem(domain.FurnitureItem) error
	GetFurnitureItem(id string) (domain.FurnitureItem, bool, error)
	ListFurnitureItems() ([]domain.FurnitureItem, error)
	DeleteFurnitureItem(id string) error
	FurnitureItemCount() (int, error)

	// design sessions
	SaveDesignSession(domain.DesignSession) error
	GetDesignSession(id string) (domain.DesignSession, bool, error)
	ListDesignSessionsByUser(userID string, offset, limit int) ([]domain.DesignSession, int, error)
	CountSessionsSelectingItem(itemID string) (int, error)
	DesignSessionCount() (int, error)
	VisualizationCount() (int, error)

	// placement metadata
	SavePlacement(domain.PlacementBox) error
	SavePlacements([]domain.PlacementBox) error
	GetPlacement(id string) (domain.PlacementBox, bool, error)
	ListPlacementsByGeneratedImage(generatedImageID string) ([]domain.PlacementBox, error)
}

// SessionStore persists authentication session tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}

// TokenRevoker tracks revoked tokens until expiry.
type TokenRevoker interface {
	Revoke(token string, ttl time.Duration) error
	IsRevoked(token string) (bool, error)
}
