package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	DisplayName  string
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

type RoomImageModel struct {
	ID               string `gorm:"primaryKey"`
	OwnerID          string `gorm:"not null;index"`
	OriginalFilename string `gorm:"not null"`
	StorageKey       string `gorm:"not null"`
	ContentType      string
	SizeBytes        int64     `gorm:"not null"`
	CreatedAt        time.Time `gorm:"not null"`
}

type FurnitureItemModel struct {
	ID          string `gorm:"primaryKey"`
	Name        string `gorm:"not null"`
	Description string `gorm:"type:text"`
	Price       float64
	WidthCM     float64
	HeightCM    float64
	DepthCM     float64
	Material    string
	Tags        datatypes.JSON `gorm:"type:jsonb"`
	ImageURLs   datatypes.JSON `gorm:"type:jsonb"`
	InStock     bool
	Category    string `gorm:"index"`
	PurchaseURL string
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time
}

type DesignSessionModel struct {
	ID                   string         `gorm:"primaryKey"`
	UserID               string         `gorm:"not null;index"`
	RoomImageID          string         `gorm:"not null;index"`
	SelectedFurnitureIDs datatypes.JSON `gorm:"type:jsonb"`
	GeneratedImageKey    string
	Preferences          datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt            time.Time      `gorm:"not null;index"`
	UpdatedAt            time.Time
}

type PlacementBoxModel struct {
	ID               string `gorm:"primaryKey"`
	GeneratedImageID string `gorm:"not null;index"`
	FurnitureItemID  string `gorm:"not null"`
	X                float64
	Y                float64
	Width            float64   `gorm:"not null"`
	Height           float64   `gorm:"not null"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time
}
