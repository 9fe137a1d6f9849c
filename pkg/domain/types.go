package domain

import "time"

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	PasswordHash string    `json:"-"`
	Role         UserRole  `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// RoomImage is an uploaded room photo. Rows are immutable after upload.
type RoomImage struct {
	ID               string    `json:"id"`
	OwnerID          string    `json:"ownerId"`
	OriginalFilename string    `json:"originalFilename"`
	StorageKey       string    `json:"-"`
	ContentType      string    `json:"contentType"`
	SizeBytes        int64     `json:"sizeBytes"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Dimensions are centimeters.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Depth  float64 `json:"depth"`
}

type FurnitureItem struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Price       float64    `json:"price"`
	Dimensions  Dimensions `json:"dimensions"`
	Material    string     `json:"material"`
	Tags        []string   `json:"tags"`
	ImageURLs   []string   `json:"imageUrls"`
	InStock     bool       `json:"inStock"`
	Category    string     `json:"category"`
	PurchaseURL string     `json:"purchaseUrl"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Preferences is the free-form payload captured when recommendations
// are first requested.
type Preferences struct {
	Budget         float64  `json:"budget"`
	Style          string   `json:"style,omitempty"`
	FurnitureTypes []string `json:"furnitureTypes"`
}

// DesignSession records one user's room image, preferences and the
// optional generated visualization. Not an authentication session.
type DesignSession struct {
	ID                   string      `json:"id"`
	UserID               string      `json:"userId"`
	RoomImageID          string      `json:"roomImageId"`
	SelectedFurnitureIDs []string    `json:"selectedFurnitureIds"`
	GeneratedImageKey    string      `json:"-"`
	GeneratedImageURL    string      `json:"generatedImageUrl,omitempty"`
	Preferences          Preferences `json:"preferences"`
	CreatedAt            time.Time   `json:"createdAt"`
	UpdatedAt            time.Time   `json:"updatedAt"`
}

// Recommendation is one AI-suggested item. IDs are opaque model output
// and are not guaranteed to resolve against the catalog.
type Recommendation struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Price        float64 `json:"price"`
	ImageURL     string  `json:"image_url"`
	PurchaseLink string  `json:"purchase_link"`
	Reason       string  `json:"reason"`
	Confidence   float64 `json:"confidence,omitempty"`
}

// PlacementBox locates a furniture item inside a generated image.
// Width and height are strictly positive.
type PlacementBox struct {
	ID               string    `json:"id"`
	GeneratedImageID string    `json:"generatedImageId"`
	FurnitureItemID  string    `json:"furnitureItemId"`
	X                float64   `json:"x"`
	Y                float64   `json:"y"`
	Width            float64   `json:"width"`
	Height           float64   `json:"height"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// VisualizationResult is the two-phase outcome of the visualization
// workflow: the image URL is primary, the session write is best-effort
// and its failure is observable here rather than swallowed.
type VisualizationResult struct {
	URL        string
	SessionID  string
	SessionErr error
}

// Stats are the aggregate counts shown on the admin dashboard.
type Stats struct {
	Users          int `json:"users"`
	FurnitureItems int `json:"furnitureItems"`
	RoomImages     int `json:"roomImages"`
	DesignSessions int `json:"designSessions"`
	Visualizations int `json:"visualizations"`
}
