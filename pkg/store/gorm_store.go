package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"roomstyler/pkg/domain"
)

const migrateLockID int64 = 52815281

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations under an advisory lock.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&UserModel{},
			&RoomImageModel{},
			&FurnitureItemModel{},
			&DesignSessionModel{},
			&PlacementBoxModel{},
		); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "display_name", "password_hash", "role", "updated_at"}),
	}).Create(&model).Error
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// UserCount returns number of users.
func (s *GormStore) UserCount() (int, error) {
	return s.count(&UserModel{})
}

// SaveRoomImage stores an uploaded room photo record.
func (s *GormStore) SaveRoomImage(img domain.RoomImage) error {
	model := roomImageToModel(img)
	return s.db.Create(&model).Error
}

// GetRoomImage retrieves a room image by ID.
func (s *GormStore) GetRoomImage(id string) (domain.RoomImage, bool, error) {
	var model RoomImageModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.RoomImage{}, false, nil
		}
		return domain.RoomImage{}, false, err
	}
	return roomImageFromModel(model), true, nil
}

// ListRoomImagesByOwner returns a user's uploads, newest first.
func (s *GormStore) ListRoomImagesByOwner(ownerID string) ([]domain.RoomImage, error) {
	var models []RoomImageModel
	if err := s.db.Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.RoomImage, 0, len(models))
	for _, m := range models {
		res = append(res, roomImageFromModel(m))
	}
	return res, nil
}

// DeleteRoomImage removes the row. Object cleanup happens at the caller.
func (s *GormStore) DeleteRoomImage(id string) error {
	return s.db.Delete(&RoomImageModel{}, "id = ?", id).Error
}

// RoomImageCount returns number of uploaded room photos.
func (s *GormStore) RoomImageCount() (int, error) {
	return s.count(&RoomImageModel{})
}

// SaveFurnitureItem stores or updates a catalog entry.
func (s *GormStore) SaveFurnitureItem(item domain.FurnitureItem) error {
	model := furnitureToModel(item)
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "description", "price", "width_cm", "height_cm", "depth_cm",
			"material", "tags", "image_urls", "in_stock", "category", "purchase_url", "updated_at",
		}),
	}).Create(&model).Error
}

// GetFurnitureItem retrieves one catalog entry.
func (s *GormStore) GetFurnitureItem(id string) (domain.FurnitureItem, bool, error) {
	var model FurnitureItemModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.FurnitureItem{}, false, nil
		}
		return domain.FurnitureItem{}, false, err
	}
	return furnitureFromModel(model), true, nil
}

// ListFurnitureItems returns the whole catalog ordered by creation.
func (s *GormStore) ListFurnitureItems() ([]domain.FurnitureItem, error) {
	var models []FurnitureItemModel
	if err := s.db.Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.FurnitureItem, 0, len(models))
	for _, m := range models {
		res = append(res, furnitureFromModel(m))
	}
	return res, nil
}

// DeleteFurnitureItem removes a catalog entry. Referential checks are
// the application layer's responsibility.
func (s *GormStore) DeleteFurnitureItem(id string) error {
	return s.db.Delete(&FurnitureItemModel{}, "id = ?", id).Error
}

// FurnitureItemCount returns number of catalog entries.
func (s *GormStore) FurnitureItemCount() (int, error) {
	return s.count(&FurnitureItemModel{})
}

// SaveDesignSession stores or updates a design session (upsert on id).
func (s *GormStore) SaveDesignSession(session domain.DesignSession) error {
	model := sessionToModel(session)
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"selected_furniture_ids", "generated_image_key", "preferences", "updated_at",
		}),
	}).Create(&model).Error
}

// GetDesignSession retrieves one design session.
func (s *GormStore) GetDesignSession(id string) (domain.DesignSession, bool, error) {
	var model DesignSessionModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.DesignSession{}, false, nil
		}
		return domain.DesignSession{}, false, err
	}
	return sessionFromModel(model), true, nil
}

// ListDesignSessionsByUser returns a page of a user's sessions, newest
// first, plus the total count for pagination.
func (s *GormStore) ListDesignSessionsByUser(userID string, offset, limit int) ([]domain.DesignSession, int, error) {
	var total int64
	if err := s.db.Model(&DesignSessionModel{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var models []DesignSessionModel
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}
	res := make([]domain.DesignSession, 0, len(models))
	for _, m := range models {
		res = append(res, sessionFromModel(m))
	}
	return res, int(total), nil
}

// CountSessionsSelectingItem counts sessions whose selected ids contain
// the given item, via JSONB containment.
func (s *GormStore) CountSessionsSelectingItem(itemID string) (int, error) {
	needle, err := json.Marshal([]string{itemID})
	if err != nil {
		return 0, err
	}
	var count int64
	if err := s.db.Model(&DesignSessionModel{}).
		Where("selected_furniture_ids @> ?", datatypes.JSON(needle)).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// DesignSessionCount returns number of design sessions.
func (s *GormStore) DesignSessionCount() (int, error) {
	return s.count(&DesignSessionModel{})
}

// VisualizationCount returns sessions carrying a generated image.
func (s *GormStore) VisualizationCount() (int, error) {
	var count int64
	if err := s.db.Model(&DesignSessionModel{}).
		Where("generated_image_key <> ''").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// SavePlacement stores or updates one bounding box (upsert on id).
func (s *GormStore) SavePlacement(box domain.PlacementBox) error {
	model := placementToModel(box)
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"furniture_item_id", "x", "y", "width", "height", "updated_at",
		}),
	}).Create(&model).Error
}

// SavePlacements stores a batch of bounding boxes in one transaction.
func (s *GormStore) SavePlacements(boxes []domain.PlacementBox) error {
	if len(boxes) == 0 {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, box := range boxes {
			model := placementToModel(box)
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"furniture_item_id", "x", "y", "width", "height", "updated_at",
				}),
			}).Create(&model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GetPlacement retrieves one bounding box.
func (s *GormStore) GetPlacement(id string) (domain.PlacementBox, bool, error) {
	var model PlacementBoxModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.PlacementBox{}, false, nil
		}
		return domain.PlacementBox{}, false, err
	}
	return placementFromModel(model), true, nil
}

// ListPlacementsByGeneratedImage returns boxes for a generated image.
func (s *GormStore) ListPlacementsByGeneratedImage(generatedImageID string) ([]domain.PlacementBox, error) {
	var models []PlacementBoxModel
	if err := s.db.Where("generated_image_id = ?", generatedImageID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.PlacementBox, 0, len(models))
	for _, m := range models {
		res = append(res, placementFromModel(m))
	}
	return res, nil
}

func (s *GormStore) count(model any) (int, error) {
	var count int64
	if err := s.db.Model(model).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Email:        u.Email,
		DisplayName:  u.DisplayName,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	role := domain.UserRole(m.Role)
	if role == "" {
		role = domain.RoleUser
	}
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		DisplayName:  m.DisplayName,
		PasswordHash: m.PasswordHash,
		Role:         role,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func roomImageToModel(img domain.RoomImage) RoomImageModel {
	return RoomImageModel{
		ID:               img.ID,
		OwnerID:          img.OwnerID,
		OriginalFilename: img.OriginalFilename,
		StorageKey:       img.StorageKey,
		ContentType:      img.ContentType,
		SizeBytes:        img.SizeBytes,
		CreatedAt:        img.CreatedAt,
	}
}

func roomImageFromModel(m RoomImageModel) domain.RoomImage {
	return domain.RoomImage{
		ID:               m.ID,
		OwnerID:          m.OwnerID,
		OriginalFilename: m.OriginalFilename,
		StorageKey:       m.StorageKey,
		ContentType:      m.ContentType,
		SizeBytes:        m.SizeBytes,
		CreatedAt:        m.CreatedAt,
	}
}

func furnitureToModel(item domain.FurnitureItem) FurnitureItemModel {
	tags, _ := json.Marshal(item.Tags)
	urls, _ := json.Marshal(item.ImageURLs)
	return FurnitureItemModel{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Price:       item.Price,
		WidthCM:     item.Dimensions.Width,
		HeightCM:    item.Dimensions.Height,
		DepthCM:     item.Dimensions.Depth,
		Material:    item.Material,
		Tags:        tags,
		ImageURLs:   urls,
		InStock:     item.InStock,
		Category:    item.Category,
		PurchaseURL: item.PurchaseURL,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
}

func furnitureFromModel(m FurnitureItemModel) domain.FurnitureItem {
	var tags, urls []string
	if len(m.Tags) > 0 {
		_ = json.Unmarshal(m.Tags, &tags)
	}
	if len(m.ImageURLs) > 0 {
		_ = json.Unmarshal(m.ImageURLs, &urls)
	}
	return domain.FurnitureItem{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Price:       m.Price,
		Dimensions: domain.Dimensions{
			Width:  m.WidthCM,
			Height: m.HeightCM,
			Depth:  m.DepthCM,
		},
		Material:    m.Material,
		Tags:        tags,
		ImageURLs:   urls,
		InStock:     m.InStock,
		Category:    m.Category,
		PurchaseURL: m.PurchaseURL,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func sessionToModel(session domain.DesignSession) DesignSessionModel {
	selected := session.SelectedFurnitureIDs
	if selected == nil {
		selected = []string{}
	}
	selectedRaw, _ := json.Marshal(selected)
	prefsRaw, _ := json.Marshal(session.Preferences)
	return DesignSessionModel{
		ID:                   session.ID,
		UserID:               session.UserID,
		RoomImageID:          session.RoomImageID,
		SelectedFurnitureIDs: selectedRaw,
		GeneratedImageKey:    session.GeneratedImageKey,
		Preferences:          prefsRaw,
		CreatedAt:            session.CreatedAt,
		UpdatedAt:            session.UpdatedAt,
	}
}

func sessionFromModel(m DesignSessionModel) domain.DesignSession {
	var selected []string
	if len(m.SelectedFurnitureIDs) > 0 {
		_ = json.Unmarshal(m.SelectedFurnitureIDs, &selected)
	}
	var prefs domain.Preferences
	if len(m.Preferences) > 0 {
		_ = json.Unmarshal(m.Preferences, &prefs)
	}
	return domain.DesignSession{
		ID:                   m.ID,
		UserID:               m.UserID,
		RoomImageID:          m.RoomImageID,
		SelectedFurnitureIDs: selected,
		GeneratedImageKey:    m.GeneratedImageKey,
		Preferences:          prefs,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

func placementToModel(box domain.PlacementBox) PlacementBoxModel {
	return PlacementBoxModel{
		ID:               box.ID,
		GeneratedImageID: box.GeneratedImageID,
		FurnitureItemID:  box.FurnitureItemID,
		X:                box.X,
		Y:                box.Y,
		Width:            box.Width,
		Height:           box.Height,
		CreatedAt:        box.CreatedAt,
		UpdatedAt:        box.UpdatedAt,
	}
}

func placementFromModel(m PlacementBoxModel) domain.PlacementBox {
	return domain.PlacementBox{
		ID:               m.ID,
		GeneratedImageID: m.GeneratedImageID,
		FurnitureItemID:  m.FurnitureItemID,
		X:                m.X,
		Y:                m.Y,
		Width:            m.Width,
		Height:           m.Height,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}
