package app

import (
	"fmt"
	"strings"
	"time"

	"roomstyler/internal/util"
	"roomstyler/pkg/domain"
)

// FurnitureInput carries the admin-supplied fields of a catalog entry.
type FurnitureInput struct {
	Name        string
	Description string
	Price       float64
	Dimensions  domain.Dimensions
	Material    string
	Tags        []string
	ImageURLs   []string
	InStock     bool
	Category    string
	PurchaseURL string
}

func (in FurnitureInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name required", ErrInvalidArgument)
	}
	if in.Price < 0 {
		return fmt.Errorf("%w: price must be non-negative", ErrInvalidArgument)
	}
	return nil
}

// ListCatalog returns the whole catalog.
func (a *App) ListCatalog() ([]domain.FurnitureItem, error) {
	return a.store.ListFurnitureItems()
}

// CreateFurnitureItem adds a catalog entry. Admin gating happens at the
// HTTP layer.
func (a *App) CreateFurnitureItem(in FurnitureInput) (domain.FurnitureItem, error) {
	if err := in.validate(); err != nil {
		return domain.FurnitureItem{}, err
	}
	now := time.Now().UTC()
	item := domain.FurnitureItem{
		ID:          util.NewID(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Dimensions:  in.Dimensions,
		Material:    in.Material,
		Tags:        trimNonEmpty(in.Tags),
		ImageURLs:   trimNonEmpty(in.ImageURLs),
		InStock:     in.InStock,
		Category:    strings.TrimSpace(in.Category),
		PurchaseURL: in.PurchaseURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.store.SaveFurnitureItem(item); err != nil {
		return domain.FurnitureItem{}, fmt.Errorf("save furniture item: %w", err)
	}
	return item, nil
}

// UpdateFurnitureItem replaces the mutable fields of a catalog entry.
func (a *App) UpdateFurnitureItem(id string, in FurnitureInput) (domain.FurnitureItem, error) {
	if err := in.validate(); err != nil {
		return domain.FurnitureItem{}, err
	}
	item, ok, err := a.store.GetFurnitureItem(id)
	if err != nil {
		return domain.FurnitureItem{}, fmt.Errorf("load furniture item: %w", err)
	}
	if !ok {
		return domain.FurnitureItem{}, fmt.Errorf("%w: furniture item", ErrNotFound)
	}
	item.Name = strings.TrimSpace(in.Name)
	item.Description = in.Description
	item.Price = in.Price
	item.Dimensions = in.Dimensions
	item.Material = in.Material
	item.Tags = trimNonEmpty(in.Tags)
	item.ImageURLs = trimNonEmpty(in.ImageURLs)
	item.InStock = in.InStock
	item.Category = strings.TrimSpace(in.Category)
	item.PurchaseURL = in.PurchaseURL
	item.UpdatedAt = time.Now().UTC()
	if err := a.store.SaveFurnitureItem(item); err != nil {
		return domain.FurnitureItem{}, fmt.Errorf("save furniture item: %w", err)
	}
	return item, nil
}

// DeleteFurnitureItem removes a catalog entry unless a design session
// still references it. The guard lives here, not only in the database.
func (a *App) DeleteFurnitureItem(id string) error {
	_, ok, err := a.store.GetFurnitureItem(id)
	if err != nil {
		return fmt.Errorf("load furniture item: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: furniture item", ErrNotFound)
	}
	refs, err := a.store.CountSessionsSelectingItem(id)
	if err != nil {
		return fmt.Errorf("count item references: %w", err)
	}
	if refs > 0 {
		return ErrItemReferenced
	}
	if err := a.store.DeleteFurnitureItem(id); err != nil {
		return fmt.Errorf("delete furniture item: %w", err)
	}
	return nil
}
