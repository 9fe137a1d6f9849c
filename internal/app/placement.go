package app

import (
	"fmt"
	"strings"
	"time"

	"roomstyler/internal/util"
	"roomstyler/pkg/domain"
)

// PlacementInput carries one bounding box for a generated image.
type PlacementInput struct {
	FurnitureItemID string
	X               float64
	Y               float64
	Width           float64
	Height          float64
}

func (in PlacementInput) validate() error {
	if strings.TrimSpace(in.FurnitureItemID) == "" {
		return fmt.Errorf("%w: furniture item id required", ErrInvalidArgument)
	}
	if in.Width <= 0 || in.Height <= 0 {
		return fmt.Errorf("%w: width and height must be positive", ErrInvalidArgument)
	}
	return nil
}

// CreatePlacements stores one or more bounding boxes for a generated
// image the caller owns.
func (a *App) CreatePlacements(user domain.User, generatedImageID string, inputs []PlacementInput) ([]domain.PlacementBox, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: at least one placement required", ErrInvalidArgument)
	}
	if err := a.ownedGeneratedImage(user, generatedImageID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	boxes := make([]domain.PlacementBox, 0, len(inputs))
	for _, in := range inputs {
		if err := in.validate(); err != nil {
			return nil, err
		}
		boxes = append(boxes, domain.PlacementBox{
			ID:               util.NewID(),
			GeneratedImageID: generatedImageID,
			FurnitureItemID:  in.FurnitureItemID,
			X:                in.X,
			Y:                in.Y,
			Width:            in.Width,
			Height:           in.Height,
			CreatedAt:        now,
			UpdatedAt:        now,
		})
	}
	if err := a.store.SavePlacements(boxes); err != nil {
		return nil, fmt.Errorf("save placements: %w", err)
	}
	return boxes, nil
}

// ListPlacements returns the bounding boxes of a generated image the
// caller owns. An empty list means "no hotspots", not an error.
func (a *App) ListPlacements(user domain.User, generatedImageID string) ([]domain.PlacementBox, error) {
	if err := a.ownedGeneratedImage(user, generatedImageID); err != nil {
		return nil, err
	}
	return a.store.ListPlacementsByGeneratedImage(generatedImageID)
}

// UpsertPlacement writes a bounding box under a caller-chosen id.
// Re-issuing the same request yields the same single stored row.
func (a *App) UpsertPlacement(user domain.User, id, generatedImageID string, in PlacementInput) (domain.PlacementBox, error) {
	if strings.TrimSpace(id) == "" {
		return domain.PlacementBox{}, fmt.Errorf("%w: placement id required", ErrInvalidArgument)
	}
	if err := in.validate(); err != nil {
		return domain.PlacementBox{}, err
	}
	if err := a.ownedGeneratedImage(user, generatedImageID); err != nil {
		return domain.PlacementBox{}, err
	}
	now := time.Now().UTC()
	box := domain.PlacementBox{
		ID:               id,
		GeneratedImageID: generatedImageID,
		FurnitureItemID:  in.FurnitureItemID,
		X:                in.X,
		Y:                in.Y,
		Width:            in.Width,
		Height:           in.Height,
		UpdatedAt:        now,
	}
	if existing, ok, err := a.store.GetPlacement(id); err != nil {
		return domain.PlacementBox{}, fmt.Errorf("load placement: %w", err)
	} else if ok {
		if existing.GeneratedImageID != generatedImageID {
			return domain.PlacementBox{}, ErrForbidden
		}
		box.CreatedAt = existing.CreatedAt
	} else {
		box.CreatedAt = now
	}
	if err := a.store.SavePlacement(box); err != nil {
		return domain.PlacementBox{}, fmt.Errorf("save placement: %w", err)
	}
	return box, nil
}

// ownedGeneratedImage checks that the design session behind the
// generated image exists, belongs to the caller and actually carries a
// generated image.
func (a *App) ownedGeneratedImage(user domain.User, generatedImageID string) error {
	if strings.TrimSpace(generatedImageID) == "" {
		return fmt.Errorf("%w: generated image id required", ErrInvalidArgument)
	}
	session, ok, err := a.store.GetDesignSession(generatedImageID)
	if err != nil {
		return fmt.Errorf("load design session: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: generated image", ErrNotFound)
	}
	if session.UserID != user.ID {
		return ErrForbidden
	}
	if session.GeneratedImageKey == "" {
		return fmt.Errorf("%w: session has no generated image", ErrInvalidArgument)
	}
	return nil
}
