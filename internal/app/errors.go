package app

import "errors"

var (
	// ErrInvalidArgument indicates a request that fails validation.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrEmailTaken indicates a signup with an already registered email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials indicates a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotFound indicates a referenced image, item or session is missing.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the caller does not own the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrItemReferenced blocks catalog deletes while a design session
	// still references the item.
	ErrItemReferenced = errors.New("furniture item is referenced by a design session")
	// ErrRecommendationFailed indicates the AI reply could not be turned
	// into a recommendation list.
	ErrRecommendationFailed = errors.New("recommendation generation failed")
	// ErrVisualizationFailed indicates image generation or the re-upload
	// of the generated image failed.
	ErrVisualizationFailed = errors.New("visualization generation failed")
)
