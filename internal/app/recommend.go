package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"roomstyler/internal/util"
	"roomstyler/pkg/ai"
	"roomstyler/pkg/domain"
)

// RecommendationRequest is the validated input of the recommendation
// workflow.
type RecommendationRequest struct {
	RoomImageID    string
	Budget         float64
	Style          string
	FurnitureTypes []string
}

type recommendationEnvelope struct {
	Recommendations []domain.Recommendation `json:"recommendations"`
}

// RecommendFurniture analyzes the room photo and produces an ordered
// recommendation list plus a fresh design session id. Ids in the list
// are opaque model output; selection against the catalog happens in a
// later request.
func (a *App) RecommendFurniture(ctx context.Context, user domain.User, req RecommendationRequest) ([]domain.Recommendation, string, error) {
	if req.Budget < 0 {
		return nil, "", fmt.Errorf("%w: budget must be non-negative", ErrInvalidArgument)
	}
	types := trimNonEmpty(req.FurnitureTypes)
	if len(types) == 0 {
		return nil, "", fmt.Errorf("%w: at least one furniture type required", ErrInvalidArgument)
	}
	img, err := a.ownedRoomImage(user, req.RoomImageID)
	if err != nil {
		return nil, "", err
	}
	imageURL, err := a.objects.PresignGet(ctx, img.StorageKey, a.presignExpiry)
	if err != nil {
		return nil, "", fmt.Errorf("presign room image: %w", err)
	}

	prompt := buildRecommendationPrompt(req.Budget, req.Style, types, a.maxRecommendations)
	reply, err := a.ai.AnalyzeImage(ctx, imageURL, prompt, ai.TextOptions{MaxTokens: 1500})
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrRecommendationFailed, err)
	}

	recommendations, parseErr := parseRecommendations(reply, a.maxRecommendations)
	if parseErr != nil {
		if a.isProduction() {
			return nil, "", fmt.Errorf("%w: %v", ErrRecommendationFailed, parseErr)
		}
		util.LoggerFromContext(ctx).Warn("recommendation parse failed, using fallback", "err", parseErr)
		recommendations = fallbackRecommendations(types, req.Budget)
	}
	if len(recommendations) == 0 {
		return nil, "", fmt.Errorf("%w: model returned no recommendations", ErrRecommendationFailed)
	}

	now := time.Now().UTC()
	session := domain.DesignSession{
		ID:                   util.NewID(),
		UserID:               user.ID,
		RoomImageID:          img.ID,
		SelectedFurnitureIDs: []string{},
		Preferences: domain.Preferences{
			Budget:         req.Budget,
			Style:          strings.TrimSpace(req.Style),
			FurnitureTypes: types,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.store.SaveDesignSession(session); err != nil {
		return nil, "", fmt.Errorf("save design session: %w", err)
	}
	return recommendations, session.ID, nil
}

func buildRecommendationPrompt(budget float64, style string, types []string, maxItems int) string {
	var sb strings.Builder
	sb.WriteString("You are an interior design assistant. Analyze the room in the image and recommend furniture that fits it.\n")
	fmt.Fprintf(&sb, "Constraints: total budget %.2f USD", budget)
	if strings.TrimSpace(style) != "" {
		fmt.Fprintf(&sb, ", preferred style %q", strings.TrimSpace(style))
	}
	fmt.Fprintf(&sb, ". Wanted furniture types: %s.\n", strings.Join(types, ", "))
	fmt.Fprintf(&sb, "Respond with a single JSON object and nothing else, shaped as "+
		`{"recommendations":[{"id":"...","name":"...","description":"...","price":0,"image_url":"...","purchase_link":"...","reason":"...","confidence":0.0}]}`+
		" with at most %d entries, ordered best first. Prices must be non-negative numbers within the budget.", maxItems)
	return sb.String()
}

// parseRecommendations extracts the first balanced brace-delimited JSON
// object from the model's free-text reply and decodes it.
func parseRecommendations(reply string, maxItems int) ([]domain.Recommendation, error) {
	raw, ok := extractJSONObject(reply)
	if !ok {
		return nil, fmt.Errorf("no JSON object in model reply")
	}
	var envelope recommendationEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, fmt.Errorf("decode recommendations: %w", err)
	}
	if len(envelope.Recommendations) == 0 {
		return nil, fmt.Errorf("recommendations array empty or missing")
	}
	recs := envelope.Recommendations
	if len(recs) > maxItems {
		recs = recs[:maxItems]
	}
	for i, rec := range recs {
		if strings.TrimSpace(rec.Name) == "" {
			return nil, fmt.Errorf("recommendation %d has no name", i)
		}
		if rec.Price < 0 {
			recs[i].Price = 0
		}
	}
	return recs, nil
}

// extractJSONObject scans for the first '{' and returns the substring
// up to its balanced closing brace, respecting string literals.
func extractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// fallbackRecommendations is the small fixed list substituted outside
// production when the model reply cannot be parsed.
func fallbackRecommendations(types []string, budget float64) []domain.Recommendation {
	price := budget / 2
	if price <= 0 {
		price = 199
	}
	recs := make([]domain.Recommendation, 0, len(types))
	for i, t := range types {
		if i >= 3 {
			break
		}
		recs = append(recs, domain.Recommendation{
			ID:          fmt.Sprintf("fallback-%s", t),
			Name:        fmt.Sprintf("Sample %s", t),
			Description: fmt.Sprintf("Placeholder %s suggestion shown while the model reply could not be parsed.", t),
			Price:       price,
			Reason:      "Fallback suggestion (non-production only).",
			Confidence:  0.1,
		})
	}
	return recs
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
