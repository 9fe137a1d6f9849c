package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"roomstyler/internal/app"
	"roomstyler/internal/ratelimit"
	"roomstyler/internal/util"
	"roomstyler/pkg/domain"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App                         *app.App
	RedisAddr                   string
	RedisPassword               string
	SignupRateLimitPerMinute    int
	LoginRateLimitPerMinute     int
	RecommendRateLimitPerMinute int
	GenerateRateLimitPerMinute  int
	MaxUploadBytes              int64
	AllowedExtensions           []string
	// TrustedProxies overrides the private-range default for
	// forwarded-header trust.
	TrustedProxies []string
}

// Server exposes HTTP endpoints for the backend.
type Server struct {
	app               *app.App
	mux               *http.ServeMux
	maxUploadBytes    int64
	allowedExtensions map[string]struct{}
	proxies           *util.ProxyTrust
	signupLimiter     *ratelimit.FixedWindowLimiter
	loginLimiter      *ratelimit.FixedWindowLimiter
	recommendLimiter  *ratelimit.FixedWindowLimiter
	generateLimiter   *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app is required")
	}
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil, errors.New("redis addr is required")
	}
	proxies := util.PrivateProxyTrust()
	if len(cfg.TrustedProxies) > 0 {
		parsed, err := util.ParseProxyTrust(cfg.TrustedProxies)
		if err != nil {
			return nil, fmt.Errorf("parse trusted proxies: %w", err)
		}
		proxies = parsed
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	newLimiter := func(name string, limit, fallback int) (*ratelimit.FixedWindowLimiter, error) {
		if limit <= 0 {
			limit = fallback
		}
		limiter, err := ratelimit.NewFixedWindow(rdb, name, limit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init %s limiter: %w", name, err)
		}
		return limiter, nil
	}
	signupLimiter, err := newLimiter("signup", cfg.SignupRateLimitPerMinute, 5)
	if err != nil {
		return nil, err
	}
	loginLimiter, err := newLimiter("login", cfg.LoginRateLimitPerMinute, 10)
	if err != nil {
		return nil, err
	}
	recommendLimiter, err := newLimiter("recommend", cfg.RecommendRateLimitPerMinute, 10)
	if err != nil {
		return nil, err
	}
	generateLimiter, err := newLimiter("generate", cfg.GenerateRateLimitPerMinute, 6)
	if err != nil {
		return nil, err
	}
	s := &Server{
		app:               cfg.App,
		mux:               http.NewServeMux(),
		maxUploadBytes:    normalizeMaxBytes(cfg.MaxUploadBytes),
		allowedExtensions: normalizeExtensions(cfg.AllowedExtensions),
		proxies:           proxies,
		signupLimiter:     signupLimiter,
		loginLimiter:      loginLimiter,
		recommendLimiter:  recommendLimiter,
		generateLimiter:   generateLimiter,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithCORS(util.WithRequestID(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// auth
	s.mux.HandleFunc("/api/auth/signup", s.handleSignup)
	s.mux.HandleFunc("/api/auth/login", s.handleLogin)
	s.mux.Handle("/api/auth/logout", s.authenticated(s.handleLogout))
	s.mux.Handle("/api/users/me", s.authenticated(s.handleMe))

	// room images
	s.mux.Handle("/api/upload-room-image", s.authenticated(s.handleUploadRoomImage))
	s.mux.Handle("/api/room-images", s.authenticated(s.handleRoomImages))
	s.mux.Handle("/api/room-images/", s.authenticated(s.handleRoomImageByID))

	// design workflows
	s.mux.Handle("/api/recommend-furniture", s.authenticated(s.handleRecommendFurniture))
	s.mux.Handle("/api/generate-room-visual", s.authenticated(s.handleGenerateRoomVisual))
	s.mux.Handle("/api/furniture-placement-metadata", s.authenticated(s.handlePlacements))
	s.mux.Handle("/api/furniture-placement-metadata/", s.authenticated(s.handlePlacementByID))
	s.mux.Handle("/api/user/history", s.authenticated(s.handleHistory))

	// catalog (reads for everyone signed in, writes admin only)
	s.mux.Handle("/api/furniture", s.authenticated(s.handleFurniture))
	s.mux.Handle("/api/furniture/", s.adminOnly(s.handleFurnitureByID))

	// admin
	s.mux.Handle("/api/admin/stats", s.adminOnly(s.handleAdminStats))
	s.mux.Handle("/api/admin/check", s.adminOnly(s.handleAdminCheck))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) adminOnly(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.authorize(r)
		if !ok {
			s.audit(r, "admin.authorize", "fail", "reason", "unauthorized")
			writeError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
			return
		}
		if user.Role != domain.RoleAdmin {
			s.audit(r, "admin.authorize", "fail", "user_id", user.ID, "reason", "forbidden")
			writeError(w, http.StatusForbidden, "forbidden", "admin access required")
			return
		}
		s.audit(r, "admin.authorize", "success", "user_id", user.ID)
		next(w, r, user)
	})
}

func (s *Server) authorize(r *http.Request) (domain.User, bool) {
	token, ok := bearerToken(r)
	if !ok {
		s.audit(r, "token.verify", "fail", "reason", "missing_token")
		return domain.User{}, false
	}
	user, ok, err := s.app.AuthUser(token)
	if err != nil {
		s.audit(r, "token.verify", "fail", "reason", "session_lookup_failed")
		return domain.User{}, false
	}
	if !ok {
		s.audit(r, "token.verify", "fail", "reason", "invalid_or_expired_token")
		return domain.User{}, false
	}
	return user, true
}

// auth handlers
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.signupLimiter, "too many signup attempts") {
		s.audit(r, "signup", "rate_limited")
		return
	}
	var req signupRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		s.audit(r, "signup", "fail", "reason", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid_argument", "invalid JSON body")
		return
	}
	user, token, err := s.app.SignUp(req.Email, req.Password, req.DisplayName)
	if err != nil {
		s.audit(r, "signup", "fail", "reason", err.Error())
		writeAppError(w, err)
		return
	}
	s.audit(r, "signup", "success", "user_id", user.ID)
	writeData(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.loginLimiter, "too many login attempts") {
		s.audit(r, "login", "rate_limited")
		return
	}
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		s.audit(r, "login", "fail", "reason", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid_argument", "invalid JSON body")
		return
	}
	user, token, err := s.app.Login(req.Email, req.Password)
	if err != nil {
		s.audit(r, "login", "fail", "reason", err.Error())
		writeAppError(w, err)
		return
	}
	s.audit(r, "login", "success", "user_id", user.ID)
	writeData(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	token, _ := bearerToken(r)
	if err := s.app.Logout(token); err != nil {
		s.audit(r, "logout", "fail", "user_id", user.ID, "reason", err.Error())
		writeAppError(w, err)
		return
	}
	s.audit(r, "logout", "success", "user_id", user.ID)
	writeData(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeData(w, http.StatusOK, user)
}

// room image handlers
func (s *Server) handleUploadRoomImage(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(16 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "invalid form data or file too large")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "image file is required (field: image)")
		return
	}
	defer file.Close()
	if !s.isExtensionAllowed(header.Filename) {
		writeError(w, http.StatusBadRequest, "invalid_argument", "unsupported image type")
		return
	}
	contentType := header.Header.Get("Content-Type")
	img, err := s.app.UploadRoomImage(r.Context(), user, header.Filename, contentType, file, header.Size)
	if err != nil {
		writeAppError(w, err)
		return
	}
	s.audit(r, "room_image.upload", "success", "user_id", user.ID, "roomImageId", img.ID)
	writeData(w, http.StatusCreated, img)
}

func (s *Server) handleRoomImages(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	items, err := s.app.ListRoomImages(user)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

func (s *Server) handleRoomImageByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	id := strings.TrimPrefix(r.URL.Path, "/api/room-images/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	if err := s.app.DeleteRoomImage(r.Context(), user, id); err != nil {
		writeAppError(w, err)
		return
	}
	s.audit(r, "room_image.delete", "success", "user_id", user.ID, "roomImageId", id)
	writeData(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// workflow handlers
func (s *Server) handleRecommendFurniture(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.recommendLimiter, "too many recommendation requests") {
		s.audit(r, "recommend", "rate_limited", "user_id", user.ID)
		return
	}
	var req recommendRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "invalid JSON body")
		return
	}
	recs, sessionID, err := s.app.RecommendFurniture(r.Context(), user, app.RecommendationRequest{
		RoomImageID:    req.RoomImageID,
		Budget:         req.Budget,
		Style:          req.Style,
		FurnitureTypes: req.FurnitureTypes,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"recommendations": recs,
		"sessionId":       sessionID,
	})
}

func (s *Server) handleGenerateRoomVisual(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.generateLimiter, "too many visualization requests") {
		s.audit(r, "visualize", "rate_limited", "user_id", user.ID)
		return
	}
	var req visualizeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "invalid JSON body")
		return
	}
	result, err := s.app.GenerateRoomVisual(r.Context(), user, app.VisualizationRequest{
		RoomImageID:      req.RoomImageID,
		FurnitureItemIDs: req.FurnitureItemIDs,
		SessionID:        req.SessionID,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	payload := map[string]any{
		"imageUrl":     result.URL,
		"sessionSaved": result.SessionErr == nil,
	}
	if result.SessionID != "" {
		payload["sessionId"] = result.SessionID
	}
	writeData(w, http.StatusOK, payload)
}

// placement handlers
func (s *Server) handlePlacements(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		generatedImageID := r.URL.Query().Get("generatedImageId")
		boxes, err := s.app.ListPlacements(user, generatedImageID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeData(w, http.StatusOK, map[string]any{
			"items": boxes,
			"count": len(boxes),
		})
	case http.MethodPost:
		var req placementCreateRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_argument", "invalid JSON body")
			return
		}
		inputs := req.placementInputs()
		boxes, err := s.app.CreatePlacements(user, req.GeneratedImageID, inputs)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeData(w, http.StatusCreated, map[string]any{
			"items": boxes,
			"count": len(boxes),
		})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handlePlacementByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	id := strings.TrimPrefix(r.URL.Path, "/api/furniture-placement-metadata/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPut {
		methodNotAllowed(w)
		return
	}
	var req placementRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", "invalid JSON body")
		return
	}
	box, err := s.app.UpsertPlacement(user, id, req.GeneratedImageID, app.PlacementInput{
		FurnitureItemID: req.FurnitureItemID,
		X:               req.X,
		Y:               req.Y,
		Width:           req.Width,
		Height:          req.Height,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeData(w, http.StatusOK, box)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "pageSize", 20)
	items, total, err := s.app.History(r.Context(), user, page, pageSize)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"items":    items,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

// catalog handlers
func (s *Server) handleFurniture(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.app.ListCatalog()
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeData(w, http.StatusOK, map[string]any{
			"items": items,
			"count": len(items),
		})
	case http.MethodPost:
		if user.Role != domain.RoleAdmin {
			s.audit(r, "catalog.create", "fail", "user_id", user.ID, "reason", "forbidden")
			writeError(w, http.StatusForbidden, "forbidden", "admin access required")
			return
		}
		var req furnitureRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_argument", "invalid JSON body")
			return
		}
		item, err := s.app.CreateFurnitureItem(req.input())
		if err != nil {
			writeAppError(w, err)
			return
		}
		s.audit(r, "catalog.create", "success", "user_id", user.ID, "item_id", item.ID)
		writeData(w, http.StatusCreated, item)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleFurnitureByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	id := strings.TrimPrefix(r.URL.Path, "/api/furniture/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodPut:
		var req furnitureRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_argument", "invalid JSON body")
			return
		}
		item, err := s.app.UpdateFurnitureItem(id, req.input())
		if err != nil {
			writeAppError(w, err)
			return
		}
		s.audit(r, "catalog.update", "success", "user_id", user.ID, "item_id", id)
		writeData(w, http.StatusOK, item)
	case http.MethodDelete:
		if err := s.app.DeleteFurnitureItem(id); err != nil {
			s.audit(r, "catalog.delete", "fail", "user_id", user.ID, "item_id", id, "reason", err.Error())
			writeAppError(w, err)
			return
		}
		s.audit(r, "catalog.delete", "success", "user_id", user.ID, "item_id", id)
		writeData(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

// admin handlers
func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	stats, err := s.app.Stats()
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}

func (s *Server) handleAdminCheck(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"admin":   true,
		"user_id": user.ID,
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
}

// request/response shapes
type signupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type recommendRequest struct {
	RoomImageID    string   `json:"roomImageId"`
	Budget         float64  `json:"budget"`
	Style          string   `json:"style"`
	FurnitureTypes []string `json:"furnitureTypes"`
}

type visualizeRequest struct {
	RoomImageID      string   `json:"roomImageId"`
	FurnitureItemIDs []string `json:"furnitureItemIds"`
	SessionID        string   `json:"sessionId"`
}

type placementRequest struct {
	GeneratedImageID string  `json:"generatedImageId"`
	FurnitureItemID  string  `json:"furnitureItemId"`
	X                float64 `json:"x"`
	Y                float64 `json:"y"`
	Width            float64 `json:"width"`
	Height           float64 `json:"height"`
}

type placementCreateRequest struct {
	placementRequest
	Placements []placementRequest `json:"placements"`
}

// placementInputs accepts either a single box at the top level or a
// batch under "placements".
func (req placementCreateRequest) placementInputs() []app.PlacementInput {
	sources := req.Placements
	if len(sources) == 0 && req.FurnitureItemID != "" {
		sources = []placementRequest{req.placementRequest}
	}
	inputs := make([]app.PlacementInput, 0, len(sources))
	for _, p := range sources {
		inputs = append(inputs, app.PlacementInput{
			FurnitureItemID: p.FurnitureItemID,
			X:               p.X,
			Y:               p.Y,
			Width:           p.Width,
			Height:          p.Height,
		})
	}
	return inputs
}

type furnitureRequest struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Price       float64           `json:"price"`
	Dimensions  domain.Dimensions `json:"dimensions"`
	Material    string            `json:"material"`
	Tags        []string          `json:"tags"`
	ImageURLs   []string          `json:"imageUrls"`
	InStock     bool              `json:"inStock"`
	Category    string            `json:"category"`
	PurchaseURL string            `json:"purchaseUrl"`
}

func (req furnitureRequest) input() app.FurnitureInput {
	return app.FurnitureInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Dimensions:  req.Dimensions,
		Material:    req.Material,
		Tags:        req.Tags,
		ImageURLs:   req.ImageURLs,
		InStock:     req.InStock,
		Category:    req.Category,
		PurchaseURL: req.PurchaseURL,
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// response envelope
type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{
		"success": true,
		"data":    data,
	})
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   errorBody{Message: msg, Code: code},
	})
}

// writeAppError maps sentinel errors from the core to HTTP statuses.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
	case errors.Is(err, app.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "you do not own this resource")
	case errors.Is(err, app.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, app.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email_taken", "email is already registered")
	case errors.Is(err, app.ErrItemReferenced):
		writeError(w, http.StatusConflict, "item_referenced", "furniture item is referenced by design sessions")
	case errors.Is(err, app.ErrRecommendationFailed):
		writeError(w, http.StatusInternalServerError, "recommendation_failed", "could not produce recommendations")
	case errors.Is(err, app.ErrVisualizationFailed):
		writeError(w, http.StatusInternalServerError, "visualization_failed", "could not generate visualization")
	default:
		writeError(w, http.StatusInternalServerError, "internal", "internal server error")
	}
}

func normalizeMaxBytes(value int64) int64 {
	if value <= 0 {
		return 10 * 1024 * 1024
	}
	return value
}

func normalizeExtensions(exts []string) map[string]struct{} {
	if len(exts) == 0 {
		exts = []string{".jpg", ".jpeg", ".png", ".webp"}
	}
	out := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out[ext] = struct{}{}
	}
	return out
}

func (s *Server) isExtensionAllowed(filename string) bool {
	if len(s.allowedExtensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(filename))
	_, ok := s.allowedExtensions[ext]
	return ok
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", s.proxies.ClientIP(r),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	if limiter.Allow(r.Context(), s.proxies.ClientIP(r)) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, "rate_limited", msg)
	return false
}
