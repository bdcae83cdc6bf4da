package api

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/wricardo/pixelboard/game/engine"
	"github.com/wricardo/pixelboard/game/service"
	"github.com/wricardo/pixelboard/transport/websocket"
)

//go:embed openapi.json
var openAPIDocument []byte

// Machine-readable error codes returned in the "code" field
const (
	CodeInvalidRequest     = "invalid_request"
	CodeInvalidName        = "invalid_name"
	CodeInvalidColor       = "invalid_color"
	CodeInvalidCoordinates = "invalid_coordinates"
	CodePlayerNotFound     = "player_not_found"
	CodeCooldownActive     = "cooldown_active"
	CodeInternal           = "internal_error"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server. hub may be nil, which disables /ws.
// Live events reach the hub through the service's event sink.
func NewServer(gameService service.GameService, hub *websocket.Hub) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(requestLogger)

	s.router.HandleFunc("/", s.handleRoot).Methods("GET")
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/api-docs/openapi.json", s.handleOpenAPI).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Board
	api.HandleFunc("/board", s.handleGetBoard).Methods("GET")
	api.HandleFunc("/board/render", s.handleRenderBoard).Methods("GET")
	api.HandleFunc("/info", s.handleGetInfo).Methods("GET")

	// Players
	api.HandleFunc("/players", s.handleCreatePlayer).Methods("POST")
	api.HandleFunc("/players/{id}", s.handleGetPlayer).Methods("GET")

	// Painting
	api.HandleFunc("/pixels", s.handlePaintAt).Methods("POST")
	api.HandleFunc("/pixels/{index}", s.handlePaintIndex).Methods("POST")

	// Routes of the first REST release, with its response shapes
	s.router.HandleFunc("/board", s.handleLegacyBoard).Methods("GET")
	s.router.HandleFunc("/player", s.handleLegacyCreatePlayer).Methods("POST")
	s.router.HandleFunc("/pixel/{index}", s.handleLegacyPaint).Methods("POST")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error": message,
		"code":  code,
	})
}

// respondServiceError maps service and engine errors to HTTP responses
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if remaining, ok := engine.RemainingCooldown(err); ok {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":             err.Error(),
			"code":              CodeCooldownActive,
			"remaining_seconds": service.CeilSeconds(remaining),
			"remaining_ms":      remaining.Milliseconds(),
		})
		return
	}

	switch {
	case errors.Is(err, engine.ErrPlayerNotFound):
		respondError(w, http.StatusNotFound, CodePlayerNotFound, err.Error())
	case errors.Is(err, engine.ErrInvalidCoordinates):
		respondError(w, http.StatusBadRequest, CodeInvalidCoordinates, err.Error())
	case errors.Is(err, engine.ErrInvalidColor):
		respondError(w, http.StatusBadRequest, CodeInvalidColor, err.Error())
	case errors.Is(err, service.ErrInvalidName):
		respondError(w, http.StatusBadRequest, CodeInvalidName, err.Error())
	default:
		logrus.WithError(err).WithField("request_id", requestIDFrom(r)).Error("Request failed")
		respondError(w, http.StatusInternalServerError, CodeInternal, err.Error())
	}
}

// Greeting kept from the first release
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "Hello world!")
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(openAPIDocument)
}

// Board Handlers

func (s *Server) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	board, err := s.service.GetBoard(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, board)
}

func (s *Server) handleRenderBoard(w http.ResponseWriter, r *http.Request) {
	board, err := s.service.GetBoard(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, board.Render())
}

func (s *Server) handleGetInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.service.GetInfo(r.Context()))
}

// Player Handlers

func (s *Server) handleCreatePlayer(w http.ResponseWriter, r *http.Request) {
	if player, ok := s.createPlayer(w, r); ok {
		respondJSON(w, http.StatusCreated, player)
	}
}

func (s *Server) createPlayer(w http.ResponseWriter, r *http.Request) (*service.PlayerInfo, bool) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid request body")
		return nil, false
	}

	player, err := s.service.CreatePlayer(r.Context(), req.Name)
	if err != nil {
		respondServiceError(w, r, err)
		return nil, false
	}
	return player, true
}

func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	playerID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, "Player id must be an integer")
		return
	}

	player, err := s.service.GetPlayer(r.Context(), playerID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, player)
}

// Paint Handlers

type paintBody struct {
	PlayerID *int   `json:"player_id"`
	Color    string `json:"color"`
	X        *int   `json:"x"`
	Y        *int   `json:"y"`
}

func decodePaintBody(w http.ResponseWriter, r *http.Request) (*paintBody, bool) {
	var body paintBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid request body")
		return nil, false
	}
	if body.PlayerID == nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, "player_id is required")
		return nil, false
	}
	return &body, true
}

func (s *Server) handlePaintIndex(w http.ResponseWriter, r *http.Request) {
	if result, ok := s.paintIndex(w, r); ok {
		respondJSON(w, http.StatusCreated, result)
	}
}

func (s *Server) paintIndex(w http.ResponseWriter, r *http.Request) (*service.PaintResult, bool) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, "Pixel index must be an integer")
		return nil, false
	}

	body, ok := decodePaintBody(w, r)
	if !ok {
		return nil, false
	}

	return s.paint(w, r, service.PaintRequest{
		PlayerID: *body.PlayerID,
		Color:    body.Color,
		Index:    &index,
	})
}

func (s *Server) handlePaintAt(w http.ResponseWriter, r *http.Request) {
	body, ok := decodePaintBody(w, r)
	if !ok {
		return
	}
	if body.X == nil || body.Y == nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, "x and y are required")
		return
	}

	result, ok := s.paint(w, r, service.PaintRequest{
		PlayerID: *body.PlayerID,
		Color:    body.Color,
		X:        body.X,
		Y:        body.Y,
	})
	if ok {
		respondJSON(w, http.StatusCreated, result)
	}
}

func (s *Server) paint(w http.ResponseWriter, r *http.Request, req service.PaintRequest) (*service.PaintResult, bool) {
	result, err := s.service.Paint(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err)
		return nil, false
	}
	return result, true
}

// Legacy Handlers

// handleLegacyBoard returns the cells as a bare array of capitalized color names
func (s *Server) handleLegacyBoard(w http.ResponseWriter, r *http.Request) {
	board, err := s.service.GetBoard(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	cells := make([]string, len(board.Cells))
	for i, c := range board.Cells {
		cells[i] = legacyColorName(c)
	}
	respondJSON(w, http.StatusOK, cells)
}

func (s *Server) handleLegacyCreatePlayer(w http.ResponseWriter, r *http.Request) {
	if player, ok := s.createPlayer(w, r); ok {
		respondJSON(w, http.StatusOK, player)
	}
}

// handleLegacyPaint answers 201 with an empty body
func (s *Server) handleLegacyPaint(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.paintIndex(w, r); ok {
		w.WriteHeader(http.StatusCreated)
	}
}

// legacyColorName maps red to Red
func legacyColorName(c engine.Color) string {
	name := string(c)
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "WebSocket updates are disabled", http.StatusServiceUnavailable)
		return
	}

	client, err := s.hub.Upgrade(w, r)
	if err != nil {
		return
	}

	// Registering under the board lock keeps the snapshot and the event
	// stream contiguous
	err = s.service.Snapshot(r.Context(), func(board *service.BoardInfo) {
		s.hub.Register(client, &websocket.Message{
			Event: websocket.EventBoardSnapshot,
			Data:  board,
		})
	})
	if err != nil {
		logrus.WithError(err).WithField("request_id", requestIDFrom(r)).Error("Failed to snapshot board for WebSocket client")
		client.Close()
	}
}
