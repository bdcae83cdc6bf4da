package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/pixelboard/game/engine"
	"github.com/wricardo/pixelboard/game/service"
	"github.com/wricardo/pixelboard/game/storage"
	"github.com/wricardo/pixelboard/transport/websocket"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	CreatePlayerFunc func(ctx context.Context, name string) (*service.PlayerInfo, error)
	GetPlayerFunc    func(ctx context.Context, playerID int) (*service.PlayerInfo, error)
	PaintFunc        func(ctx context.Context, req service.PaintRequest) (*service.PaintResult, error)
	GetBoardFunc     func(ctx context.Context) (*service.BoardInfo, error)
	SnapshotFunc     func(ctx context.Context, fn func(*service.BoardInfo)) error
}

func (m *MockGameService) CreatePlayer(ctx context.Context, name string) (*service.PlayerInfo, error) {
	if m.CreatePlayerFunc != nil {
		return m.CreatePlayerFunc(ctx, name)
	}
	return &service.PlayerInfo{ID: 1, Name: name, CanPaint: true}, nil
}

func (m *MockGameService) GetPlayer(ctx context.Context, playerID int) (*service.PlayerInfo, error) {
	if m.GetPlayerFunc != nil {
		return m.GetPlayerFunc(ctx, playerID)
	}
	return &service.PlayerInfo{ID: playerID, Name: "test-player", CanPaint: true}, nil
}

func (m *MockGameService) Paint(ctx context.Context, req service.PaintRequest) (*service.PaintResult, error) {
	if m.PaintFunc != nil {
		return m.PaintFunc(ctx, req)
	}
	index := 0
	if req.Index != nil {
		index = *req.Index
	}
	return &service.PaintResult{Index: index, Color: engine.Color(req.Color), PlayerID: req.PlayerID}, nil
}

func (m *MockGameService) GetBoard(ctx context.Context) (*service.BoardInfo, error) {
	if m.GetBoardFunc != nil {
		return m.GetBoardFunc(ctx)
	}
	return &service.BoardInfo{
		Width:           2,
		Height:          2,
		CooldownSeconds: 10,
		Cells:           []engine.Color{engine.Red, engine.White, engine.White, engine.Blue},
	}, nil
}

func (m *MockGameService) GetInfo(ctx context.Context) *service.BoardInfo {
	return &service.BoardInfo{Width: 2, Height: 2, CooldownSeconds: 10, Colors: engine.Colors}
}

func (m *MockGameService) Snapshot(ctx context.Context, fn func(*service.BoardInfo)) error {
	if m.SnapshotFunc != nil {
		return m.SnapshotFunc(ctx, fn)
	}
	board, err := m.GetBoard(ctx)
	if err != nil {
		return err
	}
	fn(board)
	return nil
}

func setupTestServer(mockService service.GameService) *Server {
	return NewServer(mockService, nil)
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	switch b := body.(type) {
	case nil:
	case string:
		bodyBytes = []byte(b)
	default:
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response %q: %v", w.Body.String(), err)
	}
}

func TestRootAndHealth(t *testing.T) {
	server := setupTestServer(&MockGameService{})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hello world!", w.Body.String())

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	parseResponse(t, w, &resp)
	assert.Equal(t, "healthy", resp["status"])
}

func TestRequestID(t *testing.T) {
	server := setupTestServer(&MockGameService{})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/health", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36, "generated ids are UUIDs")

	req := makeRequest("GET", "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	server.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestOpenAPIDocument(t *testing.T) {
	server := setupTestServer(&MockGameService{})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api-docs/openapi.json", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var doc map[string]interface{}
	parseResponse(t, w, &doc)
	assert.Equal(t, "3.0.3", doc["openapi"])
	paths := doc["paths"].(map[string]interface{})
	for _, p := range []string{"/api/board", "/api/players", "/api/players/{id}", "/api/pixels", "/api/pixels/{index}"} {
		assert.Contains(t, paths, p)
	}
}

func TestGetBoard(t *testing.T) {
	t.Run("board info", func(t *testing.T) {
		server := setupTestServer(&MockGameService{})
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/board", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var resp service.BoardInfo
		parseResponse(t, w, &resp)
		assert.Equal(t, 2, resp.Width)
		assert.Equal(t, 10.0, resp.CooldownSeconds)
		assert.Equal(t, []engine.Color{engine.Red, engine.White, engine.White, engine.Blue}, resp.Cells)
	})

	t.Run("legacy route returns a bare array", func(t *testing.T) {
		server := setupTestServer(&MockGameService{})
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/board", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var cells []string
		parseResponse(t, w, &cells)
		assert.Equal(t, []string{"Red", "White", "White", "Blue"}, cells)
	})

	t.Run("storage failure", func(t *testing.T) {
		server := setupTestServer(&MockGameService{
			GetBoardFunc: func(ctx context.Context) (*service.BoardInfo, error) {
				return nil, errors.New("redis down")
			},
		})
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/board", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestRenderBoard(t *testing.T) {
	server := setupTestServer(&MockGameService{})
	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/board/render", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "RW\nWB\n", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
}

func TestGetInfo(t *testing.T) {
	server := setupTestServer(&MockGameService{})
	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/info", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp service.BoardInfo
	parseResponse(t, w, &resp)
	assert.Empty(t, resp.Cells)
	assert.Len(t, resp.Colors, 6)
}

func TestCreatePlayer(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		requestBody    interface{}
		setupMock      func(*MockGameService)
		expectedStatus int
		validateResp   func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:        "Create player",
			path:        "/api/players",
			requestBody: map[string]string{"name": "alice"},
			setupMock: func(m *MockGameService) {
				m.CreatePlayerFunc = func(ctx context.Context, name string) (*service.PlayerInfo, error) {
					if name != "alice" {
						t.Errorf("Expected name 'alice', got %s", name)
					}
					return &service.PlayerInfo{ID: 7, Name: name, CanPaint: true}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.PlayerInfo
				parseResponse(t, w, &resp)
				if resp.ID != 7 || resp.Name != "alice" {
					t.Errorf("Unexpected player: %+v", resp)
				}
			},
		},
		{
			name:           "Legacy route answers 200",
			path:           "/player",
			requestBody:    map[string]string{"name": "romain"},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]interface{}
				parseResponse(t, w, &resp)
				assert.Equal(t, 1.0, resp["id"])
				assert.Equal(t, "romain", resp["name"])
				assert.Contains(t, resp, "last_played")
			},
		},
		{
			name:        "Empty name",
			path:        "/api/players",
			requestBody: map[string]string{"name": ""},
			setupMock: func(m *MockGameService) {
				m.CreatePlayerFunc = func(ctx context.Context, name string) (*service.PlayerInfo, error) {
					return nil, service.ErrInvalidName
				}
			},
			expectedStatus: http.StatusBadRequest,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]interface{}
				parseResponse(t, w, &resp)
				if resp["code"] != CodeInvalidName {
					t.Errorf("Expected code %s, got %v", CodeInvalidName, resp["code"])
				}
			},
		},
		{
			name:           "Malformed body",
			path:           "/api/players",
			requestBody:    "{name",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockGameService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", tt.path, tt.requestBody))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func TestGetPlayer(t *testing.T) {
	mockService := &MockGameService{
		GetPlayerFunc: func(ctx context.Context, playerID int) (*service.PlayerInfo, error) {
			if playerID != 3 {
				return nil, engine.ErrPlayerNotFound
			}
			return &service.PlayerInfo{ID: 3, Name: "carol", CooldownRemainingSeconds: 4}, nil
		},
	}
	server := setupTestServer(mockService)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/players/3", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var player service.PlayerInfo
	parseResponse(t, w, &player)
	assert.Equal(t, 4, player.CooldownRemainingSeconds)

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/players/4", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	var resp map[string]interface{}
	parseResponse(t, w, &resp)
	assert.Equal(t, CodePlayerNotFound, resp["code"])

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/players/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaint(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		requestBody    interface{}
		paintErr       error
		expectedStatus int
		expectedCode   string
		checkRequest   func(*testing.T, service.PaintRequest)
	}{
		{
			name:           "Paint by index",
			path:           "/api/pixels/3",
			requestBody:    map[string]interface{}{"player_id": 1, "color": "red"},
			expectedStatus: http.StatusCreated,
			checkRequest: func(t *testing.T, req service.PaintRequest) {
				require.NotNil(t, req.Index)
				assert.Equal(t, 3, *req.Index)
				assert.Equal(t, 1, req.PlayerID)
				assert.Equal(t, "red", req.Color)
			},
		},
		{
			name:           "Legacy route with capitalized color",
			path:           "/pixel/0",
			requestBody:    map[string]interface{}{"player_id": 1, "color": "Red"},
			expectedStatus: http.StatusCreated,
			checkRequest: func(t *testing.T, req service.PaintRequest) {
				require.NotNil(t, req.Index)
				assert.Equal(t, 0, *req.Index)
				assert.Equal(t, "Red", req.Color)
			},
		},
		{
			name:           "Legacy route error",
			path:           "/pixel/9",
			requestBody:    map[string]interface{}{"player_id": 1, "color": "red"},
			paintErr:       engine.ErrInvalidCoordinates,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   CodeInvalidCoordinates,
		},
		{
			name:           "Paint by coordinates",
			path:           "/api/pixels",
			requestBody:    map[string]interface{}{"player_id": 2, "color": "blue", "x": 1, "y": 0},
			expectedStatus: http.StatusCreated,
			checkRequest: func(t *testing.T, req service.PaintRequest) {
				assert.Nil(t, req.Index)
				require.NotNil(t, req.X)
				require.NotNil(t, req.Y)
				assert.Equal(t, 1, *req.X)
				assert.Equal(t, 0, *req.Y)
			},
		},
		{
			name:           "Coordinates missing",
			path:           "/api/pixels",
			requestBody:    map[string]interface{}{"player_id": 2, "color": "blue", "x": 1},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   CodeInvalidRequest,
		},
		{
			name:           "Player id missing",
			path:           "/api/pixels/0",
			requestBody:    map[string]interface{}{"color": "blue"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   CodeInvalidRequest,
		},
		{
			name:           "Non-numeric index",
			path:           "/api/pixels/first",
			requestBody:    map[string]interface{}{"player_id": 1, "color": "blue"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   CodeInvalidRequest,
		},
		{
			name:           "Invalid coordinates",
			path:           "/api/pixels/400",
			requestBody:    map[string]interface{}{"player_id": 1, "color": "blue"},
			paintErr:       engine.ErrInvalidCoordinates,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   CodeInvalidCoordinates,
		},
		{
			name:           "Invalid color",
			path:           "/api/pixels/0",
			requestBody:    map[string]interface{}{"player_id": 1, "color": "purple"},
			paintErr:       fmt.Errorf("%w: %q", engine.ErrInvalidColor, "purple"),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   CodeInvalidColor,
		},
		{
			name:           "Unknown player",
			path:           "/api/pixels/0",
			requestBody:    map[string]interface{}{"player_id": 99, "color": "blue"},
			paintErr:       engine.ErrPlayerNotFound,
			expectedStatus: http.StatusNotFound,
			expectedCode:   CodePlayerNotFound,
		},
		{
			name:           "Internal error",
			path:           "/api/pixels/0",
			requestBody:    map[string]interface{}{"player_id": 1, "color": "blue"},
			paintErr:       fmt.Errorf("%w: writing cell 0: %w", engine.ErrInternal, errors.New("boom")),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got service.PaintRequest
			mockService := &MockGameService{
				PaintFunc: func(ctx context.Context, req service.PaintRequest) (*service.PaintResult, error) {
					got = req
					if tt.paintErr != nil {
						return nil, tt.paintErr
					}
					return &service.PaintResult{PlayerID: req.PlayerID, Color: engine.Color(req.Color)}, nil
				},
			}

			server := setupTestServer(mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", tt.path, tt.requestBody))

			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedCode != "" {
				var resp map[string]interface{}
				parseResponse(t, w, &resp)
				assert.Equal(t, tt.expectedCode, resp["code"])
			}
			if tt.checkRequest != nil {
				tt.checkRequest(t, got)
			}
		})
	}
}

func TestPaint_CooldownResponse(t *testing.T) {
	mockService := &MockGameService{
		PaintFunc: func(ctx context.Context, req service.PaintRequest) (*service.PaintResult, error) {
			return nil, &engine.CooldownError{Remaining: 7200 * time.Millisecond}
		},
	}
	server := setupTestServer(mockService)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/pixels/1", map[string]interface{}{"player_id": 1, "color": "blue"}))

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]interface{}
	parseResponse(t, w, &resp)
	assert.Equal(t, CodeCooldownActive, resp["code"])
	assert.Equal(t, 8.0, resp["remaining_seconds"], "seconds are rounded up")
	assert.Equal(t, 7200.0, resp["remaining_ms"])
	assert.Contains(t, resp["error"], "player already played")
}

func TestLegacyPaint_EmptyBody(t *testing.T) {
	server := setupTestServer(&MockGameService{})
	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/pixel/2", map[string]interface{}{"player_id": 1, "color": "Blue"}))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestLegacyColorName(t *testing.T) {
	assert.Equal(t, "Green", legacyColorName(engine.Green))
	assert.Equal(t, "Black", legacyColorName(engine.Black))
	assert.Equal(t, "", legacyColorName(""))
}

func TestWebSocketDisabledWithoutHub(t *testing.T) {
	server := setupTestServer(&MockGameService{})
	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/ws", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// End-to-end through the real service, memory storage and hub
func TestIntegration_TwoByTwoBoard(t *testing.T) {
	eng, err := engine.NewEngine(engine.Settings{
		Width:     2,
		Height:    2,
		FillColor: engine.White,
		Cooldown:  10 * time.Second,
	}, storage.NewMemory())
	require.NoError(t, err)

	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	httpServer := httptest.NewServer(NewServer(service.NewGameService(eng, service.WithEventSink(hub)), hub))
	defer httpServer.Close()

	conn, _, err := gorillaws.DefaultDialer.Dial("ws"+strings.TrimPrefix(httpServer.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	readEvent := func() websocket.Message {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg websocket.Message
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}
	assert.Equal(t, websocket.EventBoardSnapshot, readEvent().Event)

	post := func(path string, body interface{}) (*http.Response, map[string]interface{}) {
		data, _ := json.Marshal(body)
		resp, err := http.Post(httpServer.URL+path, "application/json", bytes.NewReader(data))
		require.NoError(t, err)
		defer resp.Body.Close()
		var decoded map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
		return resp, decoded
	}

	resp, player := post("/api/players", map[string]string{"name": "alice"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 1.0, player["id"])
	assert.Equal(t, websocket.EventPlayerCreated, readEvent().Event)

	resp, _ = post("/api/pixels/0", map[string]interface{}{"player_id": 1, "color": "red"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	painted := readEvent()
	assert.Equal(t, websocket.EventPixelPainted, painted.Event)

	resp, body := post("/api/pixels/1", map[string]interface{}{"player_id": 1, "color": "blue"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, CodeCooldownActive, body["code"])
	assert.Equal(t, 10.0, body["remaining_seconds"])

	boardResp, err := http.Get(httpServer.URL + "/api/board")
	require.NoError(t, err)
	defer boardResp.Body.Close()
	var board service.BoardInfo
	require.NoError(t, json.NewDecoder(boardResp.Body).Decode(&board))
	assert.Equal(t, []engine.Color{engine.Red, engine.White, engine.White, engine.White}, board.Cells)
}

func dialWS(t *testing.T, httpServer *httptest.Server) *gorillaws.Conn {
	t.Helper()
	conn, _, err := gorillaws.DefaultDialer.Dial("ws"+strings.TrimPrefix(httpServer.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readWSEvent(t *testing.T, conn *gorillaws.Conn) websocket.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg websocket.Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// A change committed while the snapshot is taken is either in the snapshot
// or delivered after it, never lost
func TestWebSocket_SnapshotRegistersUnderLock(t *testing.T) {
	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	mockService := &MockGameService{
		SnapshotFunc: func(ctx context.Context, fn func(*service.BoardInfo)) error {
			hub.Broadcast(websocket.EventPixelPainted, service.PaintResult{Index: 0, Color: engine.Red})
			fn(&service.BoardInfo{Width: 2, Height: 1, Cells: []engine.Color{engine.Red, engine.White}})
			hub.Broadcast(websocket.EventPixelPainted, service.PaintResult{Index: 1, Color: engine.Blue})
			return nil
		},
	}
	httpServer := httptest.NewServer(NewServer(mockService, hub))
	defer httpServer.Close()

	conn := dialWS(t, httpServer)
	assert.Equal(t, websocket.EventBoardSnapshot, readWSEvent(t, conn).Event)

	msg := readWSEvent(t, conn)
	require.Equal(t, websocket.EventPixelPainted, msg.Event)
	data := msg.Data.(map[string]interface{})
	assert.Equal(t, 1.0, data["index"], "the change before the snapshot is not replayed")
	assert.Equal(t, "blue", data["color"])
}

func TestWebSocket_SnapshotFailureClosesConnection(t *testing.T) {
	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	mockService := &MockGameService{
		SnapshotFunc: func(ctx context.Context, fn func(*service.BoardInfo)) error {
			return errors.New("redis down")
		},
	}
	httpServer := httptest.NewServer(NewServer(mockService, hub))
	defer httpServer.Close()

	conn := dialWS(t, httpServer)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, hub.ClientCount())
}

// Replaying the events after the snapshot must rebuild the final board while
// paints keep landing during the connection
func TestIntegration_SnapshotPlusEventsMatchesBoard(t *testing.T) {
	eng, err := engine.NewEngine(engine.Settings{
		Width:     3,
		Height:    1,
		FillColor: engine.White,
	}, storage.NewMemory())
	require.NoError(t, err)

	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	gameService := service.NewGameService(eng, service.WithEventSink(hub))
	httpServer := httptest.NewServer(NewServer(gameService, hub))
	defer httpServer.Close()

	painter, err := gameService.CreatePlayer(ctx, "painter")
	require.NoError(t, err)
	marker, err := gameService.CreatePlayer(ctx, "marker")
	require.NoError(t, err)

	stop := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		// Bounded so the unread client never fills its send buffer
		for i := 0; i < 200; i++ {
			select {
			case <-stop:
				return
			default:
			}
			index := i % 3
			gameService.Paint(ctx, service.PaintRequest{
				PlayerID: painter.ID,
				Color:    string(engine.Colors[i%len(engine.Colors)]),
				Index:    &index,
			})
		}
	}()

	conn := dialWS(t, httpServer)
	close(stop)
	<-stopped

	last := 2
	_, err = gameService.Paint(ctx, service.PaintRequest{PlayerID: marker.ID, Color: "green", Index: &last})
	require.NoError(t, err)

	decode := func(data interface{}, target interface{}) {
		raw, err := json.Marshal(data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, target))
	}

	snapshot := readWSEvent(t, conn)
	require.Equal(t, websocket.EventBoardSnapshot, snapshot.Event)
	var board service.BoardInfo
	decode(snapshot.Data, &board)
	require.Len(t, board.Cells, 3)

	for {
		msg := readWSEvent(t, conn)
		if msg.Event != websocket.EventPixelPainted {
			continue
		}
		var result service.PaintResult
		decode(msg.Data, &result)
		board.Cells[result.Index] = result.Color
		if result.PlayerID == marker.ID {
			break
		}
	}

	final, err := gameService.GetBoard(ctx)
	require.NoError(t, err)
	assert.Equal(t, final.Cells, board.Cells)
}
