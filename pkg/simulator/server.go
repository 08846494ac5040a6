package simulator

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"nocturne-labs/doorman/pkg/game"
)

// Server is an in-process game server speaking the same wire protocol
// as the real one: /new-game hands out a game with constraints and
// statistics, /decide-and-next applies a verdict and returns the next
// arrival. It owns the authoritative counts and terminal statuses, so
// a policy played against it is exercised exactly as in production.
type Server struct {
	scenarios map[int]Scenario
	seed      int64
	logger    *slog.Logger

	mu      sync.Mutex
	games   map[string]*liveGame
	created int64

	httpServer *httptest.Server
}

// ServerConfig configures the simulator server.
type ServerConfig struct {
	// Scenarios are the playable scenarios, keyed by their ID on the
	// wire. Default: the builtin scenarios.
	Scenarios []Scenario

	// Seed is the base seed for arrival sampling. Game n is seeded
	// with Seed+n, so replays are deterministic per seed.
	// Default: current time
	Seed int64

	// Logger receives game lifecycle events. Default: slog.Default()
	Logger *slog.Logger
}

// liveGame is one game's authoritative state.
type liveGame struct {
	scenario     Scenario
	arrivals     *Arrivals
	pending      *game.Person
	admitted     int
	rejected     int
	admittedWith map[game.AttributeID]int
	status       game.Status
	reason       string
}

// NewServer creates a simulator server.
func NewServer(cfg ServerConfig) *Server {
	if len(cfg.Scenarios) == 0 {
		cfg.Scenarios = BuiltinScenarios()
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	scenarios := make(map[int]Scenario, len(cfg.Scenarios))
	for _, s := range cfg.Scenarios {
		scenarios[s.ID] = s
	}

	return &Server{
		scenarios: scenarios,
		seed:      cfg.Seed,
		logger:    cfg.Logger.With("component", "simulator"),
		games:     make(map[string]*liveGame),
	}
}

// Handler returns the HTTP handler serving the game protocol.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/new-game", s.handleNewGame)
	mux.HandleFunc("/decide-and-next", s.handleDecideAndNext)
	return mux
}

// Start brings up an in-process HTTP server and returns its base URL.
func (s *Server) Start() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer == nil {
		s.httpServer = httptest.NewServer(s.Handler())
	}
	return s.httpServer.URL
}

// URL returns the base URL of a started server, or empty.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer == nil {
		return ""
	}
	return s.httpServer.URL
}

// Close shuts the HTTP server down.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer != nil {
		s.httpServer.Close()
		s.httpServer = nil
	}
}

// GameState returns a snapshot of one game's authoritative state, for
// inspection after (or during) play.
func (s *Server) GameState(gameID string) (game.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[gameID]
	if !ok {
		return game.State{}, false
	}

	admittedWith := make(map[game.AttributeID]int, len(g.admittedWith))
	for id, n := range g.admittedWith {
		admittedWith[id] = n
	}

	return game.State{
		GameID:       gameID,
		Scenario:     g.scenario.ID,
		Capacity:     g.scenario.Capacity,
		Budget:       g.scenario.Budget,
		Admitted:     g.admitted,
		Rejected:     g.rejected,
		AdmittedWith: admittedWith,
		Status:       g.status,
	}, true
}

// handleNewGame creates a game for the requested scenario.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	scenarioID, err := strconv.Atoi(r.URL.Query().Get("scenario"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid scenario parameter")
		return
	}
	if r.URL.Query().Get("playerId") == "" {
		writeError(w, http.StatusBadRequest, "playerId parameter required")
		return
	}

	scenario, ok := s.scenarios[scenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown scenario %d", scenarioID))
		return
	}

	s.mu.Lock()
	s.created++
	arrivals, err := NewArrivals(scenario, s.seed+s.created)
	if err != nil {
		s.mu.Unlock()
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to build arrivals: %v", err))
		return
	}

	gameID := uuid.New().String()
	s.games[gameID] = &liveGame{
		scenario:     scenario,
		arrivals:     arrivals,
		admittedWith: make(map[game.AttributeID]int),
		status:       game.StatusRunning,
	}
	s.mu.Unlock()

	s.logger.Info("Simulated game created",
		"game_id", gameID,
		"scenario", scenarioID,
		"capacity", scenario.Capacity,
		"budget", scenario.Budget,
	)

	writeJSON(w, http.StatusOK, map[string]any{
		"gameId":              gameID,
		"constraints":         scenario.Constraints,
		"attributeStatistics": scenario.Statistics,
	})
}

// handleDecideAndNext applies the verdict for the pending person and
// hands out the next arrival. The first call of a game carries no
// accept parameter and receives person 0.
func (s *Server) handleDecideAndNext(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	gameID := query.Get("gameId")

	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[gameID]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown gameId")
		return
	}

	// Terminal games answer with their final state, whatever the
	// parameters say.
	if g.status.Terminal() {
		writeJSON(w, http.StatusOK, g.payload())
		return
	}

	personIndex, err := strconv.Atoi(query.Get("personIndex"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid personIndex parameter")
		return
	}

	rawAccept := query.Get("accept")
	if rawAccept == "" {
		if g.arrivals.Drawn() > 0 {
			writeError(w, http.StatusBadRequest, "accept parameter required")
			return
		}
		if personIndex != 0 {
			writeError(w, http.StatusBadRequest, "first call must use personIndex=0")
			return
		}
		person := g.arrivals.Next()
		g.pending = &person
		writeJSON(w, http.StatusOK, g.payload())
		return
	}

	accept, err := strconv.ParseBool(rawAccept)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid accept parameter")
		return
	}
	if g.pending == nil {
		writeError(w, http.StatusBadRequest, "no pending person")
		return
	}
	if personIndex != g.pending.Index {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("personIndex %d does not match pending person %d", personIndex, g.pending.Index))
		return
	}

	if accept {
		g.admitted++
		for id, has := range g.pending.Attributes {
			if has {
				g.admittedWith[id]++
			}
		}
	} else {
		g.rejected++
	}
	g.pending = nil

	switch {
	case g.admitted >= g.scenario.Capacity:
		g.status = game.StatusCompleted
	case g.rejected >= g.scenario.Budget:
		g.status = game.StatusFailed
		g.reason = "rejection budget exhausted"
	default:
		person := g.arrivals.Next()
		g.pending = &person
	}

	if g.status.Terminal() {
		s.logger.Info("Simulated game finished",
			"game_id", gameID,
			"status", string(g.status),
			"admitted", g.admitted,
			"rejected", g.rejected,
		)
	}

	writeJSON(w, http.StatusOK, g.payload())
}

// payload builds the wire response for the game's current state.
func (g *liveGame) payload() map[string]any {
	resp := map[string]any{
		"status":        string(g.status),
		"admittedCount": g.admitted,
		"rejectedCount": g.rejected,
	}
	if g.pending != nil {
		resp["nextPerson"] = map[string]any{
			"personIndex": g.pending.Index,
			"attributes":  g.pending.Attributes,
		}
	}
	if g.reason != "" {
		resp["reason"] = g.reason
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
