// Package gateway is the client-facing surface of the auction room: it
// upgrades WebSocket connections, routes client commands into the engine
// and fans authoritative snapshots out to every connection. Clients are
// purely reactive; nothing a client sends ever drives a time-based
// transition.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/fantadraft/asta/internal/models"
	"github.com/fantadraft/asta/internal/replication"
)

// AuctionEngine is what the gateway needs from the authoritative engine.
type AuctionEngine interface {
	Join(ctx context.Context, userID, name string)
	SetReady(ctx context.Context, userID string) error
	SetTeamName(ctx context.Context, userID, teamName string) error
	SetProfilePicture(ctx context.Context, userID, ref string) error
	PlaceBid(ctx context.Context, userID string, amount int) error

	SetPlayers(ctx context.Context, actorID string, players []models.Player) error
	AddPlayer(ctx context.Context, actorID string, p models.Player) error
	SetCustomLogo(ctx context.Context, actorID, club, url string) error
	SetWinnerImage(ctx context.Context, actorID, url string) error
	Initialize(ctx context.Context, actorID string, initialCredits int) error
	Start(ctx context.Context, actorID string) error
	Pause(ctx context.Context, actorID string) error
	Resume(ctx context.Context, actorID string) error
	Stop(ctx context.Context, actorID string) error
	Reset(ctx context.Context, actorID string) error
	StartTest(ctx context.Context, actorID string) error
	StopTest(ctx context.Context, actorID string) error

	Snapshot() replication.Snapshot
}

// Service glues the connection manager, the engine and the replication
// subscriber together.
type Service struct {
	engine AuctionEngine
	cm     *ConnectionManager

	lastMu      sync.RWMutex
	lastPayload []byte
	lastSnap    replication.Snapshot
}

// NewService creates the gateway service around an engine.
func NewService(engine AuctionEngine, connConfig ConnectionConfig) *Service {
	s := &Service{
		engine: engine,
		cm:     NewConnectionManager(connConfig),
	}
	s.cm.onCommand = s.dispatch
	s.cm.onConnect = s.sendCurrentSnapshot
	return s
}

// Start runs the broadcast pump until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	s.cm.Start(ctx)
}

// HandleSnapshot receives an authoritative snapshot from the replication
// subscriber and broadcasts it to every connection.
func (s *Service) HandleSnapshot(snap replication.Snapshot) {
	raw, err := json.Marshal(snap)
	if err != nil {
		log.Error().Err(err).Uint64("seq", snap.Seq).Msg("failed to marshal snapshot")
		return
	}
	msg := Message{
		Type:      MsgSnapshot,
		Timestamp: time.Now().UTC(),
		Snapshot:  raw,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal snapshot message")
		return
	}

	s.lastMu.Lock()
	s.lastPayload = payload
	s.lastSnap = snap
	s.lastMu.Unlock()

	s.cm.Broadcast(payload)

	log.Debug().
		Uint64("seq", snap.Seq).
		Int("connections", s.cm.ConnectionCount()).
		Msg("snapshot broadcasted")
}

// sendCurrentSnapshot primes a freshly-connected client with the latest
// known state so it renders before the next live update.
func (s *Service) sendCurrentSnapshot(conn *Connection) {
	s.lastMu.RLock()
	payload := s.lastPayload
	s.lastMu.RUnlock()

	if payload == nil {
		// Nothing replicated yet, fall back to the engine directly.
		snap := s.engine.Snapshot()
		raw, err := json.Marshal(snap)
		if err != nil {
			log.Error().Err(err).Msg("failed to marshal initial snapshot")
			return
		}
		msg := Message{Type: MsgSnapshot, Timestamp: time.Now().UTC(), Snapshot: raw}
		payload, err = json.Marshal(msg)
		if err != nil {
			return
		}
	}

	if !s.cm.Send(conn, payload) {
		log.Warn().Str("connection_id", conn.ID).Msg("could not prime new connection")
	}
}

// dispatch routes one client command into the engine and answers the
// connection with an ack or an actionable rejection. A successful command
// also produces a snapshot broadcast through the replication path.
func (s *Service) dispatch(conn *Connection, cmd Command) {
	ctx := context.Background()
	var err error

	switch cmd.Type {
	case CmdJoin:
		s.engine.Join(ctx, conn.UserID, cmd.Name)
	case CmdPlaceBid:
		err = s.engine.PlaceBid(ctx, conn.UserID, cmd.Amount)
	case CmdSetReady:
		err = s.engine.SetReady(ctx, conn.UserID)
	case CmdSetTeamName:
		err = s.engine.SetTeamName(ctx, conn.UserID, cmd.TeamName)
	case CmdSetProfilePicture:
		err = s.engine.SetProfilePicture(ctx, conn.UserID, cmd.PictureRef)
	case CmdSetPlayers:
		err = s.engine.SetPlayers(ctx, conn.UserID, cmd.Players)
	case CmdAddPlayer:
		if cmd.Player == nil {
			s.reject(conn, cmd.Type, "player is required")
			return
		}
		err = s.engine.AddPlayer(ctx, conn.UserID, *cmd.Player)
	case CmdSetCustomLogo:
		err = s.engine.SetCustomLogo(ctx, conn.UserID, cmd.Club, cmd.URL)
	case CmdSetWinnerImage:
		err = s.engine.SetWinnerImage(ctx, conn.UserID, cmd.URL)
	case CmdInitialize:
		err = s.engine.Initialize(ctx, conn.UserID, cmd.InitialCredits)
	case CmdStart:
		err = s.engine.Start(ctx, conn.UserID)
	case CmdPause:
		err = s.engine.Pause(ctx, conn.UserID)
	case CmdResume:
		err = s.engine.Resume(ctx, conn.UserID)
	case CmdStop:
		err = s.engine.Stop(ctx, conn.UserID)
	case CmdReset:
		err = s.engine.Reset(ctx, conn.UserID)
	case CmdStartTest:
		err = s.engine.StartTest(ctx, conn.UserID)
	case CmdStopTest:
		err = s.engine.StopTest(ctx, conn.UserID)
	default:
		s.reject(conn, cmd.Type, "unknown command")
		return
	}

	if err != nil {
		log.Debug().
			Err(err).
			Str("user_id", conn.UserID).
			Str("command", string(cmd.Type)).
			Msg("command rejected")
		s.reject(conn, cmd.Type, err.Error())
		return
	}

	s.ack(conn, cmd.Type)
}

func (s *Service) reject(conn *Connection, cmd CommandType, reason string) {
	s.sendTo(conn, Message{
		Type:      MsgError,
		Timestamp: time.Now().UTC(),
		Command:   cmd,
		Reason:    reason,
	})
}

func (s *Service) ack(conn *Connection, cmd CommandType) {
	s.sendTo(conn, Message{
		Type:      MsgAck,
		Timestamp: time.Now().UTC(),
		Command:   cmd,
	})
}

func (s *Service) sendTo(conn *Connection, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if !s.cm.Send(conn, payload) {
		log.Warn().Str("connection_id", conn.ID).Msg("reply dropped, connection gone or backed up")
	}
}

// Routes returns the HTTP surface: the WebSocket endpoint, a health probe
// and a read-only state endpoint for reporting consumers.
func (s *Service) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/state", s.handleState)

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(mux)
}

// handleWebSocket upgrades the connection. The user id comes from the
// identity provider upstream; here it arrives as a query parameter and is
// trusted as-is.
func (s *Service) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	if _, err := s.cm.UpgradeConnection(w, r, userID); err != nil {
		http.Error(w, "failed to upgrade connection", http.StatusInternalServerError)
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"status":      "ok",
		"connections": s.cm.ConnectionCount(),
	})
}

// handleState serves the latest snapshot to read-only consumers such as the
// post-auction export.
func (s *Service) handleState(w http.ResponseWriter, r *http.Request) {
	s.lastMu.RLock()
	snap := s.lastSnap
	s.lastMu.RUnlock()
	if snap.State == nil {
		snap = s.engine.Snapshot()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}
