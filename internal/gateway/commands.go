package gateway

import (
	"encoding/json"
	"time"

	"github.com/fantadraft/asta/internal/models"
)

// CommandType enumerates the client-to-server messages.
type CommandType string

const (
	CmdJoin              CommandType = "join"
	CmdPlaceBid          CommandType = "place_bid"
	CmdSetReady          CommandType = "set_ready"
	CmdSetTeamName       CommandType = "set_team_name"
	CmdSetProfilePicture CommandType = "set_profile_picture"

	// Admin-only commands. The engine re-checks the actor's admin flag, the
	// gateway just routes.
	CmdSetPlayers     CommandType = "set_players"
	CmdAddPlayer      CommandType = "add_player"
	CmdSetCustomLogo  CommandType = "set_custom_logo"
	CmdSetWinnerImage CommandType = "set_winner_image"
	CmdInitialize     CommandType = "initialize"
	CmdStart          CommandType = "start"
	CmdPause          CommandType = "pause"
	CmdResume         CommandType = "resume"
	CmdStop           CommandType = "stop"
	CmdReset          CommandType = "reset"
	CmdStartTest      CommandType = "start_test"
	CmdStopTest       CommandType = "stop_test"
)

// Command is the envelope clients send over the WebSocket. Fields beyond
// Type are populated per command.
type Command struct {
	Type           CommandType     `json:"type"`
	Amount         int             `json:"amount,omitempty"`
	Name           string          `json:"name,omitempty"`
	TeamName       string          `json:"team_name,omitempty"`
	PictureRef     string          `json:"picture_ref,omitempty"`
	Players        []models.Player `json:"players,omitempty"`
	Player         *models.Player  `json:"player,omitempty"`
	Club           string          `json:"club,omitempty"`
	URL            string          `json:"url,omitempty"`
	InitialCredits int             `json:"initial_credits,omitempty"`
}

// MessageType enumerates server-to-client messages.
type MessageType string

const (
	MsgSnapshot MessageType = "snapshot"
	MsgError    MessageType = "error"
	MsgAck      MessageType = "ack"
)

// Message is the envelope the gateway sends to clients. Snapshot messages
// carry the full replication snapshot; error messages answer a rejected
// command with an actionable reason.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Snapshot  json.RawMessage `json:"snapshot,omitempty"`
	Command   CommandType     `json:"command,omitempty"`
	Reason    string          `json:"reason,omitempty"`
}
