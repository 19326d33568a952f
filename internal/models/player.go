package models

// PlayerRole is one of the four squad positions.
type PlayerRole string

const (
	RoleGoalkeeper PlayerRole = "P"
	RoleDefender   PlayerRole = "D"
	RoleMidfielder PlayerRole = "C"
	RoleForward    PlayerRole = "A"
)

// Roles lists every valid role in pitch order.
var Roles = []PlayerRole{RoleGoalkeeper, RoleDefender, RoleMidfielder, RoleForward}

// Valid reports whether r is one of the four known roles.
func (r PlayerRole) Valid() bool {
	switch r {
	case RoleGoalkeeper, RoleDefender, RoleMidfielder, RoleForward:
		return true
	}
	return false
}

// Player is an entry in the auction player pool. Players are immutable once
// ingested; when a player is won the buyer's squad stores a copy with Value
// overwritten to the price actually paid, never the pool entry itself.
type Player struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Role  PlayerRole `json:"role"`
	Club  string     `json:"club"`
	Value int        `json:"value"` // opening bid price; paid price in squad copies
}
