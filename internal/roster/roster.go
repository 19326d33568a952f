// Package roster holds the per-role squad caps and the pure rules deciding
// whether a squad may take another player of a given role.
package roster

import "github.com/fantadraft/asta/internal/models"

// RoleLimits caps how many players of each role a single squad may hold.
var RoleLimits = map[models.PlayerRole]int{
	models.RoleGoalkeeper: 3,
	models.RoleDefender:   8,
	models.RoleMidfielder: 8,
	models.RoleForward:    6,
}

// SquadSize is the total squad size implied by the role caps.
func SquadSize() int {
	n := 0
	for _, limit := range RoleLimits {
		n += limit
	}
	return n
}

// RoleCount counts squad members of the given role.
func RoleCount(squad []models.Player, role models.PlayerRole) int {
	n := 0
	for _, p := range squad {
		if p.Role == role {
			n++
		}
	}
	return n
}

// CanAcquire reports whether the squad has room for one more player of the
// given role. An unknown role is a programming error upstream; it simply
// reports false here.
func CanAcquire(squad []models.Player, role models.PlayerRole) bool {
	limit, ok := RoleLimits[role]
	if !ok {
		return false
	}
	return RoleCount(squad, role) < limit
}
