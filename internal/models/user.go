package models

// User is a draft participant. Exactly one user carries IsAdmin.
type User struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	TeamName       string   `json:"team_name"`
	Credits        int      `json:"credits"`
	Squad          []Player `json:"squad"`
	IsReady        bool     `json:"is_ready"`
	IsAdmin        bool     `json:"is_admin"`
	ProfilePicture string   `json:"profile_picture,omitempty"`
}

// Clone returns a deep copy of the user.
func (u User) Clone() User {
	out := u
	out.Squad = make([]Player, len(u.Squad))
	copy(out.Squad, u.Squad)
	return out
}
