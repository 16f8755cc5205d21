package model

import "time"

// Role flags carried by a user. They gate staff and bot endpoints.
const (
	RoleAdmin       = "admin"
	RoleBot         = "bot"
	RoleStaff       = "staff"
	RoleFlightStaff = "flight_staff"
)

// User mirrors the `users` table. ID is the identity provider's opaque user
// identifier; the service trusts it as the booking owner.
type User struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Discriminator   string    `json:"discriminator"`
	RobloxID        string    `json:"robloxId,omitempty"`
	Avatar          string    `json:"avatar,omitempty"`
	Points          int       `json:"points"`
	APITokenHash    string    `json:"-"`
	IsAdmin         bool      `json:"isAdmin"`
	IsBot           bool      `json:"isBot"`
	IsStaff         bool      `json:"isStaff"`
	IsFlightStaff   bool      `json:"isFlightStaff"`
	HasEarlyBird    bool      `json:"hasEarlybird"`
	FlightsAttended int       `json:"flightsAttended"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Roles lists the role flags set on u.
func (u User) Roles() []string {
	var roles []string
	if u.IsAdmin {
		roles = append(roles, RoleAdmin)
	}
	if u.IsBot {
		roles = append(roles, RoleBot)
	}
	if u.IsStaff {
		roles = append(roles, RoleStaff)
	}
	if u.IsFlightStaff {
		roles = append(roles, RoleFlightStaff)
	}
	return roles
}

// HasRole reports whether u carries any of roles.
func (u User) HasRole(roles ...string) bool {
	for _, have := range u.Roles() {
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// BannedUser mirrors the `banned_users` table.
type BannedUser struct {
	UserID string `json:"userId" validate:"required"`
	Reason string `json:"reason,omitempty"`
}
