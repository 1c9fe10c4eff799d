package models

import "time"

// Role values issued by the promo backend.
const (
	RoleSuperAdmin    = "SUPERADMIN"
	RoleAdmin         = "ADMIN"
	RoleSeniorUser    = "SENIORUSER"
	RoleWinnerReports = "WINNERREPORTS"
	RoleAllReports    = "ALLREPORTS"
)

// Session is the operator identity passed explicitly to everything that talks
// to the backend on the operator's behalf.
type Session struct {
	Token     string    `json:"-"`
	Subject   string    `json:"subject"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// Privileged reports whether the operator may see unmasked MSISDNs.
func (s Session) Privileged() bool {
	return s.Role == RoleSuperAdmin
}

// Key identifies the session for per-operator state.
func (s Session) Key() string {
	if s.Subject != "" {
		return s.Subject
	}
	return s.Token
}
