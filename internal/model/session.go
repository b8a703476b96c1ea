package model

import "slices"

// Role is the portal account type of a user.
type Role string

const (
	RoleCandidate Role = "candidate"
	RoleRecruiter Role = "recruiter"
	RoleAdmin     Role = "admin"
)

func (r Role) pathSegment() string {
	if r == "" {
		return string(RoleCandidate)
	}
	return string(r)
}

// Session is the signed-in user the engine works on behalf of.
type Session struct {
	UserID string
	Role   Role
	Token  string

	// MessageRoles lists the roles that receive message notifications.
	MessageRoles []Role
}

// Authenticated reports whether the session carries a bearer credential.
func (s Session) Authenticated() bool {
	return s.Token != "" && s.UserID != ""
}

// QualifiesFor reports whether the session participates in domain.
func (s Session) QualifiesFor(d Domain) bool {
	if !s.Authenticated() {
		return false
	}
	if d != DomainMessage {
		return true
	}
	roles := s.MessageRoles
	if len(roles) == 0 {
		roles = []Role{RoleCandidate}
	}
	return slices.Contains(roles, s.Role)
}
