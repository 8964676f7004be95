package models

type Role string

const (
	RoleCandidate   Role = "CANDIDATE"
	RoleInterviewer Role = "INTERVIEWER"
	RoleAdmin       Role = "ADMIN"
)

func (r Role) Valid() bool {
	return r == RoleCandidate || r == RoleInterviewer || r == RoleAdmin
}

// Principal is the authenticated caller, derived from a verified credential.
type Principal struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
