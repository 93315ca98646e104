package model

// Role is the privilege level carried in a caller's token.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
	RoleSudo      Role = "sudo"
)

// Caller identifies the user on whose behalf an operation runs.
type Caller struct {
	UserID int  `json:"user_id"`
	Role   Role `json:"role"`
}

// IsModerator reports whether the caller may moderate questions.
func (c Caller) IsModerator() bool {
	return c.Role == RoleModerator || c.IsAdmin()
}

// IsAdmin reports whether the caller may act on any user's data.
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin || c.Role == RoleSudo
}
