package user

// AuthUser is the resolved identity of a signed-in visitor.
type AuthUser struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	Role            Role   `json:"role"`
	Name            string `json:"name"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

// NewAuthUser builds the authenticated view of a user record.
func NewAuthUser(u User) *AuthUser {
	return &AuthUser{
		ID:              u.ID,
		Email:           u.Email,
		Role:            u.Role,
		Name:            u.Name,
		IsAuthenticated: true,
	}
}

// IsAdmin returns true if the user has the admin role.
// INVARIANT: a nil receiver is treated as anonymous
func (a *AuthUser) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}

// IsCoach returns true if the user has the coach role.
func (a *AuthUser) IsCoach() bool {
	return a != nil && a.Role == RoleCoach
}

// IsStudent returns true if the user has the student role.
func (a *AuthUser) IsStudent() bool {
	return a != nil && a.Role == RoleStudent
}

// CanAccessAdmin reports whether the admin dashboard is available.
func (a *AuthUser) CanAccessAdmin() bool {
	return a.IsAdmin()
}

// CanViewDatabase reports whether raw records and analytics are visible.
// Admins and coaches qualify.
func (a *AuthUser) CanViewDatabase() bool {
	return a.IsAdmin() || a.IsCoach()
}
