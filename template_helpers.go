package garden

// TemplateHelpers returns the functions and data views can use. They are
// registered as globals on the view engine.
//
// In templates:
//
//	{% if is_authenticated(current_user) %}
//	{% if has_role(current_user, "admin") %}
//	{{ display_name(current_user) }}
func TemplateHelpers() map[string]any {
	return map[string]any{
		"is_authenticated": isAuthenticated,
		"has_role":         hasRole,
		"is_at_least":      isAtLeast,
		"display_name":     displayName,
		"roles": map[string]string{
			"guest":  RoleGuest,
			"member": RoleMember,
			"admin":  RoleAdmin,
		},
	}
}

func templateUser(user any) (*User, bool) {
	switch u := user.(type) {
	case *User:
		return u, u != nil
	case User:
		return &u, true
	default:
		return nil, false
	}
}

func isAuthenticated(user any) bool {
	_, ok := templateUser(user)
	return ok
}

func hasRole(user any, role string) bool {
	u, ok := templateUser(user)
	return ok && u.Role == role
}

func isAtLeast(user any, minRole string) bool {
	u, ok := templateUser(user)
	return ok && IsAtLeast(u.Role, minRole)
}

func displayName(user any) string {
	u, ok := templateUser(user)
	if !ok {
		return ""
	}
	return u.DisplayName()
}
