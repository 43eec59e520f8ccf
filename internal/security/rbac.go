package security

// Role and Permission are the RBAC vocabulary bootstrapped at Init.
// Policy evaluation beyond a direct role→permission lookup lives with
// the authorization collaborator, not here.
type Role string

type Permission string

const (
	RoleTraveler Role = "traveler"
	RolePlanner  Role = "planner"
	RoleAdmin    Role = "admin"
)

const (
	PermViewItinerary   Permission = "view_itinerary"
	PermEditItinerary   Permission = "edit_itinerary"
	PermShareItinerary  Permission = "share_itinerary"
	PermDeleteItinerary Permission = "delete_itinerary"
	PermUseChat         Permission = "use_chat"
	PermViewAuditLogs   Permission = "view_audit_logs"
	PermManageUsers     Permission = "manage_users"
)

func bootstrapRoles() map[Role][]Permission {
	return map[Role][]Permission{
		RoleTraveler: {
			PermViewItinerary, PermEditItinerary, PermUseChat,
		},
		RolePlanner: {
			PermViewItinerary, PermEditItinerary, PermShareItinerary,
			PermDeleteItinerary, PermUseChat,
		},
		RoleAdmin: {
			PermViewItinerary, PermEditItinerary, PermShareItinerary,
			PermDeleteItinerary, PermUseChat, PermViewAuditLogs, PermManageUsers,
		},
	}
}

// HasPermission reports whether role grants permission. Always false
// before Init or when the RBAC feature is off.
func (s *Service) HasPermission(role Role, permission Permission) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.roles[role] {
		if p == permission {
			return true
		}
	}
	return false
}
