package rbac

// Permission constants.
const (
	PermissionCreateMilestone = "milestone:create"
	PermissionReviewMilestone = "milestone:review"
	PermissionInitProgress    = "progress:init"
	PermissionSyncProgress    = "progress:sync"
	PermissionReadProgress    = "progress:read"
	PermissionReplayOutbox    = "outbox:replay"
)

// Role constants.
const (
	RoleCoordinator = "coordinator"
	RoleReviewer    = "reviewer"
	RoleAdmin       = "admin"
)

var rolePermissions = map[string][]string{
	RoleCoordinator: {
		PermissionCreateMilestone,
		PermissionInitProgress,
		PermissionSyncProgress,
		PermissionReadProgress,
	},
	RoleReviewer: {
		PermissionReviewMilestone,
		PermissionReadProgress,
	},
	RoleAdmin: {
		PermissionCreateMilestone,
		PermissionReviewMilestone,
		PermissionInitProgress,
		PermissionSyncProgress,
		PermissionReadProgress,
		PermissionReplayOutbox,
	},
}

// ValidRole reports whether the role is one the system knows.
func ValidRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

// HasPermission checks whether the role grants the permission.
func HasPermission(role string, permission string) bool {
	permissions, ok := rolePermissions[role]
	if !ok {
		return false
	}

	for _, p := range permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission returns a typed error when the role lacks the permission.
func CheckPermission(role string, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			Role:       role,
			Permission: permission,
		}
	}
	return nil
}

// PermissionDeniedError reports a missing permission.
type PermissionDeniedError struct {
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions"
}
