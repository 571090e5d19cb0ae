package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleOwner            = "owner"
	RoleManager          = "manager"
	RoleFrontDesk        = "front_desk"
	RoleSuperAdmin       = "super_admin"
	RolePlatformOperator = "platform_operator" // hidden role
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

func IsHiddenRole(role string) bool { return role == RolePlatformOperator }
