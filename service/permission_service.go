package service

import "go-auth-api/model"

var basePermissions = []string{
	"auth:register",
	"auth:login",
	"auth:token:validate",
	"profile:read",
}

var adminPermissions = []string{
	"users:read",
	"users:write",
}

// PermissionsForRole returns a fresh slice of the permissions granted to role.
func PermissionsForRole(role model.Role) []string {
	perms := append([]string(nil), basePermissions...)
	if role == model.RoleAdmin {
		perms = append(perms, adminPermissions...)
	}
	return perms
}
