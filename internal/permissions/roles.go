package permissions

import "blooddonation_backend/internal/models"

// chattable - с кем роль может начать диалог (поиск собеседников)
var chattable = map[models.UserRole][]models.UserRole{
	models.UserRoleAdmin:    {models.UserRoleDonor, models.UserRoleHospital, models.UserRoleSeeker},
	models.UserRoleHospital: {models.UserRoleDonor, models.UserRoleSeeker, models.UserRoleAdmin},
	models.UserRoleDonor:    {models.UserRoleHospital, models.UserRoleSeeker, models.UserRoleAdmin},
	models.UserRoleSeeker:   {models.UserRoleHospital, models.UserRoleDonor, models.UserRoleAdmin},
}

// ChattableRoles возвращает копию списка ролей, доступных для переписки
func ChattableRoles(role models.UserRole) []models.UserRole {
	roles := chattable[role]
	out := make([]models.UserRole, len(roles))
	copy(out, roles)
	return out
}

// CanSearchRole - входит ли target в допустимые роли для role
func CanSearchRole(role, target models.UserRole) bool {
	for _, r := range chattable[role] {
		if r == target {
			return true
		}
	}
	return false
}
