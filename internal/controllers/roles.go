package controllers

import "github.com/classverse/classroom_backend/internal/models"

var allowedRoles = map[string]struct{}{
	models.RoleStudent: {},
	models.RoleTeacher: {},
	models.RoleAdmin:   {},
}

func IsValidRole(role string) bool {
	_, ok := allowedRoles[role]
	return ok
}
