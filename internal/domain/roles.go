package domain

import "strings"

// RoleSet: роли участника на момент действия.
type RoleSet []string

// Has проверяет наличие роли. Пустой идентификатор никогда не совпадает.
func (r RoleSet) Has(roleID string) bool {
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		return false
	}
	for _, role := range r {
		if strings.EqualFold(strings.TrimSpace(role), roleID) {
			return true
		}
	}
	return false
}

// Роли Telegram выводятся из статуса участника чата.
const (
	RoleTelegramCreator       = "creator"
	RoleTelegramAdministrator = "administrator"
	RoleTelegramMember        = "member"
)

// TelegramRoles возвращает набор ролей для статуса участника Telegram.
// Создатель чата считается и администратором.
func TelegramRoles(status, customTitle string) RoleSet {
	status = strings.ToLower(strings.TrimSpace(status))
	var roles RoleSet
	switch status {
	case RoleTelegramCreator:
		roles = RoleSet{RoleTelegramCreator, RoleTelegramAdministrator}
	case "":
	default:
		roles = RoleSet{status}
	}
	if title := strings.TrimSpace(customTitle); title != "" {
		roles = append(roles, title)
	}
	return roles
}

// IsTelegramAdmin сообщает, может ли участник настраивать каналы.
func IsTelegramAdmin(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case RoleTelegramCreator, RoleTelegramAdministrator:
		return true
	}
	return false
}
