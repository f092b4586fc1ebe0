package suggestions

import "suggestion-bot/internal/domain"

// Authorize решает, может ли участник нажимать кнопки решения.
// Если настройка канала есть, нужна роль AllowedRoleID. Без настройки ограничений на этом уровне нет.
// Проверка выполняется на каждую попытку: роли могут измениться после публикации.
func Authorize(actorRoles domain.RoleSet, cfg *domain.ChannelConfig) bool {
	if cfg == nil {
		return true
	}
	return actorRoles.Has(cfg.AllowedRoleID)
}
