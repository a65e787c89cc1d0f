package contextkeys

// Используем кастомный тип, чтобы избежать коллизий
type contextKey string

// DBContextKey - это ключ, по которому мы будем хранить *gorm.DB в context
const DBContextKey = contextKey("db")

// Ключи gin.Context, которые выставляют middleware аутентификации
const (
	UserIDKey = "userID"
	// RoleKey после RequireApproved - роль из БД, а не из токена
	RoleKey = "role"
)
