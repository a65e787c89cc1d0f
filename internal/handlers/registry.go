package handlers

// AppHandlers содержит все хэндлеры приложения.
type AppHandlers struct {
	AuthHandler         *AuthHandler
	ChatHandler         *ChatHandler
	NotificationHandler *NotificationHandler
	DonationHandler     *DonationHandler
	AdminHandler        *AdminHandler
}
