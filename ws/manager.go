package ws

import (
	"context"
	"sync"

	"blooddonation_backend/internal/logger"
)

// Event - конверт сообщения для клиента
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

const (
	EventNewMessage   = "new_message"
	EventNotification = "notification"
)

// WebSocketManager хранит соединения по user id (у пользователя может быть несколько вкладок)
type WebSocketManager struct {
	clients    map[uint]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[uint]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

func (manager *WebSocketManager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(manager.done)
			manager.closeAll()
			return

		case client := <-manager.register:
			manager.mu.Lock()
			set, ok := manager.clients[client.UserID]
			if !ok {
				set = make(map[*Client]struct{})
				manager.clients[client.UserID] = set
			}
			set[client] = struct{}{}
			manager.mu.Unlock()
			logger.Debug("ws client registered", "user_id", client.UserID)

		case client := <-manager.unregister:
			manager.remove(client)
		}
	}
}

func (manager *WebSocketManager) remove(client *Client) {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	set, ok := manager.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	close(client.Send)
	delete(set, client)
	if len(set) == 0 {
		delete(manager.clients, client.UserID)
	}
	logger.Debug("ws client unregistered", "user_id", client.UserID)
}

func (manager *WebSocketManager) closeAll() {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	for userID, set := range manager.clients {
		for client := range set {
			close(client.Send)
		}
		delete(manager.clients, userID)
	}
}

// PushToUser отправляет событие всем соединениям пользователя. Не блокирует.
func (manager *WebSocketManager) PushToUser(userID uint, eventType string, data any) {
	manager.mu.RLock()
	defer manager.mu.RUnlock()

	event := Event{Type: eventType, Data: data}
	for client := range manager.clients[userID] {
		select {
		case client.Send <- event:
		default:
			// Канал заполнен, клиент отключается
			go manager.drop(client)
		}
	}
}

// drop снимает клиента с учета, если менеджер еще работает
func (manager *WebSocketManager) drop(client *Client) {
	select {
	case manager.unregister <- client:
	case <-manager.done:
	}
}

// GetClientCount возвращает количество подключенных соединений
func (manager *WebSocketManager) GetClientCount() int {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	n := 0
	for _, set := range manager.clients {
		n += len(set)
	}
	return n
}

// IsUserConnected проверяет, есть ли у пользователя открытое соединение
func (manager *WebSocketManager) IsUserConnected(userID uint) bool {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	return len(manager.clients[userID]) > 0
}
