package app

import (
	"sync"

	"blooddonation_backend/internal/email"
)

// MockEmailProvider используется для тестов и локальной разработки.
// Письма не отправляются, а сохраняются в памяти.
type MockEmailProvider struct {
	mu   sync.Mutex
	sent []email.Email
}

func (m *MockEmailProvider) Send(msg *email.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, *msg)
	return nil
}

func (m *MockEmailProvider) Validate() error { return nil }
func (m *MockEmailProvider) Close() error    { return nil }

// Sent - копия отправленных писем
func (m *MockEmailProvider) Sent() []email.Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]email.Email, len(m.sent))
	copy(out, m.sent)
	return out
}
