package email

import (
	"fmt"
	"html"
	"strings"
)

// Provider - транспорт писем. Уведомления дублируются письмом только для
// экстренных рассылок, поэтому интерфейс минимальный.
type Provider interface {
	Send(msg *Email) error
	Validate() error
	Close() error
}

// Email - одно письмо. Bcc используется для массовых рассылок.
type Email struct {
	To       []string
	Bcc      []string
	Subject  string
	Body     string
	HTMLBody string
}

// Recipients - сколько адресатов у письма
func (e *Email) Recipients() int {
	return len(e.To) + len(e.Bcc)
}

// NewBroadcast собирает рассылку скрытой копией: получатели не видят друг друга
func NewBroadcast(recipients []string, subject, body string) *Email {
	bcc := make([]string, 0, len(recipients))
	seen := make(map[string]struct{}, len(recipients))
	for _, r := range recipients {
		r = strings.TrimSpace(strings.ToLower(r))
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		bcc = append(bcc, r)
	}

	return &Email{
		Bcc:     bcc,
		Subject: subject,
		Body:    body,
		HTMLBody: fmt.Sprintf("<h2>%s</h2><p>%s</p>",
			html.EscapeString(subject),
			strings.ReplaceAll(html.EscapeString(body), "\n", "<br>")),
	}
}
