package email

import (
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"
)

// SMTPConfig - параметры SMTP из конфигурации приложения
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

// GomailProvider отправляет письма через gomail
type GomailProvider struct {
	config SMTPConfig
	dialer *gomail.Dialer
}

func NewGomailProvider(config SMTPConfig) *GomailProvider {
	if config.Port == 0 {
		config.Port = 587
	}
	dialer := gomail.NewDialer(config.Host, config.Port, config.Username, config.Password)
	// 465 - неявный TLS, остальные порты через STARTTLS
	dialer.SSL = config.Port == 465
	return &GomailProvider{config: config, dialer: dialer}
}

func (p *GomailProvider) Send(msg *Email) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if msg.Recipients() == 0 {
		return errors.New("email has no recipients")
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", p.config.FromEmail, p.config.FromName)
	if len(msg.To) > 0 {
		m.SetHeader("To", msg.To...)
	} else {
		// при рассылке в To только отправитель
		m.SetHeader("To", p.config.FromEmail)
	}
	if len(msg.Bcc) > 0 {
		m.SetHeader("Bcc", msg.Bcc...)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)
	if msg.HTMLBody != "" {
		m.AddAlternative("text/html", msg.HTMLBody)
	}

	if err := p.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send to %d recipients: %w", msg.Recipients(), err)
	}
	return nil
}

func (p *GomailProvider) Validate() error {
	switch {
	case p.config.Host == "":
		return errors.New("smtp host is not configured")
	case p.config.FromEmail == "":
		return errors.New("from email is not configured")
	case p.config.Port < 1 || p.config.Port > 65535:
		return fmt.Errorf("invalid smtp port %d", p.config.Port)
	}
	return nil
}

// Close - gomail открывает соединение на каждую отправку
func (p *GomailProvider) Close() error {
	return nil
}
