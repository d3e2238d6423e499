package alert

import (
	"fmt"
	"net/smtp"
	"strings"
)

// sendEmail delivers the alert message over SMTP
func (d *Dispatcher) sendEmail(to string, msg *Message) error {
	body := fmt.Sprintf("%s\n\nURL: %s (%s)\nStatus: %s\nTime: %s\n",
		msg.Body, msg.URLName, msg.Target, strings.ToUpper(msg.Status), msg.Time)

	mail := fmt.Sprintf("From: %s\r\n", d.smtp.From)
	mail += fmt.Sprintf("To: %s\r\n", to)
	mail += fmt.Sprintf("Subject: %s\r\n", msg.Title)
	mail += "MIME-Version: 1.0\r\n"
	mail += "Content-Type: text/plain; charset=UTF-8\r\n"
	mail += "\r\n"
	mail += body

	recipients := strings.Split(to, ",")
	for i, r := range recipients {
		recipients[i] = strings.TrimSpace(r)
	}

	addr := fmt.Sprintf("%s:%d", d.smtp.Host, d.smtp.Port)

	var auth smtp.Auth
	if d.smtp.Username != "" && d.smtp.Password != "" {
		auth = smtp.PlainAuth("", d.smtp.Username, d.smtp.Password, d.smtp.Host)
	}

	if err := smtp.SendMail(addr, auth, d.smtp.From, recipients, []byte(mail)); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
