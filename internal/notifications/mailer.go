package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"

	"gopkg.in/gomail.v2"

	"github.com/stagepass/stagepass-backend/pkg/config"
	"github.com/stagepass/stagepass-backend/pkg/db/models"
	"github.com/stagepass/stagepass-backend/pkg/qr"
)

const confirmationTemplate = `<html>
<body>
<p>Hi {{.CustomerName}},</p>
<p>Your order for <strong>{{.SessionTitle}}</strong> is confirmed.</p>
<table>
{{range .Tickets}}<tr><td>{{.Tier}}</td><td>{{.Code}}</td></tr>
{{end}}</table>
<p>Show the attached QR codes at the door. Each code admits one person.</p>
</body>
</html>`

type mailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer sends confirmation email over SMTP with one QR attachment per ticket.
type Mailer struct {
	from   string
	sender mailSender
	tmpl   *template.Template
}

// NewMailer builds an SMTP-backed Notifier from config.
func NewMailer(cfg config.SMTPConfig) (*Mailer, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("smtp host and from address are required")
	}
	tmpl, err := template.New("confirmation").Parse(confirmationTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing confirmation template: %w", err)
	}
	return &Mailer{
		from:   cfg.From,
		sender: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		tmpl:   tmpl,
	}, nil
}

type confirmationData struct {
	CustomerName string
	SessionTitle string
	Tickets      []ticketLine
}

type ticketLine struct {
	Tier string
	Code string
}

// SendConfirmation renders and sends the confirmation mail.
func (m *Mailer) SendConfirmation(_ context.Context, order *models.Order, tickets []models.Ticket) error {
	if order == nil {
		return fmt.Errorf("order required")
	}

	data := confirmationData{CustomerName: order.CustomerName}
	if order.Session != nil {
		data.SessionTitle = order.Session.Title
	}
	for _, ticket := range tickets {
		data.Tickets = append(data.Tickets, ticketLine{Tier: ticket.Tier.String(), Code: ticket.Code})
	}

	var body bytes.Buffer
	if err := m.tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("rendering confirmation: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", order.CustomerEmail)
	msg.SetHeader("Subject", fmt.Sprintf("Your tickets for %s", data.SessionTitle))
	msg.SetBody("text/html", body.String())

	for _, ticket := range tickets {
		png, err := qr.EncodePNG(ticket.Code, 256)
		if err != nil {
			return fmt.Errorf("rendering qr for %s: %w", ticket.Code, err)
		}
		name := fmt.Sprintf("%s.png", ticket.Code)
		msg.Attach(name,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, werr := w.Write(png)
				return werr
			}),
		)
	}

	if err := m.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending confirmation: %w", err)
	}
	return nil
}
