package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/MagicSoftDev0717/send-contract-toemail-render/config"
	"github.com/MagicSoftDev0717/send-contract-toemail-render/model"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Address is a mailbox with an optional display name.
type Address struct {
	Name  string
	Email string
}

// Attachment is a file carried by a Message.
type Attachment struct {
	FileName    string
	ContentType string
	Content     []byte
}

// Message is one outbound email.
type Message struct {
	To         Address
	From       Address
	ReplyTo    Address
	Subject    string
	HTML       string
	Attachment *Attachment
}

// Mailer dispatches a message synchronously. Failures wrap model.ErrDelivery.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SendGridMailer sends through the SendGrid v3 mail API.
type SendGridMailer struct {
	apiKey  string
	host    string
	timeout time.Duration
}

func NewSendGridMailer(cfg *config.MailConfig) *SendGridMailer {
	return &SendGridMailer{
		apiKey:  cfg.APIKey,
		host:    cfg.Host,
		timeout: cfg.Timeout(),
	}
}

// Send makes a single attempt bounded by the configured timeout.
func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	request := sendgrid.GetRequest(m.apiKey, "/v3/mail/send", m.host)
	request.Method = "POST"
	request.Body = mail.GetRequestBody(buildSendGridMail(msg))

	resp, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrDelivery, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: sendgrid returned status %d: %s", model.ErrDelivery, resp.StatusCode, resp.Body)
	}
	return nil
}

func buildSendGridMail(msg Message) *mail.SGMailV3 {
	from := mail.NewEmail(msg.From.Name, msg.From.Email)
	to := mail.NewEmail(msg.To.Name, msg.To.Email)
	m := mail.NewV3MailInit(from, msg.Subject, to, mail.NewContent("text/html", msg.HTML))

	if msg.ReplyTo.Email != "" {
		m.SetReplyTo(mail.NewEmail(msg.ReplyTo.Name, msg.ReplyTo.Email))
	}

	if msg.Attachment != nil {
		a := mail.NewAttachment()
		a.SetContent(base64.StdEncoding.EncodeToString(msg.Attachment.Content))
		a.SetType(msg.Attachment.ContentType)
		a.SetFilename(msg.Attachment.FileName)
		a.SetDisposition("attachment")
		m.AddAttachment(a)
	}
	return m
}
