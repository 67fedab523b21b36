package orchestrators

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"text/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"aph/internal/adapters/email"
	"aph/internal/domain/enrollment"
	"aph/internal/domain/payment"
	"aph/internal/domain/program"
)

// mdRenderer renders email bodies. Raw HTML in the source is escaped.
var mdRenderer = goldmark.New(
	goldmark.WithExtensions(extension.Table),
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

var receiptTemplate = template.Must(template.New("receipt").Parse(`# Payment received

Hi {{.Name}},

Thank you for your payment. You are enrolled in **{{.Program}}**.

| | |
|---|---|
| Amount | {{.Amount}} |
| Card | {{.Method}} ending in {{.LastFour}} |
| Transaction | {{.TransactionID}} |
| Enrollment | {{.Start}} to {{.End}} |

See you on the field.
`))

var resetTemplate = template.Must(template.New("reset").Parse(`# Reset your password

Someone asked to reset the password for {{.Email}}.

[Choose a new password]({{.Link}})

This link expires in one hour. If you did not ask for it, ignore this email.
`))

// Receipt describes a completed checkout to confirm by email.
type Receipt struct {
	To         string
	Name       string
	Payment    payment.Payment
	Program    program.Program
	Enrollment enrollment.Enrollment
}

// Mailer composes transactional emails and hands them to a sender.
type Mailer struct {
	Sender  email.Sender
	From    string
	ReplyTo string
	// ResetURL is the page that accepts a reset token, e.g.
	// "https://aph.example/reset-password".
	ResetURL string
}

// SendReceipt emails the payment confirmation.
func (m *Mailer) SendReceipt(ctx context.Context, r Receipt) error {
	name := r.Name
	if name == "" {
		name = "there"
	}
	src, err := execute(receiptTemplate, map[string]string{
		"Name":          name,
		"Program":       r.Program.Name,
		"Amount":        fmt.Sprintf("%.2f %s", r.Payment.Amount, r.Payment.Currency),
		"Method":        string(r.Payment.PaymentMethod),
		"LastFour":      r.Payment.CardLastFour,
		"TransactionID": r.Payment.TransactionID,
		"Start":         r.Enrollment.StartDate.Format("Jan 2, 2006"),
		"End":           r.Enrollment.EndDate.Format("Jan 2, 2006"),
	})
	if err != nil {
		return err
	}
	return m.send(ctx, r.To, "Your APH enrollment is confirmed", src, "receipt")
}

// SendPasswordReset emails a reset link carrying token. It has the shape
// the local identity provider expects for its reset notifier.
func (m *Mailer) SendPasswordReset(ctx context.Context, to, token string) error {
	link := m.ResetURL + "?token=" + url.QueryEscape(token)
	src, err := execute(resetTemplate, map[string]string{"Email": to, "Link": link})
	if err != nil {
		return err
	}
	return m.send(ctx, to, "Reset your APH password", src, "password_reset")
}

func (m *Mailer) send(ctx context.Context, to, subject, markdown, kind string) error {
	var html bytes.Buffer
	if err := mdRenderer.Convert([]byte(markdown), &html); err != nil {
		return fmt.Errorf("render %s email: %w", kind, err)
	}
	receipt, err := m.Sender.Send(ctx, email.Message{
		To:      []string{to},
		From:    m.From,
		Subject: subject,
		HTML:    html.String(),
		Text:    markdown,
		ReplyTo: m.ReplyTo,
		Tags:    map[string]string{"kind": kind},
	})
	if err != nil {
		return fmt.Errorf("send %s email: %w", kind, err)
	}
	slog.Info("email_event", "event", "email_sent", "kind", kind, "message_id", receipt.MessageID)
	return nil
}

func execute(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("execute %s template: %w", t.Name(), err)
	}
	return b.String(), nil
}
