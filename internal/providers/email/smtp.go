package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/burnhq/brnit/internal/config"
)

type SMTPProvider struct {
	cfg     config.EmailConfig
	baseURL string
	tmpl    *template.Template
}

func NewSMTP(cfg config.EmailConfig, baseURL string) *SMTPProvider {
	return &SMTPProvider{
		cfg:     cfg,
		baseURL: baseURL,
		tmpl:    template.Must(template.New("email").Parse(bodyTemplate)),
	}
}

func (p *SMTPProvider) Send(ctx context.Context, msg Message) error {
	var body bytes.Buffer
	err := p.tmpl.Execute(&body, map[string]any{
		"Subject":     msg.Subject,
		"Description": msg.Meta.Description,
		"Link":        msg.Meta.Link,
		"LinkText":    linkText(msg.Meta),
		"BaseURL":     p.baseURL,
	})
	if err != nil {
		return fmt.Errorf("render email: %w", err)
	}

	auth := smtp.PlainAuth("", p.cfg.SMTPUsername, p.cfg.SMTPPassword, p.cfg.SMTPHost)
	addr := fmt.Sprintf("%s:%d", p.cfg.SMTPHost, p.cfg.SMTPPort)

	mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
	raw := []byte(fmt.Sprintf("To: %s\r\nSubject: Brnit - %s\r\n%s\r\n%s", msg.To, msg.Subject, mime, body.String()))

	return smtp.SendMail(addr, auth, p.cfg.SMTPFrom, []string{msg.To}, raw)
}

func linkText(meta Meta) string {
	if meta.LinkText != "" {
		return meta.LinkText
	}
	return "Get Started"
}

const bodyTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Brnit - {{.Subject}}</title>
</head>
<body style="font-family: 'Inter', -apple-system, sans-serif; background-color: #f9fafb; padding: 40px 20px; line-height: 1.6; color: #1f2937;">
  <div style="max-width: 600px; margin: 0 auto; background-color: #ffffff; border-radius: 8px; overflow: hidden;">
    <div style="background: linear-gradient(135deg, #FD6E20 0%, #e5631a 100%); padding: 32px 40px; text-align: center;">
      <h1 style="font-size: 24px; font-weight: 700; color: #ffffff; margin: 0;">Brnit</h1>
    </div>
    <div style="padding: 40px;">
      <h2 style="font-size: 24px; font-weight: 600; margin: 0 0 16px 0;">{{.Subject}}</h2>
      <p style="font-size: 16px; margin: 0 0 24px 0;">{{.Description}}</p>
      {{if .Link}}
      <div style="text-align: center; margin: 32px 0;">
        <a href="{{.Link}}" style="display: inline-block; padding: 14px 32px; background-color: #FD6E20; color: #ffffff; text-decoration: none; border-radius: 6px; font-weight: 600;">{{.LinkText}}</a>
      </div>
      {{end}}
    </div>
    <div style="padding: 24px 40px; background-color: #f9fafb; border-top: 1px solid #e5e7eb; text-align: center;">
      <p style="font-size: 12px; color: #6b7280; margin: 0;">
        This email was sent by Brnit.<br>
        <a href="{{.BaseURL}}" style="color: #FD6E20; text-decoration: none;">Visit our website</a>
      </p>
    </div>
  </div>
</body>
</html>
`
