package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"eato/internal/model"
)

var templates = template.Must(template.New("base").Parse(`
{{define "layout"}}<!DOCTYPE html>
<html><body style="font-family: Arial, sans-serif; color: #333;">
<div style="max-width: 560px; margin: 0 auto; padding: 24px;">
<p>Hi {{.Name}},</p>
{{template "body" .}}
<p>Thanks,<br>{{.Sender}}</p>
</div></body></html>{{end}}
`))

var bodies = map[string]string{
	"otp": `<p>Your verification code is:</p>
<p style="font-size: 28px; font-weight: bold; letter-spacing: 6px;">{{.Code}}</p>
<p>The code expires in {{.TTL}}. If you did not request it, you can ignore this email.</p>`,
	"welcome": `<p>Welcome to Eato! Your account has been created and you can start ordering right away.</p>`,
	"login": `<p>We noticed a new sign-in to your account on {{.When}}.</p>
<p>If this was not you, please change your password immediately.</p>`,
	"password": `<p>The password for your account was changed on {{.When}}.</p>
<p>If you did not make this change, contact support immediately.</p>`,
	"email-change": `<p>The email address on your account was changed from <b>{{.OldEmail}}</b> to <b>{{.NewEmail}}</b> on {{.When}}.</p>`,
	"deleted": `<p>Your account has been deleted. We are sorry to see you go.</p>`,
}

type view struct {
	Name     string
	Sender   string
	Code     string
	TTL      string
	When     string
	OldEmail string
	NewEmail string
}

// Notifier renders and sends the account lifecycle emails.
type Notifier struct {
	mailer Mailer
	sender string
	now    func() time.Time
	bodies map[string]*template.Template
}

// NewNotifier creates a Notifier signing emails as sender.
func NewNotifier(mailer Mailer, sender string) *Notifier {
	n := &Notifier{mailer: mailer, sender: sender, now: time.Now, bodies: make(map[string]*template.Template)}
	for name, body := range bodies {
		t := template.Must(templates.Clone())
		n.bodies[name] = template.Must(t.New("body").Parse(body))
	}
	return n
}

func (n *Notifier) render(name string, v view) (string, error) {
	v.Sender = n.sender
	var buf bytes.Buffer
	if err := n.bodies[name].ExecuteTemplate(&buf, "layout", v); err != nil {
		return "", fmt.Errorf("failed to render %s email: %w", name, err)
	}
	return buf.String(), nil
}

func (n *Notifier) deliver(ctx context.Context, to []string, subject, name string, v view) error {
	html, err := n.render(name, v)
	if err != nil {
		return err
	}
	return n.mailer.Send(ctx, Message{To: to, Subject: subject, HTML: html})
}

func (n *Notifier) when() string {
	return n.now().UTC().Format("Jan 2, 2006 at 15:04 MST")
}

func displayName(u *model.User) string {
	if name := strings.TrimSpace(u.FirstName); name != "" {
		return name
	}
	return u.Email
}

// SendOTP emails a verification code.
func (n *Notifier) SendOTP(ctx context.Context, email, code string, ttl time.Duration) error {
	return n.deliver(ctx, []string{email}, "Your Eato verification code", "otp", view{
		Name: email,
		Code: code,
		TTL:  ttl.Round(time.Minute).String(),
	})
}

// SendWelcome greets a newly registered user.
func (n *Notifier) SendWelcome(ctx context.Context, u *model.User) error {
	return n.deliver(ctx, []string{u.Email}, "Welcome to Eato", "welcome", view{Name: displayName(u)})
}

// SendLoginAlert notifies a user of a sign-in.
func (n *Notifier) SendLoginAlert(ctx context.Context, u *model.User) error {
	return n.deliver(ctx, []string{u.Email}, "New sign-in to your Eato account", "login", view{
		Name: displayName(u),
		When: n.when(),
	})
}

// SendPasswordChanged confirms a password change.
func (n *Notifier) SendPasswordChanged(ctx context.Context, u *model.User) error {
	return n.deliver(ctx, []string{u.Email}, "Your Eato password was changed", "password", view{
		Name: displayName(u),
		When: n.when(),
	})
}

// SendEmailChanged notifies both the previous and the new address.
func (n *Notifier) SendEmailChanged(ctx context.Context, u *model.User, oldEmail string) error {
	return n.deliver(ctx, []string{oldEmail, u.Email}, "Your Eato email address was changed", "email-change", view{
		Name:     displayName(u),
		When:     n.when(),
		OldEmail: oldEmail,
		NewEmail: u.Email,
	})
}

// SendAccountDeleted confirms an account deletion.
func (n *Notifier) SendAccountDeleted(ctx context.Context, u *model.User) error {
	return n.deliver(ctx, []string{u.Email}, "Your Eato account was deleted", "deleted", view{Name: displayName(u)})
}
