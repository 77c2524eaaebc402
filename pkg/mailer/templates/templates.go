package templates

import (
	"bytes"
	"fmt"
	"html/template"
)

// Render produces the subject and HTML body for a known template name.
// Data keys: Name, ActionURL, ExpiresInText.
func Render(name string, data map[string]any) (subject, html string, err error) {
	t, ok := registry[name]
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", name)
	}
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, data); err != nil {
		return "", "", err
	}
	return t.subject, buf.String(), nil
}

type entry struct {
	subject string
	tmpl    *template.Template
}

var registry = map[string]entry{
	"verify_email": {
		subject: "Verify your email address",
		tmpl:    template.Must(template.New("verify_email").Parse(verifyEmailHTML)),
	},
	"reset_password": {
		subject: "Reset your password",
		tmpl:    template.Must(template.New("reset_password").Parse(resetPasswordHTML)),
	},
}

const verifyEmailHTML = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2>Welcome, {{.Name}}!</h2>
    <p>Thank you for registering. Please verify your email address by clicking the button below:</p>
    <p><a href="{{.ActionURL}}" style="display: inline-block; background: #2563eb; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px;">Verify Email</a></p>
    <p>Or copy and paste this link into your browser:</p>
    <p style="word-break: break-all; color: #2563eb;">{{.ActionURL}}</p>
    {{if .ExpiresInText}}<p>This link expires in {{.ExpiresInText}}.</p>{{end}}
    <p>If you didn't create this account, please ignore this email.</p>
  </div>
</body>
</html>`

const resetPasswordHTML = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
  <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2>Hello, {{.Name}}</h2>
    <p>We received a request to reset your password. Click the button below to choose a new one:</p>
    <p><a href="{{.ActionURL}}" style="display: inline-block; background: #2563eb; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px;">Reset Password</a></p>
    <p>Or copy and paste this link into your browser:</p>
    <p style="word-break: break-all; color: #2563eb;">{{.ActionURL}}</p>
    {{if .ExpiresInText}}<p>This link expires in {{.ExpiresInText}}.</p>{{end}}
    <p>If you didn't request a password reset, you can safely ignore this email.</p>
  </div>
</body>
</html>`
