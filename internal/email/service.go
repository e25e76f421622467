// Package email notifies proposers about review decisions over SMTP.
package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"
)

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
	// AppURL is the web root used to link to a proposal.
	AppURL string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Service struct {
	config Config
	server string
	auth   smtp.Auth
	send   sendFunc
}

func NewService(config Config) *Service {
	var auth smtp.Auth
	if config.Username != "" {
		auth = smtp.PlainAuth("", config.Username, config.Password, config.Host)
	}
	return &Service{
		config: config,
		server: config.Host + ":" + config.Port,
		auth:   auth,
		send:   smtp.SendMail,
	}
}

// IsConfigured returns true if email is configured
func (s *Service) IsConfigured() bool {
	return s != nil && s.config.Host != "" && s.config.Port != "" && s.config.From != ""
}

// SendHTMLEmail sends a multipart message with a plain-text fallback.
func (s *Service) SendHTMLEmail(to []string, subject, textBody, htmlBody string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("email not configured")
	}

	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}
	boundary := "boundary-proposaldesk"

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", textBody)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n")
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "%s\r\n", htmlBody)
	fmt.Fprintf(&msg, "\r\n")
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	return s.send(s.server, s.auth, s.config.From, to, msg.Bytes())
}

// ReviewDecisionData fills the review decision template.
type ReviewDecisionData struct {
	ProposerName string
	ReviewerName string
	Title        string
	Status       string
	Version      int
	Comment      string
	ProposalURL  string
}

// SendReviewDecision tells a proposer that a reviewer acted on their
// proposal.
func (s *Service) SendReviewDecision(to string, data ReviewDecisionData) error {
	if data.ProposalURL == "" && s.config.AppURL != "" {
		data.ProposalURL = strings.TrimRight(s.config.AppURL, "/")
	}
	subject := fmt.Sprintf("Your proposal %q is now %s", data.Title, data.Status)
	html, err := renderTemplate(reviewDecisionTemplate, data)
	if err != nil {
		return fmt.Errorf("render review decision template: %w", err)
	}
	text := fmt.Sprintf("%s marked %q as %s (version %d).\n\n%s", data.ReviewerName, data.Title, data.Status, data.Version, data.Comment)
	return s.SendHTMLEmail([]string{to}, subject, text, html)
}

// ProposalURL links to one proposal under the configured web root.
func (s *Service) ProposalURL(proposalID string) string {
	if s == nil || s.config.AppURL == "" {
		return ""
	}
	return strings.TrimRight(s.config.AppURL, "/") + "/proposals/" + proposalID
}

var templates = map[string]*template.Template{}

func renderTemplate(name string, data any) (string, error) {
	t, ok := templates[name]
	if !ok {
		return "", fmt.Errorf("unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const reviewDecisionTemplate = "review_decision"

func init() {
	templates[reviewDecisionTemplate] = template.Must(template.New(reviewDecisionTemplate).Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Title}} is {{.Status}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { border-bottom: 2px solid #0066cc; padding-bottom: 10px; margin-bottom: 20px; }
        .comment { background: #f5f5f5; border-left: 3px solid #0066cc; padding: 12px; margin: 20px 0; white-space: pre-wrap; }
        .button { display: inline-block; padding: 12px 24px; background: #0066cc; color: white; text-decoration: none; border-radius: 4px; margin: 20px 0; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Proposal Desk</h1>
    </div>

    <p>Hi {{.ProposerName}},</p>

    <p>{{.ReviewerName}} reviewed <strong>{{.Title}}</strong>. It is now <strong>{{.Status}}</strong> at version {{.Version}}.</p>

    {{if .Comment}}<div class="comment">{{.Comment}}</div>{{end}}

    {{if .ProposalURL}}<p><a href="{{.ProposalURL}}" class="button">Open Proposal</a></p>{{end}}
</body>
</html>`))
}
