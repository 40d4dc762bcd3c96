package smtp

import (
	"errors"
	"fmt"
	smtpPkg "net/smtp"
	"os"
	"strings"
	"time"
)

var ErrNoCredentials = errors.New("SMTP_MAIL and SMTP_PASSWORD must be set")

// ViolationAlert is the summary mailed to examiners for a high severity frame.
type ViolationAlert struct {
	To          []string
	ExamID      string
	Severity    string
	Violations  []string
	EvidenceURL string
	DetectedAt  time.Time
}

type ItfSmtp interface {
	SendViolationAlert(alert ViolationAlert) error
}

type smtp struct {
	auth smtpPkg.Auth
	mail string
	addr string
	send func(addr string, a smtpPkg.Auth, from string, to []string, msg []byte) error
}

func New() (ItfSmtp, error) {
	mail := os.Getenv("SMTP_MAIL")
	password := os.Getenv("SMTP_PASSWORD")
	if mail == "" || password == "" {
		return nil, ErrNoCredentials
	}

	host := os.Getenv("SMTP_HOST")
	if host == "" {
		host = "smtp.gmail.com"
	}
	port := os.Getenv("SMTP_PORT")
	if port == "" {
		port = "587"
	}

	auth := smtpPkg.PlainAuth("", mail, password, host)

	return &smtp{auth: auth, mail: mail, addr: host + ":" + port, send: smtpPkg.SendMail}, nil
}

func (s *smtp) SendViolationAlert(alert ViolationAlert) error {
	if len(alert.To) == 0 {
		return nil
	}

	return s.send(s.addr, s.auth, s.mail, alert.To, BuildAlertMessage(s.mail, alert))
}

func BuildAlertMessage(from string, alert ViolationAlert) []byte {
	var body strings.Builder

	fmt.Fprintf(&body, "From: %s\r\n", from)
	fmt.Fprintf(&body, "To: %s\r\n", strings.Join(alert.To, ", "))
	fmt.Fprintf(&body, "Subject: [%s] Proctoring alert for exam %s\r\n", strings.ToUpper(alert.Severity), alert.ExamID)
	body.WriteString("\r\n")
	fmt.Fprintf(&body, "Exam %s raised a %s severity violation at %s.\r\n\r\n",
		alert.ExamID, alert.Severity, alert.DetectedAt.UTC().Format(time.RFC3339))

	for _, v := range alert.Violations {
		fmt.Fprintf(&body, "- %s\r\n", v)
	}

	if alert.EvidenceURL != "" {
		fmt.Fprintf(&body, "\r\nEvidence: %s\r\n", alert.EvidenceURL)
	}

	return []byte(body.String())
}
