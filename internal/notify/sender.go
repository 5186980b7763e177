package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"net/smtp"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"portfolio/internal/config"
	"portfolio/internal/models"
)

// InvitationSender delivers a freshly issued invitation code to its target email.
type InvitationSender interface {
	SendInvitation(ctx context.Context, inv models.Invitation) error
}

type LogSender struct {
	baseURL string
}

func (s LogSender) SendInvitation(_ context.Context, inv models.Invitation) error {
	log.Printf("invitation issued email=%s code=%s expires_at=%s link=%s",
		inv.Email, inv.Code, inv.ExpiresAt.Format(time.RFC3339), inviteLink(s.baseURL, inv.Code))
	return nil
}

type SMTPSender struct {
	host     string
	port     int
	from     string
	user     string
	password string
	startTLS bool
	baseURL  string
}

func NewSender(cfg config.Config) InvitationSender {
	switch cfg.InviteSender {
	case "smtp":
		return SMTPSender{
			host:     cfg.SMTPHost,
			port:     cfg.SMTPPort,
			from:     cfg.InviteFrom,
			user:     cfg.SMTPUser,
			password: cfg.SMTPPassword,
			startTLS: cfg.SMTPStartTLS,
			baseURL:  cfg.InviteBaseURL,
		}
	default:
		return LogSender{baseURL: cfg.InviteBaseURL}
	}
}

func (s SMTPSender) SendInvitation(ctx context.Context, inv models.Invitation) error {
	raw, err := buildInvitation(s.from, inv, inviteLink(s.baseURL, inv.Code), time.Now().UTC())
	if err != nil {
		return err
	}
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer client.Close()

	if s.startTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
				return err
			}
		}
	}
	if s.user != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(smtp.PlainAuth("", s.user, s.password, s.host)); err != nil {
				return err
			}
		}
	}
	if err := client.Mail(s.from); err != nil {
		return err
	}
	if err := client.Rcpt(inv.Email); err != nil {
		return err
	}
	wc, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write(raw); err != nil {
		_ = wc.Close()
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func buildInvitation(from string, inv models.Invitation, link string, now time.Time) ([]byte, error) {
	var h mail.Header
	h.SetDate(now)
	h.SetSubject("Your admin invitation")
	h.SetAddressList("From", []*mail.Address{{Address: from}})
	h.SetAddressList("To", []*mail.Address{{Address: inv.Email}})
	if err := h.GenerateMessageID(); err != nil {
		return nil, err
	}
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	var body strings.Builder
	fmt.Fprintf(&body, "You have been invited to create an admin account.\r\n\r\n")
	fmt.Fprintf(&body, "Invitation code: %s\r\n", inv.Code)
	fmt.Fprintf(&body, "Register with this email address: %s\r\n", inv.Email)
	fmt.Fprintf(&body, "The code expires at %s.\r\n", inv.ExpiresAt.UTC().Format(time.RFC1123))
	if link != "" {
		fmt.Fprintf(&body, "\r\n%s\r\n", link)
	}
	if _, err := w.Write([]byte(body.String())); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inviteLink(baseURL, code string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return ""
	}
	return fmt.Sprintf("%s/admin-register?code=%s", base, url.QueryEscape(code))
}
