package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/ashendes/commerce-api/internal/config"
	"github.com/ashendes/commerce-api/internal/models"
	"github.com/ashendes/commerce-api/internal/patterns"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// SMTPTransport opens a short-lived connection per message
type SMTPTransport struct {
	host     string
	port     int
	user     string
	pass     string
	secure   bool
	from     mail.Address
	bulkhead *patterns.Bulkhead
	now      func() time.Time
}

func NewSMTPTransport(cfg config.EmailConfig) *SMTPTransport {
	return &SMTPTransport{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		user:     cfg.SMTPUser,
		pass:     cfg.SMTPPass,
		secure:   cfg.SMTPSecure,
		from:     mail.Address{Name: cfg.FromName, Address: cfg.FromEmail},
		bulkhead: patterns.NewBulkhead(cfg.MaxConcurrent, 5*time.Second, "smtp", "email"),
		now:      time.Now,
	}
}

func (t *SMTPTransport) Name() string { return "smtp" }

// Verify connects, authenticates and quits. Run once at startup to surface bad credentials early.
func (t *SMTPTransport) Verify(ctx context.Context) error {
	c, err := t.dial(ctx)
	if err != nil {
		return err
	}
	defer c.Close()
	if err := c.Quit(); err != nil {
		return fmt.Errorf("smtp quit: %w", err)
	}
	log.WithFields(log.Fields{"host": t.host, "port": t.port, "secure": t.secure}).Info("SMTP transport verified")
	return nil
}

func (t *SMTPTransport) Send(ctx context.Context, job models.EmailJob) (string, error) {
	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), domainOf(t.from.Address))
	msg, err := buildMessage(t.from, job, messageID, t.now())
	if err != nil {
		return "", err
	}

	err = t.bulkhead.Execute(ctx, func() error {
		c, err := t.dial(ctx)
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.Mail(t.from.Address); err != nil {
			return fmt.Errorf("smtp mail from: %w", err)
		}
		if err := c.Rcpt(job.To); err != nil {
			return fmt.Errorf("smtp rcpt to: %w", err)
		}
		w, err := c.Data()
		if err != nil {
			return fmt.Errorf("smtp data: %w", err)
		}
		if _, err := w.Write(msg); err != nil {
			return fmt.Errorf("smtp write: %w", err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("smtp data close: %w", err)
		}
		return c.Quit()
	})
	if err != nil {
		return "", err
	}
	return messageID, nil
}

// dial returns a client that is connected, upgraded to TLS where possible and authenticated
func (t *SMTPTransport) dial(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(t.host, strconv.Itoa(t.port))
	tlsConfig := &tls.Config{ServerName: t.host, MinVersion: tls.VersionTLS12}
	dialer := &net.Dialer{Timeout: patterns.MailTimeout}

	var conn net.Conn
	var err error
	if t.secure {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: tlsConfig}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("smtp dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, t.host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("smtp greeting: %w", err)
	}
	if !t.secure {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(tlsConfig); err != nil {
				c.Close()
				return nil, fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}
	if t.user != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(smtp.PlainAuth("", t.user, t.pass, t.host)); err != nil {
				c.Close()
				return nil, fmt.Errorf("smtp auth: %w", err)
			}
		}
	}
	return c, nil
}

// buildMessage encodes a multipart/alternative message with text and html parts
func buildMessage(from mail.Address, job models.EmailJob, messageID string, now time.Time) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	parts := []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=UTF-8", job.Text},
		{"text/html; charset=UTF-8", job.HTML},
	}
	for _, p := range parts {
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {p.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, err
		}
		qp := quotedprintable.NewWriter(w)
		if _, err := qp.Write([]byte(p.content)); err != nil {
			return nil, err
		}
		if err := qp.Close(); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var msg bytes.Buffer
	headers := [][2]string{
		{"From", from.String()},
		{"To", job.To},
		{"Subject", mime.QEncoding.Encode("utf-8", job.Subject)},
		{"Date", now.Format(time.RFC1123Z)},
		{"Message-ID", messageID},
		{"MIME-Version", "1.0"},
		{"Content-Type", "multipart/alternative; boundary=" + mw.Boundary()},
	}
	for _, h := range headers {
		fmt.Fprintf(&msg, "%s: %s\r\n", h[0], h[1])
	}
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

func domainOf(address string) string {
	if i := strings.LastIndex(address, "@"); i >= 0 && i < len(address)-1 {
		return address[i+1:]
	}
	return "localhost"
}
