package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"fmt"
	"io/fs"
	"mime"
	"net"
	"net/http"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/template/html"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"gofest/config"
	"gofest/model"
)

//go:embed templates
var templates embed.FS

// Notice carries everything the registration mails talk about.
type Notice struct {
	Registration   model.Registration
	User           model.User
	Fest           model.Fest
	OrganizerEmail string
}

type Notifier interface {
	RegistrationConfirmed(ctx context.Context, n Notice) error
	OrganizerNotified(ctx context.Context, n Notice) error
}

// Nop drops every notice. Used when no SMTP credentials are configured.
type Nop struct{}

func (Nop) RegistrationConfirmed(context.Context, Notice) error { return nil }
func (Nop) OrganizerNotified(context.Context, Notice) error     { return nil }

type sendFunc func(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error

type SMTP struct {
	cfg    config.Email
	engine *html.Engine
	send   sendFunc
}

var _ Notifier = (*SMTP)(nil)

func NewSMTP(cfg config.Email) (*SMTP, error) {
	engine, err := newEngine()
	if err != nil {
		return nil, err
	}
	return &SMTP{cfg: cfg, engine: engine, send: sendMail}, nil
}

func newEngine() (*html.Engine, error) {
	sub, err := fs.Sub(templates, "templates")
	if err != nil {
		return nil, err
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFunc("join", strings.Join)
	engine.AddFunc("entry", entryLabel)
	if err := engine.Load(); err != nil {
		return nil, fmt.Errorf("cannot load mail templates: %w", err)
	}
	return engine, nil
}

func entryLabel(f model.Fest) string {
	if f.EntryType == model.EntryPaid {
		return "Paid (₹" + strconv.FormatFloat(f.EntryFee, 'f', -1, 64) + ")"
	}
	return model.EntryFree
}

func (s *SMTP) RegistrationConfirmed(ctx context.Context, n Notice) error {
	if n.User.Email == "" {
		return nil
	}
	return s.deliver(ctx, n.User.Email, "Registration confirmed for "+n.Fest.Title, "registration", n)
}

func (s *SMTP) OrganizerNotified(ctx context.Context, n Notice) error {
	to := n.OrganizerEmail
	if to == "" {
		to = n.Fest.Organizer.Email
	}
	if to == "" {
		return nil
	}
	return s.deliver(ctx, to, "New registration for "+n.Fest.Title, "organizer", n)
}

func (s *SMTP) deliver(ctx context.Context, to, subject, template string, n Notice) error {
	var body bytes.Buffer
	if err := s.engine.Render(&body, template, n); err != nil {
		return fmt.Errorf("cannot render %v mail: %w", template, err)
	}

	from := s.cfg.Sender()
	msg := buildMessage(from, to, subject, body.Bytes(), time.Now())

	envelope := s.cfg.User
	if a, err := mail.ParseAddress(from); err == nil {
		envelope = a.Address
	}

	addr := s.cfg.Host + ":" + strconv.Itoa(s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	if err := s.send(ctx, addr, auth, envelope, []string{to}, msg); err != nil {
		return fmt.Errorf("cannot send %v mail to %v: %w", template, to, err)
	}
	return nil
}

// sendMail is smtp.SendMail bound to ctx: the connection is closed once ctx is done.
func sendMail(ctx context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	host, _, _ := net.SplitHostPort(addr)
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}
	if ok, _ := c.Extension("AUTH"); ok && a != nil {
		if err := c.Auth(a); err != nil {
			return err
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

// oneLine drops line breaks so a value cannot start a new header.
func oneLine(v string) string {
	return strings.Join(strings.FieldsFunc(v, func(r rune) bool { return r == '\r' || r == '\n' }), " ")
}

func buildMessage(from, to, subject string, body []byte, at time.Time) []byte {
	from, to = oneLine(from), oneLine(to)
	domain := "gofest.local"
	if i := strings.LastIndex(from, "@"); i >= 0 {
		domain = strings.TrimRight(from[i+1:], ">")
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", oneLine(subject)))
	fmt.Fprintf(&msg, "Date: %s\r\n", at.Format(time.RFC1123Z))
	fmt.Fprintf(&msg, "Message-ID: <%s@%s>\r\n", uuid.NewString(), domain)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	msg.Write(body)
	return msg.Bytes()
}

// Dispatch sends both registration mails in the background. Failures are only logged.
func Dispatch(n Notifier, log *logrus.Entry, notice Notice) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := n.RegistrationConfirmed(ctx, notice); err != nil {
			log.Errorf("failed to send registration email: %v", err)
		}
		if err := n.OrganizerNotified(ctx, notice); err != nil {
			log.Errorf("failed to send organizer notification: %v", err)
		}
	}()
}
