// Package notify delivers the repeated-view notification. Delivery runs off
// the request path through a Dispatcher; its failures are logged and counted
// and never reach the view-recording caller.
package notify

import (
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wneessen/go-mail"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Notification describes a product the user keeps coming back to.
type Notification struct {
	ID          string
	Email       string
	UserID      string
	ProductID   string
	ProductName string
	Price       float64
	ViewCount   int64
	Timestamp   time.Time
}

// Notifier delivers one notification.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n Notification) error { return f(ctx, n) }

// LogNotifier writes notifications to the log instead of sending them. It is
// used when no SMTP host is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, n Notification) error {
	log.Ctx(ctx).Info().
		Str("notification_id", n.ID).
		Str("user_id", n.UserID).
		Str("product_id", n.ProductID).
		Int64("view_count", n.ViewCount).
		Msg("repeated view notification (log only)")
	return nil
}

// SMTPConfig configures SMTPNotifier.
type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

type sendFunc func(ctx context.Context, m *mail.Msg) error

// SMTPNotifier sends HTML mail through an SMTP relay.
type SMTPNotifier struct {
	cfg     SMTPConfig
	printer *message.Printer
	send    sendFunc
}

// NewSMTPNotifier builds a notifier that formats numbers for lang.
func NewSMTPNotifier(cfg SMTPConfig, lang language.Tag) *SMTPNotifier {
	s := &SMTPNotifier{cfg: cfg, printer: message.NewPrinter(lang)}
	s.send = s.dialAndSend
	return s
}

const subject = "Product Viewed Multiple Times"

var bodyTmpl = template.Must(template.New("body").Parse(`<h2>You've viewed this product multiple times</h2>
<p>Product: {{.Name}} ({{.ProductID}})</p>
<p>Price: {{.Price}}</p>
<p>View Count: {{.ViewCount}}</p>
<p>Last Viewed: {{.LastViewed}}</p>
`))

type bodyData struct {
	Name, ProductID, Price, ViewCount, LastViewed string
}

// Message builds the mail for n. Date and Message-ID are set here; go-mail
// takes care of header encoding.
func (s *SMTPNotifier) Message(n Notification) (*mail.Msg, error) {
	name := n.ProductName
	if name == "" {
		name = n.ProductID
	}

	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("notify: sender %q: %w", s.cfg.From, err)
	}
	if err := m.To(n.Email); err != nil {
		return nil, fmt.Errorf("notify: recipient for user %q: %w", n.UserID, err)
	}
	m.Subject(subject)
	m.SetDate()
	m.SetMessageID()
	err := m.SetBodyHTMLTemplate(bodyTmpl, bodyData{
		Name:       name,
		ProductID:  n.ProductID,
		Price:      s.printer.Sprint(currency.Symbol(currency.USD.Amount(n.Price))),
		ViewCount:  s.printer.Sprintf("%d", n.ViewCount),
		LastViewed: n.Timestamp.UTC().Format(time.RFC1123),
	})
	if err != nil {
		return nil, fmt.Errorf("notify: render: %w", err)
	}
	return m, nil
}

// clientOptions maps the relay settings onto go-mail. STARTTLS is used when
// the relay offers it, so plain local relays keep working.
func (s *SMTPNotifier) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.User),
			mail.WithPassword(s.cfg.Pass),
		)
	}
	return opts
}

func (s *SMTPNotifier) dialAndSend(ctx context.Context, m *mail.Msg) error {
	c, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return err
	}
	return c.DialAndSendWithContext(ctx, m)
}

func (s *SMTPNotifier) Notify(ctx context.Context, n Notification) error {
	if n.Email == "" {
		return fmt.Errorf("notify: no recipient for user %q", n.UserID)
	}
	m, err := s.Message(n)
	if err != nil {
		return err
	}
	if err := s.send(ctx, m); err != nil {
		return fmt.Errorf("notify: smtp %s:%d: %w", s.cfg.Host, s.cfg.Port, err)
	}
	return nil
}
