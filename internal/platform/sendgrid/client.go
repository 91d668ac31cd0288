package sendgrid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/matside-backend/internal/platform/ctxutil"
	"github.com/yungbote/matside-backend/internal/platform/envutil"
	"github.com/yungbote/matside-backend/internal/platform/httpx"
	"github.com/yungbote/matside-backend/internal/platform/logger"
)

const defaultBaseURL = "https://api.sendgrid.com"

// Client sends single-recipient transactional mail.
type Client interface {
	Send(ctx context.Context, msg Message) (*Receipt, error)
}

type Config struct {
	APIKey     string
	BaseURL    string
	FromEmail  string
	FromName   string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:     envutil.String("SENDGRID_API_KEY", ""),
		BaseURL:    envutil.String("SENDGRID_BASE_URL", defaultBaseURL),
		FromEmail:  envutil.String("SENDGRID_FROM_EMAIL", ""),
		FromName:   envutil.String("SENDGRID_FROM_NAME", ""),
		Timeout:    envutil.Duration("SENDGRID_TIMEOUT", 15*time.Second),
		MaxRetries: envutil.Int("SENDGRID_MAX_RETRIES", 3),
	}
}

type Address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Message is one email to one registrant. Args come back on SendGrid event webhooks.
type Message struct {
	To       Address
	Subject  string
	Text     string
	HTML     string
	Category string
	Args     map[string]string
}

type Receipt struct {
	MessageID string
	Attempts  int
}

// HTTPError is a non-2xx answer from the mail API.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("sendgrid: http %d: %s", e.StatusCode, e.Message)
}

func (e *HTTPError) HTTPStatusCode() int { return e.StatusCode }

type client struct {
	log   *logger.Logger
	cfg   Config
	http  *http.Client
	retry httpx.RetryPolicy
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("sendgrid: missing SENDGRID_API_KEY")
	}
	if strings.TrimSpace(cfg.FromEmail) == "" {
		return nil, fmt.Errorf("sendgrid: missing SENDGRID_FROM_EMAIL")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &client{
		log:   log.With("client", "SendGrid"),
		cfg:   cfg,
		http:  &http.Client{Timeout: cfg.Timeout},
		retry: httpx.RetryPolicy{MaxRetries: cfg.MaxRetries, Base: 500 * time.Millisecond, Max: 10 * time.Second},
	}, nil
}

type mailSend struct {
	Personalizations []personalization `json:"personalizations"`
	From             Address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
	Categories       []string          `json:"categories,omitempty"`
}

type personalization struct {
	To         []Address         `json:"to"`
	CustomArgs map[string]string `json:"custom_args,omitempty"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (m Message) payload(from Address) (mailSend, error) {
	if strings.TrimSpace(m.To.Email) == "" {
		return mailSend{}, fmt.Errorf("sendgrid: recipient required")
	}
	if strings.TrimSpace(m.Subject) == "" {
		return mailSend{}, fmt.Errorf("sendgrid: subject required")
	}
	body := mailSend{
		Personalizations: []personalization{{To: []Address{m.To}, CustomArgs: m.Args}},
		From:             from,
		Subject:          strings.TrimSpace(m.Subject),
	}
	if t := strings.TrimSpace(m.Text); t != "" {
		body.Content = append(body.Content, content{Type: "text/plain", Value: t})
	}
	if h := strings.TrimSpace(m.HTML); h != "" {
		body.Content = append(body.Content, content{Type: "text/html", Value: h})
	}
	if len(body.Content) == 0 {
		return mailSend{}, fmt.Errorf("sendgrid: text or html body required")
	}
	if m.Category != "" {
		body.Categories = []string{m.Category}
	}
	return body, nil
}

func (c *client) Send(ctx context.Context, msg Message) (*Receipt, error) {
	ctx = ctxutil.Default(ctx)
	body, err := msg.payload(Address{Email: c.cfg.FromEmail, Name: c.cfg.FromName})
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	var id string
	attempts, err := httpx.Retry(ctx, c.log, c.retry, "mail.send", func(ctx context.Context) (*http.Response, error) {
		var resp *http.Response
		var err error
		id, resp, err = c.post(ctx, raw)
		return resp, err
	})
	if err != nil {
		return nil, err
	}
	return &Receipt{MessageID: id, Attempts: attempts}, nil
}

func (c *client) post(ctx context.Context, raw []byte) (string, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v3/mail/send", bytes.NewReader(raw))
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.Header.Get("X-Message-Id"), resp, nil
	}

	he := &HTTPError{StatusCode: resp.StatusCode}
	var apiErr struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(b, &apiErr) == nil && len(apiErr.Errors) > 0 {
		he.Message = apiErr.Errors[0].Message
	} else {
		he.Message = strings.TrimSpace(string(b))
	}
	return "", resp, he
}
