package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"briefcast/internal/config"
	"briefcast/internal/services"
)

const userAgent = "briefcast/0.1"

const (
	ProviderNtfy       = "ntfy"
	ProviderServerChan = "serverchan"
	ProviderNone       = "none"
)

// ServerChanEndpoint is the ServerChan send API root. The key is appended as
// "<key>.send".
const ServerChanEndpoint = "https://sctapi.ftqq.com"

// Message is one outbound notification.
type Message struct {
	Title string
	Body  string
	Tags  []string
}

// Service defines the notification surface exposed to the push stage.
type Service interface {
	Send(ctx context.Context, msg Message) error
	Provider() string
}

// NewService builds the sink selected by cfg.Notifications.Provider. A
// provider without its credential degrades to the no-op sink.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	n := cfg.Notifications
	client := newHTTPClient(config.Interval(n.ConnectTimeout), config.Interval(n.ReadTimeout))
	switch n.Provider {
	case ProviderNtfy:
		if strings.TrimSpace(n.NtfyTopic) == "" {
			return noopService{}
		}
		return &ntfyService{
			endpoint: strings.TrimRight(n.NtfyServer, "/") + "/" + strings.TrimLeft(n.NtfyTopic, "/"),
			client:   client,
		}
	case ProviderServerChan:
		if strings.TrimSpace(n.ServerChanKey) == "" {
			return noopService{}
		}
		return &serverChanService{
			endpoint: ServerChanEndpoint + "/" + n.ServerChanKey + ".send",
			client:   client,
		}
	default:
		return noopService{}
	}
}

// NewNtfyService targets an explicit ntfy topic URL.
func NewNtfyService(endpoint string, client *http.Client) Service {
	if client == nil {
		client = newHTTPClient(0, 0)
	}
	return &ntfyService{endpoint: endpoint, client: client}
}

// NewServerChanService targets an explicit ServerChan send URL.
func NewServerChanService(endpoint string, client *http.Client) Service {
	if client == nil {
		client = newHTTPClient(0, 0)
	}
	return &serverChanService{endpoint: endpoint, client: client}
}

// newHTTPClient bounds connection setup and the wait for response headers
// separately; the body of a push response is small.
func newHTTPClient(connect, read time.Duration) *http.Client {
	if connect <= 0 {
		connect = 10 * time.Second
	}
	if read <= 0 {
		read = 60 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connect, KeepAlive: 30 * time.Second}).DialContext
	transport.TLSHandshakeTimeout = connect
	transport.ResponseHeaderTimeout = read
	return &http.Client{Transport: transport}
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Provider() string { return ProviderNtfy }

func (n *ntfyService) Send(ctx context.Context, msg Message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.Body))
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "push", "ntfy", "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.Title != "" {
		req.Header.Set("Title", msg.Title)
	}
	if len(msg.Tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.Tags, ","))
	}
	return do(n.client, req, "ntfy", nil)
}

type serverChanService struct {
	endpoint string
	client   *http.Client
}

func (s *serverChanService) Provider() string { return ProviderServerChan }

func (s *serverChanService) Send(ctx context.Context, msg Message) error {
	form := url.Values{}
	form.Set("title", msg.Title)
	form.Set("desp", msg.Body)
	if len(msg.Tags) > 0 {
		form.Set("tags", strings.Join(msg.Tags, "|"))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "push", "serverchan", "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return do(s.client, req, "serverchan", checkServerChanReply)
}

// serverChanReply is the JSON envelope ServerChan returns with HTTP 200 even
// when the push was refused.
type serverChanReply struct {
	Code    *int   `json:"code"`
	Message string `json:"message"`
}

// checkServerChanReply rejects a reply whose code is non-zero. Codes in the
// 4xxxx range (bad key, quota) are configuration problems.
func checkServerChanReply(body []byte) error {
	var reply serverChanReply
	if err := json.Unmarshal(body, &reply); err != nil || reply.Code == nil || *reply.Code == 0 {
		return nil
	}
	code := *reply.Code
	marker := services.ErrTransient
	if code >= 40000 && code < 50000 {
		marker = services.ErrConfiguration
	}
	return services.Wrap(marker, "push", "serverchan", fmt.Sprintf("code %d: %s", code, strings.TrimSpace(reply.Message)), nil)
}

// do sends req and maps failures to services markers. check, when set,
// inspects the body of a 2xx reply.
func do(client *http.Client, req *http.Request, provider string, check func([]byte) error) error {
	resp, err := client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return services.Wrap(services.ErrTimeout, "push", provider, "request timed out", err)
		}
		return services.Wrap(services.ErrTransient, "push", provider, "send notification", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		marker := services.ErrTransient
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			marker = services.ErrConfiguration
		}
		return services.Wrap(marker, "push", provider, fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
	if check == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return services.Wrap(services.ErrTransient, "push", provider, "read response", err)
	}
	return check(body)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

type noopService struct{}

func (noopService) Provider() string                    { return ProviderNone }
func (noopService) Send(context.Context, Message) error { return nil }
