package notifications

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"briefcast/internal/config"
	"briefcast/internal/services"
)

func TestNewServiceReturnsNoopWithoutCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.Provider = ProviderNtfy
	cfg.Notifications.NtfyTopic = ""
	svc := NewService(&cfg)
	if svc.Provider() != ProviderNone {
		t.Fatalf("expected noop provider, got %q", svc.Provider())
	}
	if err := svc.Send(context.Background(), Message{Title: "x", Body: "y"}); err != nil {
		t.Fatalf("noop send returned %v", err)
	}
}

func TestNewServiceSelectsServerChan(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.Provider = ProviderServerChan
	cfg.Notifications.ServerChanKey = "SCT123"
	svc := NewService(&cfg)
	sc, ok := svc.(*serverChanService)
	if !ok {
		t.Fatalf("expected serverchan service, got %T", svc)
	}
	if sc.endpoint != "https://sctapi.ftqq.com/SCT123.send" {
		t.Fatalf("unexpected endpoint %q", sc.endpoint)
	}
}

func TestNtfySendsHeadersAndBody(t *testing.T) {
	var (
		gotTitle string
		gotTags  string
		gotBody  string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("Title")
		gotTags = r.Header.Get("Tags")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := NewNtfyService(server.URL+"/briefs", server.Client())
	err := svc.Send(context.Background(), Message{
		Title: "Briefing Summary",
		Body:  "# 20240101 Youtube\nchan\ntitle\nbrief",
		Tags:  []string{"Briefing Summary"},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotTitle != "Briefing Summary" || gotTags != "Briefing Summary" {
		t.Fatalf("unexpected headers title=%q tags=%q", gotTitle, gotTags)
	}
	if gotBody != "# 20240101 Youtube\nchan\ntitle\nbrief" {
		t.Fatalf("unexpected body %q", gotBody)
	}
}

func TestServerChanSendsForm(t *testing.T) {
	var form url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		form = r.PostForm
		_, _ = io.WriteString(w, `{"code":0}`)
	}))
	defer server.Close()

	svc := NewServerChanService(server.URL+"/KEY.send", server.Client())
	if err := svc.Send(context.Background(), Message{Title: "Briefing Summary", Body: "digest", Tags: []string{"Briefing Summary"}}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if form.Get("title") != "Briefing Summary" || form.Get("desp") != "digest" || form.Get("tags") != "Briefing Summary" {
		t.Fatalf("unexpected form %v", form)
	}
}

func TestServerChanRejectsNonZeroCode(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		marker error
	}{
		{name: "bad key", reply: `{"code":40001,"message":"bad pushtoken"}`, marker: services.ErrConfiguration},
		{name: "server busy", reply: `{"code":50001,"message":"try later"}`, marker: services.ErrTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = io.WriteString(w, tt.reply)
			}))
			defer server.Close()

			err := NewServerChanService(server.URL+"/KEY.send", server.Client()).Send(context.Background(), Message{Title: "t", Body: "b"})
			if !errors.Is(err, tt.marker) {
				t.Fatalf("expected %v, got %v", tt.marker, err)
			}
			if !strings.Contains(err.Error(), "code ") {
				t.Fatalf("expected reply code in error, got %v", err)
			}
		})
	}
}

func TestSendClassifiesStatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		marker error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, marker: services.ErrConfiguration},
		{name: "server error", status: http.StatusBadGateway, marker: services.ErrTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer server.Close()

			err := NewNtfyService(server.URL, server.Client()).Send(context.Background(), Message{Body: "x"})
			if !errors.Is(err, tt.marker) {
				t.Fatalf("expected %v, got %v", tt.marker, err)
			}
		})
	}
}

func TestSendTimesOutWaitingForHeaders(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := newHTTPClient(time.Second, 50*time.Millisecond)
	err := NewNtfyService(server.URL, client).Send(context.Background(), Message{Body: "x"})
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}
