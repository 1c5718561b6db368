package retention_test

import (
	"testing"
	"time"

	"briefcast/internal/config"
	"briefcast/internal/queue"
	"briefcast/internal/retention"
	"briefcast/internal/testsupport"
)

func TestPoliciesFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithConfig(func(c *config.Config) {
		c.Retention.KeepPerSource = 5
		c.Retention.LocalMaxAgeHours = 48
		c.Retention.Sources = map[string]config.SourceRetention{
			"feed:archive": {Policy: "keep_all"},
			"feed:daily":   {Policy: "max_age", MaxAgeHours: 24},
		}
	}))

	policies, err := retention.PoliciesFromConfig(cfg)
	if err != nil {
		t.Fatalf("PoliciesFromConfig: %v", err)
	}
	cases := map[string]retention.Policy{
		"https://youtube.com/@x": retention.KeepNewest{N: 5},
		queue.LocalSource:        retention.MaxAge{D: 48 * time.Hour},
		"feed:archive":           retention.KeepAll{},
		"feed:daily":             retention.MaxAge{D: 24 * time.Hour},
	}
	for source, want := range cases {
		if got := policies.For(source); got != want {
			t.Errorf("For(%q) = %v, want %v", source, got, want)
		}
	}
}

func TestKeepNewestBounds(t *testing.T) {
	entries := []*queue.Entry{{ID: 3}, {ID: 2}, {ID: 1}}
	if got := (retention.KeepNewest{N: 5}).Expired(entries, time.Now()); len(got) != 0 {
		t.Fatalf("expected nothing expired, got %d", len(got))
	}
	got := (retention.KeepNewest{N: 1}).Expired(entries, time.Now())
	if len(got) != 2 || got[0].ID != 2 {
		t.Fatalf("unexpected expired set %+v", got)
	}
}
