package retention

import (
	"fmt"
	"time"

	"briefcast/internal/config"
	"briefcast/internal/queue"
)

// Policy chooses which fully processed entries of one source to delete.
// entries arrive newest first.
type Policy interface {
	Expired(entries []*queue.Entry, now time.Time) []*queue.Entry
	String() string
}

// KeepNewest retains the N most recent entries.
type KeepNewest struct{ N int }

func (p KeepNewest) Expired(entries []*queue.Entry, _ time.Time) []*queue.Entry {
	if p.N < 0 || len(entries) <= p.N {
		return nil
	}
	return entries[p.N:]
}

func (p KeepNewest) String() string { return fmt.Sprintf("keep_newest(%d)", p.N) }

// MaxAge retains entries inserted within D.
type MaxAge struct{ D time.Duration }

func (p MaxAge) Expired(entries []*queue.Entry, now time.Time) []*queue.Entry {
	cutoff := now.Add(-p.D)
	var expired []*queue.Entry
	for _, e := range entries {
		if e.InsertedAt.Before(cutoff) {
			expired = append(expired, e)
		}
	}
	return expired
}

func (p MaxAge) String() string { return "max_age(" + p.D.String() + ")" }

// KeepAll never deletes.
type KeepAll struct{}

func (KeepAll) Expired([]*queue.Entry, time.Time) []*queue.Entry { return nil }

func (KeepAll) String() string { return "keep_all" }

// Policies resolves the policy for a source.
type Policies struct {
	Default   Policy
	Local     Policy
	Overrides map[string]Policy
}

// For returns the override for source, else the local or default policy.
func (p Policies) For(source string) Policy {
	if policy, ok := p.Overrides[source]; ok {
		return policy
	}
	if source == queue.LocalSource && p.Local != nil {
		return p.Local
	}
	if p.Default == nil {
		return KeepAll{}
	}
	return p.Default
}

// PoliciesFromConfig builds the resolver from [retention].
func PoliciesFromConfig(cfg *config.Config) (Policies, error) {
	r := cfg.Retention
	policies := Policies{
		Default:   KeepNewest{N: r.KeepPerSource},
		Local:     MaxAge{D: config.Hours(r.LocalMaxAgeHours)},
		Overrides: make(map[string]Policy, len(r.Sources)),
	}
	for source, o := range r.Sources {
		switch o.Policy {
		case "keep_newest":
			policies.Overrides[source] = KeepNewest{N: o.Keep}
		case "max_age":
			policies.Overrides[source] = MaxAge{D: config.Hours(o.MaxAgeHours)}
		case "keep_all":
			policies.Overrides[source] = KeepAll{}
		default:
			return Policies{}, fmt.Errorf("retention policy for %s: unknown policy %q", source, o.Policy)
		}
	}
	return policies, nil
}
