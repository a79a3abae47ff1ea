// Package doctor runs health checks over the configuration and the local
// channel cache.
package doctor

import (
	"context"
	"encoding/json"
	"time"
)

// Status is the outcome of a single check item.
type Status int

const (
	StatusPass Status = iota
	StatusWarn
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// CheckItem is one line of a check result. Channel and CachedAt are set for
// items that concern a cached channel snapshot.
type CheckItem struct {
	Label    string    `json:"label"`
	Status   Status    `json:"status"`
	Detail   string    `json:"detail,omitempty"`
	Fixable  bool      `json:"fixable,omitempty"`
	Channel  string    `json:"channel,omitempty"`
	CachedAt time.Time `json:"cached_at,omitzero"`
	// Removed is set when --fix deleted the channel from the cache.
	Removed bool `json:"removed,omitempty"`
}

// Age is how long before now the channel snapshot was taken. Zero when the
// item is not about a cached channel.
func (i CheckItem) Age(now time.Time) time.Duration {
	if i.CachedAt.IsZero() {
		return 0
	}
	return now.Sub(i.CachedAt)
}

// Result groups the items produced by one check.
type Result struct {
	Name  string      `json:"name"`
	Items []CheckItem `json:"items"`
}

// Check is a single diagnostic.
type Check interface {
	Name() string
	Run(ctx context.Context) Result
}

// RunAll runs checks in order.
func RunAll(ctx context.Context, checks []Check) []Result {
	results := make([]Result, 0, len(checks))
	for _, check := range checks {
		results = append(results, check.Run(ctx))
	}
	return results
}

// Tally summarises results across checks.
type Tally struct {
	Passed  int `json:"passed"`
	Warned  int `json:"warned"`
	Failed  int `json:"failed"`
	Fixable int `json:"fixable"`
	// Removed lists channels deleted from the cache by --fix.
	Removed []string `json:"removed,omitempty"`
}

// Healthy reports whether no item failed.
func (t Tally) Healthy() bool {
	return t.Failed == 0
}

// Summarize counts item outcomes across results.
func Summarize(results []Result) Tally {
	var t Tally
	for _, r := range results {
		for _, item := range r.Items {
			switch item.Status {
			case StatusPass:
				t.Passed++
			case StatusWarn:
				t.Warned++
			case StatusFail:
				t.Failed++
			}
			if item.Fixable && item.Status != StatusPass {
				t.Fixable++
			}
			if item.Removed {
				t.Removed = append(t.Removed, item.Channel)
			}
		}
	}
	return t
}
