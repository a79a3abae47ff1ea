package doctor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hay-kot/chanfeed/internal/core/newsletter"
)

// CacheCheck inspects the channel metadata cache for entries that are not
// channel jids or have not been refreshed within maxAge.
type CacheCheck struct {
	channels newsletter.MetadataStore
	maxAge   time.Duration
	fix      bool
	now      func() time.Time
}

// NewCacheCheck creates a new cache check.
// If fix is true, invalid and stale entries are removed.
func NewCacheCheck(channels newsletter.MetadataStore, maxAge time.Duration, fix bool) *CacheCheck {
	return &CacheCheck{
		channels: channels,
		maxAge:   maxAge,
		fix:      fix,
		now:      time.Now,
	}
}

func (c *CacheCheck) Name() string {
	return "Channel Cache"
}

func (c *CacheCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	cached, err := c.channels.List(ctx)
	if err != nil {
		result.Items = append(result.Items, CheckItem{
			Label:  "Read cache",
			Status: StatusFail,
			Detail: err.Error(),
		})
		return result
	}

	var problems []CheckItem
	for _, ch := range cached {
		reason := c.problem(ch)
		if reason == "" {
			continue
		}
		problems = append(problems, CheckItem{
			Label:    ch.ID,
			Detail:   reason,
			Channel:  ch.ID,
			CachedAt: ch.CachedAt,
		})
	}

	if len(problems) == 0 {
		result.Items = append(result.Items, CheckItem{
			Label:  "Cache healthy",
			Status: StatusPass,
			Detail: fmt.Sprintf("%d channel(s) cached", len(cached)),
		})
		return result
	}

	for _, item := range problems {
		if !c.fix {
			item.Status = StatusWarn
			item.Fixable = true
			result.Items = append(result.Items, item)
			continue
		}

		if err := c.channels.Delete(ctx, item.Channel); err != nil {
			item.Status = StatusFail
			item.Detail = fmt.Sprintf("failed to remove: %v", err)
		} else {
			item.Status = StatusPass
			item.Detail = "removed " + item.Detail + " entry"
			item.Removed = true
		}
		result.Items = append(result.Items, item)
	}

	return result
}

func (c *CacheCheck) problem(ch newsletter.CachedMetadata) string {
	if !strings.HasSuffix(ch.ID, "@newsletter") {
		return "invalid"
	}
	if c.maxAge > 0 && c.now().Sub(ch.CachedAt) > c.maxAge {
		return "stale"
	}
	return ""
}
