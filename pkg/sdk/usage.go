package analogist

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/analogist/internal/domain/usage"
)

// Usage is today's consumption of the shared daily quota.
type Usage struct {
	Current   int64
	Limit     int64
	Remaining int64
	ResetDate string // day the counter belongs to, YYYY-MM-DD
	ResetsAt  time.Time
}

// Usage reads today's usage without counting a request.
func (c *Client) Usage(ctx context.Context) (_ Usage, err error) {
	start := time.Now()
	defer func() { c.obs.observe("usage", start, err) }()

	snap, err := c.usageSvc.Peek(ctx)
	if err != nil {
		return Usage{}, err
	}
	u := toUsage(snap)
	c.obs.remaining(u.Remaining)
	return u, nil
}

func toUsage(s domusage.Snapshot) Usage {
	return Usage{
		Current:   s.Current(),
		Limit:     s.Limit(),
		Remaining: s.Remaining(),
		ResetDate: s.ResetDate(),
		ResetsAt:  s.ResetsAt(),
	}
}
