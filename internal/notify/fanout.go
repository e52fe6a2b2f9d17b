package notify

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/example/order-notify/internal/store"
)

// FanOutResult aggregates the outcome of one broadcast's log appends.
type FanOutResult struct {
	Succeeded int
	Failed    []FanOutFailure
}

type FanOutFailure struct {
	UserID string
	Err    error
}

// fanOut snapshots the full user set, then issues one log append per user.
// Appends run concurrently with no ordering between them; all of them settle
// before the result is returned, and one failing append neither cancels nor
// rolls back its siblings. Users added after the snapshot are not included.
func (d *Dispatcher) fanOut(ctx context.Context, entry store.LogEntry) (FanOutResult, error) {
	ctx, span := otel.Tracer("notify").Start(ctx, "fan_out")
	defer span.End()

	users, err := d.Store.ListUsers(ctx)
	if err != nil {
		span.RecordError(err)
		return FanOutResult{}, fmt.Errorf("list users: %w", err)
	}
	span.SetAttributes(attribute.Int("fanout.recipients", len(users)))

	var sem chan struct{}
	if d.FanOutLimit > 0 {
		sem = make(chan struct{}, d.FanOutLimit)
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		result FanOutResult
	)
	for _, u := range users {
		wg.Add(1)
		go func(u store.UserRecord) {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}
			err := d.Store.AppendNotification(ctx, u.ID, entry)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed = append(result.Failed, FanOutFailure{UserID: u.ID, Err: err})
				return
			}
			result.Succeeded++
		}(u)
	}
	wg.Wait()

	span.SetAttributes(attribute.Int("fanout.failed", len(result.Failed)))
	return result, nil
}
