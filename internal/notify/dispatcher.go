package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/adilkhan-b/scentwatch/pkg/config"
	"github.com/adilkhan-b/scentwatch/pkg/db/models"
	pkgerrors "github.com/adilkhan-b/scentwatch/pkg/errors"
	"github.com/adilkhan-b/scentwatch/pkg/logger"
	"github.com/adilkhan-b/scentwatch/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// Transport is the chat-platform send primitive. Implementations must
// report per-call success or failure and never panic past this boundary.
type Transport interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendPhoto(ctx context.Context, chatID int64, photoURL, caption string) error
}

// Directory resolves recipient sets from the subscription store.
type Directory interface {
	Watchers(ctx context.Context, productID uuid.UUID) ([]int64, error)
	AllOptedIn(ctx context.Context) ([]int64, error)
	AllUsers(ctx context.Context) ([]int64, error)
}

// SleepFunc pauses for the given duration, honoring context cancellation.
type SleepFunc func(ctx context.Context, d time.Duration) error

const (
	kindRestock    = "restock"
	kindNewProduct = "new_product"
	kindBroadcast  = "broadcast"
)

// DispatcherParams groups dependencies for the dispatcher.
type DispatcherParams struct {
	Transport   Transport
	Directory   Directory
	Runtime     *Runtime
	Logger      *logger.Logger
	Metrics     *metrics.DispatchMetrics
	Config      config.NotifyConfig
	AdminChatID int64
	// Sleep may be nil; tests inject a fake to skip real waits.
	Sleep SleepFunc
}

// Dispatcher fans a change event out to its recipient set with batching,
// per-recipient retry, and optional admin prioritization. Delivery is
// best effort: failures are logged and counted, never propagated back
// into the reconciler's commit.
type Dispatcher struct {
	transport   Transport
	directory   Directory
	runtime     *Runtime
	logg        *logger.Logger
	metrics     *metrics.DispatchMetrics
	adminChatID int64

	batchSize      int
	maxAttempts    int
	batchPause     time.Duration
	priorityWindow time.Duration
	sleep          SleepFunc
}

// Report summarizes one fanout run.
type Report struct {
	Delivered []int64
	Failed    []int64
}

// NewDispatcher builds a dispatcher.
func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Transport == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transport is required")
	}
	if params.Directory == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "directory is required")
	}
	if params.Runtime == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "runtime state is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}

	cfg := params.Config
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	sleep := params.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	return &Dispatcher{
		transport:      params.Transport,
		directory:      params.Directory,
		runtime:        params.Runtime,
		logg:           params.Logger,
		metrics:        params.Metrics,
		adminChatID:    params.AdminChatID,
		batchSize:      cfg.BatchSize,
		maxAttempts:    cfg.MaxAttempts,
		batchPause:     cfg.BatchPause,
		priorityWindow: cfg.PriorityWindow,
		sleep:          sleep,
	}, nil
}

// NotifyRestock delivers a restock announcement to the product's opted-in
// watchers. With admin prioritization on, the admin is notified first and
// the remainder follows after the priority window, admin excluded.
func (d *Dispatcher) NotifyRestock(ctx context.Context, product models.Product) (Report, error) {
	recipients, err := d.directory.Watchers(ctx, product.ID)
	if err != nil {
		return Report{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve watchers")
	}

	caption := fmt.Sprintf("The fragrance %s is now available!", product.Name)
	send := d.productSender(product.ImageURL, caption)

	if d.runtime.AdminPrioritize() && d.adminChatID != 0 {
		return d.deliverPrioritized(ctx, kindRestock, recipients, send)
	}
	return d.deliver(ctx, kindRestock, recipients, send), nil
}

// NotifyNewProduct announces a first-seen product to every opted-in user.
func (d *Dispatcher) NotifyNewProduct(ctx context.Context, product models.Product) (Report, error) {
	recipients, err := d.directory.AllOptedIn(ctx)
	if err != nil {
		return Report{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve opted-in users")
	}

	caption := fmt.Sprintf("New fragrance is at the store! Check out %s!", product.Name)
	send := d.productSender(product.ImageURL, caption)

	return d.deliver(ctx, kindNewProduct, recipients, send), nil
}

// BroadcastText sends an operator message to every known user.
func (d *Dispatcher) BroadcastText(ctx context.Context, text string) (Report, error) {
	recipients, err := d.directory.AllUsers(ctx)
	if err != nil {
		return Report{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve all users")
	}
	send := func(ctx context.Context, chatID int64) error {
		return d.transport.SendText(ctx, chatID, text)
	}
	return d.deliver(ctx, kindBroadcast, recipients, send), nil
}

// BroadcastPhoto sends an operator photo message to every known user.
func (d *Dispatcher) BroadcastPhoto(ctx context.Context, photoURL, caption string) (Report, error) {
	recipients, err := d.directory.AllUsers(ctx)
	if err != nil {
		return Report{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve all users")
	}
	send := func(ctx context.Context, chatID int64) error {
		return d.transport.SendPhoto(ctx, chatID, photoURL, caption)
	}
	return d.deliver(ctx, kindBroadcast, recipients, send), nil
}

func (d *Dispatcher) productSender(imageURL, caption string) func(context.Context, int64) error {
	return func(ctx context.Context, chatID int64) error {
		if imageURL != "" {
			return d.transport.SendPhoto(ctx, chatID, imageURL, caption)
		}
		return d.transport.SendText(ctx, chatID, caption)
	}
}

func (d *Dispatcher) deliverPrioritized(ctx context.Context, kind string, recipients []int64, send func(context.Context, int64) error) (Report, error) {
	adminReport := d.deliver(ctx, kind, []int64{d.adminChatID}, send)

	if err := d.sleep(ctx, d.priorityWindow); err != nil {
		// A canceled delay loses the deferred remainder send; accepted.
		d.logg.Warn(ctx, "priority window interrupted, remainder send skipped")
		return adminReport, nil
	}

	remainder := make([]int64, 0, len(recipients))
	for _, chatID := range recipients {
		if chatID == d.adminChatID {
			continue
		}
		remainder = append(remainder, chatID)
	}
	remainderReport := d.deliver(ctx, kind, remainder, send)

	return Report{
		Delivered: append(adminReport.Delivered, remainderReport.Delivered...),
		Failed:    append(adminReport.Failed, remainderReport.Failed...),
	}, nil
}

// deliver is the shared batching primitive: fixed-size batches, concurrent
// per-recipient sends with isolated outcomes, shrinking-batch retries, and
// a fixed pause between successive batches to stay under the transport's
// rate limit.
func (d *Dispatcher) deliver(ctx context.Context, kind string, recipients []int64, send func(context.Context, int64) error) Report {
	var report Report

	for start := 0; start < len(recipients); start += d.batchSize {
		if start > 0 {
			if err := d.sleep(ctx, d.batchPause); err != nil {
				// Remaining recipients fall through to the shared
				// dropped accounting below.
				report.Failed = append(report.Failed, recipients[start:]...)
				d.logg.Warn(ctx, "batch pause interrupted, remaining batches skipped")
				break
			}
		}

		end := start + d.batchSize
		if end > len(recipients) {
			end = len(recipients)
		}

		delivered, failed := d.deliverBatch(ctx, kind, recipients[start:end], send)
		report.Delivered = append(report.Delivered, delivered...)
		report.Failed = append(report.Failed, failed...)
		d.metrics.IncBatch(kind)
	}

	if len(report.Failed) > 0 {
		d.metrics.IncDropped(kind, len(report.Failed))
		failedCtx := d.logg.WithFields(ctx, map[string]any{
			"kind":       kind,
			"recipients": report.Failed,
		})
		d.logg.Error(failedCtx, "recipients permanently failed this run", nil)
	}

	return report
}

func (d *Dispatcher) deliverBatch(ctx context.Context, kind string, batch []int64, send func(context.Context, int64) error) (delivered, failed []int64) {
	pending := batch

	for attempt := 1; attempt <= d.maxAttempts && len(pending) > 0; attempt++ {
		if attempt > 1 {
			d.metrics.IncRetryRound()
		}

		results := d.sendConcurrently(ctx, pending, send)

		var stillFailing []int64
		var attemptErr error
		for i, err := range results {
			if err == nil {
				delivered = append(delivered, pending[i])
				d.metrics.IncSend(kind, "ok")
				continue
			}
			stillFailing = append(stillFailing, pending[i])
			attemptErr = multierr.Append(attemptErr, fmt.Errorf("chat %d: %w", pending[i], err))
			d.metrics.IncSend(kind, "error")
		}

		if attemptErr != nil {
			attemptCtx := d.logg.WithFields(ctx, map[string]any{
				"kind":    kind,
				"attempt": attempt,
			})
			d.logg.Warn(attemptCtx, fmt.Sprintf("batch attempt failed for %d recipients: %v", len(stillFailing), attemptErr))
		}

		pending = stillFailing
	}

	return delivered, pending
}

// sendConcurrently issues one send per recipient and waits for all
// outcomes. A single recipient's failure never aborts another's delivery.
func (d *Dispatcher) sendConcurrently(ctx context.Context, recipients []int64, send func(context.Context, int64) error) []error {
	results := make([]error, len(recipients))
	var wg sync.WaitGroup
	for i, chatID := range recipients {
		wg.Add(1)
		go func(i int, chatID int64) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[i] = fmt.Errorf("send panicked: %v", r)
				}
			}()
			results[i] = send(ctx, chatID)
		}(i, chatID)
	}
	wg.Wait()
	return results
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
