package pipeline

import (
	"context"

	"github.com/adilkhan-b/scentwatch/internal/catalog"
	"github.com/adilkhan-b/scentwatch/internal/notify"
	"github.com/adilkhan-b/scentwatch/internal/scrape"
	"github.com/adilkhan-b/scentwatch/pkg/db/models"
	pkgerrors "github.com/adilkhan-b/scentwatch/pkg/errors"
	"github.com/adilkhan-b/scentwatch/pkg/logger"
)

// JobName identifies the restock check in scheduler logs and metrics.
const JobName = "restock_check"

// fetcher retrieves the raw listing page.
type fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// parser extracts product cards from listing HTML.
type parser interface {
	Parse(ctx context.Context, rawHTML []byte) ([]scrape.ParsedProduct, error)
}

// reconciler diffs parsed products against the stored catalog.
type reconciler interface {
	Reconcile(ctx context.Context, parsed []scrape.ParsedProduct) ([]catalog.ChangeEvent, error)
}

// dispatcher fans change notifications out to subscribers.
type dispatcher interface {
	NotifyRestock(ctx context.Context, product models.Product) (notify.Report, error)
	NotifyNewProduct(ctx context.Context, product models.Product) (notify.Report, error)
}

// JobParams group dependencies for the restock check job.
type JobParams struct {
	Fetcher    fetcher
	Parser     parser
	Reconciler reconciler
	Dispatcher dispatcher
	Logger     *logger.Logger
}

// Job is one end-to-end restock check: fetch the listing, parse it,
// reconcile against the catalog, and notify subscribers about restocks
// and new products.
type Job struct {
	fetcher    fetcher
	parser     parser
	reconciler reconciler
	dispatcher dispatcher
	logg       *logger.Logger
}

// NewJob builds the restock check job.
func NewJob(params JobParams) (*Job, error) {
	if params.Fetcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fetcher is required")
	}
	if params.Parser == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "parser is required")
	}
	if params.Reconciler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reconciler is required")
	}
	if params.Dispatcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dispatcher is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &Job{
		fetcher:    params.Fetcher,
		parser:     params.Parser,
		reconciler: params.Reconciler,
		dispatcher: params.Dispatcher,
		logg:       params.Logger,
	}, nil
}

// Name implements scheduler.Job.
func (j *Job) Name() string {
	return JobName
}

// Run executes one restock check cycle. A fetch, parse, or reconcile
// failure aborts the cycle; notification failures after the catalog
// commit are logged and never propagated, so the next cycle does not
// re-announce already-recorded changes.
func (j *Job) Run(ctx context.Context) error {
	rawHTML, err := j.fetcher.Fetch(ctx)
	if err != nil {
		return err
	}

	parsed, err := j.parser.Parse(ctx, rawHTML)
	if err != nil {
		return err
	}
	if len(parsed) == 0 {
		// An empty parse usually means the listing markup drifted.
		j.logg.Warn(ctx, "listing parse produced zero products")
		return nil
	}

	events, err := j.reconciler.Reconcile(ctx, parsed)
	if err != nil {
		return err
	}

	j.notifyChanges(ctx, events)
	return nil
}

func (j *Job) notifyChanges(ctx context.Context, events []catalog.ChangeEvent) {
	for _, event := range events {
		if !event.Notifies() {
			continue
		}

		productCtx := j.logg.WithProduct(ctx, event.Product.Name)
		var report notify.Report
		var err error
		switch event.Kind {
		case catalog.ChangeRestocked:
			report, err = j.dispatcher.NotifyRestock(productCtx, event.Product)
		case catalog.ChangeNewProduct:
			report, err = j.dispatcher.NotifyNewProduct(productCtx, event.Product)
		}
		if err != nil {
			j.logg.Error(productCtx, "notification fanout failed", err)
			continue
		}

		j.logg.Info(j.logg.WithFields(productCtx, map[string]any{
			"kind":      string(event.Kind),
			"delivered": len(report.Delivered),
			"failed":    len(report.Failed),
		}), "change notifications dispatched")
	}
}
