package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/adilkhan-b/scentwatch/internal/catalog"
	"github.com/adilkhan-b/scentwatch/internal/notify"
	"github.com/adilkhan-b/scentwatch/internal/scrape"
	"github.com/adilkhan-b/scentwatch/pkg/db/models"
	"github.com/adilkhan-b/scentwatch/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeFetcher struct {
	html []byte
	err  error
}

func (f *fakeFetcher) Fetch(ctx context.Context) ([]byte, error) {
	return f.html, f.err
}

type fakeCatalogRepo struct {
	products map[string]models.Product
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{products: make(map[string]models.Product)}
}

func (f *fakeCatalogRepo) WithTx(ctx context.Context, fn func(tx catalog.Repository) error) error {
	return fn(f)
}

func (f *fakeCatalogRepo) FindByName(ctx context.Context, name string) (*models.Product, error) {
	product, ok := f.products[name]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &product, nil
}

func (f *fakeCatalogRepo) Create(ctx context.Context, product *models.Product) error {
	f.products[product.Name] = *product
	return nil
}

func (f *fakeCatalogRepo) Save(ctx context.Context, product *models.Product) error {
	f.products[product.Name] = *product
	return nil
}

func (f *fakeCatalogRepo) ListNames(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(f.products))
	for name := range f.products {
		names = append(names, name)
	}
	return names, nil
}

func (f *fakeCatalogRepo) ListAll(ctx context.Context) ([]models.Product, error) {
	products := make([]models.Product, 0, len(f.products))
	for _, product := range f.products {
		products = append(products, product)
	}
	return products, nil
}

type fakeDispatcher struct {
	restocks    []string
	newProducts []string
	err         error
}

func (f *fakeDispatcher) NotifyRestock(ctx context.Context, product models.Product) (notify.Report, error) {
	f.restocks = append(f.restocks, product.Name)
	return notify.Report{Delivered: []int64{1}}, f.err
}

func (f *fakeDispatcher) NotifyNewProduct(ctx context.Context, product models.Product) (notify.Report, error) {
	f.newProducts = append(f.newProducts, product.Name)
	return notify.Report{Delivered: []int64{1}}, f.err
}

func listingHTML(soldOut bool) []byte {
	marker := ""
	if soldOut {
		marker = `<div class="product-mark sold-out">Sold Out</div>`
	}
	return []byte(fmt.Sprintf(`<html><body>
<div class="ProductList-item">
  <h1>Bleu de Chanel</h1>
  %s
  <img data-src="https://cdn/bleu.jpg"/>
</div>
</body></html>`, marker))
}

func pipeLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestJob(t *testing.T, fetch *fakeFetcher, repo *fakeCatalogRepo, dispatch *fakeDispatcher) *Job {
	t.Helper()
	logg := pipeLogger()
	rec, err := catalog.NewReconciler(repo, logg, nil)
	require.NoError(t, err)
	job, err := NewJob(JobParams{
		Fetcher:    fetch,
		Parser:     scrape.NewParser(logg),
		Reconciler: rec,
		Dispatcher: dispatch,
		Logger:     logg,
	})
	require.NoError(t, err)
	return job
}

// First sighting records the product; once it flips from sold out to
// available the restock notification fires exactly once.
func TestRestockEndToEnd(t *testing.T) {
	repo := newFakeCatalogRepo()
	dispatch := &fakeDispatcher{}
	fetch := &fakeFetcher{html: listingHTML(true)}
	job := newTestJob(t, fetch, repo, dispatch)
	ctx := context.Background()

	// Run 1: product unknown, recorded as sold out, announced as new.
	require.NoError(t, job.Run(ctx))
	assert.Equal(t, []string{"BLEU DE CHANEL"}, dispatch.newProducts)
	assert.Empty(t, dispatch.restocks, "no restock expected on first sighting")

	// Run 2: still sold out, nothing fires.
	require.NoError(t, job.Run(ctx))
	assert.Empty(t, dispatch.restocks, "unchanged run must not notify")
	assert.Len(t, dispatch.newProducts, 1)

	// Run 3: now available, restock fires.
	fetch.html = listingHTML(false)
	require.NoError(t, job.Run(ctx))
	assert.Equal(t, []string{"BLEU DE CHANEL"}, dispatch.restocks)

	// Run 4: still available, no duplicate.
	require.NoError(t, job.Run(ctx))
	assert.Len(t, dispatch.restocks, 1, "restock must not repeat while availability is unchanged")
}

func TestRunAbortsOnFetchFailure(t *testing.T) {
	repo := newFakeCatalogRepo()
	dispatch := &fakeDispatcher{}
	fetch := &fakeFetcher{err: errors.New("storefront down")}
	job := newTestJob(t, fetch, repo, dispatch)

	require.Error(t, job.Run(context.Background()))
	assert.Empty(t, repo.products, "nothing must be persisted on a failed fetch")
}

func TestRunToleratesEmptyParse(t *testing.T) {
	repo := newFakeCatalogRepo()
	dispatch := &fakeDispatcher{}
	fetch := &fakeFetcher{html: []byte("<html><body></body></html>")}
	job := newTestJob(t, fetch, repo, dispatch)

	require.NoError(t, job.Run(context.Background()))
}

func TestNotificationFailureDoesNotFailRun(t *testing.T) {
	repo := newFakeCatalogRepo()
	dispatch := &fakeDispatcher{err: errors.New("telegram down")}
	fetch := &fakeFetcher{html: listingHTML(false)}
	job := newTestJob(t, fetch, repo, dispatch)

	require.NoError(t, job.Run(context.Background()))
	assert.Contains(t, repo.products, "BLEU DE CHANEL", "catalog change must still be committed")
}
