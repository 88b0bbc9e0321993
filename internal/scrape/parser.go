package scrape

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	pkgerrors "github.com/adilkhan-b/scentwatch/pkg/errors"
	"github.com/adilkhan-b/scentwatch/pkg/logger"
)

// Listing markup selectors. Schema drift here is a silent-skip failure
// mode, not a hard error.
const (
	cardSelector    = "div.ProductList-item"
	nameSelector    = "h1"
	soldOutSelector = "div.product-mark.sold-out"
	imageSelector   = "img"
	imageURLAttr    = "data-src"
)

// ParsedProduct is one product card extracted from the listing page.
type ParsedProduct struct {
	Name     string
	SoldOut  bool
	ImageURL string
}

// Parser extracts product cards from raw listing HTML.
type Parser struct {
	logg *logger.Logger
}

// NewParser builds a listing parser.
func NewParser(logg *logger.Logger) *Parser {
	return &Parser{logg: logg}
}

// Parse walks every product card in the document. Cards missing a name are
// skipped and logged; a malformed card never aborts the rest of the page.
func (p *Parser) Parse(ctx context.Context, rawHTML []byte) ([]ParsedProduct, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rawHTML))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeParse, err, "parse listing document")
	}

	var products []ParsedProduct
	doc.Find(cardSelector).Each(func(i int, card *goquery.Selection) {
		name := NormalizeName(card.Find(nameSelector).First().Text())
		if name == "" {
			p.logg.Warn(p.logg.WithField(ctx, "card_index", i), "product card without a name, skipping")
			return
		}

		soldOut := card.Find(soldOutSelector).Length() > 0

		// Image is best effort; a missing lazy-load attribute does not
		// disqualify the product.
		imageURL, ok := card.Find(imageSelector).First().Attr(imageURLAttr)
		if !ok {
			p.logg.Debug(p.logg.WithProduct(ctx, name), "product card without an image url")
		}

		products = append(products, ParsedProduct{
			Name:     name,
			SoldOut:  soldOut,
			ImageURL: imageURL,
		})
	})

	return products, nil
}

// NormalizeName folds a display name into the catalog's natural key form.
func NormalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
