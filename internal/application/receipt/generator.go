// Package receipt renders receipts for fulfilled orders and order-list
// reports.
package receipt

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/marketplace/orderflow/internal/domain/order"
	"github.com/marketplace/orderflow/internal/domain/shared"
	"github.com/marketplace/orderflow/internal/infrastructure/logger"
	"github.com/marketplace/orderflow/internal/infrastructure/printing"
	"github.com/marketplace/orderflow/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Format is the output format of a document
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

// FormatForPath picks the format from an output file name
func FormatForPath(path string) (Format, bool) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".pdf"):
		return FormatPDF, true
	case strings.HasSuffix(lower, ".html"), strings.HasSuffix(lower, ".htm"):
		return FormatHTML, true
	}
	return "", false
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/html; charset=utf-8"
}

// ErrNotFinalized is returned for orders that have not completed their lifecycle
var ErrNotFinalized = shared.NewDomainError("ORDER_NOT_FINALIZED", "Receipts are only available for fulfilled orders")

// Archive stores rendered documents
type Archive interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
	DownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
}

// Document is a rendered receipt
type Document struct {
	OrderID   string
	Format    Format
	Content   []byte
	PageCount int
	// ArchiveKey and DownloadURL are set when the document was archived
	ArchiveKey  string
	DownloadURL string
}

// Row is one line of an order report
type Row struct {
	Order   *order.Order
	Actions []order.Action
}

// Option configures a Generator
type Option func(*Generator)

// WithRenderer enables PDF output
func WithRenderer(r printing.PDFRenderer) Option {
	return func(g *Generator) {
		g.renderer = r
	}
}

// WithArchive uploads every PDF receipt
func WithArchive(a Archive) Option {
	return func(g *Generator) {
		g.archive = a
	}
}

// WithCompanyName sets the header printed on documents
func WithCompanyName(name string) Option {
	return func(g *Generator) {
		g.company = name
	}
}

// WithPaperSize sets the PDF page format
func WithPaperSize(p printing.PaperSize) Option {
	return func(g *Generator) {
		g.paper = p
	}
}

// WithLogger sets the generator logger
func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) {
		g.logger = l
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// Generator renders receipts and reports
type Generator struct {
	engine   *printing.TemplateEngine
	renderer printing.PDFRenderer
	archive  Archive
	company  string
	paper    printing.PaperSize
	logger   *zap.Logger
	now      func() time.Time
}

// NewGenerator creates a generator. Without a renderer only HTML is produced.
func NewGenerator(engine *printing.TemplateEngine, opts ...Option) *Generator {
	g := &Generator{
		engine:  engine,
		company: "Artisan Marketplace",
		paper:   printing.PaperSizeA5,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type receiptView struct {
	Company   string
	Kind      string
	IssuedAt  time.Time
	Order     *order.Order
	UnitPrice decimal.Decimal
}

type reportView struct {
	Company  string
	Title    string
	IssuedAt time.Time
	Rows     []Row
	Total    decimal.Decimal
}

// Generate renders the receipt of a finalized order
func (g *Generator) Generate(ctx context.Context, o *order.Order, format Format) (*Document, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ReceiptGenerator", "Generate",
		telemetry.WithAttribute("format", string(format)))
	defer span.End()

	if o == nil {
		return nil, shared.ErrNotFound
	}
	telemetry.SetAttributes(span, "order.id", o.ID)
	log := logger.WithLogger(ctx, g.logger).With(zap.String("order_id", o.ID))

	if !o.IsFinalized() {
		return nil, shared.NewDomainError(ErrNotFinalized.Code,
			fmt.Sprintf("Order %s is %s; receipts are only available once it is %s",
				o.ID, o.OrderStatus, o.Flavor.FinalStatus()))
	}

	html, err := g.ReceiptHTML(o)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	doc := &Document{OrderID: o.ID, Format: format}

	switch format {
	case FormatHTML:
		doc.Content = []byte(html)
		doc.PageCount = 1
		return doc, nil
	case FormatPDF:
	default:
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "unsupported receipt format: "+string(format))
	}

	if g.renderer == nil {
		return nil, shared.NewDomainError(shared.ErrInvalidState.Code, "PDF rendering is not configured")
	}
	result, err := g.renderer.Render(ctx, &printing.RenderRequest{
		HTML:      html,
		Title:     "Receipt " + o.ID,
		PaperSize: g.paper,
		Margins:   printing.DefaultMargins(),
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("render receipt %s: %w", o.ID, err)
	}
	doc.Content = result.PDFData
	doc.PageCount = result.PageCount

	if g.archive != nil {
		key, err := g.archive.Put(ctx, archiveName(o), doc.Content, format.ContentType())
		if err != nil {
			// The local document is still usable
			log.Warn("Failed to archive receipt", zap.Error(err))
			telemetry.AddEvent(span, "archive_failed", "error", err.Error())
			return doc, nil
		}
		doc.ArchiveKey = key
		if link, _, err := g.archive.DownloadURL(ctx, key, 0); err == nil {
			doc.DownloadURL = link
		} else {
			log.Warn("Failed to presign receipt link", zap.Error(err))
		}
	}

	log.Info("Receipt generated",
		zap.String("format", string(format)),
		zap.Int("bytes", len(doc.Content)),
		zap.Bool("archived", doc.ArchiveKey != ""))
	return doc, nil
}

// ReceiptHTML renders the receipt document without checking the order status
func (g *Generator) ReceiptHTML(o *order.Order) (string, error) {
	view := receiptView{
		Company:   g.company,
		Kind:      kindLabel(o.Flavor),
		IssuedAt:  g.now(),
		Order:     o,
		UnitPrice: unitPrice(o),
	}
	return g.engine.Render(receiptTemplateName, receiptTemplate, view)
}

// Report renders an HTML overview of orders with the actions available on each
func (g *Generator) Report(ctx context.Context, title string, rows []Row) ([]byte, error) {
	_, span := telemetry.StartServiceSpan(ctx, "ReceiptGenerator", "Report",
		telemetry.WithAttribute("rows", len(rows)))
	defer span.End()

	if strings.TrimSpace(title) == "" {
		title = "Orders"
	}
	view := reportView{
		Company:  g.company,
		Title:    title,
		IssuedAt: g.now(),
		Rows:     make([]Row, 0, len(rows)),
		Total:    decimal.Zero,
	}
	for _, r := range rows {
		if r.Order == nil {
			continue
		}
		view.Rows = append(view.Rows, r)
		view.Total = view.Total.Add(r.Order.TotalPrice)
	}

	html, err := g.engine.Render(reportTemplateName, reportTemplate, view)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return []byte(html), nil
}

func kindLabel(f order.Flavor) string {
	if f == order.FlavorSupply {
		return "Supply"
	}
	return "Sales"
}

func unitPrice(o *order.Order) decimal.Decimal {
	if o.Product.UnitPrice.GreaterThan(decimal.Zero) {
		return o.Product.UnitPrice
	}
	if o.Quantity > 0 {
		return o.TotalPrice.DivRound(decimal.NewFromInt(int64(o.Quantity)), 2)
	}
	return o.TotalPrice
}

func archiveName(o *order.Order) string {
	return fmt.Sprintf("%s/%s.pdf", o.Flavor, o.ID)
}
