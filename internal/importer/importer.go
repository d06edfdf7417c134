package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"storefront/internal/domain"
	productsvc "storefront/internal/service/product"
)

var requiredColumns = []string{"sku", "name", "brand_id", "category_ids", "sale_price", "original_price", "stock", "thumbnail"}

type ProductCreator interface {
	Create(ctx context.Context, in productsvc.CreateInput) (*domain.Product, error)
}

// RowError is a rejected CSV row. Line is 1-based and counts the header.
type RowError struct {
	Line int
	SKU  string
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d (sku %q): %v", e.Line, e.SKU, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// ImportError lists every rejected row of a run.
type ImportError struct {
	Rows []RowError
}

func (e *ImportError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d rows rejected", len(e.Rows))
	for _, r := range e.Rows {
		b.WriteString("\n  ")
		b.WriteString(r.Error())
	}
	return b.String()
}

// CSVImporter creates catalog products from a CSV file.
type CSVImporter struct {
	reader   *csv.Reader
	products ProductCreator
	workers  int
}

func NewCSVImporter(r io.Reader, products ProductCreator, workers int) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	if workers < 1 {
		workers = 1
	}
	return &CSVImporter{reader: csvr, products: products, workers: workers}
}

type csvRow struct {
	line  int
	input productsvc.CreateInput
}

// Run creates one product per row and returns how many were created. Rows that
// fail are reported together in an *ImportError; they do not stop the others.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return 0, fmt.Errorf("missing column %q", col)
		}
	}

	var (
		imported atomic.Int64
		mu       sync.Mutex
		rejected []RowError
	)
	reject := func(re RowError) {
		mu.Lock()
		rejected = append(rejected, re)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.workers)

	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = g.Wait()
			return int(imported.Load()), fmt.Errorf("read row: %w", err)
		}
		line, _ := i.reader.FieldPos(0)
		if blank(record) {
			continue
		}

		row, err := parseRow(record, index, line)
		if err != nil {
			reject(RowError{Line: line, SKU: pick(record, index, "sku"), Err: err})
			continue
		}

		g.Go(func() error {
			if _, err := i.products.Create(gctx, row.input); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				reject(RowError{Line: row.line, SKU: row.input.SKU, Err: err})
				return nil
			}
			imported.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(imported.Load()), err
	}
	if len(rejected) > 0 {
		sort.Slice(rejected, func(a, b int) bool { return rejected[a].Line < rejected[b].Line })
		return int(imported.Load()), &ImportError{Rows: rejected}
	}
	return int(imported.Load()), nil
}

func parseRow(record []string, index map[string]int, line int) (csvRow, error) {
	in := productsvc.CreateInput{
		SKU:         pick(record, index, "sku"),
		Name:        pick(record, index, "name"),
		BrandID:     pick(record, index, "brand_id"),
		CategoryIDs: splitIDs(pick(record, index, "category_ids")),
		Thumbnail:   pick(record, index, "thumbnail"),
	}

	var err error
	if in.SalePrice, err = parseMoney(pick(record, index, "sale_price")); err != nil {
		return csvRow{}, domain.Invalid("sale_price: %v", err)
	}
	if in.OriginalPrice, err = parseMoney(pick(record, index, "original_price")); err != nil {
		return csvRow{}, domain.Invalid("original_price: %v", err)
	}
	if raw := pick(record, index, "stock"); raw != "" {
		if in.StockQuantity, err = strconv.Atoi(raw); err != nil {
			return csvRow{}, domain.Invalid("stock %q is not an integer", raw)
		}
	}
	return csvRow{line: line, input: in}, nil
}

func parseMoney(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, errors.New("required")
	}
	return decimal.NewFromString(raw)
}

func splitIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	var ids []string
	for _, part := range strings.Split(raw, "|") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, part)
		}
	}
	return ids
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
