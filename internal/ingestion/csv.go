package ingestion

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"customer-rfm-lab/internal/domain"
	"customer-rfm-lab/internal/storage"
)

// Column names of the customer-order dataset.
const (
	ColMasterID               = "master_id"
	ColOrderChannel           = "order_channel"
	ColLastOrderChannel       = "last_order_channel"
	ColFirstOrderDate         = "first_order_date"
	ColLastOrderDate          = "last_order_date"
	ColLastOrderDateOnline    = "last_order_date_online"
	ColLastOrderDateOffline   = "last_order_date_offline"
	ColOrderNumOnline         = "order_num_total_ever_online"
	ColOrderNumOffline        = "order_num_total_ever_offline"
	ColCustomerValueOffline   = "customer_value_total_ever_offline"
	ColCustomerValueOnline    = "customer_value_total_ever_online"
	ColInterestedInCategories = "interested_in_categories_12"
)

// Columns lists the dataset columns in source order. All are required.
var Columns = []string{
	ColMasterID,
	ColOrderChannel,
	ColLastOrderChannel,
	ColFirstOrderDate,
	ColLastOrderDate,
	ColLastOrderDateOnline,
	ColLastOrderDateOffline,
	ColOrderNumOnline,
	ColOrderNumOffline,
	ColCustomerValueOffline,
	ColCustomerValueOnline,
	ColInterestedInCategories,
}

// DateLayout is the canonical date format for reading and writing.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// CSVSource reads customer-order records from a delimited file.
type CSVSource struct {
	path  string
	comma rune
}

// NewCSVSource creates a source for the comma-separated file at path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path, comma: ','}
}

// WithComma sets the field delimiter.
func (s *CSVSource) WithComma(comma rune) *CSVSource {
	s.comma = comma
	return s
}

// Compile-time interface check.
var _ storage.CustomerOrderSource = (*CSVSource)(nil)

// GetAll reads and parses the whole file.
func (s *CSVSource) GetAll(ctx context.Context) ([]*domain.CustomerOrderRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open input %s: %w", s.path, err)
	}
	defer f.Close()

	return readCSV(f, s.comma)
}

// ReadCSV parses comma-separated customer-order records.
// Fails on the first missing column or unparseable value.
func ReadCSV(r io.Reader) ([]*domain.CustomerOrderRecord, error) {
	return readCSV(r, ',')
}

func readCSV(r io.Reader, comma rune) ([]*domain.CustomerOrderRecord, error) {
	reader := csv.NewReader(stripBOM(r))
	reader.Comma = comma

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &domain.InputSchemaError{Column: ColMasterID, Reason: "empty input, header row required"}
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var records []*domain.CustomerOrderRecord
	for row := 1; ; row++ {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &domain.InputSchemaError{Row: row, Column: "*", Reason: err.Error()}
		}

		rec, err := parseRecord(fields, idx, row)
		if err != nil {
			return nil, err
		}
		rec.RowIndex = row - 1
		records = append(records, rec)
	}

	return records, nil
}

// mapColumns resolves the index of every required column in header.
func mapColumns(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, col := range Columns {
		if _, ok := idx[col]; !ok {
			return nil, &domain.InputSchemaError{Column: col, Reason: "missing required column"}
		}
	}
	return idx, nil
}

func parseRecord(fields []string, idx map[string]int, row int) (*domain.CustomerOrderRecord, error) {
	get := func(col string) string {
		return strings.TrimSpace(fields[idx[col]])
	}

	rec := &domain.CustomerOrderRecord{
		MasterID:               get(ColMasterID),
		OrderChannel:           get(ColOrderChannel),
		LastOrderChannel:       get(ColLastOrderChannel),
		InterestedInCategories: get(ColInterestedInCategories),
	}
	if rec.MasterID == "" {
		return nil, &domain.InputSchemaError{Row: row, Column: ColMasterID, Reason: "empty customer identifier"}
	}

	dates := []struct {
		col string
		dst *time.Time
	}{
		{ColFirstOrderDate, &rec.FirstOrderDate},
		{ColLastOrderDate, &rec.LastOrderDate},
		{ColLastOrderDateOnline, &rec.LastOrderDateOnline},
		{ColLastOrderDateOffline, &rec.LastOrderDateOffline},
	}
	for _, d := range dates {
		t, err := ParseDate(get(d.col))
		if err != nil {
			return nil, &domain.InputSchemaError{Row: row, Column: d.col, Value: get(d.col), Reason: err.Error()}
		}
		*d.dst = t
	}

	counts := []struct {
		col string
		dst *int64
	}{
		{ColOrderNumOnline, &rec.OrderNumOnline},
		{ColOrderNumOffline, &rec.OrderNumOffline},
	}
	for _, c := range counts {
		n, err := ParseOrderCount(get(c.col))
		if err != nil {
			return nil, &domain.InputSchemaError{Row: row, Column: c.col, Value: get(c.col), Reason: err.Error()}
		}
		*c.dst = n
	}

	values := []struct {
		col string
		dst *decimal.Decimal
	}{
		{ColCustomerValueOnline, &rec.CustomerValueOnline},
		{ColCustomerValueOffline, &rec.CustomerValueOffline},
	}
	for _, v := range values {
		d, err := ParseOrderValue(get(v.col))
		if err != nil {
			return nil, &domain.InputSchemaError{Row: row, Column: v.col, Value: get(v.col), Reason: err.Error()}
		}
		*v.dst = d
	}

	return rec, nil
}

// ParseDate parses a calendar date (optionally with a time part) in UTC.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New("unparseable date")
}

// ParseOrderCount parses a non-negative integral count.
// The source writes counts as floats ("4.0"), so integral floats are accepted.
func ParseOrderCount(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, errors.New("negative order count")
		}
		return n, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, errors.New("unparseable order count")
	}
	if !d.IsInteger() {
		return 0, errors.New("fractional order count")
	}
	if d.IsNegative() {
		return 0, errors.New("negative order count")
	}
	if !d.BigInt().IsInt64() {
		return 0, errors.New("order count out of range")
	}
	return d.IntPart(), nil
}

// ParseOrderValue parses a non-negative monetary amount exactly.
func ParseOrderValue(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.New("unparseable order value")
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("negative order value")
	}
	return d, nil
}

// WriteCSV writes records in the dataset schema, header first.
func WriteCSV(w io.Writer, records []*domain.CustomerOrderRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.MasterID,
			r.OrderChannel,
			r.LastOrderChannel,
			r.FirstOrderDate.Format(DateLayout),
			r.LastOrderDate.Format(DateLayout),
			r.LastOrderDateOnline.Format(DateLayout),
			r.LastOrderDateOffline.Format(DateLayout),
			strconv.FormatInt(r.OrderNumOnline, 10),
			strconv.FormatInt(r.OrderNumOffline, 10),
			r.CustomerValueOffline.String(),
			r.CustomerValueOnline.String(),
			r.InterestedInCategories,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write record %s: %w", r.MasterID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// stripBOM drops a leading UTF-8 byte order mark.
func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(3); err == nil && bytes.Equal(head, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}
	return br
}
