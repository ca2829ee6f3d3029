package reporting

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"customer-rfm-lab/internal/campaign"
	"customer-rfm-lab/internal/domain"
	"customer-rfm-lab/internal/ingestion"
	"customer-rfm-lab/internal/metrics"
)

// TopN is the size of the top-customer rankings.
const TopN = 10

// Generator produces reports from one pipeline run.
type Generator struct {
	now func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator() *Generator {
	return &Generator{
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Input is everything a report is built from.
type Input struct {
	Records       []*domain.CustomerOrderRecord // input order
	Segmented     []*domain.SegmentedCustomer   // sorted by CustomerID
	Targets       []campaign.Target
	ReferenceDate time.Time
}

// Generate produces a complete report. DataQuality and Reproducibility are
// left for the caller to fill in.
func (g *Generator) Generate(in Input) *Report {
	return &Report{
		GeneratedAt:   g.now(),
		ReferenceDate: in.ReferenceDate,
		Overview:      generateOverview(in.Records),
		NumericStats:  generateNumericStats(in.Records),
		Channels:      generateChannels(in.Records),
		TopByValue: generateTop(in.Records, func(a, b *domain.CustomerOrderRecord) int {
			return a.TotalOrderValue().Cmp(b.TotalOrderValue())
		}),
		TopByOrders: generateTop(in.Records, func(a, b *domain.CustomerOrderRecord) int {
			return compareInt64(a.TotalOrderNum(), b.TotalOrderNum())
		}),
		RFMStats:  generateRFMStats(in.Segmented),
		Segments:  generateSegmentSummary(in.Segmented),
		Campaigns: generateCampaignRows(in.Targets),
	}
}

// generateOverview counts rows, customers and per-column distinct/empty values.
func generateOverview(records []*domain.CustomerOrderRecord) DatasetOverview {
	overview := DatasetOverview{
		Rows:    len(records),
		Columns: len(ingestion.Columns),
	}

	distinct := make(map[string]map[string]struct{}, len(ingestion.Columns))
	missing := make(map[string]int, len(ingestion.Columns))
	for _, col := range ingestion.Columns {
		distinct[col] = make(map[string]struct{})
	}

	for i, r := range records {
		values := columnValues(r)
		for j, col := range ingestion.Columns {
			if values[j] == "" {
				missing[col]++
				continue
			}
			distinct[col][values[j]] = struct{}{}
		}

		if i == 0 || r.FirstOrderDate.Before(overview.FirstOrderMin) {
			overview.FirstOrderMin = r.FirstOrderDate
		}
		if i == 0 || r.LastOrderDate.After(overview.LastOrderMax) {
			overview.LastOrderMax = r.LastOrderDate
		}
	}

	overview.Customers = len(distinct[ingestion.ColMasterID])
	for _, col := range ingestion.Columns {
		overview.ColumnProfiles = append(overview.ColumnProfiles, ColumnProfile{
			Name:     col,
			Distinct: len(distinct[col]),
			Missing:  missing[col],
		})
	}
	return overview
}

// columnValues returns the record's fields in ingestion.Columns order.
func columnValues(r *domain.CustomerOrderRecord) []string {
	return []string{
		r.MasterID,
		r.OrderChannel,
		r.LastOrderChannel,
		r.FirstOrderDate.Format(ingestion.DateLayout),
		r.LastOrderDate.Format(ingestion.DateLayout),
		r.LastOrderDateOnline.Format(ingestion.DateLayout),
		r.LastOrderDateOffline.Format(ingestion.DateLayout),
		decimal.NewFromInt(r.OrderNumOnline).String(),
		decimal.NewFromInt(r.OrderNumOffline).String(),
		r.CustomerValueOffline.String(),
		r.CustomerValueOnline.String(),
		r.InterestedInCategories,
	}
}

// generateNumericStats summarizes the count, value and derived total columns.
func generateNumericStats(records []*domain.CustomerOrderRecord) []NumericStatRow {
	columns := []struct {
		name  string
		value func(*domain.CustomerOrderRecord) float64
	}{
		{ingestion.ColOrderNumOnline, func(r *domain.CustomerOrderRecord) float64 { return float64(r.OrderNumOnline) }},
		{ingestion.ColOrderNumOffline, func(r *domain.CustomerOrderRecord) float64 { return float64(r.OrderNumOffline) }},
		{ingestion.ColCustomerValueOffline, func(r *domain.CustomerOrderRecord) float64 { return r.CustomerValueOffline.InexactFloat64() }},
		{ingestion.ColCustomerValueOnline, func(r *domain.CustomerOrderRecord) float64 { return r.CustomerValueOnline.InexactFloat64() }},
		{"total_order_num", func(r *domain.CustomerOrderRecord) float64 { return float64(r.TotalOrderNum()) }},
		{"total_order_value", func(r *domain.CustomerOrderRecord) float64 { return r.TotalOrderValue().InexactFloat64() }},
	}

	rows := make([]NumericStatRow, 0, len(columns))
	for _, c := range columns {
		values := make([]float64, len(records))
		for i, r := range records {
			values[i] = c.value(r)
		}
		rows = append(rows, NumericStatRow{Column: c.name, Summary: metrics.Describe(values)})
	}
	return rows
}

// generateRFMStats summarizes the three RFM metrics over customers.
func generateRFMStats(segmented []*domain.SegmentedCustomer) []NumericStatRow {
	recency := make([]float64, len(segmented))
	frequency := make([]float64, len(segmented))
	monetary := make([]float64, len(segmented))
	for i, s := range segmented {
		recency[i] = float64(s.Recency)
		frequency[i] = float64(s.Frequency)
		monetary[i] = s.Monetary.InexactFloat64()
	}
	return []NumericStatRow{
		{Column: "recency", Summary: metrics.Describe(recency)},
		{Column: "frequency", Summary: metrics.Describe(frequency)},
		{Column: "monetary", Summary: metrics.Describe(monetary)},
	}
}

// generateChannels sums totals per last_order_channel.
func generateChannels(records []*domain.CustomerOrderRecord) []ChannelRow {
	byChannel := make(map[string]*ChannelRow)
	for _, r := range records {
		row, ok := byChannel[r.LastOrderChannel]
		if !ok {
			row = &ChannelRow{Channel: r.LastOrderChannel, TotalValue: decimal.Zero}
			byChannel[r.LastOrderChannel] = row
		}
		row.Rows++
		row.TotalOrders += r.TotalOrderNum()
		row.TotalValue = row.TotalValue.Add(r.TotalOrderValue())
	}

	rows := make([]ChannelRow, 0, len(byChannel))
	for _, row := range byChannel {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Channel < rows[j].Channel
	})
	return rows
}

// generateTop ranks records descending by cmp, ties in input order.
func generateTop(records []*domain.CustomerOrderRecord, cmp func(a, b *domain.CustomerOrderRecord) int) []TopCustomerRow {
	sorted := make([]*domain.CustomerOrderRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return cmp(sorted[i], sorted[j]) > 0
	})

	n := min(TopN, len(sorted))
	rows := make([]TopCustomerRow, n)
	for i, r := range sorted[:n] {
		rows[i] = TopCustomerRow{
			Rank:        i + 1,
			MasterID:    r.MasterID,
			TotalOrders: r.TotalOrderNum(),
			TotalValue:  r.TotalOrderValue(),
		}
	}
	return rows
}

// generateSegmentSummary computes per-segment means in rule-table order.
func generateSegmentSummary(segmented []*domain.SegmentedCustomer) []SegmentSummaryRow {
	type sums struct {
		count            int
		recency, r, f, m float64
		frequency        float64
		monetary         decimal.Decimal
	}
	bySegment := make(map[domain.Segment]*sums)
	for _, s := range segmented {
		acc, ok := bySegment[s.Segment]
		if !ok {
			acc = &sums{monetary: decimal.Zero}
			bySegment[s.Segment] = acc
		}
		acc.count++
		acc.recency += float64(s.Recency)
		acc.frequency += float64(s.Frequency)
		acc.monetary = acc.monetary.Add(s.Monetary)
		acc.r += float64(s.R)
		acc.f += float64(s.F)
		acc.m += float64(s.M)
	}

	var rows []SegmentSummaryRow
	for _, seg := range domain.AllSegments {
		acc, ok := bySegment[seg]
		if !ok {
			continue
		}
		n := float64(acc.count)
		rows = append(rows, SegmentSummaryRow{
			Segment:       seg,
			Count:         acc.count,
			Share:         n / float64(len(segmented)),
			MeanRecency:   acc.recency / n,
			MeanR:         acc.r / n,
			MeanFrequency: acc.frequency / n,
			MeanF:         acc.f / n,
			MeanMonetary:  acc.monetary.Div(decimal.NewFromInt(int64(acc.count))).InexactFloat64(),
			MeanM:         acc.m / n,
		})
	}
	return rows
}

func generateCampaignRows(targets []campaign.Target) []CampaignRow {
	rows := make([]CampaignRow, len(targets))
	for i, t := range targets {
		rows[i] = CampaignRow{
			Name:      t.Campaign.Name,
			Segments:  t.Campaign.Segments,
			Tokens:    t.Campaign.Tokens,
			Output:    t.Campaign.Output,
			Customers: len(t.CustomerIDs),
		}
	}
	return rows
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
