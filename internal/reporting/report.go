package reporting

import (
	"time"

	"github.com/shopspring/decimal"

	"customer-rfm-lab/internal/domain"
	"customer-rfm-lab/internal/metrics"
)

// Report represents the RFM segmentation report structure.
type Report struct {
	// Metadata
	GeneratedAt   time.Time
	ReferenceDate time.Time

	// Dataset description
	Overview     DatasetOverview
	NumericStats []NumericStatRow
	Channels     []ChannelRow     // sorted by channel name
	TopByValue   []TopCustomerRow // top 10 rows by total value
	TopByOrders  []TopCustomerRow // top 10 rows by total order count
	RFMStats     []NumericStatRow // recency, frequency, monetary

	// Data Quality (sufficiency checks)
	DataQuality DataQualitySection

	// Segmentation
	Segments  []SegmentSummaryRow // rule-table order, empty segments omitted
	Campaigns []CampaignRow

	// Reproducibility
	Reproducibility ReproducibilityMetadata
}

// DatasetOverview describes the loaded table.
type DatasetOverview struct {
	Rows           int
	Columns        int
	Customers      int
	FirstOrderMin  time.Time
	LastOrderMax   time.Time
	ColumnProfiles []ColumnProfile
}

// ColumnProfile counts distinct and empty values of one column.
type ColumnProfile struct {
	Name     string
	Distinct int
	Missing  int
}

// NumericStatRow is the distribution summary of one numeric column.
type NumericStatRow struct {
	Column string
	metrics.Summary
}

// ChannelRow aggregates totals per last order channel.
type ChannelRow struct {
	Channel     string
	Rows        int
	TotalOrders int64
	TotalValue  decimal.Decimal
}

// TopCustomerRow is one row of a top-N ranking.
type TopCustomerRow struct {
	Rank        int
	MasterID    string
	TotalOrders int64
	TotalValue  decimal.Decimal
}

// DataQualitySection contains data sufficiency checks and integrity errors.
type DataQualitySection struct {
	SufficiencyChecks []SufficiencyCheckRow
	IntegrityErrors   []string
	AllChecksPassed   bool
}

// SufficiencyCheckRow represents one sufficiency criterion.
type SufficiencyCheckRow struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// SegmentSummaryRow holds per-segment means of metrics and scores.
type SegmentSummaryRow struct {
	Segment       domain.Segment
	Count         int
	Share         float64 // Count / total customers
	MeanRecency   float64
	MeanR         float64
	MeanFrequency float64
	MeanF         float64
	MeanMonetary  float64
	MeanM         float64
}

// CampaignRow summarizes one campaign target list.
type CampaignRow struct {
	Name      string
	Segments  []domain.Segment
	Tokens    []string
	Output    string
	Customers int
}

// ReproducibilityMetadata identifies the run that produced the report.
type ReproducibilityMetadata struct {
	RunID            string
	ReportTimestamp  time.Time
	GeneratorVersion string
	DataVersion      string
	Source           string
	ReplayCommand    string
}
