package reporting

import (
	"fmt"
	"strings"
	"time"

	"customer-rfm-lab/internal/domain"
)

const dateLayout = "2006-01-02"

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# RFM Segmentation Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Reference date: %s | Customers: %d | Rows: %d\n\n",
		r.ReferenceDate.Format(dateLayout), r.Overview.Customers, r.Overview.Rows))

	renderOverview(&sb, r.Overview)
	renderStats(&sb, "Numeric Columns", r.NumericStats)
	renderChannels(&sb, r.Channels)
	renderTop(&sb, "Top Customers by Total Value", r.TopByValue)
	renderTop(&sb, "Top Customers by Total Orders", r.TopByOrders)
	renderDataQuality(&sb, r.DataQuality)
	renderStats(&sb, "RFM Metrics", r.RFMStats)
	renderSegments(&sb, r.Segments)
	renderCampaigns(&sb, r.Campaigns)
	renderReproducibility(&sb, r.Reproducibility)

	return sb.String()
}

func renderOverview(sb *strings.Builder, o DatasetOverview) {
	sb.WriteString("## Dataset Overview\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Rows | %d |\n", o.Rows))
	sb.WriteString(fmt.Sprintf("| Columns | %d |\n", o.Columns))
	sb.WriteString(fmt.Sprintf("| Distinct Customers | %d |\n", o.Customers))
	if o.Rows > 0 {
		sb.WriteString(fmt.Sprintf("| Earliest First Order | %s |\n", o.FirstOrderMin.Format(dateLayout)))
		sb.WriteString(fmt.Sprintf("| Latest Last Order | %s |\n", o.LastOrderMax.Format(dateLayout)))
	}
	sb.WriteString("\n")

	if len(o.ColumnProfiles) > 0 {
		sb.WriteString("| Column | Distinct | Missing |\n")
		sb.WriteString("|--------|----------|---------|\n")
		for _, c := range o.ColumnProfiles {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d |\n", c.Name, c.Distinct, c.Missing))
		}
		sb.WriteString("\n")
	}
}

func renderStats(sb *strings.Builder, title string, rows []NumericStatRow) {
	sb.WriteString(fmt.Sprintf("## %s\n\n", title))
	if len(rows) == 0 {
		sb.WriteString("No data available.\n\n")
		return
	}
	sb.WriteString("| Column | Count | Mean | Std | Min | P01 | P10 | P25 | Median | P75 | P90 | P99 | Max |\n")
	sb.WriteString("|--------|-------|------|-----|-----|-----|-----|-----|--------|-----|-----|-----|-----|\n")
	for _, s := range rows {
		sb.WriteString(fmt.Sprintf("| %s | %d | %.2f | %.2f | %.2f | %.2f | %.2f | %.2f | %.2f | %.2f | %.2f | %.2f | %.2f |\n",
			s.Column, s.Count, s.Mean, s.Stddev, s.Min, s.P01, s.P10, s.P25,
			s.Median, s.P75, s.P90, s.P99, s.Max))
	}
	sb.WriteString("\n")
}

func renderChannels(sb *strings.Builder, rows []ChannelRow) {
	sb.WriteString("## Last Order Channel\n\n")
	if len(rows) == 0 {
		sb.WriteString("No channel data available.\n\n")
		return
	}
	sb.WriteString("| Channel | Rows | Total Orders | Total Value |\n")
	sb.WriteString("|---------|------|--------------|-------------|\n")
	for _, c := range rows {
		sb.WriteString(fmt.Sprintf("| %s | %d | %d | %s |\n",
			c.Channel, c.Rows, c.TotalOrders, c.TotalValue.StringFixed(2)))
	}
	sb.WriteString("\n")
}

func renderTop(sb *strings.Builder, title string, rows []TopCustomerRow) {
	sb.WriteString(fmt.Sprintf("## %s\n\n", title))
	if len(rows) == 0 {
		sb.WriteString("No customers available.\n\n")
		return
	}
	sb.WriteString("| Rank | Customer | Total Orders | Total Value |\n")
	sb.WriteString("|------|----------|--------------|-------------|\n")
	for _, t := range rows {
		sb.WriteString(fmt.Sprintf("| %d | %s | %d | %s |\n",
			t.Rank, t.MasterID, t.TotalOrders, t.TotalValue.StringFixed(2)))
	}
	sb.WriteString("\n")
}

func renderDataQuality(sb *strings.Builder, dq DataQualitySection) {
	sb.WriteString("## Data Quality\n\n")
	if len(dq.SufficiencyChecks) > 0 {
		sb.WriteString("| Check | Threshold | Actual | Status |\n")
		sb.WriteString("|-------|-----------|--------|--------|\n")
		for _, check := range dq.SufficiencyChecks {
			status := "FAIL"
			if check.Pass {
				status = "PASS"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				check.Name, check.Threshold, check.Actual, status))
		}
		sb.WriteString("\n")

		if dq.AllChecksPassed {
			sb.WriteString("**All checks passed.**\n\n")
		} else {
			sb.WriteString("**Some checks failed.** Segment results may be unreliable.\n\n")
		}
	} else if len(dq.IntegrityErrors) == 0 {
		sb.WriteString("No data quality checks performed.\n\n")
	}

	// Integrity errors (always shown if present, even without sufficiency checks)
	if len(dq.IntegrityErrors) > 0 {
		sb.WriteString("### Integrity Errors\n\n")
		for _, err := range dq.IntegrityErrors {
			sb.WriteString(fmt.Sprintf("- %s\n", err))
		}
		sb.WriteString("\n")
	}
}

func renderSegments(sb *strings.Builder, rows []SegmentSummaryRow) {
	sb.WriteString("## Segments\n\n")
	if len(rows) == 0 {
		sb.WriteString("No segmented customers.\n\n")
		return
	}
	sb.WriteString("| Segment | Count | Share | Recency | R | Frequency | F | Monetary | M |\n")
	sb.WriteString("|---------|-------|-------|---------|---|-----------|---|----------|---|\n")
	for _, s := range rows {
		sb.WriteString(fmt.Sprintf("| %s | %d | %.1f%% | %.1f | %.2f | %.2f | %.2f | %.2f | %.2f |\n",
			s.Segment, s.Count, s.Share*100, s.MeanRecency, s.MeanR,
			s.MeanFrequency, s.MeanF, s.MeanMonetary, s.MeanM))
	}
	sb.WriteString("\n")
}

func renderCampaigns(sb *strings.Builder, rows []CampaignRow) {
	sb.WriteString("## Campaign Targets\n\n")
	if len(rows) == 0 {
		sb.WriteString("No campaigns configured.\n\n")
		return
	}
	sb.WriteString("| Campaign | Segments | Category Tokens | Customers | Output |\n")
	sb.WriteString("|----------|----------|-----------------|-----------|--------|\n")
	for _, c := range rows {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %s |\n",
			c.Name, joinSegments(c.Segments), strings.Join(c.Tokens, ", "), c.Customers, c.Output))
	}
	sb.WriteString("\n")
}

func renderReproducibility(sb *strings.Builder, m ReproducibilityMetadata) {
	sb.WriteString("## Reproducibility\n\n")
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Run ID | %s |\n", m.RunID))
	sb.WriteString(fmt.Sprintf("| Report Timestamp | %s |\n", m.ReportTimestamp.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("| Generator Version | %s |\n", m.GeneratorVersion))
	sb.WriteString(fmt.Sprintf("| Data Version | %s |\n", m.DataVersion))
	sb.WriteString(fmt.Sprintf("| Source | %s |\n", m.Source))
	if m.ReplayCommand != "" {
		sb.WriteString(fmt.Sprintf("| Replay Command | `%s` |\n", m.ReplayCommand))
	}
	sb.WriteString("\n")
}

func joinSegments(segments []domain.Segment) string {
	names := make([]string, len(segments))
	for i, s := range segments {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
