package reporting

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"customer-rfm-lab/internal/campaign"
	"customer-rfm-lab/internal/domain"
)

var testReference = time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)

func testRecord(row int, id, channel string, orders int64, value string, categories string) *domain.CustomerOrderRecord {
	date := time.Date(2021, 5, 1+row, 0, 0, 0, 0, time.UTC)
	return &domain.CustomerOrderRecord{
		RowIndex:               row,
		MasterID:               id,
		OrderChannel:           channel,
		LastOrderChannel:       channel,
		FirstOrderDate:         date.AddDate(-1, 0, 0),
		LastOrderDate:          date,
		LastOrderDateOnline:    date,
		LastOrderDateOffline:   date,
		OrderNumOnline:         orders,
		OrderNumOffline:        1,
		CustomerValueOnline:    decimal.RequireFromString(value),
		CustomerValueOffline:   decimal.RequireFromString("10.50"),
		InterestedInCategories: categories,
	}
}

func setupTestInput() Input {
	records := []*domain.CustomerOrderRecord{
		testRecord(0, "a", "Mobile", 3, "100.00", "[KADIN]"),
		testRecord(1, "b", "Desktop", 1, "50.25", "[ERKEK]"),
		testRecord(2, "c", "Mobile", 7, "20.00", ""),
	}
	segmented := []*domain.SegmentedCustomer{
		{ScoredCustomer: domain.ScoredCustomer{CustomerMetrics: domain.CustomerMetrics{CustomerID: "a", Recency: 30, Frequency: 4, Monetary: decimal.RequireFromString("110.50")}, R: 3, F: 3, M: 5}, Segment: domain.SegmentNeedAttention},
		{ScoredCustomer: domain.ScoredCustomer{CustomerMetrics: domain.CustomerMetrics{CustomerID: "b", Recency: 29, Frequency: 2, Monetary: decimal.RequireFromString("60.75")}, R: 5, F: 5, M: 4}, Segment: domain.SegmentChampions},
		{ScoredCustomer: domain.ScoredCustomer{CustomerMetrics: domain.CustomerMetrics{CustomerID: "c", Recency: 28, Frequency: 8, Monetary: decimal.RequireFromString("30.50")}, R: 5, F: 4, M: 1}, Segment: domain.SegmentChampions},
	}
	targets := []campaign.Target{
		{Campaign: campaign.DefaultCampaigns()[0], CustomerIDs: []string{"b"}},
		{Campaign: campaign.DefaultCampaigns()[1], CustomerIDs: []string{}},
	}
	return Input{Records: records, Segmented: segmented, Targets: targets, ReferenceDate: testReference}
}

func TestGenerator_Generate(t *testing.T) {
	fixed := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
	report := NewGenerator().WithClock(func() time.Time { return fixed }).Generate(setupTestInput())

	if !report.GeneratedAt.Equal(fixed) {
		t.Errorf("GeneratedAt = %v, want %v", report.GeneratedAt, fixed)
	}
	if report.Overview.Rows != 3 || report.Overview.Customers != 3 {
		t.Errorf("overview rows/customers = %d/%d, want 3/3", report.Overview.Rows, report.Overview.Customers)
	}
	if report.Overview.Columns != 12 {
		t.Errorf("overview columns = %d, want 12", report.Overview.Columns)
	}
	if got := report.Overview.LastOrderMax.Format(dateLayout); got != "2021-05-03" {
		t.Errorf("LastOrderMax = %s, want 2021-05-03", got)
	}

	for _, p := range report.Overview.ColumnProfiles {
		if p.Name == "interested_in_categories_12" && (p.Missing != 1 || p.Distinct != 2) {
			t.Errorf("categories profile = %+v, want 2 distinct, 1 missing", p)
		}
		if p.Name == "last_order_channel" && p.Distinct != 2 {
			t.Errorf("channel distinct = %d, want 2", p.Distinct)
		}
	}
}

func TestGenerator_Channels(t *testing.T) {
	report := NewGenerator().Generate(setupTestInput())

	if len(report.Channels) != 2 {
		t.Fatalf("channels = %d, want 2", len(report.Channels))
	}
	// Sorted by name
	desktop, mobile := report.Channels[0], report.Channels[1]
	if desktop.Channel != "Desktop" || mobile.Channel != "Mobile" {
		t.Fatalf("channel order = %s, %s", desktop.Channel, mobile.Channel)
	}
	if mobile.Rows != 2 || mobile.TotalOrders != 12 {
		t.Errorf("mobile rows/orders = %d/%d, want 2/12", mobile.Rows, mobile.TotalOrders)
	}
	if !mobile.TotalValue.Equal(decimal.RequireFromString("141.00")) {
		t.Errorf("mobile value = %s, want 141.00", mobile.TotalValue)
	}
}

func TestGenerator_Top(t *testing.T) {
	report := NewGenerator().Generate(setupTestInput())

	wantValue := []string{"a", "b", "c"}
	wantOrders := []string{"c", "a", "b"}
	for i := range wantValue {
		if report.TopByValue[i].MasterID != wantValue[i] {
			t.Errorf("TopByValue[%d] = %s, want %s", i, report.TopByValue[i].MasterID, wantValue[i])
		}
		if report.TopByOrders[i].MasterID != wantOrders[i] {
			t.Errorf("TopByOrders[%d] = %s, want %s", i, report.TopByOrders[i].MasterID, wantOrders[i])
		}
		if report.TopByValue[i].Rank != i+1 {
			t.Errorf("rank = %d, want %d", report.TopByValue[i].Rank, i+1)
		}
	}
}

func TestGenerateTop_LimitsToTopN(t *testing.T) {
	var records []*domain.CustomerOrderRecord
	for i := 0; i < 25; i++ {
		records = append(records, testRecord(i%20, string(rune('a'+i)), "Mobile", int64(i), "1", ""))
	}
	rows := generateTop(records, func(a, b *domain.CustomerOrderRecord) int {
		return compareInt64(a.TotalOrderNum(), b.TotalOrderNum())
	})
	if len(rows) != TopN {
		t.Fatalf("rows = %d, want %d", len(rows), TopN)
	}
	if rows[0].MasterID != "y" || rows[0].TotalOrders != 25 {
		t.Errorf("first row = %+v", rows[0])
	}
}

func TestGenerator_SegmentSummary(t *testing.T) {
	report := NewGenerator().Generate(setupTestInput())

	if len(report.Segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(report.Segments))
	}
	// Rule-table order: need_attention before champions
	if report.Segments[0].Segment != domain.SegmentNeedAttention {
		t.Errorf("first segment = %s", report.Segments[0].Segment)
	}
	champions := report.Segments[1]
	if champions.Count != 2 {
		t.Errorf("champions count = %d, want 2", champions.Count)
	}
	if champions.MeanRecency != 28.5 || champions.MeanF != 4.5 || champions.MeanM != 2.5 {
		t.Errorf("champions means = %+v", champions)
	}
	if champions.MeanMonetary != 45.625 {
		t.Errorf("champions mean monetary = %v, want 45.625", champions.MeanMonetary)
	}
	if champions.Share < 0.666 || champions.Share > 0.667 {
		t.Errorf("champions share = %v", champions.Share)
	}
}

func TestRenderMarkdown(t *testing.T) {
	report := NewGenerator().Generate(setupTestInput())
	report.DataQuality = DataQualitySection{
		SufficiencyChecks: []SufficiencyCheckRow{{Name: "Distinct customers", Threshold: ">= 5", Actual: "3", Pass: false}},
		IntegrityErrors:   []string{"only 3 customers"},
	}
	report.Reproducibility = ReproducibilityMetadata{RunID: "run-1", DataVersion: "abc123", Source: "csv"}

	md := RenderMarkdown(report)

	for _, want := range []string{
		"# RFM Segmentation Report",
		"Reference date: 2021-06-01",
		"## Dataset Overview",
		"| Desktop | 1 | 2 | 60.75 |",
		"## Top Customers by Total Value",
		"| Distinct customers | >= 5 | 3 | FAIL |",
		"- only 3 customers",
		"| champions | 2 |",
		"| premium_women | champions, loyal_customers | KADIN | 1 | marketing_1.csv |",
		"| Data Version | abc123 |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderCampaignCSV(t *testing.T) {
	got := RenderCampaignCSV([]string{"id-1", "id,2"})
	want := "master_id\nid-1\n\"id,2\"\n"
	if got != want {
		t.Errorf("RenderCampaignCSV = %q, want %q", got, want)
	}

	if got := RenderCampaignCSV(nil); got != "master_id\n" {
		t.Errorf("empty list = %q, want header only", got)
	}
}

func TestRenderScoresCSV(t *testing.T) {
	in := setupTestInput()
	for _, s := range in.Segmented {
		s.RFMScore = "355"
		s.RFScore = "35"
	}
	lines := strings.Split(strings.TrimSpace(RenderScoresCSV(in.Segmented)), "\n")

	if len(lines) != 4 {
		t.Fatalf("lines = %d, want 4", len(lines))
	}
	if lines[0] != "master_id,recency,frequency,monetary,recency_score,frequency_score,monetary_score,rfm_score,rf_score,segment" {
		t.Errorf("header = %s", lines[0])
	}
	if lines[1] != "a,30,4,110.5,3,3,5,355,35,need_attention" {
		t.Errorf("row = %s", lines[1])
	}
}

func TestReadScoresCSV(t *testing.T) {
	in := setupTestInput()
	for _, s := range in.Segmented {
		s.RFMScore = "355"
		s.RFScore = "35"
	}

	got, err := ReadScoresCSV(strings.NewReader(RenderScoresCSV(in.Segmented)))
	if err != nil {
		t.Fatalf("ReadScoresCSV: %v", err)
	}
	if len(got) != len(in.Segmented) {
		t.Fatalf("len = %d, want %d", len(got), len(in.Segmented))
	}
	for i, want := range in.Segmented {
		g := got[i]
		if g.CustomerID != want.CustomerID || g.Recency != want.Recency || g.Frequency != want.Frequency ||
			!g.Monetary.Equal(want.Monetary) || g.R != want.R || g.F != want.F || g.M != want.M ||
			g.RFMScore != want.RFMScore || g.Segment != want.Segment {
			t.Errorf("row %d = %+v, want %+v", i, g, want)
		}
	}
}

func TestReadScoresCSV_Invalid(t *testing.T) {
	header := strings.Join(ScoresHeader, ",") + "\n"
	tests := map[string]string{
		"wrong header":    "master_id,segment\n",
		"bad recency":     header + "a,x,4,110.5,3,3,5,355,35,need_attention\n",
		"bad monetary":    header + "a,30,4,abc,3,3,5,355,35,need_attention\n",
		"unknown segment": header + "a,30,4,110.5,3,3,5,355,35,vip\n",
		"short row":       header + "a,30,4\n",
	}
	for name, input := range tests {
		if _, err := ReadScoresCSV(strings.NewReader(input)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
