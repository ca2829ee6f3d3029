package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"customer-rfm-lab/internal/domain"
)

// CampaignHeader is the single column of a campaign target file.
const CampaignHeader = "master_id"

// RenderCampaignCSV renders one customer ID per row under a master_id header.
func RenderCampaignCSV(customerIDs []string) string {
	rows := make([][]string, 0, len(customerIDs)+1)
	rows = append(rows, []string{CampaignHeader})
	for _, id := range customerIDs {
		rows = append(rows, []string{id})
	}
	return renderRows(rows)
}

// ScoresHeader is the header row of the scores export.
var ScoresHeader = []string{
	"master_id", "recency", "frequency", "monetary",
	"recency_score", "frequency_score", "monetary_score",
	"rfm_score", "rf_score", "segment",
}

// RenderScoresCSV renders metrics, scores and segment per customer.
func RenderScoresCSV(segmented []*domain.SegmentedCustomer) string {
	rows := make([][]string, 0, len(segmented)+1)
	rows = append(rows, ScoresHeader)
	for _, s := range segmented {
		rows = append(rows, []string{
			s.CustomerID,
			strconv.Itoa(s.Recency),
			strconv.FormatInt(s.Frequency, 10),
			s.Monetary.String(),
			strconv.Itoa(s.R),
			strconv.Itoa(s.F),
			strconv.Itoa(s.M),
			s.RFMScore,
			s.RFScore,
			string(s.Segment),
		})
	}
	return renderRows(rows)
}

// renderRows quotes fields only where CSV requires it.
func renderRows(rows [][]string) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	// strings.Builder writes never fail
	_ = w.WriteAll(rows)
	return sb.String()
}

// ReadScoresCSV parses a scores export written by RenderScoresCSV.
func ReadScoresCSV(r io.Reader) ([]*domain.SegmentedCustomer, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(ScoresHeader)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read scores header: %w", err)
	}
	if !slices.Equal(header, ScoresHeader) {
		return nil, fmt.Errorf("unexpected scores header %v", header)
	}

	var out []*domain.SegmentedCustomer
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read scores: %w", err)
		}
		s, err := parseScoresRow(row)
		if err != nil {
			return nil, fmt.Errorf("scores line %d: %w", line, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func parseScoresRow(row []string) (*domain.SegmentedCustomer, error) {
	var s domain.SegmentedCustomer
	var err error

	s.CustomerID = row[0]
	if s.Recency, err = strconv.Atoi(row[1]); err != nil {
		return nil, fmt.Errorf("recency: %w", err)
	}
	if s.Frequency, err = strconv.ParseInt(row[2], 10, 64); err != nil {
		return nil, fmt.Errorf("frequency: %w", err)
	}
	if s.Monetary, err = decimal.NewFromString(row[3]); err != nil {
		return nil, fmt.Errorf("monetary: %w", err)
	}
	for i, dst := range []*int{&s.R, &s.F, &s.M} {
		if *dst, err = strconv.Atoi(row[4+i]); err != nil {
			return nil, fmt.Errorf("%s: %w", ScoresHeader[4+i], err)
		}
	}
	s.RFMScore = row[7]
	s.RFScore = row[8]

	seg, ok := domain.ParseSegment(row[9])
	if !ok {
		return nil, fmt.Errorf("unknown segment %q", row[9])
	}
	s.Segment = seg
	return &s, nil
}
