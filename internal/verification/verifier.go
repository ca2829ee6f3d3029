// Package verification checks that a segmentation run reproduces a stored
// scores export customer by customer.
package verification

import (
	"sort"

	"customer-rfm-lab/internal/domain"
)

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string      // field name
	Expected interface{} // stored value
	Actual   interface{} // replayed value
}

// CustomerResult contains the result of verifying a single customer.
type CustomerResult struct {
	CustomerID  string
	Match       bool              // true if all fields match
	Divergences []FieldDivergence // list of divergent fields
}

// Report contains results for batch verification.
type Report struct {
	TotalCustomers     int              // customers in the stored export
	MatchedCustomers   int              // customers that matched exactly
	DivergentCustomers int              // customers with divergences
	Missing            []string         // stored but absent from the replay
	Unexpected         []string         // replayed but absent from the store
	Results            []CustomerResult // divergent customers only, by CustomerID
}

// OK reports whether the replay reproduced the stored export exactly.
func (r *Report) OK() bool {
	return r.DivergentCustomers == 0 && len(r.Missing) == 0 && len(r.Unexpected) == 0
}

// Verify compares a stored scores export with a replayed run.
func Verify(stored, replayed []*domain.SegmentedCustomer) *Report {
	byID := make(map[string]*domain.SegmentedCustomer, len(replayed))
	for _, c := range replayed {
		byID[c.CustomerID] = c
	}

	report := &Report{TotalCustomers: len(stored)}
	seen := make(map[string]bool, len(stored))

	for _, s := range stored {
		seen[s.CustomerID] = true
		r, ok := byID[s.CustomerID]
		if !ok {
			report.Missing = append(report.Missing, s.CustomerID)
			continue
		}
		divergences := CompareCustomers(s, r)
		if len(divergences) == 0 {
			report.MatchedCustomers++
			continue
		}
		report.DivergentCustomers++
		report.Results = append(report.Results, CustomerResult{
			CustomerID:  s.CustomerID,
			Divergences: divergences,
		})
	}

	for _, r := range replayed {
		if !seen[r.CustomerID] {
			report.Unexpected = append(report.Unexpected, r.CustomerID)
		}
	}

	sort.Strings(report.Missing)
	sort.Strings(report.Unexpected)
	sort.Slice(report.Results, func(i, j int) bool {
		return report.Results[i].CustomerID < report.Results[j].CustomerID
	})
	return report
}

// CompareCustomers compares two segmented customers and returns divergences.
// Monetary is compared by value, so 100 and 100.00 match.
func CompareCustomers(stored, replayed *domain.SegmentedCustomer) []FieldDivergence {
	var divergences []FieldDivergence
	add := func(field string, expected, actual interface{}) {
		divergences = append(divergences, FieldDivergence{Field: field, Expected: expected, Actual: actual})
	}

	// Metrics
	if stored.Recency != replayed.Recency {
		add("Recency", stored.Recency, replayed.Recency)
	}
	if stored.Frequency != replayed.Frequency {
		add("Frequency", stored.Frequency, replayed.Frequency)
	}
	if !stored.Monetary.Equal(replayed.Monetary) {
		add("Monetary", stored.Monetary.String(), replayed.Monetary.String())
	}

	// Scores
	if stored.R != replayed.R {
		add("R", stored.R, replayed.R)
	}
	if stored.F != replayed.F {
		add("F", stored.F, replayed.F)
	}
	if stored.M != replayed.M {
		add("M", stored.M, replayed.M)
	}
	if stored.RFMScore != replayed.RFMScore {
		add("RFMScore", stored.RFMScore, replayed.RFMScore)
	}
	if stored.RFScore != replayed.RFScore {
		add("RFScore", stored.RFScore, replayed.RFScore)
	}

	// Segment must match exactly
	if stored.Segment != replayed.Segment {
		add("Segment", stored.Segment, replayed.Segment)
	}

	return divergences
}
