// Package segment maps RF score pairs to named behavioral segments.
package segment

import "customer-rfm-lab/internal/domain"

// Classify returns the segment of an (R, F) score pair.
// Rules are evaluated in table order and the first match wins.
// Every pair in 1..5 x 1..5 matches exactly one rule.
func Classify(r, f int) (domain.Segment, bool) {
	if r < 1 || r > 5 || f < 1 || f > 5 {
		return "", false
	}

	switch {
	case r <= 2 && f <= 2:
		return domain.SegmentHibernating, true
	case r <= 2 && f <= 4:
		return domain.SegmentAtRisk, true
	case r <= 2 && f == 5:
		return domain.SegmentCantLoose, true
	case r == 3 && f <= 2:
		return domain.SegmentAboutToSleep, true
	case r == 3 && f == 3:
		return domain.SegmentNeedAttention, true
	case (r == 3 || r == 4) && f >= 4:
		return domain.SegmentLoyalCustomers, true
	case r == 4 && f == 1:
		return domain.SegmentPromising, true
	case r == 5 && f == 1:
		return domain.SegmentNewCustomers, true
	case r >= 4 && (f == 2 || f == 3):
		return domain.SegmentPotentialLoyalists, true
	case r == 5 && f >= 4:
		return domain.SegmentChampions, true
	}
	return "", false
}

// Assign labels every scored customer, preserving input order.
func Assign(scored []*domain.ScoredCustomer) ([]*domain.SegmentedCustomer, error) {
	result := make([]*domain.SegmentedCustomer, 0, len(scored))
	for _, s := range scored {
		seg, ok := Classify(s.R, s.F)
		if !ok {
			return nil, &domain.UnclassifiedSegmentError{CustomerID: s.CustomerID, R: s.R, F: s.F}
		}
		result = append(result, &domain.SegmentedCustomer{ScoredCustomer: *s, Segment: seg})
	}
	return result, nil
}

// Index maps customer ID to segment.
func Index(segmented []*domain.SegmentedCustomer) map[string]domain.Segment {
	idx := make(map[string]domain.Segment, len(segmented))
	for _, s := range segmented {
		idx[s.CustomerID] = s.Segment
	}
	return idx
}
