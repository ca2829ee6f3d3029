package domain

// Segment is a named behavioral category derived from R and F scores.
type Segment string

// Segment constants
const (
	SegmentHibernating        Segment = "hibernating"
	SegmentAtRisk             Segment = "at_risk"
	SegmentCantLoose          Segment = "cant_loose"
	SegmentAboutToSleep       Segment = "about_to_sleep"
	SegmentNeedAttention      Segment = "need_attention"
	SegmentLoyalCustomers     Segment = "loyal_customers"
	SegmentPromising          Segment = "promising"
	SegmentNewCustomers       Segment = "new_customers"
	SegmentPotentialLoyalists Segment = "potential_loyalists"
	SegmentChampions          Segment = "champions"
)

// AllSegments lists every segment in rule-table order.
var AllSegments = []Segment{
	SegmentHibernating,
	SegmentAtRisk,
	SegmentCantLoose,
	SegmentAboutToSleep,
	SegmentNeedAttention,
	SegmentLoyalCustomers,
	SegmentPromising,
	SegmentNewCustomers,
	SegmentPotentialLoyalists,
	SegmentChampions,
}

// Valid reports whether s is one of the known segments.
func (s Segment) Valid() bool {
	for _, known := range AllSegments {
		if s == known {
			return true
		}
	}
	return false
}

// ParseSegment converts a name into a Segment.
func ParseSegment(name string) (Segment, bool) {
	s := Segment(name)
	return s, s.Valid()
}
