// Package campaign selects marketing target lists from segmented customers.
package campaign

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"unicode"

	"customer-rfm-lab/internal/domain"
)

// Category tokens used by the default campaigns.
const (
	TokenWomen    = "KADIN"
	TokenMen      = "ERKEK"
	TokenChildren = "COCUK"
)

// Default campaign names.
const (
	PremiumWomen        = "premium_women"
	DiscountMenChildren = "discount_men_children"
)

// ErrInvalidCampaign is returned for malformed campaign definitions.
var ErrInvalidCampaign = errors.New("invalid campaign")

// Campaign selects customers in any of Segments whose category interest
// contains any of Tokens as a whole word.
type Campaign struct {
	Name     string           `yaml:"name"`
	Segments []domain.Segment `yaml:"segments"`
	Tokens   []string         `yaml:"tokens"`
	Output   string           `yaml:"output"`
}

// Target is the ordered customer list selected by one campaign.
type Target struct {
	Campaign    Campaign
	CustomerIDs []string
}

// DefaultCampaigns returns the premium-women and discount-men-children campaigns.
func DefaultCampaigns() []Campaign {
	return []Campaign{
		{
			Name:     PremiumWomen,
			Segments: []domain.Segment{domain.SegmentChampions, domain.SegmentLoyalCustomers},
			Tokens:   []string{TokenWomen},
			Output:   "marketing_1.csv",
		},
		{
			Name: DiscountMenChildren,
			Segments: []domain.Segment{
				domain.SegmentCantLoose,
				domain.SegmentHibernating,
				domain.SegmentAboutToSleep,
				domain.SegmentNewCustomers,
			},
			Tokens: []string{TokenMen, TokenChildren},
			Output: "marketing_2.csv",
		},
	}
}

// Validate checks that the campaign is usable.
func (c Campaign) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidCampaign)
	}
	if len(c.Segments) == 0 {
		return fmt.Errorf("%w: %s: no segments", ErrInvalidCampaign, c.Name)
	}
	for _, s := range c.Segments {
		if !s.Valid() {
			return fmt.Errorf("%w: %s: unknown segment %q", ErrInvalidCampaign, c.Name, s)
		}
	}
	if len(c.Tokens) == 0 {
		return fmt.Errorf("%w: %s: no category tokens", ErrInvalidCampaign, c.Name)
	}
	for _, tok := range c.Tokens {
		if tok == "" || strings.IndexFunc(tok, isBoundary) >= 0 {
			return fmt.Errorf("%w: %s: token %q is not a single word", ErrInvalidCampaign, c.Name, tok)
		}
	}
	if c.Output == "" {
		return fmt.Errorf("%w: %s: empty output", ErrInvalidCampaign, c.Name)
	}
	return nil
}

// Matches reports whether a customer with segment seg and category text
// categories belongs to the campaign.
func (c Campaign) Matches(seg domain.Segment, categories string) bool {
	if !c.hasSegment(seg) {
		return false
	}
	for _, tok := range c.Tokens {
		if ContainsToken(categories, tok) {
			return true
		}
	}
	return false
}

func (c Campaign) hasSegment(seg domain.Segment) bool {
	for _, s := range c.Segments {
		if s == seg {
			return true
		}
	}
	return false
}

// Filter returns the IDs of customers matching the campaign, in record order.
// Records whose customer is absent from segments are skipped.
// A customer appears at most once, at its first matching record.
func (c Campaign) Filter(records []*domain.CustomerOrderRecord, segments map[string]domain.Segment) []string {
	seen := make(map[string]bool)
	ids := []string{}
	for _, r := range records {
		if seen[r.MasterID] {
			continue
		}
		seg, ok := segments[r.MasterID]
		if !ok {
			continue
		}
		if c.Matches(seg, r.InterestedInCategories) {
			seen[r.MasterID] = true
			ids = append(ids, r.MasterID)
		}
	}
	return ids
}

// CheckOutputs fails when two campaigns share a name or an output, or when a
// campaign output collides with one of the reserved artifact names.
func CheckOutputs(campaigns []Campaign, reserved ...string) error {
	owner := make(map[string]string, len(campaigns)+len(reserved))
	for _, r := range reserved {
		if r != "" {
			owner[cleanOutput(r)] = "artifact " + r
		}
	}
	names := make(map[string]bool, len(campaigns))
	for _, c := range campaigns {
		if names[c.Name] {
			return fmt.Errorf("%w: duplicate campaign %q", ErrInvalidCampaign, c.Name)
		}
		names[c.Name] = true

		out := cleanOutput(c.Output)
		if prev, ok := owner[out]; ok {
			return fmt.Errorf("%w: %s: output %q already used by %s", ErrInvalidCampaign, c.Name, c.Output, prev)
		}
		owner[out] = "campaign " + c.Name
	}
	return nil
}

func cleanOutput(name string) string {
	return path.Clean(filepath.ToSlash(name))
}

// Run applies every campaign to the same records.
func Run(campaigns []Campaign, records []*domain.CustomerOrderRecord, segments map[string]domain.Segment) ([]Target, error) {
	for _, c := range campaigns {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}
	if err := CheckOutputs(campaigns); err != nil {
		return nil, err
	}

	targets := make([]Target, 0, len(campaigns))
	for _, c := range campaigns {
		targets = append(targets, Target{Campaign: c, CustomerIDs: c.Filter(records, segments)})
	}
	return targets, nil
}

// ContainsToken reports whether token occurs in text as a whole word.
// Words are maximal runs of letters, digits and underscores. Comparison is case-sensitive.
func ContainsToken(text, token string) bool {
	if token == "" {
		return false
	}
	for _, word := range strings.FieldsFunc(text, isBoundary) {
		if word == token {
			return true
		}
	}
	return false
}

func isBoundary(r rune) bool {
	return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
}
