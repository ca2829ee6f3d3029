package pipeline

import (
	"fmt"
	"strings"

	"customer-rfm-lab/internal/domain"
	"customer-rfm-lab/internal/ingestion"
	"customer-rfm-lab/internal/scoring"
)

// maxIntegrityErrors caps the per-row messages kept for the report.
const maxIntegrityErrors = 20

// SufficiencyCheck represents one data sufficiency criterion.
type SufficiencyCheck struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// SufficiencyResult contains all checks.
type SufficiencyResult struct {
	Checks    []SufficiencyCheck
	AllPass   bool
	Errors    []string // data integrity errors
	Customers int
}

// CheckSufficiency validates the loaded records before scoring.
// Only the customer count is fatal (see Scorable); the other checks
// are reported but do not stop the run.
func CheckSufficiency(records []*domain.CustomerOrderRecord) *SufficiencyResult {
	result := &SufficiencyResult{
		Checks:  make([]SufficiencyCheck, 0, 4),
		AllPass: true,
		Errors:  []string{},
	}

	add := func(check SufficiencyCheck, errs []string) {
		result.Checks = append(result.Checks, check)
		if !check.Pass {
			result.AllPass = false
			result.Errors = append(result.Errors, capErrors(errs)...)
		}
	}

	// Check 1: distinct customers >= quintile count
	check1, customers := checkDistinctCustomers(records)
	result.Customers = customers
	add(check1, nil)

	// Check 2: first order not after last order
	add(checkOrderDateOrder(records))

	// Check 3: last order date is the later of the channel dates
	add(checkChannelDates(records))

	// Check 4: category interest present (needed for campaign targeting)
	add(checkCategoriesPresent(records))

	return result
}

// Scorable reports whether quintile scoring can run.
func (r *SufficiencyResult) Scorable() bool {
	return r.Customers >= scoring.MinCustomers
}

func checkDistinctCustomers(records []*domain.CustomerOrderRecord) (SufficiencyCheck, int) {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		seen[r.MasterID] = struct{}{}
	}
	return SufficiencyCheck{
		Name:      "Distinct customers",
		Threshold: fmt.Sprintf(">= %d", scoring.MinCustomers),
		Actual:    fmt.Sprintf("%d", len(seen)),
		Pass:      len(seen) >= scoring.MinCustomers,
	}, len(seen)
}

func checkOrderDateOrder(records []*domain.CustomerOrderRecord) (SufficiencyCheck, []string) {
	var errs []string
	for _, r := range records {
		if r.FirstOrderDate.After(r.LastOrderDate) {
			errs = append(errs, fmt.Sprintf("row %d (%s): %s %s after %s %s",
				r.RowIndex+1, r.MasterID,
				ingestion.ColFirstOrderDate, r.FirstOrderDate.Format(ingestion.DateLayout),
				ingestion.ColLastOrderDate, r.LastOrderDate.Format(ingestion.DateLayout)))
		}
	}
	return SufficiencyCheck{
		Name:      "First order not after last order",
		Threshold: "= 0 violations",
		Actual:    fmt.Sprintf("%d", len(errs)),
		Pass:      len(errs) == 0,
	}, errs
}

func checkChannelDates(records []*domain.CustomerOrderRecord) (SufficiencyCheck, []string) {
	var errs []string
	for _, r := range records {
		latest := r.LastOrderDateOnline
		if r.LastOrderDateOffline.After(latest) {
			latest = r.LastOrderDateOffline
		}
		if !latest.Equal(r.LastOrderDate) {
			errs = append(errs, fmt.Sprintf("row %d (%s): %s %s, latest channel order %s",
				r.RowIndex+1, r.MasterID,
				ingestion.ColLastOrderDate, r.LastOrderDate.Format(ingestion.DateLayout),
				latest.Format(ingestion.DateLayout)))
		}
	}
	return SufficiencyCheck{
		Name:      "Last order matches channel dates",
		Threshold: "= 0 violations",
		Actual:    fmt.Sprintf("%d", len(errs)),
		Pass:      len(errs) == 0,
	}, errs
}

func checkCategoriesPresent(records []*domain.CustomerOrderRecord) (SufficiencyCheck, []string) {
	var errs []string
	for _, r := range records {
		if strings.TrimSpace(strings.Trim(r.InterestedInCategories, "[]")) == "" {
			errs = append(errs, fmt.Sprintf("row %d (%s): empty %s",
				r.RowIndex+1, r.MasterID, ingestion.ColInterestedInCategories))
		}
	}
	return SufficiencyCheck{
		Name:      "Rows with category interest",
		Threshold: "= 100%",
		Actual:    fmt.Sprintf("%d/%d", len(records)-len(errs), len(records)),
		Pass:      len(errs) == 0,
	}, errs
}

func capErrors(errs []string) []string {
	if len(errs) <= maxIntegrityErrors {
		return errs
	}
	capped := append([]string{}, errs[:maxIntegrityErrors]...)
	return append(capped, fmt.Sprintf("... and %d more", len(errs)-maxIntegrityErrors))
}
