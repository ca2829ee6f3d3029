// Package scoring converts RFM metrics into 1..5 quintile scores.
package scoring

import (
	"strconv"

	"customer-rfm-lab/internal/domain"
)

// MinCustomers is the smallest population quintile scoring is defined for.
const MinCustomers = Buckets

// Score assigns R, F and M scores to every customer.
// Recency is inverted: the most recent fifth scores 5. Frequency and Monetary are
// ascending: the highest fifth scores 5. Ties are broken by position in customers.
// Returns InsufficientDataError if there are fewer than MinCustomers customers.
func Score(customers []*domain.CustomerMetrics) ([]*domain.ScoredCustomer, error) {
	n := len(customers)
	if n < MinCustomers {
		return nil, &domain.InsufficientDataError{Customers: n, Required: MinCustomers}
	}

	recency := QuintileScores(n, func(i, j int) bool {
		return customers[i].Recency < customers[j].Recency
	})
	frequency := QuintileScores(n, func(i, j int) bool {
		return customers[i].Frequency < customers[j].Frequency
	})
	monetary := QuintileScores(n, func(i, j int) bool {
		return customers[i].Monetary.LessThan(customers[j].Monetary)
	})

	scored := make([]*domain.ScoredCustomer, n)
	for i, c := range customers {
		r := Buckets + 1 - recency[i]
		f := frequency[i]
		m := monetary[i]
		scored[i] = &domain.ScoredCustomer{
			CustomerMetrics: *c,
			R:               r,
			F:               f,
			M:               m,
			RFMScore:        strconv.Itoa(r) + strconv.Itoa(f) + strconv.Itoa(m),
			RFScore:         strconv.Itoa(r) + strconv.Itoa(f),
		}
	}
	return scored, nil
}
