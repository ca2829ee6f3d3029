package pipeline

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"customer-rfm-lab/internal/domain"
	"customer-rfm-lab/internal/storage"
)

// FixtureReferenceDate is the reference date the fixture dataset is built for.
var FixtureReferenceDate = time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)

// LoadFixtures populates store with the fixture dataset.
func LoadFixtures(ctx context.Context, store storage.CustomerOrderStore) error {
	return store.InsertBulk(ctx, FixtureRecords())
}

// FixtureRecords returns a small deterministic customer-order dataset:
// ten customers with distinct metrics, one of them split over two rows.
// Against FixtureReferenceDate it yields
// premium_women = [c05, c01] and discount_men_children = [c10, c06, c09].
func FixtureRecords() []*domain.CustomerOrderRecord {
	return []*domain.CustomerOrderRecord{
		fixture(0, "c05", "Android App", "Android App", "2018-06-02", "2021-03-03", "2020-12-10", 9, 3, "1100.00", "400.00", "[KADIN, COCUK]"),
		fixture(1, "c01", "Android App", "Offline", "2017-03-15", "2021-05-01", "2021-05-22", 15, 5, "3999.51", "1000.49", "[KADIN, AKTIFSPOR]"),
		fixture(2, "c10", "Desktop", "Desktop", "2019-02-10", "2020-01-18", "2019-11-02", 4, 1, "450.25", "149.75", "[ERKEK]"),
		fixture(3, "c02", "Ios App", "Ios App", "2018-09-01", "2021-05-12", "2021-01-20", 12, 3, "3200.00", "800.00", "[ERKEK]"),
		fixture(4, "c03", "Mobile", "Mobile", "2021-04-01", "2021-04-22", "2021-04-01", 1, 1, "60.00", "40.00", "[AKTIFSPOR]"),
		fixture(5, "c06", "Offline", "Offline", "2021-02-01", "2021-02-01", "2021-02-01", 0, 1, "0", "50.00", "[COCUK]"),
		fixture(6, "c04", "Android App", "Android App", "2019-05-05", "2021-04-02", "2020-10-10", 6, 2, "700.00", "200.00", "[KADIN]"),
		fixture(7, "c09", "Ios App", "Ios App", "2016-01-10", "2020-04-27", "2019-12-01", 10, 2, "1500.00", "500.00", "[ERKEK, KADIN]"),
		fixture(8, "c07", "Desktop", "Desktop", "2018-02-14", "2020-11-13", "2020-07-07", 8, 2, "900.00", "300.00", "[KADIN, ERKEK]"),
		fixture(9, "c08", "Mobile", "Mobile", "2019-12-12", "2020-08-05", "2020-03-03", 2, 1, "200.00", "100.00", "[AKTIFCOCUK]"),
		fixture(10, "c09", "Ios App", "Ios App", "2016-01-10", "2020-03-08", "2019-10-01", 5, 1, "800.00", "200.00", "[ERKEK, KADIN]"),
	}
}

// fixture builds one record. last_order_date is the later of the two channel dates.
func fixture(
	row int,
	id, channel, lastChannel string,
	first, lastOnline, lastOffline string,
	numOnline, numOffline int64,
	valueOnline, valueOffline string,
	categories string,
) *domain.CustomerOrderRecord {
	online := mustDate(lastOnline)
	offline := mustDate(lastOffline)
	last := online
	if offline.After(last) {
		last = offline
	}
	return &domain.CustomerOrderRecord{
		RowIndex:               row,
		MasterID:               id,
		OrderChannel:           channel,
		LastOrderChannel:       lastChannel,
		FirstOrderDate:         mustDate(first),
		LastOrderDate:          last,
		LastOrderDateOnline:    online,
		LastOrderDateOffline:   offline,
		OrderNumOnline:         numOnline,
		OrderNumOffline:        numOffline,
		CustomerValueOnline:    decimal.RequireFromString(valueOnline),
		CustomerValueOffline:   decimal.RequireFromString(valueOffline),
		InterestedInCategories: categories,
	}
}

func mustDate(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}
