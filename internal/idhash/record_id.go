// Package idhash computes deterministic content hashes of input data.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"customer-rfm-lab/internal/domain"
)

// DataVersionLength is the length of the short data version hash.
const DataVersionLength = 12

const dateLayout = "2006-01-02"

// ComputeRecordID computes a deterministic id of one record's content using SHA256.
// Formula: SHA256(master_id|order_channel|last_order_channel|dates...|counts...|values...|categories)
// Monetary values are normalized, so "10.50" and "10.5" hash equally.
// Returns hex-encoded hash (64 characters).
func ComputeRecordID(r *domain.CustomerOrderRecord) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s|%d|%d|%s|%s|%s",
		r.MasterID,
		r.OrderChannel,
		r.LastOrderChannel,
		r.FirstOrderDate.Format(dateLayout),
		r.LastOrderDate.Format(dateLayout),
		r.LastOrderDateOnline.Format(dateLayout),
		r.LastOrderDateOffline.Format(dateLayout),
		r.OrderNumOnline,
		r.OrderNumOffline,
		r.CustomerValueOnline.String(),
		r.CustomerValueOffline.String(),
		r.InterestedInCategories,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeDataVersion hashes the whole dataset in RowIndex order.
// Row order is part of the version because campaign lists follow it.
// Returns the first DataVersionLength hex characters.
func ComputeDataVersion(records []*domain.CustomerOrderRecord) string {
	sorted := make([]*domain.CustomerOrderRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RowIndex < sorted[j].RowIndex
	})

	h := sha256.New()
	for _, r := range sorted {
		h.Write([]byte(ComputeRecordID(r)))
		h.Write([]byte("\n"))
	}
	return hex.EncodeToString(h.Sum(nil))[:DataVersionLength]
}
