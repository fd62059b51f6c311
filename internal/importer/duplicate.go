package importer

import (
	"time"

	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

// MarkDuplicates returns a copy of records in which every pending record
// whose key is already stored is flagged as a duplicate. Records in any
// other status are copied unchanged. Records within the batch are not
// compared with each other.
func MarkDuplicates(records []Record, existing transaction.KeySet) []Record {
	out := make([]Record, len(records))

	for i, r := range records {
		r = r.clone()

		if r.Status == StatusPending && existing.Has(r.Key()) {
			r.Status = StatusDuplicate
			r.Errors = append(r.Errors, MsgDuplicate)
		}

		out[i] = r
	}

	return out
}

// PendingDates returns the dates of the pending records, used to bound the
// duplicate lookup.
func PendingDates(records []Record) []time.Time {
	var dates []time.Time

	for _, r := range records {
		if r.Status == StatusPending {
			dates = append(dates, r.Date)
		}
	}

	return dates
}
