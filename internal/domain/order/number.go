package order

import (
	"fmt"
	"time"
)

const orderNumberPrefix = "ORD"

// FormatOrderNumber builds ORD-YYYYMMDD-NNNNNN from a sequence and the UTC date of at.
func FormatOrderNumber(seq int, at time.Time) string {
	return fmt.Sprintf("%s-%s-%06d", orderNumberPrefix, at.UTC().Format("20060102"), seq)
}
