// Package export defines the outbound port for mirroring records to an
// external spreadsheet.
package export

import (
	"context"

	"gastos/internal/core"
)

// RecordWriter appends one record as a spreadsheet row and returns a
// reference to the written range.
type RecordWriter interface {
	Append(ctx context.Context, uid, collection string, r core.Record) (rowRef string, err error)
}
