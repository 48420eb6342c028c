// Package memory is an in-process RecordWriter used by tests and by local
// runs without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"gastos/internal/core"
	ports "gastos/internal/export"
)

type Row struct {
	UID        string
	Collection string
	Record     core.Record
}

// Recorder collects appended rows in memory.
type Recorder struct {
	mu   sync.Mutex
	rows []Row
	err  error
}

var _ ports.RecordWriter = (*Recorder)(nil)

func New() *Recorder {
	return &Recorder{}
}

// Fail makes every subsequent Append return err. Passing nil clears it.
func (r *Recorder) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *Recorder) Append(_ context.Context, uid, collection string, rec core.Record) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	r.rows = append(r.rows, Row{UID: uid, Collection: collection, Record: rec})
	return fmt.Sprintf("memory!A%d", len(r.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (r *Recorder) Rows() []Row {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Row(nil), r.rows...)
}
