// Package filestore persists uploaded receipt PDFs on local disk, laid out
// as {dir}/{uid}/{month}/{paymentID}.pdf and served back under a base URL.
package filestore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Disk stores receipts under a root directory.
type Disk struct {
	dir     string
	baseURL string
}

func NewDisk(dir, baseURL string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &Disk{
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Dir returns the storage root, for mounting a file server over it.
func (d *Disk) Dir() string {
	return d.dir
}

// SaveReceipt writes the PDF for one payment and returns its URL. A second
// upload for the same payment replaces the file. Path segments are
// sanitized so identifiers cannot escape the storage root.
func (d *Disk) SaveReceipt(_ context.Context, uid, month, paymentID string, r io.Reader) (string, error) {
	uid = sanitize(uid)
	month = sanitize(month)
	paymentID = sanitize(paymentID)
	if uid == "" || month == "" || paymentID == "" {
		return "", fmt.Errorf("save receipt: empty path segment")
	}

	dir := filepath.Join(d.dir, uid, month)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create receipt directory: %w", err)
	}

	name := paymentID + ".pdf"
	tmp, err := os.CreateTemp(dir, name+".tmp*")
	if err != nil {
		return "", fmt.Errorf("create receipt file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write receipt file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close receipt file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return "", fmt.Errorf("finalize receipt file: %w", err)
	}

	return d.baseURL + path.Join("/", uid, month, name), nil
}

// Remove deletes the stored receipt for one payment, if present.
func (d *Disk) Remove(uid, month, paymentID string) error {
	p := filepath.Join(d.dir, sanitize(uid), sanitize(month), sanitize(paymentID)+".pdf")
	err := os.Remove(p)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// sanitize keeps only characters safe to use as a single path segment.
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}
