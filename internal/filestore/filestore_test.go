package filestore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveReceipt(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewDisk(dir, "/receipts/")
	require.NoError(t, err)

	url, err := fs.SaveReceipt(context.Background(), "u1", "2025-03", "p1", strings.NewReader("%PDF-1.4 data"))
	require.NoError(t, err)
	require.Equal(t, "/receipts/u1/2025-03/p1.pdf", url)

	body, err := os.ReadFile(filepath.Join(dir, "u1", "2025-03", "p1.pdf"))
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4 data", string(body))
}

func TestSaveReceiptReplaces(t *testing.T) {
	fs, err := NewDisk(t.TempDir(), "/receipts")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = fs.SaveReceipt(ctx, "u1", "2025-03", "p1", strings.NewReader("first"))
	require.NoError(t, err)
	url, err := fs.SaveReceipt(ctx, "u1", "2025-03", "p1", strings.NewReader("second"))
	require.NoError(t, err)

	body, err := os.ReadFile(filepath.Join(fs.Dir(), "u1", "2025-03", "p1.pdf"))
	require.NoError(t, err)
	require.Equal(t, "second", string(body))
	require.Equal(t, "/receipts/u1/2025-03/p1.pdf", url)
}

func TestSaveReceiptSanitizesSegments(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewDisk(dir, "/receipts")
	require.NoError(t, err)

	url, err := fs.SaveReceipt(context.Background(), "../evil", "2025-03", "p1", strings.NewReader("x"))
	require.NoError(t, err)
	require.Equal(t, "/receipts/evil/2025-03/p1.pdf", url)

	if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "evil")); err == nil {
		t.Fatal("traversal segment escaped the storage root")
	}

	_, err = fs.SaveReceipt(context.Background(), "../..", "2025-03", "p1", strings.NewReader("x"))
	require.Error(t, err, "segment that sanitizes to nothing is rejected")
}

func TestRemove(t *testing.T) {
	fs, err := NewDisk(t.TempDir(), "/receipts")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = fs.SaveReceipt(ctx, "u1", "2025-03", "p1", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, fs.Remove("u1", "2025-03", "p1"))
	require.NoError(t, fs.Remove("u1", "2025-03", "p1"), "removing a missing receipt is not an error")

	_, err = os.Stat(filepath.Join(fs.Dir(), "u1", "2025-03", "p1.pdf"))
	require.True(t, os.IsNotExist(err))
}
