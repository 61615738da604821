package files

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notexe/proofpal/internal/purchase"
)

// Minimal PDF header; enough for content sniffing.
var pdfBytes = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func TestStore_Import(t *testing.T) {
	src := t.TempDir()
	s, err := New(filepath.Join(t.TempDir(), "files"))
	require.NoError(t, err)

	t.Run("pdf_by_extension", func(t *testing.T) {
		p := writeFile(t, src, "Invoice.PDF", pdfBytes)
		a, err := s.Import("rec-1", p)
		require.NoError(t, err)

		assert.Equal(t, "Invoice.PDF", a.Filename)
		assert.Equal(t, purchase.KindPDF, a.Kind)
		assert.Equal(t, "application/pdf", a.MIME)
		assert.Equal(t, int64(len(pdfBytes)), a.Size)
		assert.Len(t, a.Checksum, 64)
		assert.Equal(t, filepath.Join(s.Root(), "rec-1", a.Checksum+".pdf"), a.Path)
		assert.NotEmpty(t, a.ID)

		stored, err := os.ReadFile(a.Path)
		require.NoError(t, err)
		assert.Equal(t, pdfBytes, stored)
	})

	t.Run("sniffs_without_extension", func(t *testing.T) {
		p := writeFile(t, src, "scan", pdfBytes)
		a, err := s.Import("rec-2", p)
		require.NoError(t, err)
		assert.Equal(t, purchase.KindPDF, a.Kind)
	})

	t.Run("same_content_same_name", func(t *testing.T) {
		a1, err := s.Import("rec-3", writeFile(t, src, "a.pdf", pdfBytes))
		require.NoError(t, err)
		a2, err := s.Import("rec-3", writeFile(t, src, "b.pdf", pdfBytes))
		require.NoError(t, err)
		assert.Equal(t, a1.Path, a2.Path)
		assert.NotEqual(t, a1.ID, a2.ID)
	})

	t.Run("missing_source", func(t *testing.T) {
		_, err := s.Import("rec-1", filepath.Join(src, "nope.png"))
		assert.ErrorIs(t, err, purchase.ErrValidation)
	})

	t.Run("unsupported_type", func(t *testing.T) {
		_, err := s.Import("rec-1", writeFile(t, src, "notes.txt", []byte("hello")))
		var verr *purchase.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "file", verr.Field)
	})
}

func TestStore_OpenAndRemove(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	a, err := s.Import("rec-1", writeFile(t, t.TempDir(), "receipt.pdf", pdfBytes))
	require.NoError(t, err)

	rc, err := s.Open(a)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, pdfBytes, data)

	twin := a
	twin.ID = "other"
	require.NoError(t, s.Remove(a, []purchase.Attachment{a, twin}))
	assert.FileExists(t, a.Path, "shared payload is kept")

	require.NoError(t, s.Remove(a, []purchase.Attachment{a}))
	assert.NoFileExists(t, a.Path)
	require.NoError(t, s.Remove(a, nil), "removing twice is fine")

	_, err = s.Open(a)
	assert.ErrorIs(t, err, purchase.ErrNotFound)
}

func TestStore_RemoveRecord(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	a, err := s.Import("rec-1", writeFile(t, t.TempDir(), "receipt.pdf", pdfBytes))
	require.NoError(t, err)

	require.NoError(t, s.RemoveRecord("rec-1"))
	assert.NoDirExists(t, filepath.Dir(a.Path))

	assert.ErrorIs(t, s.RemoveRecord("../etc"), purchase.ErrValidation)
	assert.ErrorIs(t, s.RemoveRecord(""), purchase.ErrValidation)
}
