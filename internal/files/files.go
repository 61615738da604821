package files

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/notexe/proofpal/internal/purchase"
)

// sniffLen is the number of leading bytes http.DetectContentType looks at.
const sniffLen = 512

// Store keeps attachment payloads on disk, one directory per record.
// Files are named after their sha256 so importing the same proof twice
// reuses the stored copy.
type Store struct {
	root string
	now  func() time.Time
}

// New creates a file store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, purchase.IOError("create files dir", err)
	}
	return &Store{root: dir, now: time.Now}, nil
}

// Root returns the directory holding all stored files.
func (s *Store) Root() string {
	return s.root
}

// Import copies src into the record's directory and returns the attachment
// describing it. Position is assigned later by the database.
func (s *Store) Import(recordID, src string) (purchase.Attachment, error) {
	f, err := os.Open(src)
	if errors.Is(err, fs.ErrNotExist) {
		return purchase.Attachment{}, &purchase.ValidationError{Field: "file", Reason: fmt.Sprintf("%s does not exist", src)}
	}
	if err != nil {
		return purchase.Attachment{}, purchase.IOError("open source file", err)
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return purchase.Attachment{}, purchase.IOError("read source file", err)
	}
	head = head[:n]

	mimeType := detectMIME(src, head)
	if !supported(mimeType) {
		return purchase.Attachment{}, &purchase.ValidationError{Field: "file", Reason: fmt.Sprintf("unsupported type %s (want an image or a PDF)", mimeType)}
	}

	dir := filepath.Join(s.root, recordID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return purchase.Attachment{}, purchase.IOError("create record dir", err)
	}

	tmp, err := os.CreateTemp(dir, ".import-*")
	if err != nil {
		return purchase.Attachment{}, purchase.IOError("create temp file", err)
	}
	defer os.Remove(tmp.Name())

	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, hash), io.MultiReader(bytes.NewReader(head), f))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return purchase.Attachment{}, purchase.IOError("copy attachment", err)
	}

	sum := hex.EncodeToString(hash.Sum(nil))
	dest := filepath.Join(dir, sum+strings.ToLower(filepath.Ext(src)))
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return purchase.Attachment{}, purchase.IOError("store attachment", err)
	}

	log.Debug().Str("record_id", recordID).Str("path", dest).Int64("size", size).Msg("attachment imported")

	return purchase.Attachment{
		ID:       uuid.NewString(),
		RecordID: recordID,
		Filename: filepath.Base(src),
		Kind:     purchase.AttachmentKindFor(mimeType),
		MIME:     mimeType,
		Path:     dest,
		Size:     size,
		Checksum: sum,
		AddedAt:  s.now().UTC(),
	}, nil
}

// Open returns the stored payload of a. A missing file is ErrNotFound.
func (s *Store) Open(a purchase.Attachment) (io.ReadCloser, error) {
	f, err := os.Open(a.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, purchase.NotFound("attachment file", a.Filename)
	}
	if err != nil {
		return nil, purchase.IOError("open attachment", err)
	}
	return f, nil
}

// Remove deletes the stored payload of a unless another attachment of the
// same record still points at it. Missing files are ignored.
func (s *Store) Remove(a purchase.Attachment, remaining []purchase.Attachment) error {
	for _, other := range remaining {
		if other.ID != a.ID && other.Path == a.Path {
			return nil
		}
	}
	if err := os.Remove(a.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return purchase.IOError("remove attachment", err)
	}
	return nil
}

// RemoveRecord deletes the directory holding every file of a record.
func (s *Store) RemoveRecord(recordID string) error {
	if recordID == "" || strings.ContainsAny(recordID, `/\`) {
		return &purchase.ValidationError{Field: "record_id", Reason: "must be a plain identifier"}
	}
	if err := os.RemoveAll(filepath.Join(s.root, recordID)); err != nil {
		return purchase.IOError("remove record files", err)
	}
	return nil
}

func detectMIME(name string, head []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		if base, _, err := mime.ParseMediaType(t); err == nil {
			return base
		}
	}
	t := http.DetectContentType(head)
	if base, _, err := mime.ParseMediaType(t); err == nil {
		return base
	}
	return t
}

func supported(mimeType string) bool {
	return mimeType == "application/pdf" || strings.HasPrefix(mimeType, "image/")
}
