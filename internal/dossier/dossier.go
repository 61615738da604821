// Package dossier renders a purchase, its deadline statuses and its proof
// files into a single PDF suitable for a return or warranty claim.
package dossier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/notexe/proofpal/internal/deadline"
	"github.com/notexe/proofpal/internal/metrics"
	"github.com/notexe/proofpal/internal/purchase"
	"github.com/notexe/proofpal/internal/reminder"
)

const (
	DefaultWorkers            = 4
	DefaultTimeout            = 30 * time.Second
	DefaultMaxAttachmentBytes = 32 << 20
	DefaultMaxPixels          = 50_000_000
)

// Opener gives read access to stored attachment payloads.
type Opener interface {
	Open(a purchase.Attachment) (io.ReadCloser, error)
}

// Snapshot is everything a dossier shows. Building never changes it.
type Snapshot struct {
	Record    purchase.Record
	Statuses  deadline.Statuses
	Reminders []reminder.LedgerEntry
	History   []purchase.Activity
	// AsOf is the evaluation day and the document creation date.
	AsOf time.Time
}

// Placeholder names an attachment section that could not be rendered.
type Placeholder struct {
	AttachmentID string
	Filename     string
	Reason       string
}

// Result is a rendered dossier.
type Result struct {
	PDF          []byte
	Sections     int
	Placeholders []Placeholder
}

// Builder renders dossiers. It is safe for concurrent use.
type Builder struct {
	opener    Opener
	workers   int
	timeout   time.Duration
	compress  bool
	maxBytes  int64
	maxPixels int
}

// Option configures a Builder.
type Option func(*Builder)

// WithWorkers bounds how many attachments load at once.
func WithWorkers(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithTimeout limits a whole build. Zero disables the limit.
func WithTimeout(d time.Duration) Option {
	return func(b *Builder) { b.timeout = d }
}

// WithCompression toggles stream compression in the output.
func WithCompression(on bool) Option {
	return func(b *Builder) { b.compress = on }
}

// WithMaxAttachmentBytes rejects larger attachments with a placeholder.
func WithMaxAttachmentBytes(n int64) Option {
	return func(b *Builder) {
		if n > 0 {
			b.maxBytes = n
		}
	}
}

// WithMaxPixels rejects images whose header declares more pixels than n.
// Decoding allocates the full bitmap up front, so the check runs first.
func WithMaxPixels(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.maxPixels = n
		}
	}
}

// NewBuilder creates a builder reading attachments through opener.
func NewBuilder(opener Opener, opts ...Option) *Builder {
	b := &Builder{
		opener:    opener,
		workers:   DefaultWorkers,
		timeout:   DefaultTimeout,
		compress:  true,
		maxBytes:  DefaultMaxAttachmentBytes,
		maxPixels: DefaultMaxPixels,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// loaded is an attachment payload ready for rendering. err is set when the
// attachment has to be replaced by a placeholder.
type loaded struct {
	att  purchase.Attachment
	data []byte
	dims image.Config
	err  error
}

// Build renders snap. Attachments that are missing or unreadable become
// placeholder pages. Only a cancelled or timed out context and a failure
// to produce the document itself abort the build.
func (b *Builder) Build(ctx context.Context, snap Snapshot) (*Result, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("build dossier: %w", err)
	}

	sections, err := b.loadAll(ctx, snap.Record.Attachments)
	if err != nil {
		return nil, fmt.Errorf("build dossier: %w", err)
	}

	doc, err := render(snap, sections, b.compress)
	if err != nil {
		return nil, err
	}

	metrics.DossiersBuiltTotal.Inc()
	metrics.DossierPlaceholdersTotal.Add(float64(len(doc.Placeholders)))
	log.Ctx(ctx).Debug().
		Str("record_id", snap.Record.ID).
		Int("sections", doc.Sections).
		Int("placeholders", len(doc.Placeholders)).
		Int("bytes", len(doc.PDF)).
		Msg("dossier built")
	return doc, nil
}

func (b *Builder) loadAll(ctx context.Context, atts []purchase.Attachment) ([]loaded, error) {
	out := make([]loaded, len(atts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, a := range atts {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = b.load(gctx, a)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Builder) load(ctx context.Context, a purchase.Attachment) loaded {
	l := loaded{att: a}

	rc, err := b.opener.Open(a)
	if err != nil {
		l.err = err
		return l
	}
	defer rc.Close()

	data, err := readAll(ctx, rc, b.maxBytes)
	if err != nil {
		l.err = err
		return l
	}

	switch a.Kind {
	case purchase.KindPDF:
		if !bytes.HasPrefix(data, []byte("%PDF-")) {
			l.err = errors.New("not a PDF document")
			return l
		}
		l.data = data
	default:
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			l.err = fmt.Errorf("cannot decode image: %w", err)
			return l
		}
		if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > b.maxPixels/cfg.Height {
			l.err = fmt.Errorf("image of %dx%d pixels exceeds the limit of %d", cfg.Width, cfg.Height, b.maxPixels)
			return l
		}

		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			l.err = fmt.Errorf("cannot decode image: %w", err)
			return l
		}
		// 8-bit NRGBA re-encodes to a PNG layout the PDF writer accepts.
		bounds := img.Bounds()
		rgba := image.NewNRGBA(bounds)
		draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
		var buf bytes.Buffer
		if err := png.Encode(&buf, rgba); err != nil {
			l.err = fmt.Errorf("cannot encode preview: %w", err)
			return l
		}
		l.data = buf.Bytes()
		l.dims = image.Config{Width: bounds.Dx(), Height: bounds.Dy()}
	}
	return l
}

// readAll reads r to the end, checking ctx between chunks.
func readAll(ctx context.Context, r io.Reader, limit int64) ([]byte, error) {
	var buf bytes.Buffer
	chunk := make([]byte, 64<<10)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(chunk)
		buf.Write(chunk[:n])
		if int64(buf.Len()) > limit {
			return nil, fmt.Errorf("attachment larger than %d bytes", limit)
		}
		if errors.Is(err, io.EOF) {
			return buf.Bytes(), nil
		}
		if err != nil {
			return nil, purchase.IOError("read attachment", err)
		}
	}
}
