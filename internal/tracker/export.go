package tracker

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/notexe/proofpal/internal/deadline"
	"github.com/notexe/proofpal/internal/dossier"
	"github.com/notexe/proofpal/internal/purchase"
)

// Snapshot gathers everything a dossier of the record shows, as of today.
func (s *Service) Snapshot(ctx context.Context, id string) (dossier.Snapshot, error) {
	rec, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return dossier.Snapshot{}, err
	}
	reminders, err := s.store.LedgerEntriesFor(ctx, id)
	if err != nil {
		return dossier.Snapshot{}, err
	}
	history, err := s.store.RecordActivity(ctx, id)
	if err != nil {
		return dossier.Snapshot{}, err
	}

	today := s.Today()
	return dossier.Snapshot{
		Record:    rec,
		Statuses:  deadline.Evaluate(rec, today, s.Policy()),
		Reminders: reminders,
		History:   history,
		AsOf:      today,
	}, nil
}

// ExportDossier renders the dossier of a record to w.
func (s *Service) ExportDossier(ctx context.Context, id string, w io.Writer) (*dossier.Result, error) {
	snap, err := s.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}

	res, err := s.dossier.Build(ctx, snap)
	if err != nil {
		return nil, err
	}
	for _, p := range res.Placeholders {
		s.logger.Warn().Str("record_id", id).Str("file", p.Filename).Str("reason", p.Reason).Msg("Attachment replaced by placeholder")
	}

	if _, err := w.Write(res.PDF); err != nil {
		return nil, purchase.IOError("write dossier", err)
	}
	return res, nil
}

// ExportDossierFile writes the dossier of a record into the export
// directory and returns its path.
func (s *Service) ExportDossierFile(ctx context.Context, id string) (string, *dossier.Result, error) {
	rec, err := s.store.GetRecord(ctx, id)
	if err != nil {
		return "", nil, err
	}
	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return "", nil, purchase.IOError("create export dir", err)
	}

	tmp, err := os.CreateTemp(s.exportDir, ".dossier-*.pdf")
	if err != nil {
		return "", nil, purchase.IOError("create export file", err)
	}
	defer os.Remove(tmp.Name())

	res, err := s.ExportDossier(ctx, id, tmp)
	if cerr := tmp.Close(); err == nil && cerr != nil {
		err = purchase.IOError("close export file", cerr)
	}
	if err != nil {
		return "", nil, err
	}

	path := filepath.Join(s.exportDir, DossierFilename(rec))
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", nil, purchase.IOError("save export file", err)
	}

	s.logger.Info().Str("record_id", id).Str("path", path).Int("placeholders", len(res.Placeholders)).Msg("Dossier exported")
	s.activity(ctx, id, purchase.ActionDossierExported, filepath.Base(path))
	return path, res, nil
}

// DossierFilename is the export file name of a record:
// "<label slug>-<first eight id characters>.pdf".
func DossierFilename(rec purchase.Record) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(rec.Label) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		slug = "purchase"
	}
	return fmt.Sprintf("%s-%s.pdf", slug, rec.ShortID())
}
