package app

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notexe/proofpal/internal/config"
	"github.com/notexe/proofpal/internal/purchase"
	"github.com/notexe/proofpal/internal/tracker"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	dir := t.TempDir()
	cfg.Database = filepath.Join(dir, "data", "proofpal.db")
	cfg.FilesDir = filepath.Join(dir, "files")
	cfg.ExportDir = filepath.Join(dir, "exports")
	return cfg
}

func TestNew(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(cfg, io.Discard)
	require.NoError(t, err)
	defer a.Close()

	rec, err := a.Service.Add(context.Background(), tracker.Input{
		Label:        "Kettle",
		PurchaseDate: purchase.Date(2024, time.March, 3),
		ReturnDays:   cfg.Defaults.ReturnDays,
	})
	require.NoError(t, err)

	got, err := a.Service.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kettle", got.Label)
	assert.FileExists(t, cfg.Database)
	assert.DirExists(t, cfg.FilesDir)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Dossier.Workers = 0
	_, err := New(cfg, io.Discard)
	assert.Error(t, err)
}

func TestNotifiers(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(cfg, io.Discard)
	require.NoError(t, err)
	defer a.Close()

	var out bytes.Buffer
	names := func() []string {
		var ns []string
		for _, n := range a.Notifiers(&out) {
			ns = append(ns, n.Name())
		}
		return ns
	}

	assert.Equal(t, []string{"console"}, names())

	cfg.Scheduler.Telegram.BotToken = "token"
	cfg.Scheduler.Telegram.ChatID = "42"
	assert.Equal(t, []string{"console", "telegram"}, names())

	cfg.Scheduler.Console = false
	assert.Equal(t, []string{"telegram"}, names())
}
