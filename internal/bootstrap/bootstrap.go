// Package bootstrap builds the collaborators shared by the API server and the
// CLI from the loaded configuration. Optional integrations stay nil when
// they are not configured.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/tax-tracker/internal/app"
	"github.com/dvloznov/tax-tracker/internal/assistant"
	"github.com/dvloznov/tax-tracker/internal/clock"
	"github.com/dvloznov/tax-tracker/internal/config"
	"github.com/dvloznov/tax-tracker/internal/extraction"
	"github.com/dvloznov/tax-tracker/internal/gcsuploader"
	infrabq "github.com/dvloznov/tax-tracker/internal/infra/bigquery"
	"github.com/dvloznov/tax-tracker/internal/notionsync"
	"github.com/dvloznov/tax-tracker/internal/store"
	"github.com/rs/zerolog"
)

// Services holds everything a binary needs. Extractor, Notion, Warehouse
// and Syncer are nil when their integration is disabled.
type Services struct {
	App       *app.App
	Store     store.Store
	Archive   gcsuploader.Archive
	Extractor extraction.Extractor
	Notion    *notionsync.NotionClient
	Warehouse *infrabq.BigQueryWarehouse
	Syncer    *infrabq.Syncer

	closers []func() error
}

// Open wires the services and loads the persisted state.
func Open(ctx context.Context, cfg config.Config, log zerolog.Logger) (*Services, error) {
	s := &Services{}
	if err := s.open(ctx, cfg, log); err != nil {
		s.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return s, nil
}

func (s *Services) open(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	clk := clock.RealClock{}

	if cfg.Store.Ephemeral {
		s.Store = store.NewMemoryStore()
		log.Warn().Msg("Using ephemeral in-memory state")
	} else {
		st, err := store.OpenSQLite(ctx, cfg.Store.Path, clk)
		if err != nil {
			return err
		}
		s.Store = st
		log.Info().Str("path", cfg.Store.Path).Msg("Opened state database")
	}
	s.closers = append(s.closers, s.Store.Close)

	if cfg.GCS.Bucket != "" {
		archive, err := gcsuploader.NewGCSArchive(ctx, cfg.GCS.Bucket, cfg.GCS.Prefix)
		if err != nil {
			return err
		}
		s.Archive = archive
		s.closers = append(s.closers, archive.Close)
		log.Info().Str("bucket", cfg.GCS.Bucket).Msg("Archiving uploads to GCS")
	} else {
		s.Archive = gcsuploader.NewMemoryArchive(clk)
		log.Warn().Msg("No GCS bucket configured - uploads are kept in memory")
	}

	var chat assistant.Assistant
	if cfg.GeminiEnabled() {
		client, err := extraction.NewGeminiClient(ctx, cfg.Gemini.APIKey)
		if err != nil {
			return err
		}
		s.Extractor = extraction.NewGeminiExtractor(client.Models, cfg.Gemini.Model, clk, log).
			WithTimeout(cfg.Gemini.Timeout.Duration)
		chat = assistant.NewGeminiAssistant(client.Models, cfg.Gemini.Model)
	} else {
		log.Warn().Msg("No Gemini API key configured - extraction and assistant are disabled")
	}

	if cfg.WarehouseEnabled() {
		wh, err := infrabq.NewBigQueryWarehouse(ctx, cfg.BigQuery.ProjectID, cfg.BigQuery.Dataset)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, wh.Close)
		if err := wh.EnsureSchema(ctx); err != nil {
			return err
		}
		s.Warehouse = wh
		s.Syncer = infrabq.NewSyncer(wh, clk)
	}

	if cfg.NotionEnabled() {
		s.Notion = notionsync.NewNotionClient(cfg.Notion.Token, cfg.Notion.DatabaseID)
	}

	s.App = app.New(app.Deps{
		Store:     s.Store,
		Extractor: s.Extractor,
		Assistant: chat,
		Clock:     clk,
		Logger:    log,
		HRALimit:  cfg.HRALimit(),
	})
	return s.App.Load(ctx)
}

// Close releases every opened client in reverse order.
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
