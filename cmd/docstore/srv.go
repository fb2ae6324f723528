package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"docstore/internal/auth"
	"docstore/internal/blobstore"
	"docstore/internal/config"
	"docstore/internal/content"
	"docstore/internal/converter"
	"docstore/internal/formats"
	"docstore/internal/rendition"
	"docstore/internal/server"
	"docstore/internal/store"
)

func newSrvCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "srv",
		Short: "Run the docstore API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg, slog.Default().With("component", "server"))
		},
	}
}

// runServer wires both stores, the format registry, the converter and the
// rendition engine behind the HTTP server, and serves until ctx ends.
func runServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg == nil {
		return fmt.Errorf("config not initialized")
	}
	if cfg.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if cfg.BlobRoot == "" {
		return fmt.Errorf("blob root is required")
	}

	addr, err := server.ListenAddr(cfg.APIURL)
	if err != nil {
		return err
	}
	verifier, err := auth.NewVerifier(cfg.APIToken, cfg.APITokenHash)
	if err != nil {
		return err
	}

	logger.Info("opening database", "path", cfg.DBPath)
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	logger.Info("opening blob store", "root", cfg.BlobRoot)
	blobs, err := blobstore.NewLocalStore(cfg.BlobRoot)
	if err != nil {
		return err
	}

	if cfg.FormatsFile != "" {
		list, err := formats.LoadSeedFile(cfg.FormatsFile)
		if err != nil {
			return err
		}
		if err := formats.Seed(ctx, st, list); err != nil {
			return err
		}
		logger.Info("seeded formats", "file", cfg.FormatsFile, "count", len(list))
	}
	reg, err := formats.Load(ctx, st)
	if err != nil {
		return err
	}

	contentSvc := content.NewService(st, blobs, reg, logger.With("component", "content"))
	conv := converter.NewSOffice(converter.SOfficeOptions{
		Binary:       cfg.Converter.Binary,
		Timeout:      cfg.Converter.Timeout.Duration,
		MaxProcesses: cfg.Converter.MaxProcesses,
		Logger:       logger.With("component", "converter"),
	})
	if !conv.Available() {
		logger.Warn("converter binary not found; renditions will fail", "binary", cfg.Converter.Binary)
	}

	engine, err := rendition.New(rendition.Deps{
		Store:     st,
		Blobs:     blobs,
		Formats:   reg,
		Content:   contentSvc,
		Converter: conv,
		Logger:    logger.With("component", "rendition"),
	}, rendition.Options{
		Workers:      cfg.Rendition.Workers,
		QueueSize:    cfg.Rendition.QueueSize,
		JobRetention: cfg.Rendition.JobRetention,
	})
	if err != nil {
		return err
	}
	engine.Start()
	defer engine.Close()

	srv := server.New(addr, st, contentSvc, engine, server.Options{
		DBPath:             cfg.DBPath,
		BlobRoot:           cfg.BlobRoot,
		Auth:               verifier,
		WaitTimeout:        cfg.Rendition.WaitTimeout.Duration,
		MaxUploadBytes:     cfg.Uploads.MaxUploadBytes,
		MultipartMaxMemory: cfg.Uploads.MultipartMaxMemory,
		AllowedExtensions:  cfg.Uploads.AllowedExtensions,
		Converter:          conv,
		ConverterName:      cfg.Converter.Binary,
	}, logger)
	return srv.ListenAndServe(ctx)
}
