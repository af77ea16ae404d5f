package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nishithraj14/text-to-sql-generator/internal/api"
	"github.com/nishithraj14/text-to-sql-generator/internal/api/uistatic"
	"github.com/nishithraj14/text-to-sql-generator/internal/config"
	"github.com/nishithraj14/text-to-sql-generator/internal/database"
	"github.com/nishithraj14/text-to-sql-generator/internal/export"
	"github.com/nishithraj14/text-to-sql-generator/internal/nl2sql"
	"github.com/nishithraj14/text-to-sql-generator/internal/observability"
	"github.com/nishithraj14/text-to-sql-generator/internal/pipeline"
	"github.com/nishithraj14/text-to-sql-generator/internal/query/sqlengine"
	"github.com/nishithraj14/text-to-sql-generator/internal/schema"
	s3store "github.com/nishithraj14/text-to-sql-generator/internal/storage/s3"
)

const envExample = `Please create a .env file with:
TEXT2SQL_AI_API_KEY=your_groq_api_key_here
TEXT2SQL_DB_HOST=localhost
TEXT2SQL_DB_USER=root
TEXT2SQL_DB_PASSWORD=your_mysql_password_here`

func main() {
	cfg, err := config.LoadFromEnv("text2sql-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n\n%s\n", err, envExample)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	dialect, err := database.DialectFor(cfg.Database.Driver)
	if err != nil {
		logger.Error("invalid database driver", slog.Any("error", err))
		os.Exit(1)
	}
	completer, err := nl2sql.NewLangChainCompleter(nl2sql.OpenAIConfig{
		BaseURL: cfg.AI.BaseURL,
		APIKey:  cfg.AI.APIKey,
		Model:   cfg.AI.Model,
		Timeout: cfg.AI.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize language model", slog.Any("error", err))
		os.Exit(1)
	}
	translator, err := nl2sql.NewSynthesizer(completer, nl2sql.SynthesizerConfig{
		Dialect:     dialect.Name,
		Temperature: cfg.AI.Temperature,
		Timeout:     cfg.AI.Timeout,
	})
	if err != nil {
		logger.Error("failed to initialize query translator", slog.Any("error", err))
		os.Exit(1)
	}

	session, err := pipeline.NewSession(pipeline.SessionConfig{
		Schemas: cfg.Database.Schemas,
		Database: database.Config{
			Driver:          cfg.Database.Driver,
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			SSLMode:         cfg.Database.SSLMode,
			DataDir:         cfg.Database.DataDir,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		},
		Schema: schema.Options{
			SampleRows: cfg.Schema.SampleRows,
			CacheTTL:   cfg.Schema.CacheTTL,
		},
		Engine: sqlengine.Options{
			Timeout:     cfg.Query.Timeout,
			RowLimit:    cfg.Query.RowLimit,
			AllowWrites: cfg.Query.AllowWrites,
		},
	}, translator)
	if err != nil {
		logger.Error("failed to create session", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = session.Close() }()

	var exporter *export.Exporter
	if cfg.Export.Enabled {
		objectStore, err := s3store.New(context.Background(), s3store.Config{
			Endpoint:         cfg.Export.Endpoint,
			Region:           cfg.Export.Region,
			Bucket:           cfg.Export.Bucket,
			AccessKeyID:      cfg.Export.AccessKeyID,
			SecretAccessKey:  cfg.Export.SecretAccessKey,
			UseSSL:           cfg.Export.UseSSL,
			Prefix:           cfg.Export.Prefix,
			AutoCreateBucket: cfg.Export.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize export store", slog.Any("error", err))
			os.Exit(1)
		}
		exporter = export.NewExporter(objectStore, logger)
	}

	handler := api.NewHandler(cfg, api.Dependencies{
		Logger:   logger,
		Session:  session,
		Pipeline: pipeline.New(logger),
		Exporter: exporter,
		UI:       uistatic.Handler(),
		Readiness: api.CombineReadinessChecks(
			api.CheckAIConfig(cfg),
			api.CheckSession(session),
		),
		DependencyTimeout: 5 * time.Second,
	})
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("dialect", dialect.Name),
			slog.Any("schemas", cfg.Database.Schemas),
			slog.String("model", completer.Model()),
			slog.Bool("export_enabled", exporter != nil),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
