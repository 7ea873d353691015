// Package server exposes the supervisor over HTTP.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mosaicworks/querydesk/config"
	"github.com/mosaicworks/querydesk/internal/history"
	"github.com/mosaicworks/querydesk/internal/records"
	"github.com/mosaicworks/querydesk/internal/retrieval"
	"github.com/mosaicworks/querydesk/internal/supervisor"
	"github.com/mosaicworks/querydesk/internal/telemetry"
	"github.com/mosaicworks/querydesk/internal/worker"
	"github.com/mosaicworks/querydesk/mcp"
	"github.com/mosaicworks/querydesk/mcp/tools/bank"
	"github.com/mosaicworks/querydesk/mcp/tools/person"
	"github.com/mosaicworks/querydesk/provider"
	"github.com/mosaicworks/querydesk/tools/web_fetch"
	"github.com/mosaicworks/querydesk/tools/web_search/serper"
)

// Crew answers one query end to end. The supervisor controller
// satisfies this.
type Crew interface {
	Process(ctx context.Context, query string) (supervisor.FinalResult, error)
}

// Indexer rebuilds and sizes the document corpus. The retrieval
// pipeline satisfies this.
type Indexer interface {
	IndexDir(ctx context.Context) (*retrieval.IndexReport, error)
	Size() int
}

// Server holds the handler dependencies.
type Server struct {
	crew    Crew
	indexer Indexer
	archive *history.Archive
	metrics *telemetry.Metrics
	store   *records.Store
	logger  *log.Logger
}

// New wires a Server from already-built dependencies.
func New(crew Crew, indexer Indexer, archive *history.Archive, metrics *telemetry.Metrics, store *records.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	}
	return &Server{crew: crew, indexer: indexer, archive: archive, metrics: metrics, store: store, logger: logger}
}

// Echo builds the configured echo instance with all routes registered.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		s.logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]any{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	e.GET("/", s.handleRoot)
	e.GET("/health", s.handleHealth)
	e.POST("/query", s.handleQuery)
	e.POST("/index-pdfs", s.handleIndexPDFs)
	e.GET("/history", s.handleHistory)
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}
	return e
}

// Run assembles the full service from configuration and serves it.
func Run(cfg *config.Config) error {
	logger := log.New(log.Writer(), "[QUERYDESK] ", log.LstdFlags)

	store, err := records.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening records store: %w", err)
	}
	defer store.Close()

	llm, err := provider.NewProvider(cfg.LLM)
	if err != nil {
		return fmt.Errorf("building llm provider: %w", err)
	}

	personClient, bankClient, err := buildToolClients(cfg, store, logger)
	if err != nil {
		return err
	}
	defer personClient.Close()
	defer bankClient.Close()

	pipeline, err := retrieval.NewPipeline(cfg.Retrieval, llm, log.New(log.Writer(), "[RETRIEVAL] ", log.LstdFlags))
	if err != nil {
		return fmt.Errorf("building retrieval pipeline: %w", err)
	}
	ctx := context.Background()
	if report, err := pipeline.IndexDir(ctx); err != nil {
		logger.Printf("initial index failed: %v", err)
	} else {
		logger.Printf("initial index: %d chunks from %d files", report.Chunks, len(report.Files))
	}

	metrics := telemetry.New()

	recordsWorker := &worker.RecordsWorker{
		Clients:  []mcp.Client{personClient, bankClient},
		Provider: llm,
		Model:    cfg.LLM.Routing.Model("worker"),
		Logger:   log.New(log.Writer(), "[RECORDS] ", log.LstdFlags),
	}
	documentsWorker := &worker.DocumentsWorker{
		Pipeline: pipeline,
		Provider: llm,
		Model:    cfg.LLM.Routing.Model("worker"),
		Logger:   log.New(log.Writer(), "[DOCUMENTS] ", log.LstdFlags),
	}
	if cfg.Search.SerperAPIKey != "" {
		documentsWorker.Profiles = serper.Search{APIKey: cfg.Search.SerperAPIKey}
		if cfg.Search.FetchPages {
			documentsWorker.Fetcher = web_fetch.NewFetcher(30*time.Second, 12000, "querydesk/1.0")
		}
	}

	invokers := map[supervisor.Category]supervisor.Invoker{
		supervisor.CategoryRecords:   metrics.InstrumentInvoker(worker.WithTimeout(recordsWorker, cfg.Supervisor.WorkerTimeout)),
		supervisor.CategoryDocuments: metrics.InstrumentInvoker(worker.WithTimeout(documentsWorker, cfg.Supervisor.WorkerTimeout)),
	}

	router := &supervisor.LLMRouter{
		Provider: llm,
		Model:    cfg.LLM.Routing.Model("validation"),
		Fallback: supervisor.NewSchemaRouter(supervisor.DefaultFieldSchema()),
	}
	validator := &supervisor.LLMValidator{Provider: llm, Model: cfg.LLM.Routing.Model("validation")}
	synthesizer := &supervisor.LLMSynthesizer{Provider: llm, Model: cfg.LLM.Routing.Model("synthesis")}

	crew := supervisor.NewController(router, invokers, validator, synthesizer,
		cfg.Supervisor.MaxAttempts, log.New(log.Writer(), "[SUPERVISOR] ", log.LstdFlags))

	archive, err := history.NewArchive(cfg.History, log.New(log.Writer(), "[HISTORY] ", log.LstdFlags))
	if err != nil {
		return fmt.Errorf("connecting history archive: %w", err)
	}
	defer archive.Close()

	srv := New(crew, pipeline, archive, metrics, store, logger)

	if cfg.Retrieval.ReindexCron != "" {
		sched := &Scheduler{
			Cron:    cfg.Retrieval.ReindexCron,
			Indexer: pipeline,
			Logger:  log.New(log.Writer(), "[SCHED] ", log.LstdFlags),
			Stop:    make(chan struct{}),
		}
		sched.Start()
		defer sched.Shutdown()
	}

	e := srv.Echo()
	logger.Printf("listening on %s", cfg.Server.Address)
	return e.Start(cfg.Server.Address)
}

// buildToolClients connects the record workers to their tool servers.
// With no commands configured the servers run in-process; configured
// commands are spawned as stdio subprocesses.
func buildToolClients(cfg *config.Config, store *records.Store, logger *log.Logger) (mcp.Client, mcp.Client, error) {
	ctx := context.Background()
	personClient, err := toolClient(ctx, cfg.MCP.PersonCommand, func() *mcp.Server {
		return mcp.NewServer("person", time.Minute, logger, person.Tools(store)...)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("starting person tools: %w", err)
	}
	bankClient, err := toolClient(ctx, cfg.MCP.BankCommand, func() *mcp.Server {
		return mcp.NewServer("bank", time.Minute, logger, bank.Tools(store)...)
	})
	if err != nil {
		personClient.Close()
		return nil, nil, fmt.Errorf("starting bank tools: %w", err)
	}
	return personClient, bankClient, nil
}

func toolClient(ctx context.Context, command []string, local func() *mcp.Server) (mcp.Client, error) {
	if len(command) == 0 {
		return mcp.NewLocalClient(local()), nil
	}
	return mcp.StartStdioClient(ctx, command[0], command[1:]...)
}
