package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"cinelist/internal/config"
	"cinelist/internal/enrich"
	"cinelist/internal/scraper"
	"cinelist/internal/store"
	"cinelist/internal/usecase"
	"cinelist/internal/ws"
)

// Container owns every long-lived dependency, built once at startup and
// threaded into the handlers by constructor injection.
type Container struct {
	Config config.Config
	Logger *log.Logger

	Store   store.Store
	Session *scraper.Session
	Fetcher *scraper.Fetcher
	Parser  *scraper.Parser
	Engine  *enrich.Engine

	Lists   *usecase.ListUsecase
	Refresh *usecase.RefreshUsecase
	Marks   *usecase.MarksUsecase

	Hub *ws.Hub
}

func NewContainer(cfg config.Config, logger *log.Logger) (*Container, error) {
	if logger == nil {
		logger = log.Default()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	st, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: 20 * time.Second}
	session := scraper.NewSession(cfg.Source.BaseURL, httpClient, logger)
	fetcher := scraper.NewFetcher(session, httpClient)
	if cfg.Source.HeadlessFallback {
		fetcher.SetHeadlessFallback(scraper.NewHeadless())
		logger.Printf("headless challenge fallback enabled")
	}
	parser := scraper.NewParser(cfg.Source.BaseURL)

	var engine *enrich.Engine
	if cfg.Enrich.TMDBAPIKey != "" {
		engine = enrich.NewEngine(enrich.NewClient(cfg.Enrich.TMDBAPIKey), st, logger)
		logger.Printf("metadata enrichment enabled")
	} else {
		logger.Printf("TMDB_API_KEY not set, enrichment disabled")
	}

	lists := usecase.NewListUsecase(st, cfg.Source.BaseURL)
	var enricher usecase.Enricher
	if engine != nil {
		enricher = engine
	}
	refresh := usecase.NewRefreshUsecase(fetcher, parser, enricher, st, cfg.Source.MaxPages, logger)
	marks := usecase.NewMarksUsecase(st, lists)

	hub := ws.NewHub(logger)
	ws.SetDefaultHub(hub)
	go hub.Run()

	return &Container{
		Config:  cfg,
		Logger:  logger,
		Store:   st,
		Session: session,
		Fetcher: fetcher,
		Parser:  parser,
		Engine:  engine,
		Lists:   lists,
		Refresh: refresh,
		Marks:   marks,
		Hub:     hub,
	}, nil
}

func (c *Container) Close() error {
	if c == nil || c.Store == nil {
		return nil
	}
	return c.Store.Close()
}
