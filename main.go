package main

import (
	"errors"
	"log"
	"net/http"
	"time"

	"arxiv-hand/config"
	"arxiv-hand/providers/arxiv"
	"arxiv-hand/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var papersIngestedCounter prometheus.Counter

func init() {
	papersIngestedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "papers_ingested_total",
			Help: "Total number of papers ingested into the database.",
		},
	)
	prometheus.MustRegister(papersIngestedCounter)
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to papers database.")

	store := services.NewStore(db, logging)
	if err := store.EnsureSchema(); err != nil {
		logging.Fatal("Schema migration failed", zap.Error(err))
	}
	if err := store.SeedCategories(); err != nil {
		logging.Warn("Failed to seed category descriptions", zap.Error(err))
	}

	// Setup Services
	provider := arxiv.NewFetcher(cfg, logging)
	fetchService := services.NewFetchService(cfg, store, provider, logging)
	embedder := services.NewEmbedder(cfg, logging)
	searchService := services.NewSearchService(db, embedder, logging)

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	setupSearchRoutes(router, searchService, logging)
	setupPaperRoutes(router, searchService, logging)
	setupIngestRoutes(router, fetchService)

	// Setup Cron
	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.CronSchedule, func() {
		logging.Info("Running scheduled fetch job...")
		count := fetchService.RunForDate(time.Now().UTC())
		logging.Info("Cron job completed", zap.Int("papers", count))
		papersIngestedCounter.Add(float64(count))
	})
	cronScheduler.Start()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

func setupSearchRoutes(router *gin.Engine, search *services.SearchService, log *zap.Logger) {
	rg := router.Group("/search")

	rg.POST("/keyword", func(c *gin.Context) {
		var req struct {
			Query string `json:"query" binding:"required"`
			Limit int    `json:"limit"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body. 'query' field is required."})
			return
		}
		results, err := search.Keyword(req.Query, req.Limit)
		if err != nil {
			log.Error("Keyword search failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
			return
		}
		c.JSON(http.StatusOK, results)
	})

	rg.POST("/semantic", func(c *gin.Context) {
		var req struct {
			Query string `json:"query" binding:"required"`
			TopK  int    `json:"top_k"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body. 'query' field is required."})
			return
		}
		results, err := search.Semantic(req.Query, req.TopK)
		if err != nil {
			log.Error("Semantic search failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
			return
		}
		c.JSON(http.StatusOK, results)
	})

	rg.GET("/suggest", func(c *gin.Context) {
		titles, err := search.Suggest(c.Query("term"))
		if err != nil {
			log.Error("Search suggestions failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"suggestions": titles})
	})
}

func setupPaperRoutes(router *gin.Engine, search *services.SearchService, log *zap.Logger) {
	rg := router.Group("/papers")

	rg.POST("/query", func(c *gin.Context) {
		var req services.PaperQuery
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		papers, err := search.Query(req)
		if err != nil {
			log.Error("Database query for papers failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, papers)
	})

	rg.GET("/:id", func(c *gin.Context) {
		paper, authors, categories, err := search.Get(c.Param("id"))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "paper not found"})
				return
			}
			log.Error("DB error fetching paper", zap.String("id", c.Param("id")), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"paper":      paper,
			"authors":    authors,
			"categories": categories,
		})
	})
}

func setupIngestRoutes(router *gin.Engine, fetchService *services.FetchService) {
	rg := router.Group("/ingest")

	rg.POST("/run", func(c *gin.Context) {
		day := time.Now().UTC()
		if d := c.Query("date"); d != "" {
			parsed, err := services.ParseYMD(d)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYYMMDD"})
				return
			}
			day = parsed
		}
		go func() {
			count := fetchService.RunForDate(day)
			papersIngestedCounter.Add(float64(count))
			fetchService.Logger.Info("Async fetch completed", zap.Int("papers", count))
		}()
		c.JSON(http.StatusAccepted, gin.H{"message": "Fetch run triggered.", "date": day.Format("2006-01-02")})
	})
}
