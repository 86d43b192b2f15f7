package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/khaledhikmat/ai-agents/internal/extraction"
	"github.com/khaledhikmat/ai-agents/internal/graph"
	"github.com/khaledhikmat/ai-agents/internal/inheritance"
	"github.com/khaledhikmat/ai-agents/pkg/config"
	apperrors "github.com/khaledhikmat/ai-agents/pkg/errors"
	"github.com/khaledhikmat/ai-agents/pkg/logger"
)

func main() {
	// Initialize logger
	if err := logger.Init(os.Getenv("ENV")); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting HTTP API server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Initialize Neo4j driver
	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		log.Fatal("Failed to create Neo4j driver", zap.Error(err))
	}
	defer driver.Close(context.Background())

	// Verify Neo4j connection
	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		log.Fatal("Failed to verify Neo4j connectivity", zap.Error(err))
	}

	// Initialize the configured service variant
	var svc graph.Service
	if cfg.GraphService == config.ServiceEpisodic {
		svc = graph.NewEpisodicService(driver, extraction.NewEngine(cfg, driver))
	} else {
		svc = graph.NewNeo4jService(driver)
	}
	queries := inheritance.NewQueries(svc)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	api := router.Group("/api")
	registerPersonRoutes(api, queries, log)
	registerPropertyRoutes(api, queries, log)
	registerLocationRoutes(api, queries, log)
	registerGraphRoutes(api, svc, queries, cfg, log)

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.String("port", cfg.Port))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := svc.Close(context.Background()); err != nil {
		log.Error("Failed to close graph service", zap.Error(err))
	}

	log.Info("Server exited")
}

func registerPersonRoutes(api *gin.RouterGroup, queries *inheritance.Queries, log *zap.Logger) {
	api.GET("/persons", func(c *gin.Context) {
		ctx := c.Request.Context()

		var rows []graph.Row
		var err error
		if attribute := c.Query("attribute"); attribute != "" {
			rows, err = queries.PersonsByAttribute(ctx, attribute, c.Query("value"))
		} else {
			rows, err = queries.Persons(ctx)
		}
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(rows), "persons": rowValues(rows)})
	})

	api.GET("/persons/:name", func(c *gin.Context) {
		details, err := queries.PersonDetails(c.Request.Context(), c.Param("name"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, details)
	})

	type nameListQuery func(context.Context, string) ([]string, error)
	nameList := func(key string, fn nameListQuery) gin.HandlerFunc {
		return func(c *gin.Context) {
			names, err := fn(c.Request.Context(), c.Param("name"))
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"count": len(names), key: names})
		}
	}
	api.GET("/persons/:name/children", nameList("children", queries.PersonChildren))
	api.GET("/persons/:name/grandchildren", nameList("grandchildren", queries.PersonGrandChildren))
	api.GET("/persons/:name/spouses", nameList("spouses", queries.PersonSpouses))
	api.GET("/persons/:name/inheritors", nameList("inheritors", queries.PersonInheritors))

	api.GET("/persons/:name/relationships", func(c *gin.Context) {
		rels, err := queries.PersonRelationships(c.Request.Context(), c.Param("name"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(rels), "relationships": rels})
	})
}

func registerPropertyRoutes(api *gin.RouterGroup, queries *inheritance.Queries, log *zap.Logger) {
	api.GET("/properties", func(c *gin.Context) {
		ctx := c.Request.Context()

		var rows []graph.Row
		var err error
		if attribute := c.Query("attribute"); attribute != "" {
			rows, err = queries.PropertiesByAttribute(ctx, attribute, c.Query("value"))
		} else {
			rows, err = queries.Properties(ctx)
		}
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(rows), "properties": rowValues(rows)})
	})

	api.GET("/properties/:name", func(c *gin.Context) {
		details, err := queries.PropertyDetails(c.Request.Context(), c.Param("name"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, details)
	})

	api.GET("/properties/:name/relationships", func(c *gin.Context) {
		ctx := c.Request.Context()
		name := c.Param("name")

		var rels []inheritance.Relationship
		var err error
		if country := c.Query("country"); country != "" {
			rels, err = queries.PropertyRelationshipsInCountry(ctx, name, country)
		} else {
			rels, err = queries.PropertyRelationships(ctx, name)
		}
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(rels), "relationships": rels})
	})
}

func registerLocationRoutes(api *gin.RouterGroup, queries *inheritance.Queries, log *zap.Logger) {
	api.GET("/countries", func(c *gin.Context) {
		rows, err := queries.Countries(c.Request.Context())
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(rows), "countries": rowValues(rows)})
	})

	api.GET("/countries/:name/relationships", func(c *gin.Context) {
		rels, err := queries.CountryRelationships(c.Request.Context(), c.Param("name"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(rels), "relationships": rels})
	})

	api.GET("/countries/:name/properties", func(c *gin.Context) {
		rows, err := queries.PropertiesInCountry(c.Request.Context(), c.Param("name"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(rows), "properties": rowValues(rows)})
	})

	api.GET("/cities", func(c *gin.Context) {
		rows, err := queries.Cities(c.Request.Context())
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(rows), "cities": rowValues(rows)})
	})

	api.GET("/cities/:name/relationships", func(c *gin.Context) {
		rels, err := queries.CityRelationships(c.Request.Context(), c.Param("name"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(rels), "relationships": rels})
	})

	api.GET("/cities/:name/properties", func(c *gin.Context) {
		rows, err := queries.PropertiesInCity(c.Request.Context(), c.Param("name"))
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(rows), "properties": rowValues(rows)})
	})
}

func registerGraphRoutes(api *gin.RouterGroup, svc graph.Service, queries *inheritance.Queries, cfg *config.Config, log *zap.Logger) {
	// One ingestion run at a time per connection.
	var ingestMu sync.Mutex

	api.GET("/stats", func(c *gin.Context) {
		ctx := c.Request.Context()

		if cfg.GraphService == config.ServiceEpisodic {
			stats, err := svc.Statistics(ctx)
			if err != nil {
				respondError(c, log, err)
				return
			}
			c.JSON(http.StatusOK, stats)
			return
		}

		counts, err := queries.Counts(ctx)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, counts)
	})

	api.POST("/ingest", func(c *gin.Context) {
		if cfg.GraphService != config.ServiceNeo4j {
			c.JSON(http.StatusConflict, gin.H{"error": "ingestion requires the deterministic graph service"})
			return
		}
		if !ingestMu.TryLock() {
			c.JSON(http.StatusConflict, gin.H{"error": "ingestion already running"})
			return
		}
		defer ingestMu.Unlock()

		// Body is optional; an empty one means the configured data dir
		var req struct {
			DataDir string `json:"data_dir"`
		}
		_ = c.ShouldBindJSON(&req)
		dir := req.DataDir
		if dir == "" {
			dir = cfg.DataDir
		}

		ctx := c.Request.Context()
		persons, properties, err := inheritance.LoadAll(ctx, dir)
		if err != nil {
			respondError(c, log, err)
			return
		}

		rep, err := inheritance.NewPipeline(svc).Run(ctx, persons, properties)
		if err != nil {
			respondError(c, log, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"persons":    rep.Persons,
			"countries":  rep.Countries,
			"cities":     rep.Cities,
			"properties": rep.Properties,
			"statements": rep.Statements,
			"failures":   rep.Failures,
			"skipped":    rep.Skipped,
		})
	})

	api.POST("/episodes", func(c *gin.Context) {
		var req struct {
			ID                string                 `json:"id"`
			Content           string                 `json:"content" binding:"required"`
			Source            string                 `json:"source"`
			SourceDescription string                 `json:"source_description"`
			Timestamp         string                 `json:"timestamp"`
			Metadata          map[string]interface{} `json:"metadata"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ep := graph.Episode{
			ID:                req.ID,
			Content:           req.Content,
			Source:            req.Source,
			SourceDescription: req.SourceDescription,
			Metadata:          req.Metadata,
		}
		if req.Timestamp != "" {
			ts, err := time.Parse(time.RFC3339, req.Timestamp)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "timestamp must be RFC 3339"})
				return
			}
			ep.Timestamp = ts
		}

		if err := svc.AddEpisode(c.Request.Context(), ep); err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"id": ep.ID, "status": "accepted"})
	})

	api.GET("/search", func(c *gin.Context) {
		query := c.Query("q")
		if query == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
			return
		}
		limit := 10
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = parsed
		}

		facts, err := svc.Search(c.Request.Context(), query, limit)
		if err != nil {
			respondError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": len(facts), "facts": facts})
	})
}

// respondError maps the error taxonomy onto HTTP statuses: validation
// errors are the caller's fault, a missing node is 404, everything else
// is logged and returned as a 500.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	if _, ok := err.(*apperrors.ErrGraphNodeNotFound); ok {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if apperrors.IsErrorType(err, apperrors.ErrorTypeValidation) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	log.Error("Request failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "request failed"})
}

func rowValues(rows []graph.Row) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Values)
	}
	return out
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
