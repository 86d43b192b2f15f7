package graph

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	apperrors "github.com/khaledhikmat/ai-agents/pkg/errors"
	"github.com/khaledhikmat/ai-agents/pkg/logger"
)

// ExtractionEngine is the surface the episodic backend needs from the
// model-driven extraction layer. internal/extraction provides the
// production implementation.
type ExtractionEngine interface {
	// Initialize builds indices and constraints. Must be idempotent.
	Initialize(ctx context.Context) error
	// ProcessEpisode stores the episode and extracts entities from it.
	ProcessEpisode(ctx context.Context, ep Episode, schema *EpisodeSchema) error
	// Search embeds the query and ranks stored facts by similarity.
	Search(ctx context.Context, query string, limit int) ([]Fact, error)
	// Statistics reports group-scoped episode/entity/fact counts.
	Statistics(ctx context.Context) (map[string]interface{}, error)
	// ClearData deletes the engine's subgraph.
	ClearData(ctx context.Context) error
}

// EpisodicService is the backend variant that ingests unstructured text
// episodes, runs model-driven entity extraction, and answers semantic
// search with temporal validity windows. Initialization is lazy: the
// engine's indices are built on first use, not at construction, so the
// service constructs even when the store is briefly unavailable.
type EpisodicService struct {
	driver neo4j.DriverWithContext
	engine ExtractionEngine
	logger *zap.Logger

	mu          sync.Mutex
	initialized bool

	closeOnce sync.Once
	closeErr  error
}

// NewEpisodicService wraps an established driver and an extraction engine.
func NewEpisodicService(driver neo4j.DriverWithContext, engine ExtractionEngine) *EpisodicService {
	return &EpisodicService{
		driver: driver,
		engine: engine,
		logger: logger.Get(),
	}
}

// Query is a documented no-op: the episodic backend has no direct query
// language surface. It always returns no rows.
func (s *EpisodicService) Query(ctx context.Context, statement string, params map[string]interface{}) ([]Row, error) {
	s.logger.Debug("Raw query ignored by episodic backend")
	return []Row{}, nil
}

// AddEpisode ingests one unit of text through the extraction engine.
// A zero timestamp defaults to the current time.
func (s *EpisodicService) AddEpisode(ctx context.Context, ep Episode) error {
	return s.AddEpisodeAux(ctx, ep, nil)
}

// AddEpisodeAux ingests text with an optional explicit type schema.
func (s *EpisodicService) AddEpisodeAux(ctx context.Context, ep Episode, schema *EpisodeSchema) error {
	if err := s.ensureInitialized(ctx); err != nil {
		return err
	}
	if ep.Timestamp.IsZero() {
		ep.Timestamp = time.Now().UTC()
	}
	if err := s.engine.ProcessEpisode(ctx, ep, schema); err != nil {
		s.logger.Error("Episode processing failed",
			zap.String("episode_id", ep.ID),
			zap.Error(err),
		)
		return err
	}
	s.logger.Info("Episode added", zap.String("episode_id", ep.ID))
	return nil
}

// Search returns facts ranked by semantic similarity.
func (s *EpisodicService) Search(ctx context.Context, query string, limit int) ([]Fact, error) {
	if err := s.ensureInitialized(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	return s.engine.Search(ctx, query, limit)
}

// SearchAux is Search with an explicit search type. Recipe selection is
// internal to the engine; the type and custom types are recorded for
// the operator.
func (s *EpisodicService) SearchAux(ctx context.Context, query, searchType string, customTypes []string) ([]Fact, error) {
	s.logger.Debug("Aux search",
		zap.String("search_type", searchType),
		zap.Strings("custom_types", customTypes),
	)
	return s.Search(ctx, query, 10)
}

// RelatedEntities derives the neighborhood of a named entity from
// search. The engine maintains MENTIONS edges only, so a relation-type
// filter that excludes MENTIONS yields an empty result.
func (s *EpisodicService) RelatedEntities(ctx context.Context, name string, relationTypes []string, depth int) ([]RelatedEntity, error) {
	if len(relationTypes) > 0 && !containsString(relationTypes, "MENTIONS") {
		return []RelatedEntity{}, nil
	}

	limit := depth * 25
	if limit <= 0 {
		limit = 25
	}
	if limit > 100 {
		limit = 100
	}

	facts, err := s.Search(ctx, name, limit)
	if err != nil {
		return nil, err
	}

	related := make([]RelatedEntity, 0, len(facts))
	for _, f := range facts {
		related = append(related, RelatedEntity{
			Name:     f.Name,
			Relation: "MENTIONS",
			Fact:     f.Fact,
			UUID:     f.UUID,
		})
	}
	return related, nil
}

// EntityTimeline returns facts about an entity ordered by validity
// start. Nil bounds leave that side of the window open.
func (s *EpisodicService) EntityTimeline(ctx context.Context, name string, start, end *time.Time) ([]Fact, error) {
	facts, err := s.Search(ctx, name, 100)
	if err != nil {
		return nil, err
	}

	filtered := make([]Fact, 0, len(facts))
	for _, f := range facts {
		validAt, err := time.Parse(time.RFC3339, f.ValidAt)
		if err != nil {
			continue
		}
		if start != nil && validAt.Before(*start) {
			continue
		}
		if end != nil && validAt.After(*end) {
			continue
		}
		filtered = append(filtered, f)
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].ValidAt < filtered[j].ValidAt
	})
	return filtered, nil
}

// Statistics reports the engine's group-scoped counts.
func (s *EpisodicService) Statistics(ctx context.Context) (map[string]interface{}, error) {
	if err := s.ensureInitialized(ctx); err != nil {
		return nil, err
	}
	return s.engine.Statistics(ctx)
}

// ClearGraph clears the engine's data and rebuilds the search indices.
// When the scoped clear fails it falls back to a full wipe through the
// driver, then reinitializes so the next episode lands on fresh indices.
func (s *EpisodicService) ClearGraph(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureInitializedLocked(ctx); err != nil {
		return err
	}

	if err := s.engine.ClearData(ctx); err != nil {
		s.logger.Warn("Scoped clear failed, falling back to full wipe", zap.Error(err))
		if _, execErr := Execute(ctx, s.driver, "MATCH (n) DETACH DELETE n", nil); execErr != nil {
			return apperrors.NewGraphClearFailed(execErr)
		}
		s.initialized = false
	}

	// Indices must exist again before the next episode lands
	if err := s.engine.Initialize(ctx); err != nil {
		return err
	}
	s.initialized = true

	s.logger.Info("Episodic graph cleared")
	return nil
}

// Close releases the driver. Calling it twice returns the first result.
func (s *EpisodicService) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.closeErr = s.driver.Close(ctx)
	})
	return s.closeErr
}

// Driver exposes the raw driver handle.
func (s *EpisodicService) Driver() neo4j.DriverWithContext {
	return s.driver
}

func (s *EpisodicService) ensureInitialized(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureInitializedLocked(ctx)
}

func (s *EpisodicService) ensureInitializedLocked(ctx context.Context) error {
	if s.initialized {
		return nil
	}
	if err := s.engine.Initialize(ctx); err != nil {
		return err
	}
	s.initialized = true
	s.logger.Info("Episodic graph service initialized")
	return nil
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
