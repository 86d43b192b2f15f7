package graph

import (
	"context"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	apperrors "github.com/khaledhikmat/ai-agents/pkg/errors"
	"github.com/khaledhikmat/ai-agents/pkg/logger"
)

// Neo4jService is the deterministic backend: every write is an explicit
// upsert-by-natural-key statement and every read a literal traversal.
// No entity resolution, no schema inference; callers own the node and
// edge shape. This is the variant the ingestion pipeline and the
// traversal queries are written against.
type Neo4jService struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

// NewNeo4jService wraps an established driver connection. The driver is
// an explicit handle owned by the caller for the duration of one command
// invocation; Close releases it.
func NewNeo4jService(driver neo4j.DriverWithContext) *Neo4jService {
	return &Neo4jService{
		driver: driver,
		logger: logger.Get(),
	}
}

// Query runs the statement as-is. A store error is logged and propagated
// with an empty result so callers can decide to continue record-by-record.
func (s *Neo4jService) Query(ctx context.Context, statement string, params map[string]interface{}) ([]Row, error) {
	rows, err := Execute(ctx, s.driver, statement, params)
	if err != nil {
		s.logger.Error("Graph statement failed", zap.Error(err))
		return nil, err
	}
	return rows, nil
}

// AddEpisode is a documented no-op: the deterministic backend has no
// extraction surface.
func (s *Neo4jService) AddEpisode(ctx context.Context, ep Episode) error {
	s.logger.Debug("Episode ignored by deterministic backend", zap.String("episode_id", ep.ID))
	return nil
}

// AddEpisodeAux is a documented no-op, see AddEpisode.
func (s *Neo4jService) AddEpisodeAux(ctx context.Context, ep Episode, schema *EpisodeSchema) error {
	s.logger.Debug("Episode ignored by deterministic backend", zap.String("episode_id", ep.ID))
	return nil
}

// Search always returns no facts: there is no semantic index to search.
func (s *Neo4jService) Search(ctx context.Context, query string, limit int) ([]Fact, error) {
	return []Fact{}, nil
}

// SearchAux always returns no facts, see Search.
func (s *Neo4jService) SearchAux(ctx context.Context, query, searchType string, customTypes []string) ([]Fact, error) {
	return []Fact{}, nil
}

// RelatedEntities always returns an empty neighborhood.
func (s *Neo4jService) RelatedEntities(ctx context.Context, name string, relationTypes []string, depth int) ([]RelatedEntity, error) {
	return []RelatedEntity{}, nil
}

// EntityTimeline always returns no facts.
func (s *Neo4jService) EntityTimeline(ctx context.Context, name string, start, end *time.Time) ([]Fact, error) {
	return []Fact{}, nil
}

// Statistics returns an empty map; operators get real counts from the
// traversal layer's counts summary.
func (s *Neo4jService) Statistics(ctx context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{}, nil
}

// ClearGraph destroys every node and edge. Safe on an empty graph. The
// bulk delete is retried once on a fresh session before giving up, since
// a reconnect cannot make a persistent store any emptier.
func (s *Neo4jService) ClearGraph(ctx context.Context) error {
	const clearStatement = "MATCH (n) DETACH DELETE n"

	_, err := s.Query(ctx, clearStatement, nil)
	if err != nil && apperrors.IsRetryable(err) {
		s.logger.Warn("Bulk clear failed, retrying once", zap.Error(err))
		_, err = s.Query(ctx, clearStatement, nil)
	}
	if err != nil {
		return apperrors.NewGraphClearFailed(err)
	}

	s.logger.Info("Graph cleared")
	return nil
}

// Close releases the driver. Calling it twice returns the first result.
func (s *Neo4jService) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.closeErr = s.driver.Close(ctx)
	})
	return s.closeErr
}

// Driver exposes the raw driver handle for the visualization renderer.
func (s *Neo4jService) Driver() neo4j.DriverWithContext {
	return s.driver
}
