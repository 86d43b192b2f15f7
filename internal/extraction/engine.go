package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/khaledhikmat/ai-agents/internal/graph"
	"github.com/khaledhikmat/ai-agents/pkg/config"
	apperrors "github.com/khaledhikmat/ai-agents/pkg/errors"
	"github.com/khaledhikmat/ai-agents/pkg/logger"
)

const maxAttempts = 3

// llmClient is the slice of the OpenAI client the engine uses. Tests
// substitute it.
type llmClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

type execFunc func(ctx context.Context, statement string, params map[string]interface{}) ([]graph.Row, error)

const stmtSaveEpisode = `
	MERGE (e:Episode {uuid: $uuid})
	SET e.name = $name,
		e.group_id = $group_id,
		e.content = $content,
		e.source = $source,
		e.source_description = $source_description,
		e.created_at = $created_at,
		e.valid_at = $valid_at
`

const stmtSaveEntity = `
	MERGE (n:Entity {name: $name, group_id: $group_id})
	ON CREATE SET n.uuid = $uuid, n.created_at = $created_at
	SET n.name_embedding = $embedding
`

const stmtSaveMention = `
	MATCH (e:Episode {uuid: $episode}), (n:Entity {name: $name, group_id: $group_id})
	MERGE (e)-[r:MENTIONS]->(n)
	ON CREATE SET r.uuid = $uuid, r.created_at = $created_at
	SET r.fact = $fact, r.valid_at = $valid_at
`

const stmtSearchCandidates = `
	MATCH (e:Episode)-[r:MENTIONS]->(n:Entity {group_id: $group_id})
	RETURN n.uuid AS uuid,
		n.name AS name,
		r.fact AS fact,
		r.valid_at AS valid_at,
		e.uuid AS source,
		n.name_embedding AS embedding
`

const stmtSearchByName = `
	MATCH (e:Episode)-[r:MENTIONS]->(n:Entity {group_id: $group_id})
	WHERE toLower(n.name) CONTAINS toLower($query)
	RETURN n.uuid AS uuid,
		n.name AS name,
		r.fact AS fact,
		r.valid_at AS valid_at,
		e.uuid AS source
	LIMIT $limit
`

const stmtClearGroup = `
	MATCH (n {group_id: $group_id})
	DETACH DELETE n
`

const stmtCountEntities = `MATCH (n:Entity {group_id: $group_id}) RETURN count(n) AS count`
const stmtCountEpisodes = `MATCH (e:Episode {group_id: $group_id}) RETURN count(e) AS count`
const stmtCountMentions = `MATCH (:Episode {group_id: $group_id})-[r:MENTIONS]->() RETURN count(r) AS count`

var indexStatements = []string{
	`CREATE CONSTRAINT episode_uuid IF NOT EXISTS FOR (e:Episode) REQUIRE e.uuid IS UNIQUE`,
	`CREATE CONSTRAINT entity_uuid IF NOT EXISTS FOR (n:Entity) REQUIRE n.uuid IS UNIQUE`,
	`CREATE INDEX episode_group IF NOT EXISTS FOR (e:Episode) ON (e.group_id)`,
	`CREATE INDEX entity_group IF NOT EXISTS FOR (n:Entity) ON (n.group_id)`,
	`CREATE INDEX entity_name IF NOT EXISTS FOR (n:Entity) ON (n.name)`,
}

// Engine turns free-text episodes into Episode and Entity nodes joined by
// MENTIONS edges, all scoped to one group id. Entity names come from a
// chat model, name embeddings are stored as JSON text on the node, and
// search ranks stored facts by cosine similarity against the embedded
// query phrase.
type Engine struct {
	driver neo4j.DriverWithContext
	client llmClient
	exec   execFunc
	logger *zap.Logger

	groupID     string
	model       string
	embedModel  string
	maxEntities int
	temperature float64
}

var _ graph.ExtractionEngine = (*Engine)(nil)

// NewEngine builds the production engine over a shared driver handle.
func NewEngine(cfg *config.Config, driver neo4j.DriverWithContext) *Engine {
	clientCfg := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		clientCfg.BaseURL = cfg.OpenAIBaseURL
	}

	e := &Engine{
		driver:      driver,
		client:      openai.NewClientWithConfig(clientCfg),
		logger:      logger.Get(),
		groupID:     cfg.ExtractionGroupID,
		model:       cfg.ExtractionModel,
		embedModel:  cfg.EmbeddingModel,
		maxEntities: cfg.ExtractionMaxEntities,
		temperature: cfg.ExtractionTemperature,
	}
	e.exec = func(ctx context.Context, statement string, params map[string]interface{}) ([]graph.Row, error) {
		return graph.Execute(ctx, driver, statement, params)
	}
	return e
}

// Initialize creates the constraints and indices search depends on.
// Idempotent; called again after every clear.
func (e *Engine) Initialize(ctx context.Context) error {
	for _, stmt := range indexStatements {
		if _, err := e.exec(ctx, stmt, nil); err != nil {
			return err
		}
	}
	return nil
}

// ProcessEpisode stores the episode node, extracts entity names from its
// content, and merges one Entity node plus one MENTIONS edge per name. A
// failed entity is logged and skipped; the episode itself must land.
func (e *Engine) ProcessEpisode(ctx context.Context, ep graph.Episode, schema *graph.EpisodeSchema) error {
	if ep.ID == "" {
		ep.ID = uuid.New().String()
	}
	if ep.Timestamp.IsZero() {
		ep.Timestamp = time.Now().UTC()
	}
	validAt := ep.Timestamp.UTC().Format(time.RFC3339)
	createdAt := time.Now().UTC().Format(time.RFC3339)

	if _, err := e.exec(ctx, stmtSaveEpisode, map[string]interface{}{
		"uuid":               ep.ID,
		"name":               ep.ID,
		"group_id":           e.groupID,
		"content":            ep.Content,
		"source":             ep.Source,
		"source_description": ep.SourceDescription,
		"created_at":         createdAt,
		"valid_at":           validAt,
	}); err != nil {
		return err
	}

	names, err := e.extractEntities(ctx, ep.Content, schema)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		e.logger.Debug("No entities extracted", zap.String("episode", ep.ID))
		return nil
	}

	source := ep.SourceDescription
	if source == "" {
		source = "episode " + ep.ID
	}

	for _, name := range names {
		if _, err := e.exec(ctx, stmtSaveEntity, map[string]interface{}{
			"name":       name,
			"group_id":   e.groupID,
			"uuid":       uuid.New().String(),
			"created_at": createdAt,
			"embedding":  e.embeddingParam(ctx, name),
		}); err != nil {
			e.logger.Warn("Entity upsert failed", zap.String("entity", name), zap.Error(err))
			continue
		}

		if _, err := e.exec(ctx, stmtSaveMention, map[string]interface{}{
			"episode":    ep.ID,
			"name":       name,
			"group_id":   e.groupID,
			"uuid":       uuid.New().String(),
			"created_at": createdAt,
			"fact":       fmt.Sprintf("%s mentioned in %s", name, source),
			"valid_at":   validAt,
		}); err != nil {
			e.logger.Warn("Mention edge failed", zap.String("entity", name), zap.Error(err))
		}
	}

	e.logger.Info("Episode processed",
		zap.String("episode", ep.ID),
		zap.Int("entities", len(names)),
	)
	return nil
}

// Search embeds the query and ranks every stored mention by cosine
// similarity of the entity name embedding. When the embedding request
// fails, it degrades to a case-insensitive name match.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]graph.Fact, error) {
	if limit <= 0 {
		limit = 10
	}

	queryVec, err := e.embed(ctx, query)
	if err != nil {
		e.logger.Warn("Falling back to name search", zap.Error(err))
		return e.searchByName(ctx, query, limit)
	}

	rows, err := e.exec(ctx, stmtSearchCandidates, map[string]interface{}{"group_id": e.groupID})
	if err != nil {
		return nil, err
	}

	facts := make([]graph.Fact, 0, len(rows))
	for _, row := range rows {
		raw := row.String("embedding")
		if raw == "" {
			continue
		}
		var vec []float32
		if err := json.Unmarshal([]byte(raw), &vec); err != nil {
			continue
		}
		fact := factFromRow(row)
		fact.Score = float64(cosineSimilarity(queryVec, vec))
		facts = append(facts, fact)
	}

	sort.SliceStable(facts, func(i, j int) bool { return facts[i].Score > facts[j].Score })
	if len(facts) > limit {
		facts = facts[:limit]
	}
	return facts, nil
}

// Statistics reports group-scoped counts.
func (e *Engine) Statistics(ctx context.Context) (map[string]interface{}, error) {
	stats := map[string]interface{}{"group_id": e.groupID}
	for key, stmt := range map[string]string{
		"entities": stmtCountEntities,
		"episodes": stmtCountEpisodes,
		"mentions": stmtCountMentions,
	} {
		rows, err := e.exec(ctx, stmt, map[string]interface{}{"group_id": e.groupID})
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			stats[key] = rows[0].Int("count")
		}
	}
	return stats, nil
}

// ClearData deletes the engine's subgraph, nothing outside its group.
func (e *Engine) ClearData(ctx context.Context) error {
	_, err := e.exec(ctx, stmtClearGroup, map[string]interface{}{"group_id": e.groupID})
	return err
}

func (e *Engine) searchByName(ctx context.Context, query string, limit int) ([]graph.Fact, error) {
	rows, err := e.exec(ctx, stmtSearchByName, map[string]interface{}{
		"group_id": e.groupID,
		"query":    query,
		"limit":    limit,
	})
	if err != nil {
		return nil, err
	}
	facts := make([]graph.Fact, 0, len(rows))
	for _, row := range rows {
		facts = append(facts, factFromRow(row))
	}
	return facts, nil
}

func (e *Engine) extractEntities(ctx context.Context, content string, schema *graph.EpisodeSchema) ([]string, error) {
	prompt := fmt.Sprintf(
		"Extract up to %d key entities (people, places, properties) from the text as a JSON array of strings. Respond with the array only.",
		e.maxEntities,
	)
	if schema != nil && len(schema.EntityTypes) > 0 {
		prompt += " Only extract entities of these types: " + strings.Join(schema.EntityTypes, ", ") + "."
	}

	req := openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
			{Role: openai.ChatMessageRoleUser, Content: content},
		},
		Temperature: float32(e.temperature),
	}

	var resp openai.ChatCompletionResponse
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			e.logger.Warn("Retrying extraction request",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, apperrors.NewContextCancelled("entity extraction", ctx.Err())
			}
		}

		resp, err = e.client.CreateChatCompletion(ctx, req)
		if err == nil {
			break
		}
		e.logger.Error("Extraction request failed",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.String("model", e.model),
		)
	}
	if err != nil {
		return nil, apperrors.NewExtractionLLMFailed(e.model, maxAttempts, true, err)
	}
	if len(resp.Choices) == 0 {
		return nil, apperrors.ErrExtractionNoResponse
	}

	names := parseEntityList(resp.Choices[0].Message.Content)
	if len(names) > e.maxEntities {
		names = names[:e.maxEntities]
	}
	return names, nil
}

func (e *Engine) embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.embedModel),
	})
	if err != nil {
		return nil, apperrors.NewExtractionEmbeddingFailed(e.embedModel, err)
	}
	if len(resp.Data) == 0 {
		return nil, apperrors.NewExtractionEmbeddingFailed(e.embedModel, fmt.Errorf("empty embedding response"))
	}
	return resp.Data[0].Embedding, nil
}

// embeddingParam returns the embedding as JSON text for storage, or nil
// when the request fails. A nil embedding only costs that entity its
// semantic ranking.
func (e *Engine) embeddingParam(ctx context.Context, text string) interface{} {
	vec, err := e.embed(ctx, text)
	if err != nil {
		e.logger.Warn("Embedding skipped", zap.String("text", text), zap.Error(err))
		return nil
	}
	data, err := json.Marshal(vec)
	if err != nil {
		return nil
	}
	return string(data)
}

// parseEntityList pulls the first JSON array out of a model response that
// may wrap it in prose or code fencing.
func parseEntityList(response string) []string {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start == -1 || end <= start {
		return nil
	}
	var names []string
	if err := json.Unmarshal([]byte(response[start:end+1]), &names); err != nil {
		return nil
	}

	seen := make(map[string]bool, len(names))
	var out []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if name == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	return out
}

func factFromRow(row graph.Row) graph.Fact {
	return graph.Fact{
		UUID:           row.String("uuid"),
		Name:           row.String("name"),
		Fact:           row.String("fact"),
		ValidAt:        row.String("valid_at"),
		SourceNodeUUID: row.String("source"),
	}
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0.0
	}

	var dotProduct, normA, normB float32
	for i := 0; i < len(a); i++ {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0.0 || normB == 0.0 {
		return 0.0
	}

	return dotProduct / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
