package graph

import (
	"context"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	apperrors "github.com/khaledhikmat/ai-agents/pkg/errors"
)

// The integration tests require a running Neo4j instance at
// bolt://localhost:7687 with the default test credentials. ClearGraph
// wipes the whole database, so point them at a disposable instance.

func TestNeo4jService_NoOpSurface(t *testing.T) {
	svc := NewNeo4jService(nil)
	ctx := context.Background()

	if err := svc.AddEpisode(ctx, Episode{ID: "ep", Content: "text"}); err != nil {
		t.Errorf("AddEpisode = %v, want nil", err)
	}
	if err := svc.AddEpisodeAux(ctx, Episode{}, &EpisodeSchema{}); err != nil {
		t.Errorf("AddEpisodeAux = %v, want nil", err)
	}

	facts, err := svc.Search(ctx, "anything", 10)
	if err != nil || facts == nil || len(facts) != 0 {
		t.Errorf("Search = %v, %v, want empty and nil", facts, err)
	}
	facts, err = svc.SearchAux(ctx, "anything", "hybrid", nil)
	if err != nil || facts == nil || len(facts) != 0 {
		t.Errorf("SearchAux = %v, %v, want empty and nil", facts, err)
	}

	related, err := svc.RelatedEntities(ctx, "name", nil, 1)
	if err != nil || related == nil || len(related) != 0 {
		t.Errorf("RelatedEntities = %v, %v, want empty and nil", related, err)
	}
	timeline, err := svc.EntityTimeline(ctx, "name", nil, nil)
	if err != nil || timeline == nil || len(timeline) != 0 {
		t.Errorf("EntityTimeline = %v, %v, want empty and nil", timeline, err)
	}

	stats, err := svc.Statistics(ctx)
	if err != nil || stats == nil || len(stats) != 0 {
		t.Errorf("Statistics = %v, %v, want empty and nil", stats, err)
	}
}

func TestNeo4jService_QueryRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	driver, err := createTestDriver()
	if err != nil {
		t.Fatalf("Failed to create driver: %v", err)
	}

	svc := NewNeo4jService(driver)
	defer svc.Close(ctx)

	name := "test-person-" + time.Now().Format("20060102150405")

	// Clean up
	defer func() {
		session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
		defer session.Close(ctx)
		_, _ = session.Run(ctx, "MATCH (p:Person {name: $name}) DETACH DELETE p", map[string]interface{}{"name": name})
	}()

	_, err = svc.Query(ctx, `
		MERGE (p:Person {name: $name})
		SET p.profession = $profession, p.birth_year = $birth_year
	`, map[string]interface{}{
		"name":       name,
		"profession": "farmer",
		"birth_year": "1921",
	})
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	rows, err := svc.Query(ctx, `
		MATCH (p:Person {name: $name})
		RETURN p.name AS name, p.profession AS profession, properties(p) AS attrs
	`, map[string]interface{}{"name": name})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}

	row := rows[0]
	if row.String("name") != name {
		t.Errorf("name = %q, want %q", row.String("name"), name)
	}
	if row.String("profession") != "farmer" {
		t.Errorf("profession = %q", row.String("profession"))
	}
	if StringFromMap(row.Map("attrs"), "birth_year", "") != "1921" {
		t.Errorf("attrs = %v", row.Map("attrs"))
	}
}

func TestNeo4jService_QueryBadStatement(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	driver, err := createTestDriver()
	if err != nil {
		t.Fatalf("Failed to create driver: %v", err)
	}

	svc := NewNeo4jService(driver)
	defer svc.Close(ctx)

	_, err = svc.Query(ctx, "THIS IS NOT CYPHER", nil)
	if err == nil {
		t.Fatal("expected error for invalid statement")
	}
	if !apperrors.IsErrorType(err, apperrors.ErrorTypeGraph) {
		t.Errorf("expected a graph error, got %T", err)
	}
}

func TestNeo4jService_ClearGraph(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	driver, err := createTestDriver()
	if err != nil {
		t.Fatalf("Failed to create driver: %v", err)
	}

	svc := NewNeo4jService(driver)
	defer svc.Close(ctx)

	_, err = svc.Query(ctx, "MERGE (:Person {name: 'test-clear-person'})", nil)
	if err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	if err := svc.ClearGraph(ctx); err != nil {
		t.Fatalf("ClearGraph failed: %v", err)
	}

	rows, err := svc.Query(ctx, "MATCH (n) RETURN count(n) AS count", nil)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if rows[0].Int64("count") != 0 {
		t.Errorf("graph not empty after clear: %d nodes", rows[0].Int64("count"))
	}

	// Clearing an empty graph succeeds
	if err := svc.ClearGraph(ctx); err != nil {
		t.Errorf("ClearGraph on empty graph = %v", err)
	}
}

func TestExecute_CancelledContext(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	driver, err := createTestDriver()
	if err != nil {
		t.Fatalf("Failed to create driver: %v", err)
	}
	defer driver.Close(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = Execute(ctx, driver, "MATCH (n) RETURN count(n) AS count", nil)
	if err == nil {
		t.Fatal("expected error with cancelled context")
	}
}

func createTestDriver() (neo4j.DriverWithContext, error) {
	uri := "bolt://localhost:7687"
	user := "neo4j"
	password := "password"

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, err
	}

	// Verify connection
	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, err
	}

	return driver, nil
}
