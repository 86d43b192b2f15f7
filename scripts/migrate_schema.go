package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/khaledhikmat/ai-agents/pkg/config"
	"github.com/khaledhikmat/ai-agents/pkg/logger"
)

const migrationVersion = "inheritance_schema_v1"

func main() {
	force := flag.Bool("force", false, "Force migration even if already applied")
	flag.Parse()

	// Initialize logger
	if err := logger.Init("development"); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting Neo4j schema migration...")

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

	// Verify connection
	ctx := context.Background()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		log.Fatal("Failed to verify Neo4j connectivity", zap.Error(err))
	}

	// Check if migration already applied
	if !*force {
		applied, err := checkMigrationApplied(ctx, driver)
		if err != nil {
			log.Fatal("Failed to check migration status", zap.Error(err))
		}
		if applied {
			log.Info("Migration already applied. Use -force to reapply.")
			os.Exit(0)
		}
	}

	// Run migrations
	if err := runMigrations(ctx, driver, log); err != nil {
		log.Fatal("Migration failed", zap.Error(err))
	}

	// Mark migration as applied
	if err := markMigrationApplied(ctx, driver); err != nil {
		log.Warn("Failed to mark migration as applied", zap.Error(err))
	}

	log.Info("Migration completed successfully!")
}

func checkMigrationApplied(ctx context.Context, driver neo4j.DriverWithContext) (bool, error) {
	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (m:Migration {version: $version})
		RETURN m.applied_at as applied_at
	`

	result, err := session.Run(ctx, query, map[string]interface{}{"version": migrationVersion})
	if err != nil {
		return false, err
	}

	return result.Next(ctx), nil
}

func markMigrationApplied(ctx context.Context, driver neo4j.DriverWithContext) error {
	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := `
		MERGE (m:Migration {version: $version})
		SET m.applied_at = datetime(),
		    m.description = 'Name constraints, lookup indexes, and inverse edge backfill for the inheritance graph'
	`

	_, err := session.Run(ctx, query, map[string]interface{}{"version": migrationVersion})
	return err
}

func runMigrations(ctx context.Context, driver neo4j.DriverWithContext, log *zap.Logger) error {
	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	migrations := []struct {
		name        string
		description string
		query       string
	}{
		{
			name:        "Create Constraints",
			description: "Unique name constraints for every entity label",
			query: `
				CREATE CONSTRAINT person_name_unique IF NOT EXISTS FOR (p:Person) REQUIRE p.name IS UNIQUE;
				CREATE CONSTRAINT property_name_unique IF NOT EXISTS FOR (p:Property) REQUIRE p.name IS UNIQUE;
				CREATE CONSTRAINT country_name_unique IF NOT EXISTS FOR (c:Country) REQUIRE c.name IS UNIQUE;
				CREATE CONSTRAINT city_name_unique IF NOT EXISTS FOR (c:City) REQUIRE c.name IS UNIQUE;
			`,
		},
		{
			name:        "Create Indexes",
			description: "Indexes on the attributes the filtered lookups touch",
			query: `
				CREATE INDEX person_residence_country IF NOT EXISTS FOR (p:Person) ON (p.residence_country);
				CREATE INDEX person_residence_city IF NOT EXISTS FOR (p:Person) ON (p.residence_city);
				CREATE INDEX person_profession IF NOT EXISTS FOR (p:Person) ON (p.profession);
				CREATE INDEX property_country IF NOT EXISTS FOR (p:Property) ON (p.country);
				CREATE INDEX property_city IF NOT EXISTS FOR (p:Property) ON (p.city);
				CREATE INDEX property_owner IF NOT EXISTS FOR (p:Property) ON (p.owner);
			`,
		},
		{
			name:        "Create Full-Text Indexes",
			description: "Full-text search over entity names and descriptions",
			query: `
				CREATE FULLTEXT INDEX person_names IF NOT EXISTS FOR (p:Person) ON EACH [p.name];
				CREATE FULLTEXT INDEX property_text IF NOT EXISTS FOR (p:Property) ON EACH [p.name, p.description];
			`,
		},
		{
			name:        "Create Episodic Schema",
			description: "Constraints and indexes for the extraction-backed variant",
			query: `
				CREATE CONSTRAINT entity_uuid_unique IF NOT EXISTS FOR (e:Entity) REQUIRE e.uuid IS UNIQUE;
				CREATE CONSTRAINT episode_uuid_unique IF NOT EXISTS FOR (e:Episode) REQUIRE e.uuid IS UNIQUE;
				CREATE INDEX entity_group IF NOT EXISTS FOR (e:Entity) ON (e.group_id);
				CREATE INDEX entity_name IF NOT EXISTS FOR (e:Entity) ON (e.name);
				CREATE INDEX episode_group IF NOT EXISTS FOR (e:Episode) ON (e.group_id);
			`,
		},
		{
			name:        "Backfill Inverse Edges",
			description: "Restore the paired inverse of any one-sided ownership or location edge",
			query: `
				MATCH (p:Property)-[:OWNED_BY]->(o:Person)
				WHERE NOT (o)-[:OWNS]->(p)
				MERGE (o)-[:OWNS]->(p);

				MATCH (c:Country)-[:HAS_CITY]->(ci:City)
				WHERE NOT (ci)-[:HAS_COUNTRY]->(c)
				MERGE (ci)-[:HAS_COUNTRY]->(c);

				MATCH (p:Property)-[:LOCATED_IN]->(t)
				WHERE (t:City OR t:Country) AND NOT (t)-[:HAS_PROPERTY]->(p)
				MERGE (t)-[:HAS_PROPERTY]->(p);
			`,
		},
	}

	for i, migration := range migrations {
		log.Info("Running migration",
			zap.Int("step", i+1),
			zap.Int("total", len(migrations)),
			zap.String("name", migration.name),
			zap.String("description", migration.description),
		)

		// Split query by semicolons and execute each statement
		statements := splitStatements(migration.query)
		for j, stmt := range statements {
			if stmt == "" {
				continue
			}
			_, err := session.Run(ctx, stmt, nil)
			if err != nil {
				// Constraints and indexes that already exist land here
				log.Warn("Migration step had an error (may be expected)",
					zap.String("migration", migration.name),
					zap.Int("statement", j+1),
					zap.Error(err),
				)
			}
		}

		log.Info("Migration step completed", zap.String("name", migration.name))
	}

	return nil
}

// splitStatements splits a Cypher script into individual statements
// Simple approach: split by semicolon and trim whitespace
func splitStatements(script string) []string {
	// Remove single-line comments
	lines := strings.Split(script, "\n")
	var cleanedLines []string
	for _, line := range lines {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		cleanedLines = append(cleanedLines, line)
	}
	cleanedScript := strings.Join(cleanedLines, "\n")

	parts := strings.Split(cleanedScript, ";")
	var statements []string
	for _, part := range parts {
		stmt := strings.TrimSpace(part)
		if stmt != "" {
			statements = append(statements, stmt)
		}
	}

	return statements
}
