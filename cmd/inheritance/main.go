package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/khaledhikmat/ai-agents/internal/extraction"
	"github.com/khaledhikmat/ai-agents/internal/graph"
	"github.com/khaledhikmat/ai-agents/internal/inheritance"
	"github.com/khaledhikmat/ai-agents/internal/viz"
	"github.com/khaledhikmat/ai-agents/pkg/config"
	apperrors "github.com/khaledhikmat/ai-agents/pkg/errors"
	"github.com/khaledhikmat/ai-agents/pkg/logger"
)

var (
	dataDir    string
	paramsName string
	stylesName string
	outPath    string
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "inheritance",
	Short: "Build and inspect the inheritance property graph",
	Long: `inheritance maintains a Neo4j property graph of persons, properties,
and the countries and cities derived from them.

ingest clears the graph and rebuilds it from the JSON record files;
visualize renders a stored traversal query as an interactive HTML page;
stats prints graph counts.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Init(os.Getenv("ENV")); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Clear the graph and rebuild it from the record files",
	RunE:  runIngest,
}

var visualizeCmd = &cobra.Command{
	Use:   "visualize [query]",
	Short: "Render a stored query as an interactive HTML graph view",
	Long: `Runs the named statement from the queries directory with the parameter
map of the same name and renders the resulting nodes and relationships.
Node styling comes from the styles directory, falling back to default.json.`,
	Args: cobra.ExactArgs(1),
	RunE: runVisualize,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print graph counts",
	RunE:  runStats,
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")

	ingestCmd.Flags().StringVar(&dataDir, "data-dir", "", "Record directory (default: DATA_DIR or ./data)")

	visualizeCmd.Flags().StringVar(&paramsName, "params", "", "Stored parameter file name (default: the query name)")
	visualizeCmd.Flags().StringVar(&stylesName, "styles", "", "Stored style name (default: the query name)")
	visualizeCmd.Flags().StringVar(&outPath, "out", "network.html", "Output HTML file")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(visualizeCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	log := logger.Get()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	dir := dataDir
	if dir == "" {
		dir = cfg.DataDir
	}

	persons, properties, err := inheritance.LoadAll(ctx, dir)
	if err != nil {
		return err
	}
	log.Info("Records loaded",
		zap.Int("persons", len(persons)),
		zap.Int("properties", len(properties)),
	)

	driver, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	// The pipeline is written against the deterministic variant.
	svc := graph.NewNeo4jService(driver)
	defer svc.Close(context.Background())

	rep, err := inheritance.NewPipeline(svc).Run(ctx, persons, properties)
	if err != nil {
		return err
	}

	printReport(rep)
	return nil
}

func runVisualize(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	queryName := args[0]
	params := paramsName
	if params == "" {
		params = queryName
	}
	styles := stylesName
	if styles == "" {
		styles = queryName
	}

	statement, err := viz.LoadQuery(cfg.QueriesDir, queryName)
	if err != nil {
		return err
	}
	parameters, err := viz.LoadParameters(cfg.ParametersDir, params)
	if err != nil {
		return err
	}
	style, err := viz.LoadStyle(cfg.StylesDir, styles)
	if err != nil {
		return err
	}

	driver, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	svc := graph.NewNeo4jService(driver)
	defer svc.Close(context.Background())

	g, err := viz.Collect(ctx, svc.Driver(), statement, parameters)
	if err != nil {
		return err
	}
	return viz.Render(g, style, outPath)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	svc, err := newService(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close(context.Background())

	if cfg.GraphService == config.ServiceEpisodic {
		stats, err := svc.Statistics(ctx)
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(stats))
		for key := range stats {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Printf("%s: %v\n", key, stats[key])
		}
		return nil
	}

	counts, err := inheritance.NewQueries(svc).Counts(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Persons:    %d\n", counts.Persons)
	fmt.Printf("Properties: %d\n", counts.Properties)
	fmt.Printf("Countries:  %d\n", counts.Countries)
	fmt.Printf("Cities:     %d\n", counts.Cities)
	fmt.Printf("Edges:      %d\n", counts.Edges)
	return nil
}

// connect establishes and verifies the driver for one command invocation.
func connect(ctx context.Context, cfg *config.Config) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		return nil, apperrors.NewGraphConnectionFailed(cfg.Neo4jURI, err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, apperrors.NewGraphConnectionFailed(cfg.Neo4jURI, err)
	}
	return driver, nil
}

// newService builds the configured service variant over a fresh driver.
func newService(ctx context.Context, cfg *config.Config) (graph.Service, error) {
	driver, err := connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.GraphService == config.ServiceEpisodic {
		return graph.NewEpisodicService(driver, extraction.NewEngine(cfg, driver)), nil
	}
	return graph.NewNeo4jService(driver), nil
}

func commandContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Get().Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

func printReport(rep *inheritance.Report) {
	fmt.Printf("Ingestion complete: %d statements, %d failures, %d records skipped\n",
		rep.Statements, rep.Failures, rep.Skipped)
	fmt.Printf("Upserted %d persons, %d countries, %d cities, %d properties\n",
		rep.Persons, rep.Countries, rep.Cities, rep.Properties)

	fmt.Printf("\nPersons (%d):\n", len(rep.PersonRows))
	for _, row := range rep.PersonRows {
		fmt.Printf("  %s | residence: %s, %s\n",
			row.String("name"), row.String("residence_city"), row.String("residence_country"))
	}

	fmt.Printf("\nProperties (%d):\n", len(rep.PropertyRows))
	for _, row := range rep.PropertyRows {
		fmt.Printf("  %s | %s | %s, %s\n",
			row.String("name"), row.String("location"), row.String("city"), row.String("country"))
	}
}
