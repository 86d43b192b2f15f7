package graph

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/khaledhikmat/ai-agents/internal/metrics"
	apperrors "github.com/khaledhikmat/ai-agents/pkg/errors"
)

type executeResult struct {
	rows []Row
	err  error
}

// Execute runs one parameterized statement against the store and returns
// the result rows in statement order. The synchronous driver call is
// dispatched to its own goroutine and awaited together with ctx.Done(),
// so a caller with a deadline resumes instead of busy-waiting; the store
// error, if any, is propagated with its original message.
func Execute(ctx context.Context, driver neo4j.DriverWithContext, statement string, params map[string]interface{}) ([]Row, error) {
	ch := make(chan executeResult, 1)
	go func() {
		ch <- runStatement(ctx, driver, statement, params)
	}()

	select {
	case res := <-ch:
		return res.rows, res.err
	case <-ctx.Done():
		metrics.StatementsTotal.WithLabelValues(metrics.StatusCancelled).Inc()
		return nil, apperrors.NewContextCancelled("graph statement", ctx.Err())
	}
}

func runStatement(ctx context.Context, driver neo4j.DriverWithContext, statement string, params map[string]interface{}) executeResult {
	start := time.Now()

	session := driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.Run(ctx, statement, params)
	if err != nil {
		metrics.ObserveStatement(metrics.StatusError, time.Since(start))
		return executeResult{err: apperrors.NewGraphQueryFailed(statement, err)}
	}

	var rows []Row
	for result.Next(ctx) {
		record := result.Record()
		row := Row{
			Keys:   record.Keys,
			Values: make(map[string]interface{}, len(record.Keys)),
		}
		for _, key := range record.Keys {
			value, _ := record.Get(key)
			row.Values[key] = value
		}
		rows = append(rows, row)
	}
	if err := result.Err(); err != nil {
		metrics.ObserveStatement(metrics.StatusError, time.Since(start))
		return executeResult{err: apperrors.NewGraphQueryFailed(statement, err)}
	}

	metrics.ObserveStatement(metrics.StatusOK, time.Since(start))
	return executeResult{rows: rows}
}
