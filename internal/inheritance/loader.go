package inheritance

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/khaledhikmat/ai-agents/pkg/errors"
)

// Source file names inside the data directory.
const (
	PersonsFile    = "persons.json"
	PropertiesFile = "properties.json"
)

// LoadPersons reads the person collection from path.
func LoadPersons(path string) ([]PersonRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewIngestLoadFailed(path, err)
	}
	var records []PersonRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, apperrors.NewIngestLoadFailed(path, err)
	}
	return records, nil
}

// LoadProperties reads the property collection from path.
func LoadProperties(path string) ([]PropertyRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewIngestLoadFailed(path, err)
	}
	var records []PropertyRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, apperrors.NewIngestLoadFailed(path, err)
	}
	return records, nil
}

// LoadAll loads both collections from dataDir concurrently and hands them
// back as in-memory slices for the pipeline.
func LoadAll(ctx context.Context, dataDir string) ([]PersonRecord, []PropertyRecord, error) {
	var (
		persons    []PersonRecord
		properties []PropertyRecord
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		persons, err = LoadPersons(filepath.Join(dataDir, PersonsFile))
		return err
	})
	g.Go(func() error {
		var err error
		properties, err = LoadProperties(filepath.Join(dataDir, PropertiesFile))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return persons, properties, nil
}
