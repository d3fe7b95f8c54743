package export

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/pallet-scanner/internal/scan"
)

//go:embed run.schema.json
var runSchemaJSON []byte

const runSchemaURL = "mem://pallet-scanner/run.schema.json"

var (
	schemaOnce sync.Once
	runSchema  *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.AssertFormat = true
		if err := c.AddResource(runSchemaURL, bytes.NewReader(runSchemaJSON)); err != nil {
			schemaErr = fmt.Errorf("load run schema: %w", err)
			return
		}
		runSchema, schemaErr = c.Compile(runSchemaURL)
	})
	return runSchema, schemaErr
}

// WriteJSON writes run as an indented JSON document.
func (s *Service) WriteJSON(w io.Writer, run *scan.Run) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(run); err != nil {
		return fmt.Errorf("encode run: %w", err)
	}
	s.logger.Info("export.json.ok", "run_id", run.ID.String(), "rows", len(run.Records))
	return nil
}

// ReadJSON decodes a run file after validating it against the run schema.
// Records missing run metadata inherit it from the run.
func (s *Service) ReadJSON(r io.Reader) (*scan.Run, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read run file: %w", err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse run file: %w", err)
	}
	sch, err := compiledSchema()
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(doc); err != nil {
		s.logger.Error("run file failed schema validation", "error", err)
		return nil, fmt.Errorf("invalid run file: %w", err)
	}

	var run scan.Run
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("decode run file: %w", err)
	}
	for i := range run.Records {
		rec := &run.Records[i]
		if rec.RunID == uuid.Nil {
			rec.RunID = run.ID
		}
		if rec.Strategy == "" {
			rec.Strategy = run.Strategy
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = run.FinishedAt
		}
	}
	s.logger.Debug("run file loaded", "run_id", run.ID.String(), "rows", len(run.Records))
	return &run, nil
}
