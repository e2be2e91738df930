package scoring

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// defaultTraining is the bundled training table used when no other is set.
//
//go:embed default_training.csv
var defaultTraining []byte

// modelVersion is bumped when the persisted layout changes.
const modelVersion = 1

// persisted is the JSON layout of a saved model.
type persisted struct {
	Version  int      `json:"version"`
	Features []string `json:"features"`
	Tree     tree     `json:"tree"`
}

// DefaultTrainingData returns a reader over the bundled training table.
func DefaultTrainingData() io.Reader {
	return bytes.NewReader(defaultTraining)
}

// Save writes the model as JSON.
func (s *TreeScorer) Save(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(persisted{Version: modelVersion, Features: s.features, Tree: *s.tree}); err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	return nil
}

// Load reads a model written by Save.
func Load(r io.Reader, opts ...Option) (*TreeScorer, error) {
	var p persisted
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidModel, err)
	}
	if p.Version != modelVersion {
		return nil, fmt.Errorf("%w: version %d", ErrInvalidModel, p.Version)
	}
	if len(p.Tree.Nodes) == 0 || !p.Tree.valid(len(p.Features)) {
		return nil, fmt.Errorf("%w: malformed tree", ErrInvalidModel)
	}
	t := p.Tree
	return newTreeScorer(p.Features, &t, opts...), nil
}

// LoadOrTrain returns the model stored at modelPath when it exists.
// Otherwise it trains on trainingPath, or on the bundled table when
// trainingPath is empty, and writes the result to modelPath if one is set.
func LoadOrTrain(modelPath, trainingPath string, opts ...Option) (*TreeScorer, error) {
	if modelPath != "" {
		f, err := os.Open(modelPath)
		switch {
		case err == nil:
			defer func() { _ = f.Close() }()
			return Load(f, opts...)
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("open model: %w", err)
		}
	}

	training := DefaultTrainingData()
	if trainingPath != "" {
		f, err := os.Open(trainingPath)
		if err != nil {
			return nil, fmt.Errorf("open training data: %w", err)
		}
		defer func() { _ = f.Close() }()
		training = f
	}

	s, err := Train(training, opts...)
	if err != nil {
		return nil, err
	}
	if modelPath == "" {
		return s, nil
	}

	if err := os.MkdirAll(filepath.Dir(modelPath), 0o755); err != nil {
		return nil, fmt.Errorf("create model dir: %w", err)
	}
	var buf bytes.Buffer
	if err := s.Save(&buf); err != nil {
		return nil, err
	}
	if err := os.WriteFile(modelPath, buf.Bytes(), 0o644); err != nil { //nolint:gosec // model file is not secret
		return nil, fmt.Errorf("write model: %w", err)
	}
	return s, nil
}
