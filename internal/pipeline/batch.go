package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gitrdm/seedsynth/internal/parallel"
)

// Manifest lists the problems of a batch.
type Manifest struct {
	Problems []Files `yaml:"problems" validate:"required,min=1,dive"`
}

var validate = validator.New()

// LoadManifest reads a YAML manifest. Relative paths are resolved against
// the manifest's directory; problems without a name are named by index.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := validate.Struct(m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	base := filepath.Dir(path)
	for i := range m.Problems {
		f := &m.Problems[i]
		if f.Name == "" {
			f.Name = fmt.Sprintf("problem-%d", i+1)
		}
		for _, p := range []*string{&f.Fragment, &f.Program, &f.Pre, &f.Post} {
			if !filepath.IsAbs(*p) {
				*p = filepath.Join(base, *p)
			}
		}
	}
	return &m, nil
}

// BatchResult pairs a problem with its report and error.
type BatchResult struct {
	Files  Files
	Report *Report
	Err    error
}

// RunBatch runs every problem, at most cfg.Workers at a time. Results keep
// the manifest order.
func (p *Pipeline) RunBatch(ctx context.Context, problems []Files) ([]BatchResult, error) {
	results := make([]BatchResult, len(problems))
	err := parallel.ForEach(ctx, p.cfg.Workers, len(problems), func(ctx context.Context, i int) {
		rep, err := p.Run(ctx, problems[i])
		results[i] = BatchResult{Files: problems[i], Report: rep, Err: err}
		if err != nil {
			p.logger.Warn("problem failed", zap.String("name", problems[i].Name), zap.Error(err))
		}
	})
	return results, err
}
