package consult

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/zhouzirui/consultant/internal/analysis/brief"
	"github.com/zhouzirui/consultant/internal/model/mode"
)

// BatchJob is one independent consultation run in its own session.
type BatchJob struct {
	Name     string            `yaml:"name" json:"name"`
	Mode     mode.Mode         `yaml:"mode,omitempty" json:"mode,omitempty"`
	Message  string            `yaml:"message,omitempty" json:"message,omitempty"`
	Workflow Workflow          `yaml:"workflow,omitempty" json:"workflow,omitempty"`
	Fields   map[string]string `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// BatchFile is the YAML document accepted by LoadBatchFile.
type BatchFile struct {
	Concurrency int        `yaml:"concurrency,omitempty"`
	Jobs        []BatchJob `yaml:"jobs"`
}

// ParseBatch decodes and normalizes a batch document: modes and workflows are
// parsed leniently and field keys are mapped to their canonical names.
func ParseBatch(data []byte) (BatchFile, error) {
	var doc BatchFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return BatchFile{}, fmt.Errorf("decode batch: %w", err)
	}
	if len(doc.Jobs) == 0 {
		return BatchFile{}, fmt.Errorf("batch has no jobs")
	}

	for i := range doc.Jobs {
		job := &doc.Jobs[i]
		if job.Name == "" {
			job.Name = fmt.Sprintf("job-%d", i+1)
		}
		if job.Workflow != "" {
			w, err := ParseWorkflow(string(job.Workflow))
			if err != nil {
				return BatchFile{}, fmt.Errorf("job %q: %w", job.Name, err)
			}
			job.Workflow = w
			fields := make(map[string]string, len(job.Fields))
			for key, value := range job.Fields {
				fields[brief.Canonical(key)] = value
			}
			job.Fields = fields
			continue
		}
		if job.Mode != "" {
			m, err := mode.ParseMode(string(job.Mode))
			if err != nil {
				return BatchFile{}, fmt.Errorf("job %q: %w", job.Name, err)
			}
			job.Mode = m
		}
		if job.Message == "" {
			return BatchFile{}, fmt.Errorf("job %q: %w", job.Name, ErrEmptyMessage)
		}
	}
	return doc, nil
}

// LoadBatchFile reads a batch document from disk.
func LoadBatchFile(path string) (BatchFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BatchFile{}, err
	}
	return ParseBatch(data)
}

// BatchResult reports the outcome of one job.
type BatchResult struct {
	Job       BatchJob
	SessionID string
	Reply     string
	Err       error
	Elapsed   time.Duration
}

// RunBatch runs jobs concurrently, at most limit at a time, each in a fresh
// session. A failing job does not stop the others.
func (e *Engine) RunBatch(ctx context.Context, jobs []BatchJob, limit int) []BatchResult {
	results := make([]BatchResult, len(jobs))
	if limit <= 0 {
		limit = 4
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, job := range jobs {
		info := e.store.Create(job.Name)
		results[i] = BatchResult{Job: job, SessionID: info.ID}

		g.Go(func() error {
			started := time.Now()
			var reply string
			var err error
			if job.Workflow != "" {
				reply, err = e.RunWorkflow(gctx, info.ID, job.Workflow, job.Fields)
			} else {
				m := job.Mode
				if m == "" {
					m = mode.Chat
				}
				reply, err = e.Turn(gctx, info.ID, m, job.Message)
			}
			results[i].Reply = reply
			results[i].Err = err
			results[i].Elapsed = time.Since(started)
			if err != nil {
				e.logger.Warn("batch job failed", zap.String("job", job.Name), zap.Error(err))
			}
			return nil
		})
	}

	_ = g.Wait()
	return results
}
