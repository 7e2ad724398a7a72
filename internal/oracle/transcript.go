package oracle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TranscriptClient records every exchange of the wrapped client as a
// numbered text file in a directory. Each role of a run (io variables,
// seed, harness, inversion) gets its own directory.
type TranscriptClient struct {
	next Client
	dir  string

	mu sync.Mutex
	n  int
}

// NewTranscriptClient creates dir if needed.
func NewTranscriptClient(next Client, dir string) (*TranscriptClient, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}
	return &TranscriptClient{next: next, dir: dir}, nil
}

// Dir returns the transcript directory.
func (t *TranscriptClient) Dir() string { return t.dir }

// Generate forwards the call and records it, including failed calls.
func (t *TranscriptClient) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	reply, err := t.next.Generate(ctx, prompt)

	t.mu.Lock()
	n := t.n
	t.n++
	t.mu.Unlock()

	body := fmt.Sprintf("### prompt\n%s\n\n### reply (%s)\n%s\n", prompt, time.Since(start).Round(time.Millisecond), reply)
	if err != nil {
		body += fmt.Sprintf("\n### error\n%v\n", err)
	}
	path := filepath.Join(t.dir, fmt.Sprintf("exchange_%03d.txt", n))
	if werr := os.WriteFile(path, []byte(body), 0o644); werr != nil && err == nil {
		return reply, fmt.Errorf("record transcript: %w", werr)
	}
	return reply, err
}
