package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/gitrdm/seedsynth/pkg/bidir"
	"github.com/gitrdm/seedsynth/pkg/symbolic"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	a := &app{}
	cmd := newRootCmd(a)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	a.close()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "seedsynth "+symbolic.Version))

	out, _, err = execute(t, "version", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version": "`+symbolic.Version+`"`)
}

func TestSample(t *testing.T) {
	path := writeFile(t, t.TempDir(), "c.txt", "x > 0\nx < 10\n")
	out, _, err := execute(t, "sample", "--constraints", path, "-k", "3", "--types", "x=int")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	for i, l := range lines {
		assert.True(t, strings.HasPrefix(l, string(rune('1'+i))+": x="), l)
	}

	out, _, err = execute(t, "sample", "--constraints", path, "-k", "2", "--median")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 2)
}

func TestSample_Infeasible(t *testing.T) {
	path := writeFile(t, t.TempDir(), "c.txt", "x > 5\nx < 3\nnot valid (\n")
	_, stderr, err := execute(t, "sample", "--constraints", path)
	require.Error(t, err)
	assert.Equal(t, exitNoInput, exitCode(err))
	assert.Contains(t, stderr, "skipped line 3")
}

func TestCheck(t *testing.T) {
	path := writeFile(t, t.TempDir(), "pre.txt", "x > 0\n")

	out, _, err := execute(t, "check", "-c", path, "--candidate", "x=5", "--types", "x=int")
	require.NoError(t, err)
	assert.Contains(t, out, "satisfied: true")
	assert.Contains(t, out, "x=5")

	out, _, err = execute(t, "check", "-c", path, "--candidate", "x=-3", "--types", "x=int")
	require.Error(t, err)
	assert.Equal(t, exitNoInput, exitCode(err))
	assert.Contains(t, out, "satisfied: false")
	assert.Contains(t, out, "x=1")

	_, _, err = execute(t, "check", "-c", path, "--candidate", "x")
	assert.Equal(t, exitUsage, exitCode(err))
}

func TestRefine(t *testing.T) {
	path := writeFile(t, t.TempDir(), "c.txt", "x > 100\n")
	out, _, err := execute(t, "refine", "-c", path, "--target", "x=5", "--types", "x=int")
	require.NoError(t, err)
	assert.Equal(t, "x=101\n", out)

	_, _, err = execute(t, "refine", "-c", path, "--target", "x=5", "--mode", "l7")
	assert.Error(t, err)
}

func TestTypes(t *testing.T) {
	path := writeFile(t, t.TempDir(), "p.c", "int main(void) {\n    double ratio = 0.5;\n    int n = 3;\n    return n;\n}\n")
	out, _, err := execute(t, "types", path)
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Regexp(t, `ratio\s+double\s+double\s+2`, out)
	assert.Regexp(t, `n\s+int\s+int\s+3`, out)
}

func TestRun_InfeasiblePrecondition(t *testing.T) {
	dir := t.TempDir()
	out, _, err := execute(t, "run",
		"--fragment", writeFile(t, dir, "f.c", "out = in + 1;"),
		"--program", writeFile(t, dir, "p.c", "int main(void) { int in = 1; int out = in + 1; return out; }"),
		"--pre", writeFile(t, dir, "pre.txt", "in > 5\nin < 3\n"),
		"--post", writeFile(t, dir, "post.txt", "out == 10\n"),
		"--log-folder", filepath.Join(dir, "runs"),
	)
	require.Error(t, err)
	assert.Equal(t, exitNoInput, exitCode(err))
	assert.Contains(t, out, "outcome:  infeasible")
}

func TestRun_MissingFlags(t *testing.T) {
	_, _, err := execute(t, "run", "--fragment", "f.c")
	require.Error(t, err)
	assert.Equal(t, exitUsage, exitCode(err))
}

func TestBatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "f.c", "out = in + 1;")
	writeFile(t, dir, "p.c", "int main(void) { int in = 1; int out = in + 1; return out; }")
	writeFile(t, dir, "pre.txt", "in > 5\nin < 3\n")
	writeFile(t, dir, "post.txt", "out == 10\n")
	manifest := writeFile(t, dir, "batch.yaml", "problems:\n  - name: impossible\n    fragment: f.c\n    program: p.c\n    pre: pre.txt\n    post: post.txt\n")
	cfg := writeFile(t, dir, "cfg.yaml", "log_folder: "+filepath.Join(dir, "runs")+"\n")

	out, _, err := execute(t, "--config", cfg, "batch", manifest)
	require.Error(t, err)
	assert.Equal(t, exitNoInput, exitCode(err))
	assert.Contains(t, out, "impossible")
	assert.Contains(t, out, "infeasible")
}

func TestBadConfig(t *testing.T) {
	cfg := writeFile(t, t.TempDir(), "cfg.yaml", "budgets:\n  max_retries: 0\n")
	_, _, err := execute(t, "--config", cfg, "version")
	require.Error(t, err)
	assert.Equal(t, exitUsage, exitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, exitCode(nil))
	assert.Equal(t, exitNoInput, exitCode(bidir.ErrBudgetExhausted))
	assert.Equal(t, exitNoInput, exitCode(&searchFailure{errors.New("x")}))
	assert.Equal(t, exitUsage, exitCode(errors.New("boom")))
}
