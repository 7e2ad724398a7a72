package pipeline

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/gitrdm/seedsynth/internal/config"
	"github.com/gitrdm/seedsynth/internal/oracle"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeCompiler turns "int name = value;" lines into shell assignments and
// "//sh " lines into commands, standing in for gcc.
const fakeCompiler = `#!/bin/sh
src="$1"; out="$3"
{
  echo '#!/bin/sh'
  sed -n 's/^[[:space:]]*int \([A-Za-z_][A-Za-z0-9_]*\) = \(.*\);$/\1=\2/p' "$src"
  sed -n 's|^[[:space:]]*//sh ||p' "$src"
} > "$out"
chmod +x "$out"
`

const (
	ioReply      = "###VARIABLES###\nInput Variables:\nin\nOutput Variables:\nout\n###END###"
	forwardReply = "#include <stdio.h>\nint main() {\n    int in = 1;\n    int out;\n    out = in + 1;\n//sh echo \"###RESULT### out=$((in + 1))\"\n    return 0;\n}"
	inverseReply = "###BEGIN_CODE###\nint main() {\n    int out = out_placeholder;\n//sh echo \"###RESULT### in=$((out - 1))\"\n    return 0;\n}\n###END_CODE###"
)

func incrementClient() *oracle.ScriptedClient {
	return oracle.NewScriptedClient().
		On("Identify:", ioReply).
		On("Generate a minimal, compilable C program", forwardReply).
		On("approximate inverse function", inverseReply).
		On("Constraints on the inputs", "###VARIABLES###\nin=9\n###END###").
		On("Predict plausible input values", "@@@in 9@@@")
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	cc := filepath.Join(dir, "fakecc")
	require.NoError(t, os.WriteFile(cc, []byte(fakeCompiler), 0o755))

	cfg := config.Default()
	cfg.LogFolder = filepath.Join(dir, "runs")
	cfg.Runner.Compiler = cc
	cfg.Runner.Flags = nil
	return cfg
}

func writeProblem(t *testing.T, dir, pre, post string) Files {
	t.Helper()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		return path
	}
	return Files{
		Fragment: write("fragment.c", "out = in + 1;\n"),
		Program:  write("program.c", "int main(void) {\n    int in = 3;\n    int out;\n    out = in + 1;\n    return out;\n}\n"),
		Pre:      write("pre.txt", pre),
		Post:     write("post.txt", post),
	}
}

func TestRun_Increment(t *testing.T) {
	cfg := testConfig(t)
	client := incrementClient()
	files := writeProblem(t, t.TempDir(), "# inputs\nin > 0\n", "out == 10\n")

	rep, err := New(cfg, WithClient(client)).Run(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAccepted, rep.Outcome)
	assert.True(t, rep.Accepted)
	assert.Equal(t, "in=9", rep.Inputs)
	assert.Equal(t, "out=10", rep.Outputs)
	assert.Equal(t, []string{"in"}, rep.InputVars)
	assert.Equal(t, []string{"out"}, rep.OutputVars)
	assert.Equal(t, "int", rep.Types["in"])
	assert.NotEmpty(t, rep.Trace)

	saved, err := ReadReport(filepath.Join(rep.Dir, ReportFile))
	require.NoError(t, err)
	assert.Equal(t, rep.RunID, saved.RunID)
	assert.Equal(t, "in=9", saved.Inputs)

	for _, sub := range []string{DirIOVars, DirForward, DirInverse} {
		_, err := os.Stat(filepath.Join(rep.Dir, sub))
		assert.NoError(t, err, sub)
	}
	_, err = os.Stat(filepath.Join(rep.Dir, DirInverse, "inverted_solution.c"))
	assert.NoError(t, err)
}

func TestRun_InfeasiblePrecondition(t *testing.T) {
	cfg := testConfig(t)
	files := writeProblem(t, t.TempDir(), "in > 5\nin < 3\n", "out == 10\n")

	rep, err := New(cfg, WithClient(oracle.NewScriptedClient())).Run(context.Background(), files)
	require.Error(t, err)
	assert.True(t, IsSearchFailure(err))
	require.NotNil(t, rep)
	assert.Equal(t, OutcomeInfeasible, rep.Outcome)

	saved, err := ReadReport(filepath.Join(rep.Dir, ReportFile))
	require.NoError(t, err)
	assert.Equal(t, OutcomeInfeasible, saved.Outcome)
}

func TestRun_RejectedLinesAndBadFiles(t *testing.T) {
	cfg := testConfig(t)
	files := writeProblem(t, t.TempDir(), "in > 0\nin >>> 2\n", "out == 10\n")

	rep, err := New(cfg, WithClient(incrementClient())).Run(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Rejected)

	files.Post = filepath.Join(t.TempDir(), "missing.txt")
	rep, err = New(cfg, WithClient(incrementClient())).Run(context.Background(), files)
	require.Error(t, err)
	assert.False(t, IsSearchFailure(err))
	assert.Equal(t, OutcomeError, rep.Outcome)
}

func TestRun_NoAPIKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.APIKeyEnv = "SEEDSYNTH_TEST_MISSING_KEY"
	t.Setenv(cfg.LLM.APIKeyEnv, "")
	files := writeProblem(t, t.TempDir(), "in > 0\n", "out == 10\n")

	_, err := New(cfg).Run(context.Background(), files)
	assert.ErrorIs(t, err, oracle.ErrNoAPIKey)
}

func TestRunBatch(t *testing.T) {
	cfg := testConfig(t)
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "b"), 0o755))
	writeProblem(t, filepath.Join(dir, "a"), "in > 0\n", "out == 10\n")
	writeProblem(t, filepath.Join(dir, "b"), "in > 5\nin < 3\n", "out == 10\n")

	manifest := `problems:
  - name: ok
    fragment: a/fragment.c
    program: a/program.c
    pre: a/pre.txt
    post: a/post.txt
  - fragment: b/fragment.c
    program: b/program.c
    pre: b/pre.txt
    post: b/post.txt
`
	path := filepath.Join(dir, "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))
	m, err := LoadManifest(path)
	require.NoError(t, err)
	require.Len(t, m.Problems, 2)
	assert.Equal(t, "problem-2", m.Problems[1].Name)
	assert.Equal(t, filepath.Join(dir, "a", "pre.txt"), m.Problems[0].Pre)

	results, err := New(cfg, WithClient(incrementClient())).RunBatch(context.Background(), m.Problems)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, "in=9", results[0].Report.Inputs)
	assert.True(t, IsSearchFailure(results[1].Err))
	assert.Equal(t, "problem-2", results[1].Report.Name)
}

func TestLoadManifest_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("problems:\n  - fragment: f.c\n"), 0o644))
	_, err := LoadManifest(path)
	assert.ErrorContains(t, err, "invalid manifest")
}
