package oracle

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/gitrdm/seedsynth/pkg/bidir"
	"github.com/gitrdm/seedsynth/pkg/symbolic"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeCompiler turns "int name = value;" lines into shell assignments and
// "//sh " lines into shell commands, so tests need no C toolchain.
const fakeCompiler = `#!/bin/sh
src="$1"; out="$3"
if grep -q '#error' "$src"; then echo "$src: error: forced failure" >&2; exit 1; fi
{
  echo '#!/bin/sh'
  sed -n 's/^[[:space:]]*int \([A-Za-z_][A-Za-z0-9_]*\) = \(.*\);$/\1=\2/p' "$src"
  sed -n 's|^[[:space:]]*//sh ||p' "$src"
} > "$out"
chmod +x "$out"
`

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	path := filepath.Join(t.TempDir(), "fakecc")
	require.NoError(t, os.WriteFile(path, []byte(fakeCompiler), 0o755))
	cfg := DefaultRunnerConfig()
	cfg.Compiler = path
	cfg.Flags = nil
	return NewRunner(cfg, nil)
}

func newScripts(t *testing.T, prefix string) *ScriptDir {
	t.Helper()
	s, err := NewScriptDir(t.TempDir(), prefix)
	require.NoError(t, err)
	return s
}

func incrementFragment() Fragment {
	return Fragment{
		Program: "int main() { int in = read(); int out; out = in + 1; return out; }",
		Code:    "out = in + 1;",
		Inputs:  []Var{{Name: "in", Type: "int"}},
		Outputs: []Var{{Name: "out", Type: "int"}},
	}
}

const forwardReply = "Here is the program:\n```c\n#include <stdio.h>\n#include <stdlib.h>\nint main() {\n    int in = 4;\n    int out;\n    out = in + 1;\n//sh echo \"###RESULT### out=$((in + 1))\"\n    printf(\"###RESULT### out=%d\\n\", out);\n    exit(0);\n}\n```\n"

const inverseReply = "###BEGIN_CODE###\n#include <stdio.h>\nint main() {\n    int out = out_placeholder;\n//sh echo \"###RESULT### in=$((out - 1))\"\n    return 0;\n}\n###END_CODE###"

func TestRunner_CompileAndRun(t *testing.T) {
	r := newTestRunner(t)
	s := newScripts(t, "prog")

	path, err := s.Write("int a = 6;\n//sh echo \"###RESULT### b=$((a * 7))\"\n")
	require.NoError(t, err)
	out, err := r.CompileAndRun(context.Background(), "test", path)
	require.NoError(t, err)
	assert.Equal(t, "###RESULT### b=42\n", out)

	path, err = s.Write("#error nope\n")
	require.NoError(t, err)
	_, err = r.CompileAndRun(context.Background(), "test", path)
	var of *bidir.OracleFailure
	require.ErrorAs(t, err, &of)
	assert.Equal(t, "compile", of.Stage)
	assert.Contains(t, of.Detail, "forced failure")

	path, err = s.Write("//sh exit 3\n")
	require.NoError(t, err)
	_, err = r.CompileAndRun(context.Background(), "test", path)
	require.ErrorAs(t, err, &of)
	assert.Equal(t, "run", of.Stage)
}

func TestRunner_Timeout(t *testing.T) {
	r := newTestRunner(t)
	r.cfg.RunTimeout = 50 * time.Millisecond
	path, err := newScripts(t, "slow").Write("//sh exec sleep 5\n")
	require.NoError(t, err)

	start := time.Now()
	_, err = r.CompileAndRun(context.Background(), "test", path)
	var of *bidir.OracleFailure
	require.ErrorAs(t, err, &of)
	assert.Equal(t, "run", of.Stage)
	assert.ErrorContains(t, err, "timed out")
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestExecutionOracle(t *testing.T) {
	client := NewScriptedClient().On("Generate a minimal, compilable C program", forwardReply)
	scripts := newScripts(t, "forward")
	o := NewExecutionOracle(client, newTestRunner(t), scripts, incrementFragment(), symbolic.RawAssignment{{Name: "in", Text: "4"}}, nil)

	for in, want := range map[string]string{"9": "out=10", "-3": "out=-2"} {
		out, err := o.Execute(context.Background(), symbolic.RawAssignment{{Name: "in", Text: in}})
		require.NoError(t, err)
		assert.Equal(t, want, out.String())
	}
	// The harness is generated once.
	assert.Len(t, client.Prompts(), 1)
	assert.Contains(t, client.Prompts()[0], "in=4")

	saved, err := os.ReadFile(filepath.Join(scripts.Dir(), "modified_script.c"))
	require.NoError(t, err)
	assert.Contains(t, string(saved), "int in = in_placeholder;")
}

func TestExecutionOracle_GenerationFailureIsRetried(t *testing.T) {
	calls := 0
	client := NewScriptedClient().OnFunc("Generate a minimal", func(string) (string, error) {
		calls++
		if calls == 1 {
			return "I refuse.", nil
		}
		return forwardReply, nil
	})
	o := NewExecutionOracle(client, newTestRunner(t), newScripts(t, "forward"), incrementFragment(), nil, nil)

	_, err := o.Execute(context.Background(), symbolic.RawAssignment{{Name: "in", Text: "1"}})
	assert.True(t, bidir.IsOracleFailure(err))

	out, err := o.Execute(context.Background(), symbolic.RawAssignment{{Name: "in", Text: "1"}})
	require.NoError(t, err)
	assert.Equal(t, "out=2", out.String())
}

func TestExecutionOracle_OutputOutOfRange(t *testing.T) {
	reply := strings.Replace(forwardReply, `out=$((in + 1))`, `out=1e30`, 1)
	client := NewScriptedClient(reply)
	o := NewExecutionOracle(client, newTestRunner(t), newScripts(t, "forward"), incrementFragment(), symbolic.RawAssignment{{Name: "in", Text: "4"}}, nil)

	_, err := o.Execute(context.Background(), symbolic.RawAssignment{{Name: "in", Text: "1"}})
	var of *bidir.OracleFailure
	require.ErrorAs(t, err, &of)
	assert.Equal(t, "parse", of.Stage)
	assert.Equal(t, "out=1e30", of.Detail)
	var pe *symbolic.ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestExecutionOracle_HarnessWithoutInputs(t *testing.T) {
	reply := "#include <stdio.h>\nint main() {\n    printf(\"###RESULT### out=1\\n\");\n}"
	client := NewScriptedClient(reply)
	o := NewExecutionOracle(client, newTestRunner(t), newScripts(t, "forward"), incrementFragment(), nil, nil)

	_, err := o.Execute(context.Background(), symbolic.RawAssignment{{Name: "in", Text: "1"}})
	var of *bidir.OracleFailure
	require.ErrorAs(t, err, &of)
	assert.Equal(t, "generate", of.Stage)
	assert.Contains(t, of.Detail, "[in]")
}

func TestInversionOracle_Harness(t *testing.T) {
	client := NewScriptedClient().On("approximate inverse function", inverseReply)
	scripts := newScripts(t, "inverse")
	o := NewInversionOracle(client, newTestRunner(t), scripts, incrementFragment(), nil, nil)

	in, err := o.Harness(context.Background(), symbolic.RawAssignment{{Name: "out", Text: "10"}})
	require.NoError(t, err)
	assert.Equal(t, "in=9", in.String())

	_, err = os.Stat(filepath.Join(scripts.Dir(), "inverted_solution.c"))
	assert.NoError(t, err)
}

func TestInversionOracle_HarnessMissingPlaceholder(t *testing.T) {
	client := NewScriptedClient("###BEGIN_CODE###\nint main() { return 0; }\n###END_CODE###")
	o := NewInversionOracle(client, newTestRunner(t), newScripts(t, "inverse"), incrementFragment(), nil, nil)

	_, err := o.Harness(context.Background(), symbolic.RawAssignment{{Name: "out", Text: "10"}})
	var of *bidir.OracleFailure
	require.ErrorAs(t, err, &of)
	assert.Equal(t, "generate", of.Stage)
}

func TestInversionOracle_Guess(t *testing.T) {
	client := NewScriptedClient().
		On("Constraints on the inputs", "###VARIABLES###\nin=7\n###END###").
		On("Predict plausible input values", "Since out = in + 1:\n@@@in 9@@@")
	seed := &SeedContext{
		PreConstraints:  "in > 0",
		PostConstraints: "out == 10",
		PreCandidate:    symbolic.RawAssignment{{Name: "in", Text: "1"}},
	}
	o := NewInversionOracle(client, nil, nil, incrementFragment(), seed, nil)
	target := symbolic.RawAssignment{{Name: "out", Text: "10"}}

	first, err := o.Guess(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, "in=7", first.String())

	second, err := o.Guess(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, "in=9", second.String())

	prompts := client.Prompts()
	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[0], "in > 0")
	assert.Contains(t, prompts[0], "out == 10")
	assert.Contains(t, prompts[1], "@@@in value@@@")
	assert.Contains(t, prompts[1], "in of type int")
}

func TestInversionOracle_GuessFailures(t *testing.T) {
	o := NewInversionOracle(NewScriptedClient("no idea"), nil, nil, incrementFragment(), nil, nil)
	_, err := o.Guess(context.Background(), symbolic.RawAssignment{{Name: "out", Text: "1"}})
	var of *bidir.OracleFailure
	require.ErrorAs(t, err, &of)
	assert.Equal(t, "parse", of.Stage)

	_, err = o.Guess(context.Background(), symbolic.RawAssignment{{Name: "out", Text: "1"}})
	require.ErrorAs(t, err, &of)
	assert.Equal(t, "query", of.Stage)
	assert.ErrorIs(t, err, ErrScriptExhausted)
}

func TestIdentifyIOVars(t *testing.T) {
	client := NewScriptedClient("###VARIABLES###\nInput Variables:\nin\nOutput Variables:\nout\n###END###")
	in, out, err := IdentifyIOVars(context.Background(), client, "prog", "out = in + 1;",
		symbolic.RawAssignment{{Name: "in", Text: "1"}}, symbolic.RawAssignment{{Name: "out", Text: "10"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"in"}, in)
	assert.Equal(t, []string{"out"}, out)
	assert.Contains(t, client.Prompts()[0], "out = in + 1;")

	_, _, err = IdentifyIOVars(context.Background(), NewScriptedClient("dunno"), "", "", nil, nil)
	assert.True(t, bidir.IsOracleFailure(err))
}

func TestResolveTypes(t *testing.T) {
	got := ResolveTypes([]string{"a", "b"}, symbolic.TypeMap{"a": "double"}, "int")
	assert.Equal(t, []Var{{Name: "a", Type: "double"}, {Name: "b", Type: "int"}}, got)
}

func TestPromptsRender(t *testing.T) {
	for _, name := range []string{"iovars", "runnable", "inverse", "guess", "seed"} {
		var data any
		switch name {
		case "iovars":
			data = ioVarsData{}
		case "runnable":
			data = runnableData{Outputs: []Var{{Name: "o", Type: "int"}}}
		case "inverse":
			data = inverseData{}
		default:
			data = guessData{Inputs: []Var{{Name: "i", Type: "int"}}}
		}
		out, err := render(name, data)
		require.NoError(t, err, name)
		assert.NotEmpty(t, strings.TrimSpace(out), name)
	}
	_, err := render("missing", nil)
	assert.Error(t, err)
}

type countingClient struct{ n int }

func (c *countingClient) Generate(context.Context, string) (string, error) {
	c.n++
	return "ok", nil
}

func TestRateLimited(t *testing.T) {
	inner := &countingClient{}
	assert.Same(t, Client(inner), NewRateLimited(inner, 0))

	limited := NewRateLimited(inner, 1)
	_, err := limited.Generate(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = limited.Generate(ctx, "b")
	assert.Error(t, err)
	assert.Equal(t, 1, inner.n)
}

func TestScriptedClient(t *testing.T) {
	c := NewScriptedClient("one").On("special", "rule")
	got, err := c.Generate(context.Background(), "a special prompt")
	require.NoError(t, err)
	assert.Equal(t, "rule", got)

	got, err = c.Generate(context.Background(), "plain")
	require.NoError(t, err)
	assert.Equal(t, "one", got)

	_, err = c.Generate(context.Background(), "plain")
	assert.True(t, errors.Is(err, ErrScriptExhausted))
}

func TestNewClient_MissingKey(t *testing.T) {
	cfg := DefaultClientConfig()
	cfg.APIKeyEnv = "SEEDSYNTH_TEST_UNSET_KEY"
	t.Setenv(cfg.APIKeyEnv, "")
	_, err := NewClient(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestTranscriptClient(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "seed")
	tc, err := NewTranscriptClient(NewScriptedClient("first reply"), dir)
	require.NoError(t, err)

	got, err := tc.Generate(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "first reply", got)

	_, err = tc.Generate(context.Background(), "again")
	assert.ErrorIs(t, err, ErrScriptExhausted)

	first, err := os.ReadFile(filepath.Join(dir, "exchange_000.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(first), "hello")
	assert.Contains(t, string(first), "first reply")

	second, err := os.ReadFile(filepath.Join(dir, "exchange_001.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(second), "### error")
}
