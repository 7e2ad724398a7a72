package oracle

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gitrdm/seedsynth/pkg/symbolic"
)

// Markers delimiting the structured parts of model replies and program output.
const (
	VariablesMarker = "###VARIABLES###"
	EndMarker       = "###END###"
	BeginCodeMarker = "###BEGIN_CODE###"
	EndCodeMarker   = "###END_CODE###"
	ResultMarker    = "###RESULT###"
)

var (
	// ErrNoBlock is returned when a reply lacks the requested section.
	ErrNoBlock = errors.New("reply has no structured section")

	pairRE   = regexp.MustCompile(`(\w+)\s*=\s*(\S+)`)
	atPairRE = regexp.MustCompile(`@@@(\w+)\s+([-+]?\d+(?:\.\d+)?(?:[eE][-+]?\d+)?)@@@`)
	cStartRE = regexp.MustCompile(`^\s*(#include|int|void|double|float|char|long|short|unsigned|static|struct|typedef|const)\b`)
)

// ParseIOVariables reads the Input Variables and Output Variables lists of
// a ###VARIABLES### section. Names keep their order of first appearance.
func ParseIOVariables(reply string) (inputs, outputs []string, err error) {
	block, ok := section(reply, VariablesMarker, EndMarker)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoBlock, VariablesMarker)
	}
	var (
		current *[]string
		label   string
	)
	seen := map[string]bool{}
	for _, line := range strings.Split(block, "\n") {
		line = strings.Trim(strings.TrimSpace(line), "-*` ")
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "input variables"):
			current, label = &inputs, "in:"
			continue
		case strings.HasPrefix(lower, "output variables"):
			current, label = &outputs, "out:"
			continue
		}
		if line == "" || current == nil || seen[label+line] {
			continue
		}
		seen[label+line] = true
		*current = append(*current, line)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return inputs, outputs, fmt.Errorf("%w: need at least one input and one output variable", ErrNoBlock)
	}
	return inputs, outputs, nil
}

// ParseAssignmentBlock reads name=value lines of a ###VARIABLES### section,
// keeping only names in want (all names when want is empty). Every wanted
// name must be present.
func ParseAssignmentBlock(reply string, want []string) (symbolic.RawAssignment, error) {
	block, ok := section(reply, VariablesMarker, EndMarker)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoBlock, VariablesMarker)
	}
	var out symbolic.RawAssignment
	for _, line := range strings.Split(block, "\n") {
		name, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		out = append(out, symbolic.RawValue{Name: strings.TrimSpace(name), Text: strings.TrimSpace(value)})
	}
	return requireNames(out, want)
}

// ParseInputPairs reads @@@name value@@@ lines.
func ParseInputPairs(reply string, want []string) (symbolic.RawAssignment, error) {
	var out symbolic.RawAssignment
	for _, m := range atPairRE.FindAllStringSubmatch(reply, -1) {
		out = append(out, symbolic.RawValue{Name: m[1], Text: m[2]})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no @@@name value@@@ pairs", ErrNoBlock)
	}
	return requireNames(out, want)
}

// ParseResult reads the name=value pairs printed after ###RESULT###. When
// the marker is absent every name=value pair of the output is used.
func ParseResult(output string) (symbolic.RawAssignment, error) {
	text := output
	if i := strings.Index(output, ResultMarker); i >= 0 {
		text = output[i+len(ResultMarker):]
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[:nl]
		}
	}
	var out symbolic.RawAssignment
	seen := map[string]int{}
	for _, m := range pairRE.FindAllStringSubmatch(text, -1) {
		if i, ok := seen[m[1]]; ok {
			out[i].Text = m[2]
			continue
		}
		seen[m[1]] = len(out)
		out = append(out, symbolic.RawValue{Name: m[1], Text: m[2]})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no name=value pairs in program output", ErrNoBlock)
	}
	return out, nil
}

// ExtractCode returns the code between ###BEGIN_CODE### and ###END_CODE###.
func ExtractCode(reply string) (string, error) {
	code, ok := section(reply, BeginCodeMarker, EndCodeMarker)
	if !ok || strings.TrimSpace(code) == "" {
		return "", fmt.Errorf("%w: %s", ErrNoBlock, BeginCodeMarker)
	}
	return stripFences(code), nil
}

// CleanCReply extracts C code from a free-form reply: it drops everything
// before the first line that looks like C and after the last closing brace.
func CleanCReply(reply string) (string, error) {
	if code, err := ExtractCode(reply); err == nil {
		return code, nil
	}
	lines := strings.Split(strings.TrimSpace(reply), "\n")
	start := -1
	for i, l := range lines {
		if cStartRE.MatchString(l) {
			start = i
			break
		}
	}
	if start < 0 {
		return "", errors.New("could not find the start of C code in reply")
	}
	end := -1
	for i := len(lines) - 1; i >= start; i-- {
		if strings.HasSuffix(strings.TrimSpace(lines[i]), "}") {
			end = i
			break
		}
	}
	if end < 0 {
		return "", errors.New("could not find the end of C code in reply")
	}
	return stripFences(strings.Join(lines[start:end+1], "\n")), nil
}

func section(text, begin, end string) (string, bool) {
	i := strings.Index(text, begin)
	if i < 0 {
		return "", false
	}
	rest := text[i+len(begin):]
	j := strings.Index(rest, end)
	if j < 0 {
		return "", false
	}
	return rest[:j], true
}

func stripFences(code string) string {
	lines := strings.Split(strings.TrimSpace(code), "\n")
	out := lines[:0]
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "```") {
			continue
		}
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func requireNames(got symbolic.RawAssignment, want []string) (symbolic.RawAssignment, error) {
	if len(want) == 0 {
		return got, nil
	}
	out := got.Project(want)
	if len(out) < len(want) {
		var missing []string
		for _, n := range want {
			if _, ok := got.Get(n); !ok {
				missing = append(missing, n)
			}
		}
		return nil, fmt.Errorf("missing values for %s", strings.Join(missing, ", "))
	}
	return out, nil
}
