package oracle

import (
	"strings"
	"text/template"
)

// Var is a fragment variable with its C type.
type Var struct {
	Name string
	Type string
}

var promptFuncs = template.FuncMap{
	"typed": func(vars []Var) string {
		parts := make([]string, len(vars))
		for i, v := range vars {
			parts[i] = v.Name + " of type " + v.Type
		}
		return strings.Join(parts, ", ")
	},
}

var prompts = template.Must(template.New("prompts").Funcs(promptFuncs).Parse(`
{{define "iovars"}}You are provided with the following complete C program:

{{.Program}}

Within this program, there is a specific piece of code referred to as the "difficult code":

{{.Fragment}}

Variables available before the difficult code executes, with example values:
{{.Pre}}

Variables that matter after the difficult code executes, with example values:
{{.Post}}

Identify:
1. Input Variables: variables whose values must be concrete before the difficult code executes to influence its behavior.
2. Output Variables: variables modified by the difficult code whose values matter after it executes.

You may explain your reasoning. End your response with this exact section:

###VARIABLES###

Input Variables:
variable1
...

Output Variables:
variable2
...

###END###
{{end}}

{{define "runnable"}}You are given:

1. The full C code:
{{.Program}}

2. The isolated difficult code:
{{.Fragment}}

3. Initial variable assignments needed to reach the difficult code:
{{.Assignments}}

Generate a minimal, compilable C program that:
- includes every needed header and the difficult code,
- has a main() that defines and assigns every required variable from the initial assignments, then runs the difficult code,
- right after the difficult code prints the output variables as
  ###RESULT### {{range $i, $v := .Outputs}}{{if $i}} {{end}}{{$v.Name}}=value{{end}}
  using the right format specifiers,
- then calls exit(0);.

Return only valid C code, without explanations or comments.
{{end}}

{{define "inverse"}}You are given the following C code:

{{.Fragment}}

It takes the input variables: {{typed .Inputs}}
It produces the output variables: {{typed .Outputs}}

Write an approximate inverse function that takes the former outputs and assigns plausible values to the original inputs.
Then write a minimal compilable C program whose main():
- assigns each former output a placeholder named after it, e.g. double result = result_placeholder;
  (use the variable name followed by _placeholder, never a concrete value),
- calls the inverse function,
- prints the inferred inputs as ###RESULT### x=value y=value ...
- calls exit(0);.

Keep the code compilable and minimal, with correct C types and format specifiers and no comments.
Wrap the code between these tags:

###BEGIN_CODE###
<code>
###END_CODE###
{{end}}

{{define "guess"}}Given the following C code:

{{.Fragment}}

The input variables are: {{typed .Inputs}}
The output variables are: {{typed .Outputs}}

The target output is:
{{.Target}}

Predict plausible input values that produce approximately the target output.
Explain your reasoning step by step, then list the inputs one per line as:

Input values:
{{range .Inputs}}@@@{{.Name}} value@@@
{{end}}
Use exactly one space between the name and the value and only list input variables.
{{end}}

{{define "seed"}}You are helping solve a constraint problem over a piece of code inside a larger program.

The code is:
{{.Fragment}}

The input variables are: {{typed .Inputs}}
The output variables are: {{typed .Outputs}}

Constraints on the inputs before the code runs:
{{.PreConstraints}}

Constraints on the outputs after the code runs:
{{.PostConstraints}}

A candidate satisfying the input constraints:
{{.PreCandidate}}

A candidate satisfying the output constraints:
{{.Target}}

Propose a value for every input variable such that the inputs satisfy their constraints and the outputs the code computes from them satisfy theirs.
Always answer with a value for every input variable, in this format only:

###VARIABLES###
variable1=value1
...
###END###
{{end}}
`))

type ioVarsData struct {
	Program, Fragment, Pre, Post string
}

type runnableData struct {
	Program, Fragment, Assignments string
	Outputs                        []Var
}

type inverseData struct {
	Fragment        string
	Inputs, Outputs []Var
}

type guessData struct {
	Fragment        string
	Inputs, Outputs []Var
	Target          string

	PreConstraints, PostConstraints, PreCandidate string
}

func render(name string, data any) (string, error) {
	var sb strings.Builder
	if err := prompts.ExecuteTemplate(&sb, name, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(sb.String()), nil
}
