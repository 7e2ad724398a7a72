package oracle

import (
	"context"

	"github.com/gitrdm/seedsynth/pkg/bidir"
	"github.com/gitrdm/seedsynth/pkg/symbolic"
)

// IdentifyIOVars asks the model which variables are inputs and outputs of
// the fragment. pre and post are example solutions of the precondition and
// postcondition, shown so the model knows the names in play.
func IdentifyIOVars(ctx context.Context, client Client, program, fragment string, pre, post symbolic.RawAssignment) (inputs, outputs []string, err error) {
	prompt, err := render("iovars", ioVarsData{Program: program, Fragment: fragment, Pre: pre.String(), Post: post.String()})
	if err != nil {
		return nil, nil, err
	}
	reply, err := client.Generate(ctx, prompt)
	if err != nil {
		return nil, nil, &bidir.OracleFailure{Stage: "query", Detail: "io variables", Err: err}
	}
	inputs, outputs, err = ParseIOVariables(reply)
	if err != nil {
		return nil, nil, &bidir.OracleFailure{Stage: "parse", Detail: "io variables", Err: err}
	}
	return inputs, outputs, nil
}

// ResolveTypes pairs names with their declared types, using fallback for
// names missing from types.
func ResolveTypes(names []string, types symbolic.TypeMap, fallback string) []Var {
	out := make([]Var, len(names))
	for i, n := range names {
		t, ok := types[n]
		if !ok || t == "" {
			t = fallback
		}
		out[i] = Var{Name: n, Type: t}
	}
	return out
}
