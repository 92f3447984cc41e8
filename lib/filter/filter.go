// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package filter compiles CEL expressions that decide whether an
// update reaches the handler. Expressions see four variables:
//
//   - kind (string) -- the update variant, such as "message"
//   - chat_id (int) -- the originating chat, 0 when there is none
//   - text (string) -- message text or callback data, "" when absent
//   - update (map) -- the raw update object as decoded JSON
//
// Example: kind == "message" && text.startsWith("/")
package filter

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
)

// Variable names visible to expressions.
const (
	VarKind   = "kind"
	VarChatID = "chat_id"
	VarText   = "text"
	VarUpdate = "update"
)

// Filter is a compiled expression. Safe for concurrent use.
type Filter struct {
	source  string
	program cel.Program
}

// Compile parses and type-checks expr. The expression must produce a
// bool.
func Compile(expr string) (*Filter, error) {
	env, err := cel.NewEnv(
		cel.Variable(VarKind, cel.StringType),
		cel.Variable(VarChatID, cel.IntType),
		cel.Variable(VarText, cel.StringType),
		cel.Variable(VarUpdate, cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("filter: cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("filter: compiling %q: %w", expr, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("filter: %q produces %s, want bool", expr, ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("filter: cel program: %w", err)
	}

	return &Filter{source: expr, program: program}, nil
}

// String returns the expression source.
func (f *Filter) String() string { return f.source }

// Match evaluates the filter. Missing variables, missing map keys and
// other evaluation errors yield false.
func (f *Filter) Match(attrs map[string]any) bool {
	out, _, err := f.program.Eval(attrs)
	if err != nil {
		return false
	}
	if out.Type() != types.BoolType {
		return false
	}
	matched, ok := out.Value().(bool)
	return ok && matched
}
