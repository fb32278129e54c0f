// Package eval filters layout trees with compiled row expressions.
//
// An expression sees one row at a time: record fields by name, the whole
// row as `_`. Identifiers that resolve to nothing are nil, so expressions
// stay total over heterogeneous rows.
package eval

import (
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/ragged-format/go-ragged/debug"
	"github.com/ragged-format/go-ragged/layout"
	"github.com/ragged-format/go-ragged/slicing"
)

// ErrNotBool: a filter expression produced something other than a boolean.
var ErrNotBool = errors.New("expression did not yield a boolean")

// Program is a compiled row expression, reusable across arrays.
type Program struct {
	src string
	prg *vm.Program
}

func Compile(src string) (*Program, error) {
	prg, err := expr.Compile(src, exprOpts()...)
	if err != nil {
		return nil, err
	}
	return &Program{src: src, prg: prg}, nil
}

func exprOpts() []expr.Option {
	return []expr.Option{
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
	}
}

func (p *Program) Source() string { return p.src }

// Where keeps the rows the expression is true for. A missing row runs
// with every name nil and is dropped unless the expression handles nil
// itself; evaluation errors on missing rows drop the row, on present
// rows they propagate.
func Where(c layout.Content, src string) (layout.Content, error) {
	p, err := Compile(src)
	if err != nil {
		return nil, err
	}
	return p.Where(c)
}

func (p *Program) Where(c layout.Content) (layout.Content, error) {
	if !c.Backend().KnownData() {
		return nil, fmt.Errorf("%w: cannot filter without data", layout.ErrIncompatibleMode)
	}
	n, known := c.Length().Known()
	if !known {
		return nil, fmt.Errorf("%w: cannot filter an array of unknown length", layout.ErrIncompatibleMode)
	}
	if debug.Eval() {
		debug.Logf("where %q over %d rows\n", p.src, n)
	}
	sel := make([]bool, n)
	for i := int64(0); i < n; i++ {
		row, err := c.GetItemAt(i)
		if err != nil {
			return nil, err
		}
		env, missing, err := rowEnv(row)
		if err != nil {
			return nil, err
		}
		res, err := expr.Run(p.prg, env)
		if err != nil {
			if missing {
				continue
			}
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		b, ok := res.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: row %d yielded %T", ErrNotBool, i, res)
		}
		sel[i] = b
	}
	out, err := slicing.Slice(c, sel)
	if err != nil {
		return nil, err
	}
	filtered, ok := out.(layout.Content)
	if !ok {
		return nil, fmt.Errorf("%w: mask selection yielded %T", layout.ErrStructuralType, out)
	}
	return filtered, nil
}

// rowEnv materializes one row into an expression environment. The second
// result marks a missing row.
func rowEnv(row any) (map[string]any, bool, error) {
	env := map[string]any{"_": nil}
	switch v := row.(type) {
	case nil:
		return env, true, nil
	case *layout.RecordRow:
		cell, err := v.ToList()
		if err != nil {
			return nil, false, err
		}
		env["_"] = cell
		if fields, ok := cell.(map[string]any); ok {
			for name, val := range fields {
				env[name] = val
			}
		}
		return env, false, nil
	case layout.Content:
		cell, err := v.ToList()
		if err != nil {
			return nil, false, err
		}
		env["_"] = cell
		return env, false, nil
	default:
		env["_"] = v
		return env, false, nil
	}
}
