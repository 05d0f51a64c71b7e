// Package filter translates AIP-160 invoice filters into SQL conditions.
package filter

import (
	"fmt"
	"strings"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// Condition is a SQL WHERE fragment with positional parameters.
type Condition struct {
	Clause string
	Params []any
}

// Empty reports whether c matches everything.
func (c Condition) Empty() bool {
	return c.Clause == ""
}

// columns maps filter fields to invoice columns.
var columns = map[string]string{
	"status":      "status",
	"customer_id": "customer_id",
	"currency":    "currency",
	"number":      "number",
	"issue_date":  "issue_date",
	"due_date":    "due_date",
	"total_minor": "total_minor",
}

// Declarations returns the identifiers invoice filters may use.
func Declarations() (*filtering.Declarations, error) {
	return filtering.NewDeclarations(
		filtering.DeclareStandardFunctions(),
		filtering.DeclareIdent("status", filtering.TypeString),
		filtering.DeclareIdent("customer_id", filtering.TypeString),
		filtering.DeclareIdent("currency", filtering.TypeString),
		filtering.DeclareIdent("number", filtering.TypeString),
		filtering.DeclareIdent("issue_date", filtering.TypeString),
		filtering.DeclareIdent("due_date", filtering.TypeString),
		filtering.DeclareIdent("total_minor", filtering.TypeInt),
	)
}

type request string

func (r request) GetFilter() string { return string(r) }

// Parse parses an AIP-160 expression such as
// `status = "sent" AND due_date < "2026-10-01"`. A blank filter yields an
// empty condition.
func Parse(value string) (Condition, error) {
	if strings.TrimSpace(value) == "" {
		return Condition{}, nil
	}
	decls, err := Declarations()
	if err != nil {
		return Condition{}, fmt.Errorf("create declarations: %w", err)
	}
	parsed, err := filtering.ParseFilter(request(value), decls)
	if err != nil {
		return Condition{}, fmt.Errorf("parse filter: %w", err)
	}
	if parsed.CheckedExpr == nil {
		return Condition{}, nil
	}
	return translate(parsed.CheckedExpr.GetExpr())
}

func translate(e *expr.Expr) (Condition, error) {
	if e == nil {
		return Condition{}, nil
	}
	call, ok := e.GetExprKind().(*expr.Expr_CallExpr)
	if !ok {
		return Condition{}, fmt.Errorf("unsupported expression type: %T", e.GetExprKind())
	}
	args := call.CallExpr.GetArgs()
	switch fn := call.CallExpr.GetFunction(); fn {
	case filtering.FunctionAnd, filtering.FunctionFuzzyAnd:
		return join(args, "AND")
	case filtering.FunctionOr:
		return join(args, "OR")
	case filtering.FunctionNot:
		if len(args) != 1 {
			return Condition{}, fmt.Errorf("NOT requires 1 argument")
		}
		inner, err := translate(args[0])
		if err != nil {
			return Condition{}, err
		}
		return Condition{Clause: "NOT " + inner.Clause, Params: inner.Params}, nil
	case filtering.FunctionEquals, filtering.FunctionNotEquals,
		filtering.FunctionLessThan, filtering.FunctionLessEquals,
		filtering.FunctionGreaterThan, filtering.FunctionGreaterEquals:
		return compare(args, fn)
	default:
		return Condition{}, fmt.Errorf("unsupported function: %s", fn)
	}
}

func join(args []*expr.Expr, op string) (Condition, error) {
	if len(args) < 2 {
		return Condition{}, fmt.Errorf("%s requires at least 2 arguments", op)
	}
	clauses := make([]string, 0, len(args))
	var params []any
	for _, arg := range args {
		part, err := translate(arg)
		if err != nil {
			return Condition{}, err
		}
		clauses = append(clauses, part.Clause)
		params = append(params, part.Params...)
	}
	return Condition{Clause: "(" + strings.Join(clauses, " "+op+" ") + ")", Params: params}, nil
}

func compare(args []*expr.Expr, op string) (Condition, error) {
	if len(args) != 2 {
		return Condition{}, fmt.Errorf("comparison requires 2 arguments")
	}
	ident, ok := args[0].GetExprKind().(*expr.Expr_IdentExpr)
	if !ok {
		return Condition{}, fmt.Errorf("expected identifier, got %T", args[0].GetExprKind())
	}
	column, ok := columns[ident.IdentExpr.GetName()]
	if !ok {
		return Condition{}, fmt.Errorf("unknown field: %s", ident.IdentExpr.GetName())
	}
	value, err := constant(args[1])
	if err != nil {
		return Condition{}, err
	}
	return Condition{Clause: fmt.Sprintf("%s %s ?", column, op), Params: []any{value}}, nil
}

func constant(e *expr.Expr) (any, error) {
	c, ok := e.GetExprKind().(*expr.Expr_ConstExpr)
	if !ok {
		return nil, fmt.Errorf("expected constant, got %T", e.GetExprKind())
	}
	switch kind := c.ConstExpr.GetConstantKind().(type) {
	case *expr.Constant_StringValue:
		return kind.StringValue, nil
	case *expr.Constant_Int64Value:
		return kind.Int64Value, nil
	case *expr.Constant_Uint64Value:
		return int64(kind.Uint64Value), nil
	default:
		return nil, fmt.Errorf("unsupported constant type: %T", kind)
	}
}
