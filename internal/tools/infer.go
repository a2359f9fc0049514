package tools

import (
	"regexp"
	"strings"

	"github.com/yuin/gopher-lua/ast"
	"github.com/yuin/gopher-lua/parse"

	"llm_proxy/internal/models"
)

// paramAnnotation matches "-- @param <name> <type>" lines. Lua is untyped,
// so source may annotate parameter types this way; anything unannotated is
// a string.
var paramAnnotation = regexp.MustCompile(`(?m)^\s*---?\s*@param\s+([A-Za-z_][A-Za-z0-9_]*)\s+([A-Za-z]+)`)

// InferParameters derives a tool's parameter list from its source text: the
// first function definition in the chunk supplies the argument names, each
// required, typed by its @param annotation or string by default. Source
// that fails to parse or defines no function yields no parameters.
func InferParameters(source string) []models.ToolParameter {
	chunk, err := parse.Parse(strings.NewReader(source), "tool")
	if err != nil {
		return nil
	}

	names := firstFunctionArgs(chunk)
	if len(names) == 0 {
		return nil
	}

	types := annotatedTypes(source)

	params := make([]models.ToolParameter, 0, len(names))
	for _, name := range names {
		paramType := "string"
		if t, ok := types[name]; ok {
			paramType = t
		}
		params = append(params, models.ToolParameter{
			Name:     name,
			Type:     paramType,
			Required: true,
		})
	}

	return params
}

// firstFunctionArgs walks the top-level statements for the first function
// definition, covering both "function f(...)" and "local function f(...)".
func firstFunctionArgs(chunk []ast.Stmt) []string {
	for _, stmt := range chunk {
		switch s := stmt.(type) {
		case *ast.FuncDefStmt:
			if s.Func != nil && s.Func.ParList != nil {
				return s.Func.ParList.Names
			}
		case *ast.LocalAssignStmt:
			for _, expr := range s.Exprs {
				if fn, ok := expr.(*ast.FunctionExpr); ok && fn.ParList != nil {
					return fn.ParList.Names
				}
			}
		}
	}
	return nil
}

func annotatedTypes(source string) map[string]string {
	types := make(map[string]string)
	for _, match := range paramAnnotation.FindAllStringSubmatch(source, -1) {
		types[match[1]] = normalizeType(strings.ToLower(match[2]))
	}
	return types
}
