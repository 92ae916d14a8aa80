package utils

import (
	"fmt"
	"sort"
	"strings"

	"github.com/edisonguo/govaluate"
)

// BandExpressions holds the parsed MEASUREMENTS list. Plain band
// names parse into single-variable identity expressions so the
// downstream evaluation path is uniform.
type BandExpressions struct {
	ExprText    []string
	Expressions []*govaluate.EvaluableExpression
	ExprNames   []string
	VarList     []string
	ExprVarRef  [][]string
}

// ParseBandExpressions parses each MEASUREMENTS token, either a bare
// band name or a derived band of the form name=expression.
func ParseBandExpressions(bands []string) (*BandExpressions, error) {
	bandExpr := &BandExpressions{ExprText: bands}
	varFound := make(map[string]struct{})

	for _, token := range bands {
		exprText := token
		exprName := token
		if idx := strings.Index(token, "="); idx >= 0 {
			exprName = strings.TrimSpace(token[:idx])
			exprText = strings.TrimSpace(token[idx+1:])
			if len(exprName) == 0 || len(exprText) == 0 {
				return nil, fmt.Errorf("invalid expression '%s'", token)
			}
		}

		expr, err := govaluate.NewEvaluableExpression(exprText)
		if err != nil {
			return nil, err
		}

		bandExpr.Expressions = append(bandExpr.Expressions, expr)
		bandExpr.ExprNames = append(bandExpr.ExprNames, exprName)

		varRef := make([]string, 0)
		refFound := make(map[string]struct{})
		for _, exprToken := range expr.Tokens() {
			if exprToken.Kind != govaluate.VARIABLE {
				continue
			}
			varName, ok := exprToken.Value.(string)
			if !ok {
				return nil, fmt.Errorf("variable token '%v' is not a string", exprToken.Value)
			}
			if _, found := refFound[varName]; !found {
				refFound[varName] = struct{}{}
				varRef = append(varRef, varName)
			}
			if _, found := varFound[varName]; !found {
				varFound[varName] = struct{}{}
				bandExpr.VarList = append(bandExpr.VarList, varName)
			}
		}
		bandExpr.ExprVarRef = append(bandExpr.ExprVarRef, varRef)
	}

	sort.Strings(bandExpr.VarList)
	return bandExpr, nil
}
