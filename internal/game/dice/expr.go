package dice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Expression is a parsed "NdS+M" dice expression.
type Expression struct {
	Raw      string
	Count    int
	Sides    int
	Modifier int
}

var exprPattern = regexp.MustCompile(`^(\d*)d(\d+)([+-]\d+)?$`)

// Parse parses expressions of the form "d20", "2d6", "1d20+3" and "3d4-1".
//
// Postcondition: Count >= 1 and Sides >= 2 on success, or a descriptive error.
func Parse(expr string) (Expression, error) {
	s := strings.ToLower(strings.ReplaceAll(expr, " ", ""))
	m := exprPattern.FindStringSubmatch(s)
	if m == nil {
		return Expression{}, fmt.Errorf("dice: malformed expression %q", expr)
	}

	e := Expression{Raw: expr, Count: 1}
	if m[1] != "" {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q", expr)
		}
		e.Count = n
	}
	sides, err := strconv.Atoi(m[2])
	if err != nil || sides < 2 {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: must be >= 2", expr)
	}
	e.Sides = sides
	if m[3] != "" {
		mod, err := strconv.Atoi(m[3])
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid modifier in %q: %w", expr, err)
		}
		e.Modifier = mod
	}
	return e, nil
}

// MustParse parses expr and panics on error. Useful for package-level values.
func MustParse(expr string) Expression {
	e, err := Parse(expr)
	if err != nil {
		panic("dice: MustParse failed: " + err.Error())
	}
	return e
}

// Result is the audit trail of one evaluated expression.
//
// Postcondition: Total() == sum(Faces) + Modifier.
type Result struct {
	Expression string
	Faces      []int
	Modifier   int
}

// Total sums the faces and the modifier.
func (r Result) Total() int {
	total := r.Modifier
	for _, f := range r.Faces {
		total += f
	}
	return total
}

// String renders e.g. "2d6+3 [4 5] +3 = 12".
func (r Result) String() string {
	return fmt.Sprintf("%s %v %+d = %d", r.Expression, r.Faces, r.Modifier, r.Total())
}

// Roll evaluates e against src.
//
// Precondition: e came from Parse; src non-nil.
// Postcondition: len(Faces) == e.Count and every face is in [1, e.Sides].
func (e Expression) Roll(src Source) Result {
	faces := make([]int, e.Count)
	for i := range faces {
		faces[i] = src.Intn(e.Sides) + 1
	}
	return Result{Expression: e.Raw, Faces: faces, Modifier: e.Modifier}
}
