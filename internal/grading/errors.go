package grading

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNoFormula is reported when outcomes are configured but no formula turns them into a grade.
var ErrNoFormula = errors.New("there is no formula defined for calculating the grade from the outcomes")

// FormulaError describes why a formula could not produce a grade.
type FormulaError struct {
	Formula string
	Reason  string
}

func (e *FormulaError) Error() string {
	return fmt.Sprintf("formula %q: %s", e.Formula, e.Reason)
}

func formulaErrorf(formula, format string, args ...any) error {
	return &FormulaError{Formula: formula, Reason: fmt.Sprintf(format, args...)}
}

// Validation messages shown next to the offending field.
const (
	MsgInvalidGrade    = "Invalid grade"
	MsgGradeOutOfRange = "Grade is not in the allowed range"
	MsgInvalidOutcome  = "Invalid outcome value"
)

// ValidationError is a rejected field of a submission. Key identifies the grader and kind the
// submission was made as.
type ValidationError struct {
	Key     string
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Key, e.Field, e.Message)
}

// ValidationErrors collects every rejected field of one submission.
type ValidationErrors []*ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, err := range v {
		parts = append(parts, err.Error())
	}
	return strings.Join(parts, "; ")
}

// ByKey groups messages by validation key and field.
func (v ValidationErrors) ByKey() map[string]map[string]string {
	grouped := make(map[string]map[string]string)
	for _, err := range v {
		fields, ok := grouped[err.Key]
		if !ok {
			fields = make(map[string]string)
			grouped[err.Key] = fields
		}
		fields[err.Field] = err.Message
	}
	return grouped
}

func (v ValidationErrors) sorted() ValidationErrors {
	sort.SliceStable(v, func(i, j int) bool {
		return v[i].Field < v[j].Field
	})
	return v
}

// ValidationKey identifies a grader's submission of a given kind.
func ValidationKey(grader string, kind Kind) string {
	return grader + ":" + kind.String()
}
