package grading

import (
	"errors"
	"math"
	"sort"
)

// Proposal holds the advisory default values offered to the next grader.
type Proposal struct {
	Grade    *float64
	Outcomes map[string]float64
	// FormulaGrade is the grade derived from the proposed outcomes, when a formula is set.
	FormulaGrade *float64
	FormulaErr   error
	Warning      error
}

// AggregateGrades reduces prior grade values with the given method. Average rounds half away
// from zero to one decimal place.
func AggregateGrades(method Method, values []float64) *float64 {
	return aggregate(method, values, func(mean float64) float64 {
		return math.Round(mean*10) / 10
	})
}

// AggregateOutcomes reduces prior outcome values with the given method. Average is floored to
// a whole number, unlike AggregateGrades; existing gradebooks depend on that.
func AggregateOutcomes(method Method, values []float64) *float64 {
	return aggregate(method, values, math.Floor)
}

func aggregate(method Method, values []float64, roundMean func(float64) float64) *float64 {
	if len(values) == 0 {
		return nil
	}

	var result float64
	switch method {
	case MethodMin:
		result = values[0]
		for _, v := range values[1:] {
			result = math.Min(result, v)
		}
	case MethodMax:
		result = values[0]
		for _, v := range values[1:] {
			result = math.Max(result, v)
		}
	case MethodAverage:
		var sum float64
		for _, v := range values {
			sum += v
		}
		result = roundMean(sum / float64(len(values)))
	default:
		result = values[len(values)-1]
	}
	return &result
}

// Propose computes default values for a new record from the given pool of submitted records.
func Propose(def Definition, priors []Record) Proposal {
	grades := make([]float64, 0, len(priors))
	for _, record := range priors {
		if record.Grade != nil {
			grades = append(grades, *record.Grade)
		}
	}

	proposal := Proposal{Grade: AggregateGrades(def.Method, grades)}

	for _, key := range outcomeKeys(def, priors) {
		values := make([]float64, 0, len(priors))
		for _, record := range priors {
			if v, ok := record.Outcomes[key]; ok {
				values = append(values, v)
			}
		}
		if v := AggregateOutcomes(def.Method, values); v != nil {
			if proposal.Outcomes == nil {
				proposal.Outcomes = make(map[string]float64)
			}
			proposal.Outcomes[key] = *v
		}
	}

	if len(def.Outcomes) == 0 {
		return proposal
	}
	if def.Formula == "" {
		proposal.Warning = ErrNoFormula
		return proposal
	}
	if len(proposal.Outcomes) == 0 {
		return proposal
	}

	grade, err := ComputeGrade(def, proposal.Outcomes)
	if err != nil {
		proposal.FormulaErr = err
		return proposal
	}
	proposal.FormulaGrade = &grade
	return proposal
}

// ComputeGrade runs the definition's formula over outcome values and maps the result onto the
// definition's scale.
func ComputeGrade(def Definition, outcomes map[string]float64) (float64, error) {
	if def.Formula == "" {
		return 0, ErrNoFormula
	}
	grade, err := EvaluateFormula(def.Formula, outcomes, def.Outcomes, def.GradeRange)
	if err != nil {
		return 0, err
	}
	return SnapToScale(grade, def.Scale), nil
}

func outcomeKeys(def Definition, priors []Record) []string {
	if len(def.Outcomes) > 0 {
		return def.OutcomeIDs()
	}
	seen := make(map[string]struct{})
	keys := make([]string, 0)
	for _, record := range priors {
		for key := range record.Outcomes {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// SnapToScale maps a continuous value onto the nearest of the bracketing scale steps. Ties go
// to the lower step. Values outside the scale clamp to its ends. An empty scale leaves the
// value untouched.
func SnapToScale(value float64, scale []float64) float64 {
	if len(scale) == 0 {
		return value
	}
	steps := append([]float64(nil), scale...)
	sort.Float64s(steps)

	if value <= steps[0] {
		return steps[0]
	}
	last := steps[len(steps)-1]
	if value >= last {
		return last
	}

	idx := sort.SearchFloat64s(steps, value)
	if steps[idx] == value {
		return value
	}
	lower, upper := steps[idx-1], steps[idx]
	if value-lower <= upper-value {
		return lower
	}
	return upper
}

// IsFormulaError reports whether err came from formula evaluation.
func IsFormulaError(err error) bool {
	var formulaErr *FormulaError
	return errors.As(err, &formulaErr)
}
