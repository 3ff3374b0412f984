package grading

import (
	"strconv"
	"strings"
)

// Submission is what a grader sends for an item, before parsing.
type Submission struct {
	Grade               string
	Feedback            string
	Outcomes            map[string]string
	VisibleToStudents   bool
	RequireSecondGrader bool
	Publish             bool
	Draft               bool
}

// IsEmpty reports whether the submission carries no grade, feedback or outcome value.
func (s Submission) IsEmpty() bool {
	if strings.TrimSpace(s.Grade) != "" || strings.TrimSpace(s.Feedback) != "" {
		return false
	}
	for _, value := range s.Outcomes {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}

// Parsed is a submission whose values have been checked against the definition.
type Parsed struct {
	Grade    *float64
	Outcomes map[string]float64
}

// ParseSubmission converts and checks the submitted values. An empty grade is accepted and
// left unset. Outcome ids the definition does not know are dropped when the definition lists
// outcomes.
func ParseSubmission(def Definition, grader string, kind Kind, sub Submission) (Parsed, error) {
	key := ValidationKey(grader, kind)
	var errs ValidationErrors
	parsed := Parsed{}

	if raw := strings.TrimSpace(sub.Grade); raw != "" {
		value, err := parseNonNegative(raw)
		switch {
		case err != nil:
			errs = append(errs, &ValidationError{Key: key, Field: "grade", Value: raw, Message: MsgInvalidGrade})
		case def.GradeRange.Valid() && !def.GradeRange.Contains(value):
			errs = append(errs, &ValidationError{Key: key, Field: "grade", Value: raw, Message: MsgGradeOutOfRange})
		default:
			parsed.Grade = &value
		}
	}

	specs := make(map[string]Outcome, len(def.Outcomes))
	for _, outcome := range def.Outcomes {
		specs[outcome.ID] = outcome
	}
	for id, rawValue := range sub.Outcomes {
		raw := strings.TrimSpace(rawValue)
		if raw == "" {
			continue
		}
		spec, known := specs[id]
		if len(specs) > 0 && !known {
			continue
		}
		field := "outcomes." + id
		value, err := parseNonNegative(raw)
		if err != nil {
			errs = append(errs, &ValidationError{Key: key, Field: field, Value: raw, Message: MsgInvalidOutcome})
			continue
		}
		if known && spec.Range.Valid() && !spec.Range.Contains(value) {
			errs = append(errs, &ValidationError{Key: key, Field: field, Value: raw, Message: MsgGradeOutOfRange})
			continue
		}
		if parsed.Outcomes == nil {
			parsed.Outcomes = make(map[string]float64)
		}
		parsed.Outcomes[id] = value
	}

	if len(errs) > 0 {
		return Parsed{}, errs.sorted()
	}
	return parsed, nil
}

func parseNonNegative(raw string) (float64, error) {
	value, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return 0, err
	}
	if value < 0 || value != value {
		return 0, strconv.ErrRange
	}
	return value, nil
}
