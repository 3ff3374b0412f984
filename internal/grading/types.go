// Package grading holds the multi-grader decision logic: who may see and edit which grade
// record for an item, what the next grader is offered as default values, and who has to be
// told about a new submission. It has no storage or transport dependencies.
package grading

import (
	"sort"
	"time"
)

// NoGrade is the sentinel stored as the published grade of an item that has no grade.
const NoGrade = -1.0

// Kind tells whether a record has been published as the authoritative grade.
type Kind int

const (
	// KindIntermediate marks a record that has not been published.
	KindIntermediate Kind = 0
	// KindFinal marks the published record.
	KindFinal Kind = 1
)

// String returns the label used in logs, metrics and validation keys.
func (k Kind) String() string {
	if k == KindFinal {
		return "final"
	}
	return "intermediate"
}

// Method selects how default values for the next grader are derived from prior records.
type Method int

const (
	MethodLast    Method = 0
	MethodMin     Method = 1
	MethodMax     Method = 2
	MethodAverage Method = 3
)

// String returns the configuration name of the method.
func (m Method) String() string {
	switch m {
	case MethodMin:
		return "min"
	case MethodMax:
		return "max"
	case MethodAverage:
		return "average"
	default:
		return "last"
	}
}

// ParseMethod maps a configuration name back to a Method. Unknown names fall back to MethodLast.
func ParseMethod(name string) Method {
	switch name {
	case "min":
		return MethodMin
	case "max":
		return MethodMax
	case "average", "avg":
		return MethodAverage
	default:
		return MethodLast
	}
}

// Range is a closed numeric interval.
type Range struct {
	Min float64
	Max float64
}

// Valid reports whether the range can be used for scaling.
func (r Range) Valid() bool {
	return r.Max > r.Min
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Outcome describes one outcome dimension of an area.
type Outcome struct {
	ID    string
	Name  string
	Range Range
}

// Definition is the per-area configuration shared by every item graded with it.
type Definition struct {
	SecondaryGraders           []string
	Criteria                   string
	BlindMarking               bool
	ShowIntermediaryToStudents bool
	Method                     Method
	GradeRange                 Range
	Scale                      []float64
	Outcomes                   []Outcome
	Formula                    string
}

// DefaultDefinition returns the configuration used when an area has none stored.
func DefaultDefinition() Definition {
	return Definition{
		ShowIntermediaryToStudents: true,
		Method:                     MethodLast,
		GradeRange:                 Range{Min: 0, Max: 100},
	}
}

// IsSecondaryGrader reports whether grader is listed as a second grader.
func (d Definition) IsSecondaryGrader(grader string) bool {
	for _, id := range d.SecondaryGraders {
		if id != "" && id == grader {
			return true
		}
	}
	return false
}

// OutcomeIDs lists the configured outcome identifiers in definition order.
func (d Definition) OutcomeIDs() []string {
	ids := make([]string, 0, len(d.Outcomes))
	for _, outcome := range d.Outcomes {
		ids = append(ids, outcome.ID)
	}
	return ids
}

// Record is one grader's submission for one item.
type Record struct {
	Grader              string
	Grade               *float64
	Feedback            string
	Kind                Kind
	SubmittedAt         time.Time
	VisibleToStudents   bool
	RequireSecondGrader bool
	Draft               bool
	Outcomes            map[string]float64
}

// IsFinal reports whether the record is the published one.
func (r Record) IsFinal() bool {
	return r.Kind == KindFinal
}

// SortRecords orders records by submission time, oldest first. The sort is stable so
// records sharing a timestamp keep their storage order.
func SortRecords(records []Record) []Record {
	sorted := append([]Record(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SubmittedAt.Before(sorted[j].SubmittedAt)
	})
	return sorted
}

// ItemState carries the item-level flags that influence the engine.
type ItemState struct {
	Locked       bool
	NeedsRegrade bool
}

// Capability names a permission held by a viewer.
type Capability string

const (
	CapView       Capability = "grade:view"
	CapViewAll    Capability = "grade:viewall"
	CapGrade      Capability = "grade:edit"
	CapManage     Capability = "grade:manage"
	CapSiteConfig Capability = "site:config"
)

// Viewer is the user a decision is made for.
type Viewer struct {
	ID           string
	Capabilities []Capability
}

// Has reports whether the viewer holds the capability.
func (v Viewer) Has(capability Capability) bool {
	for _, c := range v.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// IsSiteAdmin reports whether the viewer may perform administrative wipes.
func (v Viewer) IsSiteAdmin() bool {
	return v.Has(CapSiteConfig)
}

// Intent is what the viewer is trying to do with the item.
type Intent int

const (
	IntentEdit Intent = iota
	IntentReview
	IntentStudent
)

// String returns the query value for the intent.
func (i Intent) String() string {
	switch i {
	case IntentReview:
		return "review"
	case IntentStudent:
		return "student"
	default:
		return "edit"
	}
}

// ResolveIntent picks the widest intent the viewer's capabilities allow, narrowed by the
// requested one. A request can never widen what the capabilities grant.
func ResolveIntent(viewer Viewer, requested string) Intent {
	allowed := IntentStudent
	switch {
	case viewer.Has(CapGrade) || viewer.Has(CapManage):
		allowed = IntentEdit
	case viewer.Has(CapViewAll):
		allowed = IntentReview
	}

	switch requested {
	case "student":
		return IntentStudent
	case "review":
		if allowed == IntentStudent {
			return IntentStudent
		}
		return IntentReview
	default:
		return allowed
	}
}
