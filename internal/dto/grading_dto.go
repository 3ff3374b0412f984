package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// GradeValue is a grade or outcome value sent either as a JSON number or as a string.
// Values are kept as text so malformed input reaches grade validation.
type GradeValue string

// UnmarshalJSON accepts numbers, strings and null.
func (g *GradeValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		*g = ""
		return nil
	case trimmed[0] == '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		*g = GradeValue(text)
		return nil
	default:
		var number json.Number
		if err := json.Unmarshal(trimmed, &number); err != nil {
			return fmt.Errorf("grade must be a number or string: %w", err)
		}
		*g = GradeValue(number.String())
		return nil
	}
}

// GradeValueOf formats a number as a GradeValue.
func GradeValueOf(v float64) GradeValue {
	return GradeValue(strconv.FormatFloat(v, 'f', -1, 64))
}

// GradeSubmissionRequest is the payload a grader submits for an item.
type GradeSubmissionRequest struct {
	Grade               GradeValue            `json:"grade"`
	Feedback            string                `json:"feedback" validate:"max=20000"`
	Outcomes            map[string]GradeValue `json:"outcomes" validate:"omitempty,max=64"`
	VisibleToStudents   *bool                 `json:"visible_to_students"`
	RequireSecondGrader bool                  `json:"require_second_grader"`
	Publish             bool                  `json:"publish"`
	Draft               bool                  `json:"draft"`
	GradeeID            string                `json:"gradee_id" validate:"omitempty,max=64"`
	ItemTitle           string                `json:"item_title" validate:"omitempty,max=255"`
}

// GradeRecordResponse serializes a grade record as the viewer may see it.
type GradeRecordResponse struct {
	GraderID            string             `json:"grader_id"`
	GraderName          string             `json:"grader_name"`
	Grade               *float64           `json:"grade"`
	Feedback            string             `json:"feedback"`
	Kind                string             `json:"kind"`
	VisibleToStudents   bool               `json:"visible_to_students"`
	RequireSecondGrader bool               `json:"require_second_grader"`
	Draft               bool               `json:"draft"`
	Outcomes            map[string]float64 `json:"outcomes,omitempty"`
	SubmittedAt         time.Time          `json:"submitted_at"`
	IsPrimary           bool               `json:"is_primary"`
}

// ProposalResponse carries advisory defaults for a new record.
type ProposalResponse struct {
	Grade        *float64           `json:"grade"`
	Outcomes     map[string]float64 `json:"outcomes,omitempty"`
	FormulaGrade *float64           `json:"formula_grade"`
	FormulaError string             `json:"formula_error,omitempty"`
	Warning      string             `json:"warning,omitempty"`
}

// NoticeResponse is an explanatory message for the viewer.
type NoticeResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GradingViewResponse is the engine decision for one viewer and item.
type GradingViewResponse struct {
	AreaID          string                `json:"area_id"`
	ItemID          string                `json:"item_id"`
	Intent          string                `json:"intent"`
	Status          string                `json:"status"`
	CanGrade        bool                  `json:"can_grade"`
	CanPublish      bool                  `json:"can_publish"`
	IsPrimary       bool                  `json:"is_primary"`
	BlindMarking    bool                  `json:"blind_marking"`
	PrimaryGraderID string                `json:"primary_grader_id,omitempty"`
	PublishedGrade  *float64              `json:"published_grade"`
	Notice          *NoticeResponse       `json:"notice,omitempty"`
	Notes           []NoticeResponse      `json:"notes,omitempty"`
	Criteria        string                `json:"criteria,omitempty"`
	Records         []GradeRecordResponse `json:"records"`
	Current         *GradeRecordResponse  `json:"current,omitempty"`
	Proposal        *ProposalResponse     `json:"proposal,omitempty"`
}

// GradeSubmissionResponse reports the outcome of a submission.
type GradeSubmissionResponse struct {
	Saved    bool                 `json:"saved"`
	Record   *GradeRecordResponse `json:"record,omitempty"`
	Notified []string             `json:"notified"`
	View     GradingViewResponse  `json:"view"`
}

// GradeWipeResponse reports an administrative wipe.
type GradeWipeResponse struct {
	Wiped   bool  `json:"wiped"`
	Deleted int64 `json:"deleted"`
}

// GradeCancelResponse reports a cancelled draft.
type GradeCancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// FormulaPreviewRequest evaluates a formula against outcome values. When Formula is empty the
// stored formula of the area is used.
type FormulaPreviewRequest struct {
	Formula  string                `json:"formula" validate:"max=2000"`
	Outcomes map[string]GradeValue `json:"outcomes" validate:"omitempty,max=64"`
}

// FormulaPreviewResponse shows the expanded expression and its result.
type FormulaPreviewResponse struct {
	Expression string   `json:"expression"`
	Grade      *float64 `json:"grade"`
	Error      string   `json:"error,omitempty"`
}
