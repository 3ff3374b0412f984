package grading

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func rangedDefinition() Definition {
	def := DefaultDefinition()
	def.GradeRange = Range{Min: 0, Max: 100}
	def.Outcomes = []Outcome{{ID: "1", Range: Range{Min: 0, Max: 4}}}
	return def
}

func TestParseSubmissionAcceptsEmptyGrade(t *testing.T) {
	parsed, err := ParseSubmission(rangedDefinition(), "alice", KindIntermediate, Submission{Feedback: "see notes"})

	require.NoError(t, err)
	require.Nil(t, parsed.Grade)
}

func TestParseSubmissionOutOfRangeIsKeyedByGraderAndKind(t *testing.T) {
	_, err := ParseSubmission(rangedDefinition(), "alice", KindFinal, Submission{Grade: "120"})

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs, 1)
	require.Equal(t, "alice:final", verrs[0].Key)
	require.Equal(t, MsgGradeOutOfRange, verrs[0].Message)
	require.Equal(t, map[string]map[string]string{"alice:final": {"grade": MsgGradeOutOfRange}}, verrs.ByKey())
}

func TestParseSubmissionInvalidValues(t *testing.T) {
	_, err := ParseSubmission(rangedDefinition(), "bob", KindIntermediate, Submission{
		Grade:    "abc",
		Outcomes: map[string]string{"1": "9", "unknown": "x"},
	})

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Equal(t, map[string]string{
		"grade":      MsgInvalidGrade,
		"outcomes.1": MsgGradeOutOfRange,
	}, verrs.ByKey()["bob:intermediate"])
}

func TestParseSubmissionRejectsNegativeGrade(t *testing.T) {
	def := DefaultDefinition()

	_, err := ParseSubmission(def, "bob", KindIntermediate, Submission{Grade: "-1"})

	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Equal(t, MsgInvalidGrade, verrs[0].Message)
}

func TestParseSubmissionParsesValues(t *testing.T) {
	parsed, err := ParseSubmission(rangedDefinition(), "alice", KindIntermediate, Submission{
		Grade:    " 72,5 ",
		Outcomes: map[string]string{"1": "3", "2": "1"},
	})

	require.NoError(t, err)
	require.Equal(t, 72.5, *parsed.Grade)
	require.Equal(t, map[string]float64{"1": 3}, parsed.Outcomes)
}

func TestSubmissionIsEmpty(t *testing.T) {
	require.True(t, Submission{}.IsEmpty())
	require.True(t, Submission{Grade: "  ", Outcomes: map[string]string{"1": ""}}.IsEmpty())
	require.False(t, Submission{Feedback: "ok"}.IsEmpty())
	require.False(t, Submission{Outcomes: map[string]string{"1": "2"}}.IsEmpty())
}
