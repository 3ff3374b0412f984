package grading

import (
	"fmt"
	"strings"
)

var noticeTemplates = map[Notice]string{
	NoticeGradingDisabled:      "Grading is disabled for this item, it was either locked or overridden.",
	NoticeFinalCompleted:       "%s completed grading this item. You are not allowed to make changes.",
	NoticeNotSecondGrader:      "%s started grading this item and you are not in the list of second graders. You are not allowed to make changes.",
	NoticeNoSecondRequested:    "%s started grading this item and no further grading was requested.",
	NoticeOnlyPrimaryPublishes: "Only %s may change the final grade and notes.",
	NoticeFinalNotDecided:      "Final grade not yet published",
	NoticeNeedsRegrade:         "The multigraders definition was changed after this student had been graded. The student can not see the outcome until %s checks the published grade.",
	NoticeRestoredFromDraft:    "NOTE: The last attempt to grade this person was not saved properly so draft grades have been restored.",
}

// BlindMarkingExplained is shown to graders of areas with blind marking enabled.
const BlindMarkingExplained = "Blind marking is activated, secondary graders can not see previous grades, only the initial/primary grader can. However, when grade is published, everyone involved can see all grades."

// Message renders a notice. subject is the display name of the grader the notice refers to.
func Message(notice Notice, subject string) string {
	tmpl, ok := noticeTemplates[notice]
	if !ok {
		return ""
	}
	if subject == "" {
		subject = "Another grader"
	}
	if !strings.Contains(tmpl, "%s") {
		return tmpl
	}
	return fmt.Sprintf(tmpl, subject)
}

// NotificationText returns the subject and body for a dispatch. item names the graded item and
// sender is the display name of the grader who triggered it.
func NotificationText(kind NoticeKind, sender, item string) (subject, body string) {
	switch kind {
	case SecondGradingCompleted:
		return fmt.Sprintf("Second grading completed for %s", item),
			fmt.Sprintf("%s has completed second grading. Please take a look and decide the final grade.", sender)
	default:
		return fmt.Sprintf("Second grading required for %s", item),
			fmt.Sprintf("%s has requested second grading. Please take a moment to grade this item.", sender)
	}
}
