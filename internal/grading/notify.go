package grading

// NoticeKind is the reason a grader is being notified.
type NoticeKind string

const (
	SecondGradingRequested NoticeKind = "second_grading_requested"
	SecondGradingCompleted NoticeKind = "second_grading_completed"
)

// Dispatch says who has to be told about a saved record.
type Dispatch struct {
	Kind       NoticeKind
	Recipients []string
	// Sender is the grader whose submission triggered the dispatch.
	Sender string
}

// PlanNotifications decides who hears about saved. prior is the submitter's own record as it
// was before the save, and first the primary record after it. Drafts never notify.
func PlanNotifications(def Definition, prior *Record, saved Record, first Record) *Dispatch {
	if saved.Draft {
		return nil
	}
	submitter := saved.Grader

	newRequest := prior == nil || !prior.RequireSecondGrader || prior.Kind != saved.Kind
	if newRequest && !saved.IsFinal() && saved.RequireSecondGrader {
		candidates := append([]string(nil), def.SecondaryGraders...)
		if first.Grader != submitter {
			candidates = append(candidates, first.Grader)
		}
		recipients := recipientsExcluding(candidates, submitter)
		if len(recipients) == 0 {
			return nil
		}
		return &Dispatch{Kind: SecondGradingRequested, Recipients: recipients, Sender: submitter}
	}

	if first.Grader != "" && first.Grader != submitter {
		return &Dispatch{Kind: SecondGradingCompleted, Recipients: []string{first.Grader}, Sender: submitter}
	}
	return nil
}

func recipientsExcluding(candidates []string, skip string) []string {
	seen := make(map[string]struct{}, len(candidates))
	recipients := make([]string, 0, len(candidates))
	for _, id := range candidates {
		if id == "" || id == skip {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		recipients = append(recipients, id)
	}
	return recipients
}
