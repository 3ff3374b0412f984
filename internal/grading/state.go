package grading

// Notice explains why a viewer is limited, or what the viewer should know about an item.
type Notice string

const (
	NoticeNone                 Notice = ""
	NoticeGradingDisabled      Notice = "grading_disabled"
	NoticeFinalCompleted       Notice = "final_completed"
	NoticeNotSecondGrader      Notice = "not_second_grader"
	NoticeNoSecondRequested    Notice = "no_second_requested"
	NoticeOnlyPrimaryPublishes Notice = "only_primary_publishes"
	NoticeFinalNotDecided      Notice = "final_not_decided"
	NoticeNeedsRegrade         Notice = "needs_regrade"
	NoticeRestoredFromDraft    Notice = "restored_from_draft"
)

// State is the engine's decision for one viewer looking at one item.
type State struct {
	Intent     Intent
	CanGrade   bool
	CanPublish bool
	IsPrimary  bool
	Blind      bool

	Notice Notice
	// NoticeSubject is the grader the notice refers to, usually the primary grader.
	NoticeSubject string
	// Notes holds secondary notices shown alongside the main one.
	Notes []Notice

	Visible  []Record
	First    *Record
	Current  *Record
	Previous *Record
	Final    *Record

	Proposal *Proposal
}

// ReadOnly reports whether the viewer may not submit anything.
func (s State) ReadOnly() bool {
	return !s.CanGrade
}

// PublishedGrade returns the grade of the Final record, if there is one.
func (s State) PublishedGrade() *float64 {
	if s.Final == nil {
		return nil
	}
	return s.Final.Grade
}

type scan struct {
	sorted    []Record
	submitted []Record
	first     *Record
	current   *Record
	previous  *Record
	final     *Record
}

// scanRecords walks the submitted records in submission order and picks the anchors the rules
// need. Drafts never take part in the ordering. The viewer's own draft stands in for current
// and stays visible to its author; drafts of other graders are ignored.
func scanRecords(records []Record, viewerID string) scan {
	submitted := make([]Record, 0, len(records))
	var draft *Record
	for _, record := range records {
		if !record.Draft {
			submitted = append(submitted, record)
			continue
		}
		if record.Grader == viewerID && viewerID != "" {
			own := record
			draft = &own
		}
	}

	s := scan{submitted: SortRecords(submitted)}
	currentIdx := -1
	for i := range s.submitted {
		record := &s.submitted[i]
		if i == 0 {
			s.first = record
		}
		if record.Grader == viewerID && viewerID != "" {
			currentIdx = i
			s.current = record
		}
		if record.IsFinal() {
			s.final = record
		}
	}

	switch {
	case currentIdx > 0:
		s.previous = &s.submitted[currentIdx-1]
	case currentIdx < 0 && len(s.submitted) > 0:
		s.previous = &s.submitted[len(s.submitted)-1]
	}

	s.sorted = s.submitted
	if draft != nil && s.current == nil {
		s.sorted = append(append(make([]Record, 0, len(s.submitted)+1), s.submitted...), *draft)
		s.current = &s.sorted[len(s.sorted)-1]
	}
	return s
}

// proposalPool picks the records a proposal is computed from. Last takes the latest submission
// by another grader. The other methods reduce over every submitted record, the viewer's own
// included. Blind viewers only draw on their own record.
func proposalPool(def Definition, submitted []Record, viewerID string, blind bool) []Record {
	pool := make([]Record, 0, len(submitted))
	for _, record := range submitted {
		own := record.Grader == viewerID
		switch {
		case blind && !own:
		case def.Method == MethodLast && own:
		default:
			pool = append(pool, record)
		}
	}
	return pool
}

// Evaluate decides what viewer may see and do for an item given its records.
func Evaluate(def Definition, item ItemState, records []Record, viewer Viewer, intent Intent) State {
	if intent == IntentEdit && !viewer.Has(CapGrade) && !viewer.Has(CapManage) {
		intent = IntentReview
	}

	sc := scanRecords(records, viewer.ID)
	state := State{
		Intent:   intent,
		First:    sc.first,
		Current:  sc.current,
		Previous: sc.previous,
		Final:    sc.final,
	}

	switch intent {
	case IntentStudent:
		return studentState(def, item, sc, state)
	case IntentReview:
		state.Visible = sc.sorted
		if sc.final == nil {
			state.Notice = NoticeFinalNotDecided
		}
		return state
	}

	state.Visible = sc.sorted
	if sc.first != nil {
		state.NoticeSubject = sc.first.Grader
	}

	switch {
	case item.Locked:
		state.Notice = NoticeGradingDisabled
	case sc.first == nil || sc.first.Grader == viewer.ID:
		state.CanGrade = true
		state.CanPublish = true
		state.IsPrimary = true
	case sc.final != nil && sc.final.Grader != viewer.ID:
		state.Notice = NoticeFinalCompleted
	case sc.final != nil:
		state.CanGrade = true
		state.CanPublish = true
	case sc.current != nil && !sc.current.Draft:
		state.CanGrade = true
		state.Notice = NoticeOnlyPrimaryPublishes
	case sc.previous != nil && sc.previous.RequireSecondGrader && def.IsSecondaryGrader(viewer.ID):
		state.CanGrade = true
		state.Notice = NoticeOnlyPrimaryPublishes
	case sc.previous != nil && sc.previous.RequireSecondGrader:
		state.Notice = NoticeNotSecondGrader
	default:
		state.Notice = NoticeNoSecondRequested
	}

	if def.BlindMarking && sc.final == nil && sc.first != nil && sc.first.Grader != viewer.ID {
		state.Blind = true
		state.Visible = ownRecords(sc.sorted, viewer.ID)
	}

	if sc.current != nil && sc.current.Draft && state.CanGrade {
		state.Notes = append(state.Notes, NoticeRestoredFromDraft)
	}
	if item.NeedsRegrade {
		state.Notes = append(state.Notes, NoticeNeedsRegrade)
	}

	if state.CanGrade {
		proposal := Propose(def, proposalPool(def, sc.submitted, viewer.ID, state.Blind))
		state.Proposal = &proposal
	}
	return state
}

func ownRecords(records []Record, viewerID string) []Record {
	own := make([]Record, 0, 1)
	for _, record := range records {
		if record.Grader == viewerID || record.IsFinal() {
			own = append(own, record)
		}
	}
	return own
}

// studentState exposes only what the graded person may see: nothing before publication, and
// after it the feedback of records that are visible to students. Intermediate grades and
// outcome values are withheld.
func studentState(def Definition, item ItemState, sc scan, state State) State {
	state.Current = nil
	state.Previous = nil
	if sc.first != nil {
		state.NoticeSubject = sc.first.Grader
	}
	if sc.final == nil {
		state.Final = nil
		state.Notice = NoticeFinalNotDecided
		return state
	}
	if item.NeedsRegrade {
		state.Final = nil
		state.Notice = NoticeNeedsRegrade
		return state
	}

	visible := make([]Record, 0, len(sc.sorted))
	for _, record := range sc.sorted {
		if !def.ShowIntermediaryToStudents || !record.VisibleToStudents {
			continue
		}
		shown := Record{
			Grader:            record.Grader,
			Feedback:          record.Feedback,
			Kind:              record.Kind,
			SubmittedAt:       record.SubmittedAt,
			VisibleToStudents: true,
		}
		if record.IsFinal() {
			shown.Grade = record.Grade
			shown.Outcomes = record.Outcomes
		}
		visible = append(visible, shown)
	}
	state.Visible = visible
	return state
}
