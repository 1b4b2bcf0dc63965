package note

// Phase names the edit state of a note list.
//
// State transitions:
//
//	viewing → editing            (Begin)
//	editing → viewing            (Cancel)
//	editing → saving             (StartSave)
//	saving  → viewing            (CompleteSave)
//	saving  → editing            (FailSave, draft retained)
type Phase string

const (
	PhaseViewing Phase = "viewing"
	PhaseEditing Phase = "editing"
	PhaseSaving  Phase = "saving"
)

// State is one of Viewing, Editing or Saving. Only Editing and Saving carry a
// draft, so a save without a draft cannot be represented.
type State interface {
	Phase() Phase
}

type Viewing struct{}

type Editing struct {
	Original Note
	Draft    Draft
}

type Saving struct {
	Original Note
	Draft    Draft
}

func (Viewing) Phase() Phase { return PhaseViewing }
func (Editing) Phase() Phase { return PhaseEditing }
func (Saving) Phase() Phase  { return PhaseSaving }

var transitions = map[Phase][]Phase{
	PhaseViewing: {PhaseEditing},
	PhaseEditing: {PhaseViewing, PhaseSaving},
	PhaseSaving:  {PhaseViewing, PhaseEditing},
}

func canTransition(from, to Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// Editor tracks the single open draft of a note list. It is not safe for
// concurrent use.
type Editor struct {
	state State
}

func NewEditor() *Editor {
	return &Editor{state: Viewing{}}
}

func (e *Editor) State() State {
	return e.state
}

// Draft returns the open draft, if any.
func (e *Editor) Draft() (Draft, bool) {
	switch s := e.state.(type) {
	case Editing:
		return s.Draft, true
	case Saving:
		return s.Draft, true
	}
	return Draft{}, false
}

// Begin opens a draft of n. An open draft must be cancelled or committed first.
func (e *Editor) Begin(n Note) (Draft, error) {
	if !canTransition(e.state.Phase(), PhaseEditing) {
		return Draft{}, e.busy()
	}
	d := BeginEdit(n)
	e.state = Editing{Original: n.Clone(), Draft: d}
	return d, nil
}

// Update replaces the open draft with a copy that has field set to value.
func (e *Editor) Update(field Field, value string) (Draft, error) {
	s, ok := e.state.(Editing)
	if !ok {
		return Draft{}, e.notEditing()
	}
	next, err := s.Draft.With(field, value)
	if err != nil {
		return s.Draft, err
	}
	s.Draft = next
	e.state = s
	return next, nil
}

// Cancel discards the open draft.
func (e *Editor) Cancel() error {
	if _, ok := e.state.(Editing); !ok {
		return e.notEditing()
	}
	e.state = Viewing{}
	return nil
}

// StartSave moves the open draft into Saving and returns it together with the
// note it was begun from. A draft without a visit ID stays in Editing.
func (e *Editor) StartSave() (Draft, Note, error) {
	s, ok := e.state.(Editing)
	if !ok {
		return Draft{}, Note{}, e.notEditing()
	}
	if !s.Draft.Updatable() {
		return s.Draft, s.Original, ErrMissingVisitID
	}
	e.state = Saving(s)
	return s.Draft, s.Original, nil
}

// CompleteSave closes a successful save and returns the committed draft.
func (e *Editor) CompleteSave() (Draft, error) {
	s, ok := e.state.(Saving)
	if !ok {
		return Draft{}, ErrInvalidTransition
	}
	e.state = Viewing{}
	return s.Draft, nil
}

// FailSave returns a failed save to Editing so the draft can be retried.
func (e *Editor) FailSave() error {
	s, ok := e.state.(Saving)
	if !ok {
		return ErrInvalidTransition
	}
	e.state = Editing(s)
	return nil
}

func (e *Editor) busy() error {
	if e.state.Phase() == PhaseSaving {
		return ErrSaveInProgress
	}
	return ErrEditInProgress
}

func (e *Editor) notEditing() error {
	if e.state.Phase() == PhaseSaving {
		return ErrSaveInProgress
	}
	return ErrNoDraft
}
