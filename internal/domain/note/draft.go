package note

import "fmt"

// Field names a note field by its JSON name.
type Field string

const (
	FieldSubjective     Field = "subjective"
	FieldObjective      Field = "objective"
	FieldAssessment     Field = "assessment"
	FieldPlan           Field = "plan"
	FieldPatientName    Field = "patient_name"
	FieldChiefComplaint Field = "chief_complaint"
	FieldAge            Field = "age"
	FieldGender         Field = "gender"
	FieldOccupation     Field = "occupation"

	FieldID         Field = "id"
	FieldVisitID    Field = "visit_id"
	FieldPatientKey Field = "patient_key"
	FieldPatientMRN Field = "patient_mrn"
	FieldDate       Field = "date"
	FieldTranscript Field = "transcript"
)

// IsMutable reports whether the field may be changed through a Draft.
func (f Field) IsMutable() bool {
	switch f {
	case FieldSubjective, FieldObjective, FieldAssessment, FieldPlan,
		FieldPatientName, FieldChiefComplaint, FieldAge, FieldGender, FieldOccupation:
		return true
	}
	return false
}

func (f Field) isKnown() bool {
	if f.IsMutable() {
		return true
	}
	switch f {
	case FieldID, FieldVisitID, FieldPatientKey, FieldPatientMRN, FieldDate, FieldTranscript:
		return true
	}
	return false
}

// Draft is an uncommitted copy of a note. Drafts are values: With returns a
// new Draft and never touches the receiver or the note it was begun from.
type Draft struct {
	Note
}

// BeginEdit copies n into a fresh draft.
func BeginEdit(n Note) Draft {
	return Draft{Note: n.Clone()}
}

// With returns a copy of the draft with one field set. An empty value clears
// a demographic field.
func (d Draft) With(field Field, value string) (Draft, error) {
	if !field.isKnown() {
		return d, fmt.Errorf("%w: %q", ErrUnknownField, string(field))
	}
	if !field.IsMutable() {
		return d, fmt.Errorf("%w: %q", ErrImmutableField, string(field))
	}

	next := Draft{Note: d.Note.Clone()}
	switch field {
	case FieldSubjective:
		next.Subjective = value
	case FieldObjective:
		next.Objective = value
	case FieldAssessment:
		next.Assessment = value
	case FieldPlan:
		next.Plan = value
	case FieldPatientName:
		next.PatientName = value
	case FieldChiefComplaint:
		next.ChiefComplaint = value
	case FieldAge:
		next.Demographics.Age = optional(value)
	case FieldGender:
		next.Demographics.Gender = optional(value)
	case FieldOccupation:
		next.Demographics.Occupation = optional(value)
	}
	return next, nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// Changes lists the mutable fields whose value differs from the original note.
func (d Draft) Changes(original Note) []Field {
	var changed []Field
	for _, f := range mutableFields {
		if d.Value(f) != original.Value(f) {
			changed = append(changed, f)
		}
	}
	return changed
}

var mutableFields = []Field{
	FieldSubjective, FieldObjective, FieldAssessment, FieldPlan,
	FieldPatientName, FieldChiefComplaint,
	FieldAge, FieldGender, FieldOccupation,
}

// Value returns the current value of a mutable field; absent demographics
// read as "". Other fields read as "".
func (n Note) Value(f Field) string {
	switch f {
	case FieldSubjective:
		return n.Subjective
	case FieldObjective:
		return n.Objective
	case FieldAssessment:
		return n.Assessment
	case FieldPlan:
		return n.Plan
	case FieldPatientName:
		return n.PatientName
	case FieldChiefComplaint:
		return n.ChiefComplaint
	case FieldAge:
		return deref(n.Demographics.Age)
	case FieldGender:
		return deref(n.Demographics.Gender)
	case FieldOccupation:
		return deref(n.Demographics.Occupation)
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
