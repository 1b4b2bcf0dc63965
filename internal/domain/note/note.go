package note

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/domain/visit"
)

// Placeholders shown instead of an empty clinical field.
const (
	NoSubjective     = "No subjective data"
	NoObjective      = "No objective data"
	NoAssessment     = "No assessment"
	NoPlan           = "No plan"
	NoChiefComplaint = "Not specified"
)

// Demographics holds the flattened patient demographics of one visit. A nil
// field was absent from the visit record.
type Demographics struct {
	Age        *string `json:"age,omitempty"`
	Gender     *string `json:"gender,omitempty"`
	Occupation *string `json:"occupation,omitempty"`
}

func (d Demographics) clone() Demographics {
	return Demographics{
		Age:        clonePtr(d.Age),
		Gender:     clonePtr(d.Gender),
		Occupation: clonePtr(d.Occupation),
	}
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Note is the canonical, display-ready form of one visit.
//
// ID, VisitID, PatientKey, PatientMRN, Date and Transcript never change after
// Normalize; the remaining fields are editable through a Draft.
type Note struct {
	ID             string       `json:"id"`
	VisitID        string       `json:"visit_id"`
	PatientKey     string       `json:"patient_key"`
	PatientName    string       `json:"patient_name"`
	PatientMRN     string       `json:"patient_mrn"`
	Demographics   Demographics `json:"demographics"`
	Date           string       `json:"date"`
	Transcript     string       `json:"transcript,omitempty"`
	Subjective     string       `json:"subjective"`
	Objective      string       `json:"objective"`
	Assessment     string       `json:"assessment"`
	Plan           string       `json:"plan"`
	ChiefComplaint string       `json:"chief_complaint"`
}

// Clone returns a deep copy; the copy shares no memory with n.
func (n Note) Clone() Note {
	c := n
	c.Demographics = n.Demographics.clone()
	return c
}

// Updatable reports whether the note can be written back to the store.
func (n Note) Updatable() bool {
	return n.VisitID != ""
}

// Time parses Date. Unparseable dates yield the zero time and sort last.
func (n Note) Time() time.Time {
	return ParseTimestamp(n.Date)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTimestamp accepts RFC 3339 as well as the offset-less ISO-8601 form
// produced by the store, which is read as UTC.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// MRN derives the display-only record number from a patient name: trimmed,
// whitespace runs collapsed to a single hyphen, uppercased.
func MRN(name string) string {
	return strings.ToUpper(strings.Join(strings.Fields(name), "-"))
}

// ID synthesizes the note identifier from the owning patient and the visit
// timestamp.
func ID(owner, timestamp string) string {
	return owner + "-" + timestamp
}

// Normalize reshapes one raw visit of the patient indexed as owner into a Note.
// Only a missing timestamp is an error; every other gap is filled in.
func Normalize(raw visit.RawVisit, owner string) (Note, error) {
	if strings.TrimSpace(raw.Timestamp) == "" {
		return Note{}, ErrMissingTimestamp
	}

	pd := raw.PatientData
	if pd == nil {
		pd = &visit.PatientData{}
	}
	info := pd.PersonalInfo
	if info == nil {
		info = &visit.PersonalInfo{}
	}
	soap := raw.SOAPNote
	if soap == nil {
		soap = &visit.SOAPNote{}
	}

	name := pd.PatientName.Or(info.FullName.Or(owner))

	return Note{
		ID:          ID(owner, raw.Timestamp),
		VisitID:     raw.VisitID.Or(""),
		PatientKey:  owner,
		PatientName: name,
		PatientMRN:  MRN(owner),
		Demographics: Demographics{
			Age:        firstSet(pd.Age, info.Age),
			Gender:     firstSet(pd.Gender, info.Gender),
			Occupation: firstSet(pd.Occupation, info.Occupation),
		},
		Date:           raw.Timestamp,
		Transcript:     raw.Transcription.Or(""),
		Subjective:     soap.Subjective.Or(NoSubjective),
		Objective:      soap.Objective.Or(NoObjective),
		Assessment:     soap.Assessment.Or(NoAssessment),
		Plan:           soap.Plan.Or(NoPlan),
		ChiefComplaint: pd.ChiefComplaint.Or(NoChiefComplaint),
	}, nil
}

// firstSet applies the precedence rule: the top-level value wins over the
// legacy personal_info value.
func firstSet(top, nested visit.Scalar) *string {
	if top.Set {
		return top.Ptr()
	}
	return nested.Ptr()
}

// SortByDateDesc orders notes most recent first. Equal timestamps keep no
// particular order.
func SortByDateDesc(notes []Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].Time().After(notes[j].Time())
	})
}

// DisambiguateIDs suffixes repeated ids with "#2", "#3", ... so that a
// patient with two visits at the same timestamp still yields distinct notes.
func DisambiguateIDs(notes []Note) {
	seen := make(map[string]int, len(notes))
	for i := range notes {
		id := notes[i].ID
		seen[id]++
		if n := seen[id]; n > 1 {
			notes[i].ID = id + "#" + strconv.Itoa(n)
		}
	}
}
