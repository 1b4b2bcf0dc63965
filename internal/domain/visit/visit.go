package visit

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Text is a free-text field as emitted by the AI extraction pipeline. Only a
// JSON string sets it; null, numbers, objects and arrays leave it unset.
type Text struct {
	Value string
	Set   bool
}

func NewText(s string) Text {
	return Text{Value: s, Set: true}
}

func (t *Text) UnmarshalJSON(b []byte) error {
	var s string
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '"' {
		*t = Text{}
		return nil
	}
	if err := json.Unmarshal(b, &s); err != nil {
		*t = Text{}
		return nil
	}
	*t = Text{Value: s, Set: true}
	return nil
}

func (t Text) MarshalJSON() ([]byte, error) {
	if !t.Set {
		return []byte("null"), nil
	}
	return json.Marshal(t.Value)
}

// Present reports whether the field holds non-blank text.
func (t Text) Present() bool {
	return t.Set && strings.TrimSpace(t.Value) != ""
}

// Or returns the text, or fallback when it is missing, blank or was not a string.
func (t Text) Or(fallback string) string {
	if t.Present() {
		return t.Value
	}
	return fallback
}

// Scalar is a demographic value that the backend may send as a string, number
// or boolean. Null, objects and arrays leave it unset.
type Scalar struct {
	Value string
	Set   bool
}

func NewScalar(s string) Scalar {
	return Scalar{Value: s, Set: true}
}

func (s *Scalar) UnmarshalJSON(b []byte) error {
	*s = Scalar{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case '"':
		var v string
		if err := json.Unmarshal(b, &v); err == nil {
			*s = Scalar{Value: v, Set: true}
		}
	case 't', 'f':
		var v bool
		if err := json.Unmarshal(b, &v); err == nil {
			*s = Scalar{Value: strconv.FormatBool(v), Set: true}
		}
	case 'n', '{', '[':
	default:
		var v json.Number
		if err := json.Unmarshal(b, &v); err == nil {
			*s = Scalar{Value: v.String(), Set: true}
		}
	}
	return nil
}

func (s Scalar) MarshalJSON() ([]byte, error) {
	if !s.Set {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

// Ptr returns nil for an unset value so callers can tell absence apart from
// an empty string.
func (s Scalar) Ptr() *string {
	if !s.Set {
		return nil
	}
	v := s.Value
	return &v
}

// PersonalInfo is the legacy nested shape of patient demographics.
type PersonalInfo struct {
	FullName   Text   `json:"full_name"`
	Age        Scalar `json:"age"`
	Gender     Scalar `json:"gender"`
	Occupation Scalar `json:"occupation"`
}

type PatientData struct {
	PatientName    Text          `json:"patient_name"`
	Age            Scalar        `json:"age"`
	Gender         Scalar        `json:"gender"`
	Occupation     Scalar        `json:"occupation"`
	ChiefComplaint Text          `json:"chief_complaint"`
	PersonalInfo   *PersonalInfo `json:"personal_info,omitempty"`
}

type SOAPNote struct {
	Subjective Text `json:"subjective"`
	Objective  Text `json:"objective"`
	Assessment Text `json:"assessment"`
	Plan       Text `json:"plan"`
}

// RawVisit is one visit record as returned by GET /patients/{name}/visits/.
// Its shape is owned by the backend.
type RawVisit struct {
	Timestamp     string       `json:"timestamp"`
	VisitID       Text         `json:"visit_id"`
	PatientData   *PatientData `json:"patient_data,omitempty"`
	SOAPNote      *SOAPNote    `json:"soap_note,omitempty"`
	Transcription Text         `json:"transcription"`
}

type Demographics struct {
	Age        Scalar `json:"age"`
	Gender     Scalar `json:"gender"`
	Occupation Scalar `json:"occupation"`
}

// PatientSummary is one entry of the patient index. The store has emitted
// both the visit_count/first_visit/last_visit and the
// total_visits/first_visit_date/last_visit_date spellings.
type PatientSummary struct {
	PatientName    string        `json:"patient_name"`
	TotalVisits    int           `json:"total_visits"`
	FirstVisitDate string        `json:"first_visit_date"`
	LastVisitDate  string        `json:"last_visit_date"`
	MRN            string        `json:"mrn,omitempty"`
	Demographics   *Demographics `json:"demographics,omitempty"`
}

func (p *PatientSummary) UnmarshalJSON(b []byte) error {
	type alias PatientSummary
	var raw struct {
		alias
		VisitCount *int   `json:"visit_count"`
		FirstVisit string `json:"first_visit"`
		LastVisit  string `json:"last_visit"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*p = PatientSummary(raw.alias)
	if p.TotalVisits == 0 && raw.VisitCount != nil {
		p.TotalVisits = *raw.VisitCount
	}
	if p.FirstVisitDate == "" {
		p.FirstVisitDate = raw.FirstVisit
	}
	if p.LastVisitDate == "" {
		p.LastVisitDate = raw.LastVisit
	}
	return nil
}

// UpdateVisitCommand is the partial update sent with
// PUT /patients/{name}/visits/{visit_id}/.
type UpdateVisitCommand struct {
	SOAPNote    SOAPUpdate    `json:"soap_note"`
	PatientData PatientUpdate `json:"patient_data"`
}

type SOAPUpdate struct {
	Subjective string `json:"subjective"`
	Objective  string `json:"objective"`
	Assessment string `json:"assessment"`
	Plan       string `json:"plan"`
}

// PatientUpdate carries the identity group; demographics are spread at the
// top level and omitted when absent.
type PatientUpdate struct {
	PatientName    string `json:"patient_name"`
	ChiefComplaint string `json:"chief_complaint"`
	Age            any    `json:"age,omitempty"`
	Gender         any    `json:"gender,omitempty"`
	Occupation     any    `json:"occupation,omitempty"`
}

// AgeValue sends integral ages as JSON numbers, which is how the extraction
// pipeline stores them, and anything else verbatim.
func AgeValue(age *string) any {
	if age == nil {
		return nil
	}
	if n, err := strconv.Atoi(strings.TrimSpace(*age)); err == nil {
		return n
	}
	return *age
}

func StringValue(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// Transcription is the result of POST /transcribe/.
type Transcription struct {
	Success       bool   `json:"success"`
	Transcription string `json:"transcription"`
	AudioFile     string `json:"audio_file"`
}

type ProcessRequest struct {
	Transcription string `json:"transcription"`
	AudioFile     string `json:"audio_file"`
}

// ProcessedConsultation is the output of the AI pipeline behind POST /process/.
// Sections the UI only displays are kept as raw JSON.
type ProcessedConsultation struct {
	Success             bool            `json:"success"`
	Transcription       string          `json:"transcription"`
	PatientData         *PatientData    `json:"patient_data,omitempty"`
	SOAPNote            *SOAPNote       `json:"soap_note,omitempty"`
	ClinicalData        json.RawMessage `json:"clinical_data,omitempty"`
	LabRequisition      json.RawMessage `json:"lab_requisition,omitempty"`
	PharmacyRequisition json.RawMessage `json:"pharmacy_requisition,omitempty"`
	Metadata            json.RawMessage `json:"metadata,omitempty"`
}

type HealthStatus struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
}
