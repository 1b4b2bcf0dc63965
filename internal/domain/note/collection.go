package note

import "strings"

// Collection is the ordered note list shown to the clinician. It is not safe
// for concurrent use.
type Collection struct {
	notes []Note
}

// NewCollection takes ownership of notes, which must already be ordered.
func NewCollection(notes []Note) *Collection {
	return &Collection{notes: notes}
}

func (c *Collection) Len() int {
	return len(c.notes)
}

// All returns a deep copy of the list in display order.
func (c *Collection) All() []Note {
	out := make([]Note, len(c.notes))
	for i, n := range c.notes {
		out[i] = n.Clone()
	}
	return out
}

func (c *Collection) Find(id string) (Note, bool) {
	for _, n := range c.notes {
		if n.ID == id {
			return n.Clone(), true
		}
	}
	return Note{}, false
}

// Replace swaps in n for the entry with the same ID. It reports false, and
// changes nothing, when no entry matches.
func (c *Collection) Replace(n Note) bool {
	for i := range c.notes {
		if c.notes[i].ID == n.ID {
			c.notes[i] = n.Clone()
			return true
		}
	}
	return false
}

// Search returns the notes whose patient name or MRN contains query,
// case-insensitively. An empty query matches everything.
func (c *Collection) Search(query string) []Note {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return c.All()
	}
	out := []Note{}
	for _, n := range c.notes {
		if strings.Contains(strings.ToLower(n.PatientName), q) ||
			strings.Contains(strings.ToLower(n.PatientMRN), q) {
			out = append(out, n.Clone())
		}
	}
	return out
}
