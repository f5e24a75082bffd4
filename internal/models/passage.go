package models

// Passage is one retrieved index entry (a "chunk"). It is the unit of
// deduplication and citation and is immutable once retrieved.
type Passage struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Body    string   `json:"body"`
	Figures []Figure `json:"figures,omitempty"`
}

// Figure is an image owned by exactly one passage. Figure ids are only unique
// within their passage, so a figure is always addressed by (passage id, figure id).
type Figure struct {
	ID          string `json:"figure_id"`
	Data        []byte `json:"-"`
	Description string `json:"description,omitempty"`
}

// FigurePayload is a figure resolved out of the session cache, ready to render.
type FigurePayload struct {
	PassageID   string `json:"chunk_id"`
	FigureID    string `json:"figure_id"`
	MimeType    string `json:"mime_type"`
	Data        []byte `json:"data"`
	Description string `json:"description,omitempty"`
}

// Name is the display name used by presentation layers ("Figure f1").
func (f FigurePayload) Name() string {
	return "Figure " + f.FigureID
}

// ResultSet is the deduplicated output of one retrieval call. Insertion order
// is preserved; the first passage seen for an id wins.
type ResultSet struct {
	order    []string
	passages map[string]Passage
}

// NewResultSet creates an empty result set
func NewResultSet() *ResultSet {
	return &ResultSet{passages: make(map[string]Passage)}
}

// Add inserts the passage unless its id is already present.
// Returns false when the passage was dropped as a duplicate.
func (r *ResultSet) Add(p Passage) bool {
	if _, exists := r.passages[p.ID]; exists {
		return false
	}
	r.order = append(r.order, p.ID)
	r.passages[p.ID] = p
	return true
}

// Get returns the passage stored under id
func (r *ResultSet) Get(id string) (Passage, bool) {
	p, ok := r.passages[id]
	return p, ok
}

// IDs returns passage ids in insertion order
func (r *ResultSet) IDs() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Passages returns passages in insertion order
func (r *ResultSet) Passages() []Passage {
	out := make([]Passage, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.passages[id])
	}
	return out
}

// Len returns the number of passages
func (r *ResultSet) Len() int {
	return len(r.order)
}
