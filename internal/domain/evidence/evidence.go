package evidence

import (
	"time"
	"unicode/utf8"
)

type Kind string

const (
	KindJobEvent Kind = "job_event"
	KindNote     Kind = "note"
)

type Scope string

const (
	ScopeJob      Scope = "job"
	ScopeProperty Scope = "property"
	ScopeClient   Scope = "client"
)

// Item is structured evidence read from an existing event or note.
type Item struct {
	DocID       string
	Kind        Kind
	Scope       Scope
	Date        time.Time
	Text        string
	AuthorName  string
	AuthorEmail string
}

// Chunk is a similarity match from the vector index.
type Chunk struct {
	DocID string
	Type  string
	Date  *time.Time
	Text  string
	Score float64
}

type Citation struct {
	DocID       string `json:"doc_id"`
	Date        string `json:"date,omitempty"`
	Type        string `json:"type"`
	Snippet     string `json:"snippet"`
	AuthorName  string `json:"author_name,omitempty"`
	AuthorEmail string `json:"author_email,omitempty"`
}

const MaxSnippetRunes = 240

// FormatDate renders t as a sortable UTC timestamp.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// Snippet truncates s to at most MaxSnippetRunes runes.
func Snippet(s string) string {
	if utf8.RuneCountInString(s) <= MaxSnippetRunes {
		return s
	}
	r := []rune(s)
	return string(r[:MaxSnippetRunes])
}

func (it Item) Citation() Citation {
	return Citation{
		DocID:       it.DocID,
		Date:        FormatDate(it.Date),
		Type:        string(it.Kind),
		Snippet:     Snippet(it.Text),
		AuthorName:  it.AuthorName,
		AuthorEmail: it.AuthorEmail,
	}
}

func (c Chunk) Citation() Citation {
	out := Citation{
		DocID:   c.DocID,
		Type:    c.Type,
		Snippet: Snippet(c.Text),
	}
	if c.Date != nil {
		out.Date = FormatDate(*c.Date)
	}
	if out.Type == "" {
		out.Type = "vector"
	}
	return out
}
