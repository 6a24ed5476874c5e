package chat

import (
	"encoding/json"
	"strings"

	"github.com/yungbote/jobassist-backend/internal/domain/evidence"
)

const (
	FallbackAnswer       = "That information is not available in this job's history."
	maxDerivedCitations  = 5
	maxJSONStartAttempts = 64
)

type Answer struct {
	Text      string
	Citations []evidence.Citation
	FollowUps []string
	// Malformed is set when the output carried no usable JSON answer.
	Malformed bool
}

// ParseResponse turns raw model output into an Answer. It never fails: model
// citations that are missing or mis-shaped are replaced with citations derived
// from the evidence used for the turn.
func ParseResponse(raw string, items []evidence.Item, chunks []evidence.Chunk) Answer {
	var out Answer

	obj, ok := extractJSONObject(raw)
	if ok {
		text, isString := obj["answer"].(string)
		out.Text = strings.TrimSpace(text)
		out.Malformed = !isString
		out.Citations = modelCitations(obj["citations"])
		out.FollowUps = followUps(obj["follow_ups"])
	} else {
		out.Text = strings.TrimSpace(raw)
		out.Malformed = true
	}

	if out.Text == "" {
		out.Text = FallbackAnswer
	}
	if len(out.Citations) == 0 {
		out.Citations = DeriveCitations(items, chunks)
	}
	if out.FollowUps == nil {
		out.FollowUps = []string{}
	}
	return out
}

// extractJSONObject finds the first decodable JSON object in s. Code fences
// and prose around the object are ignored.
func extractJSONObject(s string) (map[string]any, bool) {
	attempts := 0
	for i := 0; i < len(s) && attempts < maxJSONStartAttempts; i++ {
		if s[i] != '{' {
			continue
		}
		attempts++
		dec := json.NewDecoder(strings.NewReader(s[i:]))
		var obj map[string]any
		if err := dec.Decode(&obj); err == nil && obj != nil {
			return obj, true
		}
	}
	return nil, false
}

// modelCitations returns nil unless every element has string doc_id, snippet
// and type; one bad element discards the whole list.
func modelCitations(v any) []evidence.Citation {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return nil
	}
	out := make([]evidence.Citation, 0, len(list))
	for _, el := range list {
		m, ok := el.(map[string]any)
		if !ok {
			return nil
		}
		docID, ok1 := m["doc_id"].(string)
		snippet, ok2 := m["snippet"].(string)
		typ, ok3 := m["type"].(string)
		if !ok1 || !ok2 || !ok3 || strings.TrimSpace(docID) == "" {
			return nil
		}
		c := evidence.Citation{
			DocID:   docID,
			Type:    typ,
			Snippet: evidence.Snippet(snippet),
		}
		c.Date, _ = m["date"].(string)
		c.AuthorName, _ = m["author_name"].(string)
		c.AuthorEmail, _ = m["author_email"].(string)
		out = append(out, c)
	}
	return out
}

func followUps(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, el := range list {
		s, ok := el.(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, strings.TrimSpace(s))
	}
	return out
}

// DeriveCitations cites up to five evidence records, structured items first.
func DeriveCitations(items []evidence.Item, chunks []evidence.Chunk) []evidence.Citation {
	out := make([]evidence.Citation, 0, maxDerivedCitations)
	for _, it := range items {
		if len(out) == maxDerivedCitations {
			return out
		}
		out = append(out, it.Citation())
	}
	for _, c := range chunks {
		if len(out) == maxDerivedCitations {
			return out
		}
		out = append(out, c.Citation())
	}
	return out
}
