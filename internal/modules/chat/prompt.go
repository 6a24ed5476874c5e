package chat

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/jobassist-backend/internal/domain/evidence"
	"github.com/yungbote/jobassist-backend/internal/inference/engine"
	"github.com/yungbote/jobassist-backend/internal/modules/jobcontext"
)

const promptPathEnv = "ASSISTANT_PROMPT_PATH"

//go:embed prompts/assistant.yaml
var embeddedPrompt []byte

type PromptTemplate struct {
	Version        string `yaml:"version"`
	System         string `yaml:"system"`
	ContextHeader  string `yaml:"context_header"`
	EvidenceHeader string `yaml:"evidence_header"`
}

// LoadPromptTemplate reads the file named by ASSISTANT_PROMPT_PATH, or the
// built-in template when unset.
func LoadPromptTemplate() (PromptTemplate, error) {
	data := embeddedPrompt
	if path := strings.TrimSpace(os.Getenv(promptPathEnv)); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return PromptTemplate{}, fmt.Errorf("read prompt %s: %w", path, err)
		}
		data = b
	}
	return ParsePromptTemplate(data)
}

func ParsePromptTemplate(data []byte) (PromptTemplate, error) {
	var t PromptTemplate
	if err := yaml.Unmarshal(data, &t); err != nil {
		return PromptTemplate{}, fmt.Errorf("parse prompt: %w", err)
	}
	if strings.TrimSpace(t.System) == "" {
		return PromptTemplate{}, fmt.Errorf("parse prompt: system text is empty")
	}
	if t.ContextHeader == "" {
		t.ContextHeader = "JOB CONTEXT (JSON):"
	}
	if t.EvidenceHeader == "" {
		t.EvidenceHeader = "EVIDENCE:"
	}
	return t, nil
}

type PromptInput struct {
	Snapshot *jobcontext.Snapshot
	Evidence []evidence.Item
	Chunks   []evidence.Chunk
	// History is chronological.
	History []engine.Message
	Message string
}

type PromptAssembler struct {
	tmpl         PromptTemplate
	version      string
	historyLimit int
}

// NewPromptAssembler tags prompts with cfg.PromptVersion, falling back to the
// template's own version.
func NewPromptAssembler(tmpl PromptTemplate, cfg Config) *PromptAssembler {
	v := strings.TrimSpace(cfg.PromptVersion)
	if v == "" {
		v = tmpl.Version
	}
	if v == "" {
		v = "unversioned"
	}
	return &PromptAssembler{tmpl: tmpl, version: v, historyLimit: cfg.HistoryLimit}
}

func (p *PromptAssembler) Version() string { return p.version }

func (p *PromptAssembler) Build(in PromptInput) []engine.Message {
	history := lastTurns(in.History, p.historyLimit)

	msgs := make([]engine.Message, 0, 4+len(history))
	msgs = append(msgs,
		engine.Message{Role: engine.RoleSystem, Content: fmt.Sprintf("[prompt_version=%s]\n%s", p.version, strings.TrimSpace(p.tmpl.System))},
		engine.Message{Role: engine.RoleSystem, Content: p.tmpl.ContextHeader + "\n" + contextBlock(in.Snapshot)},
		engine.Message{Role: engine.RoleSystem, Content: p.tmpl.EvidenceHeader + "\n" + EvidenceBlock(in.Evidence, in.Chunks)},
	)
	msgs = append(msgs, history...)
	return append(msgs, engine.Message{Role: engine.RoleUser, Content: in.Message})
}

// lastTurns keeps the user and assistant messages of the newest n turns. A turn
// starts at a user message; n < 0 keeps everything.
func lastTurns(history []engine.Message, n int) []engine.Message {
	kept := make([]engine.Message, 0, len(history))
	for _, h := range history {
		if h.Role == engine.RoleUser || h.Role == engine.RoleAssistant {
			kept = append(kept, h)
		}
	}
	if n < 0 {
		return kept
	}
	if n == 0 {
		return nil
	}
	turns := 0
	for i := len(kept) - 1; i >= 0; i-- {
		if kept[i].Role != engine.RoleUser {
			continue
		}
		turns++
		if turns == n {
			return kept[i:]
		}
	}
	return kept
}

func contextBlock(s *jobcontext.Snapshot) string {
	if s == nil {
		return "{}"
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

type evidenceSection struct {
	title string
	kind  evidence.Kind
	scope evidence.Scope
}

var evidenceSections = []evidenceSection{
	{"JOB NOTES", evidence.KindNote, evidence.ScopeJob},
	{"JOB EVENTS", evidence.KindJobEvent, evidence.ScopeJob},
	{"PROPERTY NOTES", evidence.KindNote, evidence.ScopeProperty},
	{"PROPERTY EVENTS", evidence.KindJobEvent, evidence.ScopeProperty},
	{"CLIENT NOTES", evidence.KindNote, evidence.ScopeClient},
}

// EvidenceBlock renders items grouped into labeled sections followed by the
// vector matches. Items keep their incoming order within a section.
func EvidenceBlock(items []evidence.Item, chunks []evidence.Chunk) string {
	var sb strings.Builder
	for i, sec := range evidenceSections {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(sec.title + ":\n")
		n := 0
		for _, it := range items {
			if it.Kind != sec.kind || it.Scope != sec.scope {
				continue
			}
			writeEvidenceLine(&sb, evidence.FormatDate(it.Date), it.DocID, it.Text)
			n++
		}
		if n == 0 {
			sb.WriteString("(none)\n")
		}
	}
	sb.WriteString("\nVECTOR MATCHES:\n")
	if len(chunks) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, c := range chunks {
		date := "undated"
		if c.Date != nil {
			date = evidence.FormatDate(*c.Date)
		}
		writeEvidenceLine(&sb, date, c.DocID, c.Text)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func writeEvidenceLine(sb *strings.Builder, date, docID, text string) {
	fmt.Fprintf(sb, "- [%s] (%s) %s\n", date, docID, strings.Join(strings.Fields(text), " "))
}
