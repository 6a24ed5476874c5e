package chat

import (
	"github.com/yungbote/jobassist-backend/internal/modules/jobcontext"
	"github.com/yungbote/jobassist-backend/internal/pkg/envutil"
)

// Config parameterizes one assistant deployment. It is read once at startup
// and shared read-only across requests.
type Config struct {
	Model         string
	Temperature   float64
	TopP          *float64
	MaxTokens     int
	PromptVersion string
	EventLimit    int
	EvidenceLimit int
	HistoryLimit  int
}

func DefaultConfig() Config {
	return Config{
		Model:         "gpt-4o-mini",
		Temperature:   0.2,
		MaxTokens:     800,
		EventLimit:    jobcontext.DefaultRecentEventLimit,
		EvidenceLimit: 40,
		HistoryLimit:  10,
	}
}

func LoadConfig() Config {
	def := DefaultConfig()
	return Config{
		Model:         envutil.String("ASSISTANT_MODEL", def.Model),
		Temperature:   envutil.Float("ASSISTANT_TEMPERATURE", def.Temperature),
		TopP:          envutil.OptionalFloat("ASSISTANT_TOP_P"),
		MaxTokens:     envutil.Int("ASSISTANT_MAX_TOKENS", def.MaxTokens),
		PromptVersion: envutil.String("ASSISTANT_PROMPT_VERSION", ""),
		EventLimit:    envutil.Int("ASSISTANT_EVENT_LIMIT", def.EventLimit),
		EvidenceLimit: envutil.Int("ASSISTANT_EVIDENCE_LIMIT", def.EvidenceLimit),
		HistoryLimit:  envutil.Int("ASSISTANT_HISTORY_LIMIT", def.HistoryLimit),
	}
}
