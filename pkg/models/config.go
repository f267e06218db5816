package models

// JudgeConfig holds project-level defaults for LLM judge evaluation.
// Per-assertion overrides take precedence over these values.
type JudgeConfig struct {
	Adapter          string  `json:"adapter"`
	Model            string  `json:"model"`
	K                int     `json:"k"`
	Temperature      float64 `json:"temperature"`
	MaxTokens        int     `json:"max_tokens"`
	DefaultThreshold float64 `json:"default_threshold"`
}

// DefaultJudgeConfig returns the hard-coded judge defaults.
func DefaultJudgeConfig() JudgeConfig {
	return JudgeConfig{
		Adapter:          "openai",
		Model:            "gpt-4o-mini",
		K:                3,
		Temperature:      0.0,
		MaxTokens:        1024,
		DefaultThreshold: 0.8,
	}
}

// Recording modes.
const (
	RecordingFull         = "full"
	RecordingMetadataOnly = "metadata_only"
)

// RecordingConfig controls trace recording behavior: the recording mode and
// custom redaction patterns that extend the built-in set.
type RecordingConfig struct {
	Mode                    string   `json:"mode"`
	CustomRedactionPatterns []string `json:"custom_redaction_patterns,omitempty"`
}

// DefaultRecordingConfig returns full-trace recording with no custom patterns.
func DefaultRecordingConfig() RecordingConfig {
	return RecordingConfig{Mode: RecordingFull}
}

// ProjectConfig carries project-level settings the host resolves before
// invoking the core.
type ProjectConfig struct {
	DefaultAdapter string          `json:"default_adapter"`
	DefaultModel   string          `json:"default_model"`
	Judge          JudgeConfig     `json:"judge"`
	Recording      RecordingConfig `json:"recording"`
}

// DefaultProjectConfig returns the defaults used when no project
// configuration is supplied.
func DefaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		DefaultAdapter: "openai",
		DefaultModel:   "gpt-4o",
		Judge:          DefaultJudgeConfig(),
		Recording:      DefaultRecordingConfig(),
	}
}
