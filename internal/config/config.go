// Package config defines the single immutable configuration surface
// threaded through the orchestrator. There is no global configuration
// singleton; every component that needs a setting receives it (or a
// narrowed view of it) explicitly.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigError reports an invalid or missing configuration value. It is
// fatal at startup; nothing recovers from it.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}

// Index describes how to reach and filter the external symbol index.
type Index struct {
	URL          string `yaml:"url"`
	Table        string `yaml:"table"`
	StatusFilter string `yaml:"status_filter,omitempty"`
	MaxRows      int    `yaml:"max_rows,omitempty"`
}

// LLM describes the model and budget parameters for dispatch.
type LLM struct {
	Provider              string  `yaml:"provider"` // "openai", "anthropic", or "mock"
	Model                 string  `yaml:"model"`    // model id, or "auto"
	Temperature           float64 `yaml:"temperature"`
	MaxOutputTokens       int     `yaml:"max_output_tokens"`
	ResponseTokensPerItem int     `yaml:"response_tokens_per_item"`
	BatchOverheadTokens   int     `yaml:"batch_overhead_tokens"`
	ModelCtxTokens        int     `yaml:"model_ctx_tokens"`
	BudgetGuardrail       int     `yaml:"budget_guardrail"`
	Concurrency           int     `yaml:"concurrency"` // bounded parallelism for dispatch; default 1
	RequestTimeoutSeconds int     `yaml:"request_timeout_seconds"`
}

// Run controls output formatting and EOL policy.
type Run struct {
	PreserveCRLF       bool `yaml:"preserve_crlf"`
	SavePerItemPatches bool `yaml:"save_per_item_patches"`
	SaveCombinedPatch  bool `yaml:"save_combined_patch"`
}

// Stages toggles each pipeline stage independently. All default to true
// except ArchiveAndReplace, the gated destructive stage.
type Stages struct {
	Scan              bool `yaml:"run_scan"`
	FetchTargets      bool `yaml:"run_fetch_targets"`
	BuildPrompts      bool `yaml:"run_build_prompts"`
	RunLLM            bool `yaml:"run_run_llm"`
	SavePatch         bool `yaml:"run_save_patch"`
	ApplySandbox      bool `yaml:"run_apply_sandbox"`
	Verify            bool `yaml:"run_verify"`
	ArchiveAndReplace bool `yaml:"run_archive_and_replace"`
}

// Flags holds operator confirmation gates.
type Flags struct {
	ConfirmProdWrites bool `yaml:"confirm_prod_writes"`
}

// Sanitizer exposes the one convention spec.md's Open Questions left to
// the operator: the project-internal tag prefixes that get rewritten
// into a "Capabilities:" section. Empty means no rewriting.
type Sanitizer struct {
	CapabilityTagPrefixes []string `yaml:"capability_tag_prefixes,omitempty"`
}

// Config is the complete configuration surface enumerated in spec.md §6.
type Config struct {
	ProjectRoot  string    `yaml:"project_root"`
	ScanRoot     string    `yaml:"scan_root"`
	ExcludeGlobs []string  `yaml:"exclude_globs"`
	IndexCfg     Index     `yaml:"index"`
	LLMCfg       LLM       `yaml:"llm"`
	RunCfg       Run       `yaml:"run"`
	StageCfg     Stages    `yaml:"flags"`
	ConfirmCfg   Flags     `yaml:"confirm"`
	SanitizerCfg Sanitizer `yaml:"sanitizer"`
	RunDirRoot   string    `yaml:"run_dir_root"` // parent directory under which RunDirs are created
}

// Default returns a Config with the non-zero defaults called out in
// spec.md §6 (llm.temperature defaults to 0.1; all stage toggles default
// on except archive_and_replace, which requires explicit opt-in).
func Default() Config {
	return Config{
		LLMCfg: LLM{
			Provider:              "mock",
			Model:                 "auto",
			Temperature:           0.1,
			MaxOutputTokens:       4096,
			ResponseTokensPerItem: 220,
			BatchOverheadTokens:   400,
			ModelCtxTokens:        128_000,
			BudgetGuardrail:       2_000,
			Concurrency:           1,
			RequestTimeoutSeconds: 120,
		},
		RunCfg: Run{
			SaveCombinedPatch: true,
		},
		StageCfg: Stages{
			Scan:         true,
			FetchTargets: true,
			BuildPrompts: true,
			RunLLM:       true,
			SavePatch:    true,
			ApplySandbox: true,
			Verify:       true,
			// ArchiveAndReplace defaults off; requires ConfirmCfg.ConfirmProdWrites too.
		},
		RunDirRoot: ".docmaint-runs",
	}
}

// Load reads a YAML configuration file and layers it over Default().
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &ConfigError{Field: "path", Msg: err.Error()}
	}
	// Decode into the defaulted struct so omitted YAML keys keep their
	// Default() values rather than being zeroed out.
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, &ConfigError{Field: "yaml", Msg: err.Error()}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the invariants spec.md §3 requires before a run starts.
func (c Config) Validate() error {
	if c.ProjectRoot == "" {
		return &ConfigError{Field: "project_root", Msg: "must be set"}
	}
	if c.ScanRoot == "" {
		return &ConfigError{Field: "scan_root", Msg: "must be set"}
	}
	absProject, err := filepath.Abs(c.ProjectRoot)
	if err != nil {
		return &ConfigError{Field: "project_root", Msg: err.Error()}
	}
	absScan, err := filepath.Abs(c.ScanRoot)
	if err != nil {
		return &ConfigError{Field: "scan_root", Msg: err.Error()}
	}
	rel, err := filepath.Rel(absProject, absScan)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return &ConfigError{Field: "scan_root", Msg: "must resolve inside project_root"}
	}
	switch c.LLMCfg.Provider {
	case "openai", "anthropic", "mock":
	default:
		return &ConfigError{Field: "llm.provider", Msg: fmt.Sprintf("unknown provider %q", c.LLMCfg.Provider)}
	}
	if c.LLMCfg.ModelCtxTokens <= 0 {
		return &ConfigError{Field: "llm.model_ctx_tokens", Msg: "must be positive"}
	}
	if c.StageCfg.ArchiveAndReplace && !c.ConfirmCfg.ConfirmProdWrites {
		return &ConfigError{Field: "confirm.confirm_prod_writes", Msg: "archive_and_replace requires confirm_prod_writes"}
	}
	return nil
}
