// Command docmaint runs one pass of the docstring maintenance pipeline:
// it streams candidate symbols from a persistent index, asks an LLM to
// write or rewrite their docstrings, compiles the results into unified
// diffs, and applies them to a sandbox for review — optionally archiving
// and replacing the originals once an operator opts in explicitly.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"docmaint/internal/config"
	"docmaint/internal/indexsource"
	"docmaint/internal/llmclient"
	"docmaint/internal/orchestrator"
	"docmaint/internal/rundirs"
	"docmaint/skribe"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[0], err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	projectRoot := flag.String("project-root", "", "override config.project_root")
	scanRoot := flag.String("scan-root", "", "override config.scan_root")
	indexURL := flag.String("index-url", "", "override config.index.url")
	indexTable := flag.String("index-table", "", "override config.index.table")
	provider := flag.String("llm-provider", "", "override config.llm.provider (openai, anthropic, mock)")
	model := flag.String("llm-model", "", "override config.llm.model")
	confirmProdWrites := flag.Bool("confirm-prod-writes", false, "allow archive_and_replace to touch originals")
	dryRun := flag.Bool("dry-run", false, "compile and save patches but never touch a sandbox or originals")
	rollback := flag.String("rollback", "", "restore originals from a prior run directory's archives/ and exit")
	listStages := flag.Bool("list-stages", false, "print the pipeline's stages in execution order and exit")
	verbose := flag.Bool("verbose", false, "also log to stdout; the run log file is still written")
	version := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *version {
		fmt.Println("docmaint (dev)")
		return nil
	}
	if *listStages {
		for s := orchestrator.StageScan; s <= orchestrator.StageArchiveAndReplace; s++ {
			fmt.Println(s)
		}
		return nil
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	applyOverrides(&cfg, overrides{
		projectRoot:       *projectRoot,
		scanRoot:          *scanRoot,
		indexURL:          *indexURL,
		indexTable:        *indexTable,
		provider:          *provider,
		model:             *model,
		confirmProdWrites: *confirmProdWrites,
		dryRun:            *dryRun,
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	rd, err := rundirs.New(cfg.RunDirRoot)
	if err != nil {
		return fmt.Errorf("docmaint: creating run directory: %w", err)
	}

	ctx := skribe.ContextWithAttr(context.Background(), slog.String("run_id", rd.ID))
	ctx, err = setupLogging(ctx, rd, *verbose)
	if err != nil {
		return err
	}

	bold := color.New(color.Bold).SprintFunc()
	fmt.Printf("%s %s\n", bold("run dir:"), rd.Root)

	if *rollback != "" {
		return runRollback(cfg, *rollback)
	}

	idx, err := indexsource.Open(cfg.IndexCfg.URL, cfg.IndexCfg.Table)
	if err != nil {
		return fmt.Errorf("docmaint: opening symbol index: %w", err)
	}
	defer idx.Close()

	svc, err := buildService(cfg)
	if err != nil {
		return err
	}

	orch := orchestrator.New(cfg, idx, svc, rd)
	sum, err := orch.Run(ctx)
	if sum != nil {
		fmt.Printf("%s rows=%d items=%d documented=%d patched=%d (%s) rejected=%d elapsed=%.1fs\n",
			bold("summary:"), sum.RowsFetched, sum.ItemsBuilt, sum.ItemsDocumented,
			sum.FilesPatched, humanize.Bytes(uint64(sum.BytesPatched)), sum.FilesRejected, sum.ElapsedSeconds)
	}
	if err != nil {
		return fmt.Errorf("docmaint: %w (see %s)", err, rd.Root)
	}
	return nil
}

// overrides carries the flag values that, when non-empty/true, take
// precedence over whatever loadConfig produced — following
// cmd/sketch/main.go's flat-flags-over-file precedence.
type overrides struct {
	projectRoot       string
	scanRoot          string
	indexURL          string
	indexTable        string
	provider          string
	model             string
	confirmProdWrites bool
	dryRun            bool
}

func applyOverrides(cfg *config.Config, o overrides) {
	if o.projectRoot != "" {
		cfg.ProjectRoot = o.projectRoot
	}
	if o.scanRoot != "" {
		cfg.ScanRoot = o.scanRoot
	}
	if o.indexURL != "" {
		cfg.IndexCfg.URL = o.indexURL
	}
	if o.indexTable != "" {
		cfg.IndexCfg.Table = o.indexTable
	}
	if o.provider != "" {
		cfg.LLMCfg.Provider = o.provider
	}
	if o.model != "" {
		cfg.LLMCfg.Model = o.model
	}
	if o.confirmProdWrites {
		cfg.ConfirmCfg.ConfirmProdWrites = true
	}
	if o.dryRun {
		cfg.StageCfg.ApplySandbox = false
		cfg.StageCfg.ArchiveAndReplace = false
	}
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// buildService constructs the provider named by cfg.LLMCfg.Provider. The
// API key is read from the environment, never from a flag, so it never
// appears in a process listing.
func buildService(cfg config.Config) (llmclient.Service, error) {
	switch cfg.LLMCfg.Provider {
	case "mock":
		return llmclient.NewMockService(cfg.LLMCfg.ModelCtxTokens), nil
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, &config.ConfigError{Field: "llm.provider", Msg: "OPENAI_API_KEY environment variable is not set"}
		}
		return llmclient.NewOpenAIService(apiKey, "", cfg.LLMCfg.Model, cfg.LLMCfg.ModelCtxTokens, http.DefaultClient), nil
	case "anthropic":
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, &config.ConfigError{Field: "llm.provider", Msg: "ANTHROPIC_API_KEY environment variable is not set"}
		}
		return llmclient.NewAnthropicService(apiKey, "", cfg.LLMCfg.Model, cfg.LLMCfg.ModelCtxTokens, http.DefaultClient), nil
	default:
		return nil, &config.ConfigError{Field: "llm.provider", Msg: fmt.Sprintf("unknown provider %q", cfg.LLMCfg.Provider)}
	}
}

func runRollback(cfg config.Config, runDirRoot string) error {
	rd := &rundirs.RunDir{Root: runDirRoot}
	orch := orchestrator.New(cfg, nil, nil, rd)
	if err := orch.Rollback(); err != nil {
		return fmt.Errorf("docmaint: rollback: %w", err)
	}
	fmt.Printf("rolled back originals from %s\n", runDirRoot)
	return nil
}

// setupLogging wires slog the way cmd/sketch/main.go does: a JSON file
// handler under the run directory for normal runs; with -verbose a text
// handler to stdout is added via skribe's multi handler while the JSON
// run log keeps being written. Every record carries run_id via skribe's
// context-scoped attrs.
func setupLogging(ctx context.Context, rd *rundirs.RunDir, verbose bool) (context.Context, error) {
	f, err := os.Create(rd.LogPath())
	if err != nil {
		return ctx, fmt.Errorf("docmaint: creating run log: %w", err)
	}
	var handler slog.Handler
	if verbose {
		mh := skribe.NewMultiHandler()
		mh.AllHandler = skribe.AttrsWrap(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
		ctx = mh.NewSlogHandlerCtx(ctx, f)
		handler = mh
	} else {
		handler = skribe.AttrsWrap(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	slog.SetDefault(slog.New(handler))
	slog.InfoContext(ctx, "run starting",
		"started_at", time.Now().Format(time.RFC3339),
		"args", fmt.Sprintf("%v", skribe.Redact(os.Args)))
	return ctx, nil
}
