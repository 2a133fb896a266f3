// Package orchestrator drives the pipeline's stages end to end: fetching
// index rows, enriching and targeting them, packing and dispatching LLM
// batches, compiling and applying patches, and — gated behind an explicit
// confirmation flag — archiving and replacing originals. It is the one
// place every other package in this module gets wired together.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"docmaint/internal/config"
	"docmaint/internal/contextbuild"
	"docmaint/internal/diffcompile"
	"docmaint/internal/fileops"
	"docmaint/internal/indexsource"
	"docmaint/internal/llmclient"
	"docmaint/internal/model"
	"docmaint/internal/patchapply"
	"docmaint/internal/patchplan"
	"docmaint/internal/promptbuild"
	"docmaint/internal/pyast"
	"docmaint/internal/respparse"
	"docmaint/internal/rundirs"
	"docmaint/internal/sanitize"
	"docmaint/internal/sourceretrieve"
	"docmaint/internal/tokenbudget"
	"docmaint/internal/verify"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

//go:generate go tool golang.org/x/tools/cmd/stringer -type=Stage -output=orchestrator_string.go

// Stage names one step of the pipeline, in execution order.
type Stage int

const (
	StageScan Stage = iota
	StageFetchTargets
	StageBuildPrompts
	StageRunLLM
	StageSavePatch
	StageApplySandbox
	StageVerify
	StageArchiveAndReplace
)

// ApplyError reports that at least one file's dry-run failed exact
// matching, so the whole sandbox apply was refused. It is one of the two
// error kinds (with config.ConfigError) that spec.md 4.9 says surfaces to
// the top-level exit rather than being recovered locally.
type ApplyError struct {
	Rejects []patchapply.Reject
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("orchestrator: apply rejected for %d file(s), see rejects.json", len(e.Rejects))
}

// Orchestrator holds the already-constructed collaborators a run needs.
// It carries no global state; everything it touches is passed in or
// created fresh per Run.
type Orchestrator struct {
	Cfg    config.Config
	Index  *indexsource.Source
	LLM    llmclient.Service
	RunDir *rundirs.RunDir
}

// New builds an Orchestrator from its collaborators. idx may be nil if
// StageCfg.FetchTargets is false or only Rollback will be called (as the
// --rollback path does).
func New(cfg config.Config, idx *indexsource.Source, svc llmclient.Service, rd *rundirs.RunDir) *Orchestrator {
	return &Orchestrator{Cfg: cfg, Index: idx, LLM: svc, RunDir: rd}
}

// Summary is the machine-readable rollup written to run_summary.json at
// the end of every run, since the rejects manifest and verify_reports
// alone don't give an operator script a single place to check counts.
type Summary struct {
	RunID               string  `json:"run_id"`
	RowsFetched         int     `json:"rows_fetched"`
	ItemsBuilt          int     `json:"items_built"`
	RowsSkipped         int     `json:"rows_skipped"`
	BatchesDispatched   int     `json:"batches_dispatched"`
	BatchesFailed       int     `json:"batches_failed"`
	ItemsDocumented     int     `json:"items_documented"`
	ItemsUndocumented   int     `json:"items_undocumented"`
	VerifyWarnings      int     `json:"verify_warnings"`
	FilesPatched        int     `json:"files_patched"`
	FilesRejected       int     `json:"files_rejected"`
	BytesPatched        int64   `json:"bytes_patched"`
	ArchivedAndReplaced bool    `json:"archived_and_replaced"`
	ElapsedSeconds      float64 `json:"elapsed_seconds"`
}

// Run drives every stage toggled on in o.Cfg.StageCfg, in spec.md 4.9's
// fixed order, and returns the final summary. A nil error does not mean
// every item was documented: per-batch and per-row failures are recovered
// and counted in the summary. A non-nil error is *ApplyError when the
// sandbox apply was rejected (the summary is then returned too); otherwise
// it is a wrapped error from fetching index rows, compiling patches,
// parsing the compiled diff, writing the sandbox, or archive_and_replace,
// and the summary is nil.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	sum := &Summary{RunID: o.RunDir.ID}

	if o.Cfg.StageCfg.Scan {
		// Scanning is delegated to the external symbol-index scanner; the
		// stage exists so the toggle surface matches the pipeline's shape.
		slog.DebugContext(ctx, "scan stage is a no-op; index is pre-populated")
	}

	items, buffers, relToAbs, err := o.fetchAndTarget(ctx, sum)
	if err != nil {
		return nil, err
	}

	var batches []model.Batch
	if o.Cfg.StageCfg.BuildPrompts && len(items) > 0 {
		batches = o.buildBatches(items)
	}

	results := make(map[string]model.LlmResult)
	if o.Cfg.StageCfg.RunLLM && len(batches) > 0 {
		o.runLLM(ctx, batches, results, sum)
	}

	opsByFile := make(map[string][]model.PatchOp)
	itemOps := make(map[string][]model.PatchOp)
	for _, it := range items {
		result, ok := results[it.ID]
		if !ok {
			sum.ItemsUndocumented++
			continue
		}
		sum.ItemsDocumented++
		isModule := it.SymbolType == model.SymbolModule
		doc := sanitize.Text(result.Docstring, isModule, sanitize.Config{CapabilityTagPrefixes: o.Cfg.SanitizerCfg.CapabilityTagPrefixes})

		if o.Cfg.StageCfg.Verify {
			vr := verify.Docstring(doc, it)
			if !vr.OK {
				sum.VerifyWarnings++
				o.writeVerifyReport(it.ID, vr)
			}
		}

		buf := buffers[it.RelPath]
		ops := patchplan.Plan(it, buf.Lines, doc)
		opsByFile[it.RelPath] = append(opsByFile[it.RelPath], ops...)
		itemOps[it.ID] = ops

		o.writeItemArtifact(it, result, doc)
	}

	var ops []model.PatchOp
	for _, fileOps := range opsByFile {
		ops = append(ops, fileOps...)
	}

	var diffs []diffcompile.FileDiff
	if o.Cfg.StageCfg.SavePatch && len(ops) > 0 {
		diffs, err = diffcompile.Compile(ops, buffers)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: compiling patches: %w", err)
		}
		sort.Slice(diffs, func(i, j int) bool { return diffs[i].RelPath < diffs[j].RelPath })
		if o.Cfg.RunCfg.SaveCombinedPatch {
			for _, fd := range diffs {
				o.writePatchFile(fd.RelPath, "", fd.UnifiedDiff)
			}
		}
		if o.Cfg.RunCfg.SavePerItemPatches {
			o.writePerItemPatches(items, itemOps, buffers)
		}
	}

	if o.Cfg.StageCfg.ApplySandbox && len(diffs) > 0 {
		patched, rejects, err := o.applySandbox(diffs, buffers)
		if err != nil {
			return nil, err
		}
		sum.FilesPatched = len(patched)
		sum.FilesRejected = len(rejects)
		for _, content := range patched {
			sum.BytesPatched += int64(len(content))
		}
		if len(rejects) > 0 {
			o.writeRejectsManifest(rejects)
			sum.ElapsedSeconds = time.Since(start).Seconds()
			o.writeSummary(sum)
			return sum, &ApplyError{Rejects: rejects}
		}

		if o.Cfg.StageCfg.ArchiveAndReplace && o.Cfg.ConfirmCfg.ConfirmProdWrites {
			if err := o.archiveAndReplace(patched, buffers, relToAbs); err != nil {
				return nil, fmt.Errorf("orchestrator: archive_and_replace: %w", err)
			}
			sum.ArchivedAndReplaced = true
		}
	}

	sum.ElapsedSeconds = time.Since(start).Seconds()
	o.writeSummary(sum)
	return sum, nil
}

// fetchAndTarget runs C3 (IndexSource) through C6 (ContextBuilder):
// streaming rows, de-duplicating, resolving and reading each file once,
// AST-targeting it, and building the enriched Item. Row-level failures
// (IoError, path-safety violations, ParseError) are skipped with a
// logged reason rather than aborting the run, per spec.md §7.
func (o *Orchestrator) fetchAndTarget(ctx context.Context, sum *Summary) ([]model.Item, map[string]*fileops.Buffer, map[string]string, error) {
	if !o.Cfg.StageCfg.FetchTargets || o.Index == nil {
		return nil, map[string]*fileops.Buffer{}, map[string]string{}, nil
	}

	rows, err := o.Index.Rows(ctx, o.Cfg.IndexCfg.StatusFilter, o.Cfg.IndexCfg.MaxRows)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("orchestrator: fetching index rows: %w", err)
	}
	sum.RowsFetched = len(rows)

	retriever := sourceretrieve.New(o.Cfg.ScanRoot, o.Cfg.ExcludeGlobs)
	seen := make(map[string]bool, len(rows))
	buffers := make(map[string]*fileops.Buffer)
	relToAbs := make(map[string]string)
	var items []model.Item

	for _, row := range rows {
		key := row.DedupeKey()
		if seen[key] {
			sum.RowsSkipped++
			continue
		}
		seen[key] = true

		if row.ID == "" {
			// The scanner is expected to assign stable ids, but a row
			// missing one would otherwise collide in the results map and
			// in every id-keyed artifact path; synthesize one so it still
			// gets a chance at being documented.
			row.ID = uuid.NewString()
		}

		absPath, relPath, err := retriever.Resolve(row.FilePath)
		if err != nil {
			slog.WarnContext(ctx, "skipping row: path rejected", "filepath", row.FilePath, "reason", err)
			sum.RowsSkipped++
			continue
		}

		content, err := retriever.Read(absPath)
		if err != nil {
			slog.WarnContext(ctx, "skipping row: read failed", "path", absPath, "error", err)
			sum.RowsSkipped++
			continue
		}

		if _, ok := buffers[relPath]; !ok {
			buf := fileops.ParseBuffer(absPath, content)
			if o.Cfg.RunCfg.PreserveCRLF {
				// run.preserve_crlf overrides detection: treat every target
				// as CRLF, for trees authored on Windows but checked out
				// with LF normalization.
				buf.CRLF = true
			}
			buffers[relPath] = buf
			relToAbs[relPath] = absPath
		}

		target := pyast.Resolve(content, row.LineNo)
		suspect := contextbuild.Build(row, relPath, absPath, content, target)
		items = append(items, contextbuild.Item(suspect))
	}

	sum.ItemsBuilt = len(items)
	return items, buffers, relToAbs, nil
}

// buildBatches renders C8's wire form for each item (as a singleton batch,
// purely to get a stable serialized size estimate) and packs the real
// batches with C7's budgeter.
func (o *Orchestrator) buildBatches(items []model.Item) []model.Batch {
	lim := tokenbudget.Limits{
		MaxCtxTokens:    o.Cfg.LLMCfg.ModelCtxTokens,
		RespPerItem:     o.Cfg.LLMCfg.ResponseTokensPerItem,
		BatchOverhead:   o.Cfg.LLMCfg.BatchOverheadTokens,
		Guardrail:       o.Cfg.LLMCfg.BudgetGuardrail,
		MaxOutputTokens: o.Cfg.LLMCfg.MaxOutputTokens,
	}
	serialize := func(item model.Item) string {
		system, user := promptbuild.Render(model.Batch{Items: []model.Item{item}, Ids: []string{item.ID}})
		return system + user
	}
	return tokenbudget.Pack(items, serialize, lim)
}

// runLLM renders and persists each batch's prompt, dispatches them with
// bounded concurrency, persists each raw response verbatim, and folds
// parsed results into a single id -> LlmResult map. A failed or
// unparsable batch simply contributes nothing; its items remain
// undocumented and its files untouched, per spec.md 4.9.
func (o *Orchestrator) runLLM(ctx context.Context, batches []model.Batch, results map[string]model.LlmResult, sum *Summary) {
	jobs := make([]llmclient.BatchJob, len(batches))
	for i, batch := range batches {
		system, user := promptbuild.Render(batch)
		o.writeRawPrompt(batch.Index, system, user)
		jobs[i] = llmclient.BatchJob{Request: llmclient.Request{
			BatchIndex:      batch.Index,
			System:          system,
			User:            user,
			Schema:          promptbuild.ResponseSchema(batch),
			Model:           o.Cfg.LLMCfg.Model,
			Temperature:     o.Cfg.LLMCfg.Temperature,
			MaxOutputTokens: o.Cfg.LLMCfg.MaxOutputTokens,
		}}
	}

	timeout := time.Duration(o.Cfg.LLMCfg.RequestTimeoutSeconds) * time.Second
	outcomes := llmclient.Dispatch(ctx, o.LLM, jobs, o.Cfg.LLMCfg.Concurrency, timeout)

	sum.BatchesDispatched = len(outcomes)
	for _, outcome := range outcomes {
		batch := batches[outcome.BatchIndex]
		if outcome.Err != nil {
			sum.BatchesFailed++
			o.writeRawResponse(outcome.BatchIndex, fmt.Sprintf(`{"error":%q}`, outcome.Err.Error()))
			continue
		}
		o.writeRawResponse(outcome.BatchIndex, outcome.Response.Content)

		parsed := respparse.Parse(outcome.Response.Content, batch.IdSet())
		if len(parsed) == 0 {
			sum.BatchesFailed++
			continue
		}
		for _, r := range parsed {
			if r.Docstring == "" {
				continue
			}
			results[r.ID] = r
		}
	}
}

// applySandbox concatenates every file's compiled unified diff into one
// text, parses it back with C15's applier, and validates every hunk's
// exact match before writing anything — the all-or-nothing state machine
// spec.md 4.8 requires. Running the diff back through the applier (rather
// than trusting diffcompile's in-memory Patched buffer directly) is what
// gives spec.md §8's round-trip invariant (1) real teeth.
func (o *Orchestrator) applySandbox(diffs []diffcompile.FileDiff, buffers map[string]*fileops.Buffer) (map[string]string, []patchapply.Reject, error) {
	var combined strings.Builder
	for _, fd := range diffs {
		combined.WriteString(fd.UnifiedDiff)
	}
	parsed, err := patchapply.Parse(combined.String())
	if err != nil {
		return nil, nil, fmt.Errorf("orchestrator: parsing compiled diff: %w", err)
	}

	readFile := func(relPath string) (string, error) {
		buf, ok := buffers[relPath]
		if !ok {
			return "", fmt.Errorf("no buffer for %s", relPath)
		}
		return buf.String(false), nil
	}
	patched, deleted, rejects := patchapply.ValidateAll(parsed, readFile)
	if len(rejects) > 0 {
		return nil, rejects, nil
	}
	for _, relPath := range deleted {
		// The core never emits DeleteFile ops itself, but the applier
		// supports them; a deleted file simply has no sandbox copy.
		_ = os.Remove(o.RunDir.SandboxAppliedPath(relPath))
	}
	for relPath, content := range patched {
		path := o.RunDir.SandboxAppliedPath(relPath)
		if err := fileops.EnsureDir(filepath.Dir(path)); err != nil {
			return nil, nil, err
		}
		if err := fileops.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
			return nil, nil, err
		}
	}
	return patched, nil, nil
}

// archiveManifestEntry records one archived original so Rollback can find
// its way back to the live path later.
type archiveManifestEntry struct {
	RelPath string `json:"rel_path"`
	AbsPath string `json:"abs_path"`
}

// archiveAndReplace copies every patched file's pre-image into
// archives/, then writes the sandbox's post-image over the original,
// only ever called once o.Cfg.ConfirmCfg.ConfirmProdWrites has been
// checked by the caller, per spec.md 4.9's "confirm_prod_writes" gate.
func (o *Orchestrator) archiveAndReplace(patched map[string]string, buffers map[string]*fileops.Buffer, relToAbs map[string]string) error {
	var manifest []archiveManifestEntry
	for relPath, content := range patched {
		absPath, ok := relToAbs[relPath]
		if !ok {
			continue
		}
		buf := buffers[relPath]
		archivePath := o.RunDir.ArchivePath(relPath)
		if err := fileops.EnsureDir(filepath.Dir(archivePath)); err != nil {
			return err
		}
		if err := fileops.WriteFileAtomic(archivePath, []byte(buf.String(false)), 0o644); err != nil {
			return err
		}

		if err := fileops.WriteFileAtomic(absPath, []byte(content), 0o644); err != nil {
			return err
		}

		prodPath := o.RunDir.ProdAppliedPath(relPath)
		if err := fileops.EnsureDir(filepath.Dir(prodPath)); err != nil {
			return err
		}
		if err := fileops.WriteFileAtomic(prodPath, []byte(content), 0o644); err != nil {
			return err
		}

		manifest = append(manifest, archiveManifestEntry{RelPath: relPath, AbsPath: absPath})
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	return fileops.WriteFileAtomic(filepath.Join(o.RunDir.Root, "archives_manifest.json"), data, 0o644)
}

// Rollback restores every archived original back onto its live path,
// using the manifest archiveAndReplace wrote. It is the operator's escape
// hatch after a bad archive_and_replace, also gated on ConfirmProdWrites.
func (o *Orchestrator) Rollback() error {
	if !o.Cfg.ConfirmCfg.ConfirmProdWrites {
		return &config.ConfigError{Field: "confirm.confirm_prod_writes", Msg: "rollback requires confirm_prod_writes"}
	}
	data, err := fileops.ReadFile(filepath.Join(o.RunDir.Root, "archives_manifest.json"))
	if err != nil {
		return fmt.Errorf("orchestrator: rollback: %w", err)
	}
	var manifest []archiveManifestEntry
	if err := json.Unmarshal([]byte(data.String(false)), &manifest); err != nil {
		return fmt.Errorf("orchestrator: rollback: parsing manifest: %w", err)
	}
	for _, entry := range manifest {
		archived, err := fileops.ReadFile(o.RunDir.ArchivePath(entry.RelPath))
		if err != nil {
			return fmt.Errorf("orchestrator: rollback: %s: %w", entry.RelPath, err)
		}
		if err := fileops.WriteFileAtomic(entry.AbsPath, []byte(archived.String(false)), 0o644); err != nil {
			return fmt.Errorf("orchestrator: rollback: %s: %w", entry.RelPath, err)
		}
	}
	return nil
}

func (o *Orchestrator) writeRawPrompt(batchIndex int, system, user string) {
	text := system + "\n----\n" + user
	_ = fileops.WriteFileAtomic(o.RunDir.RawPromptPath(batchIndex), []byte(text), 0o644)
}

func (o *Orchestrator) writeRawResponse(batchIndex int, content string) {
	_ = fileops.WriteFileAtomic(o.RunDir.RawResponsePath(batchIndex), []byte(content), 0o644)
}

func (o *Orchestrator) writeItemArtifact(item model.Item, result model.LlmResult, sanitizedDoc string) {
	payload := struct {
		ID           string `json:"id"`
		RelPath      string `json:"rel_path"`
		Mode         string `json:"mode"`
		RawDoc       string `json:"raw_docstring"`
		SanitizedDoc string `json:"sanitized_docstring"`
	}{
		ID:           item.ID,
		RelPath:      item.RelPath,
		Mode:         result.Mode.String(),
		RawDoc:       result.Docstring,
		SanitizedDoc: sanitizedDoc,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return
	}
	_ = fileops.WriteFileAtomic(o.RunDir.ItemPath(item.ID), data, 0o644)
}

func (o *Orchestrator) writeVerifyReport(id string, vr verify.Result) {
	_ = fileops.WriteFileAtomic(o.RunDir.VerifyReportPath(id), []byte(strings.Join(vr.Issues, "\n")+"\n"), 0o644)
}

func (o *Orchestrator) writePatchFile(relPath, id, diffText string) {
	_ = fileops.WriteFileAtomic(o.RunDir.PatchPath(relPath, id), []byte(diffText), 0o644)
}

func (o *Orchestrator) writePerItemPatches(items []model.Item, itemOps map[string][]model.PatchOp, buffers map[string]*fileops.Buffer) {
	var eg errgroup.Group
	eg.SetLimit(4)
	for _, it := range items {
		ops, ok := itemOps[it.ID]
		if !ok || len(ops) == 0 {
			continue
		}
		it, ops := it, ops
		eg.Go(func() error {
			diffs, err := diffcompile.Compile(ops, buffers)
			if err != nil || len(diffs) == 0 {
				return nil
			}
			o.writePatchFile(it.RelPath, it.ID, diffs[0].UnifiedDiff)
			return nil
		})
	}
	_ = eg.Wait()
}

func (o *Orchestrator) writeRejectsManifest(rejects []patchapply.Reject) {
	data, err := json.MarshalIndent(rejects, "", "  ")
	if err != nil {
		return
	}
	_ = fileops.WriteFileAtomic(o.RunDir.RejectsManifestPath(), data, 0o644)
}

func (o *Orchestrator) writeSummary(sum *Summary) {
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return
	}
	_ = fileops.WriteFileAtomic(o.RunDir.SummaryPath(), data, 0o644)
}
