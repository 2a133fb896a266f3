// Package tokenbudget estimates token counts and greedily packs items into
// batches that fit a model's context window.
package tokenbudget

import (
	"math"

	"docmaint/internal/model"
)

// Estimate approximates the token count of s: ceil(len(s)/4 * 1.1) + 1,
// an upper-biased estimator that never needs a real tokenizer.
func Estimate(s string) int {
	return int(math.Ceil(float64(len(s))/4*1.1)) + 1
}

// Limits carries the packing parameters that would otherwise be threaded
// through every call (config.LLM, narrowed to what packing needs).
type Limits struct {
	MaxCtxTokens    int
	RespPerItem     int
	BatchOverhead   int
	Guardrail       int
	MaxOutputTokens int
}

// Pack groups items into Batches, greedily filling each one while the
// running input size plus the batch's worst-case response size stays
// under budget, then splits any batch whose predicted output would
// exceed MaxOutputTokens into singletons.
func Pack(items []model.Item, serialize func(model.Item) string, lim Limits) []model.Batch {
	usable := lim.MaxCtxTokens - lim.Guardrail - lim.RespPerItem - lim.BatchOverhead

	type staged struct {
		item   model.Item
		tokens int
	}
	var batches [][]staged

	var current []staged
	var currentInput int
	flush := func() {
		if len(current) > 0 {
			batches = append(batches, current)
			current = nil
			currentInput = 0
		}
	}

	for _, it := range items {
		serialized := serialize(it)
		itemTokens := Estimate(serialized)

		if itemTokens > usable {
			flush()
			batches = append(batches, []staged{{item: it, tokens: itemTokens}})
			continue
		}

		n := len(current) + 1
		projected := currentInput + itemTokens + lim.RespPerItem*n + lim.Guardrail + lim.BatchOverhead
		if len(current) > 0 && projected > lim.MaxCtxTokens {
			flush()
			n = 1
		}
		current = append(current, staged{item: it, tokens: itemTokens})
		currentInput += itemTokens
	}
	flush()

	// Post-pass: split any batch whose predicted output exceeds
	// max_output_tokens into singletons.
	var final [][]staged
	for _, b := range batches {
		predictedOutput := lim.RespPerItem*len(b) + lim.BatchOverhead
		if predictedOutput > lim.MaxOutputTokens && len(b) > 1 {
			for _, s := range b {
				final = append(final, []staged{s})
			}
			continue
		}
		final = append(final, b)
	}

	result := make([]model.Batch, 0, len(final))
	for i, b := range final {
		batch := model.Batch{Index: i}
		for _, s := range b {
			batch.Items = append(batch.Items, s.item)
			batch.Ids = append(batch.Ids, s.item.ID)
		}
		result = append(result, batch)
	}
	return result
}
