// Package rerank applies a language model as a binary relevance classifier
// over recalled candidates. One model call per candidate, issued
// concurrently; unrecognized verdicts and per-candidate failures reject the
// candidate rather than aborting the batch, and the kept set preserves the
// input order.
package rerank

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"mnemo/core"
	"mnemo/logging"
	"mnemo/model"
	"mnemo/prompt"
)

// verdict is the two-state decode of a relevance response. Anything that is
// not the literal "1" rejects: the filter fails safe, not open.
type verdict int

const (
	verdictReject verdict = iota
	verdictKeep
)

func parseVerdict(raw string) (verdict, bool) {
	switch strings.TrimSpace(raw) {
	case "1":
		return verdictKeep, true
	case "0":
		return verdictReject, true
	default:
		return verdictReject, false
	}
}

// Options configure a Reranker.
type Options struct {
	// ModelConfig parameterizes the per-candidate calls. Temperature is
	// pinned to zero regardless, for deterministic-leaning verdicts.
	ModelConfig model.Config
	// Prompts resolves the relevance template.
	Prompts *prompt.Registry
	// Logger receives verdict diagnostics.
	Logger logging.Logger
}

// Reranker filters candidates by model-judged relevance to a query.
type Reranker struct {
	gateway *model.Gateway
	opts    Options
}

// New constructs a Reranker over a model gateway.
func New(gateway *model.Gateway, optFns ...func(o *Options)) *Reranker {
	opts := Options{
		ModelConfig: model.Config{Provider: model.ProviderOpenAI},
		Prompts:     prompt.NewRegistry(),
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Reranker{gateway: gateway, opts: opts}
}

// Rerank returns the subset of candidates the model confirms as relevant to
// the query, in their original order. Each candidate is judged independently
// and concurrently; a candidate whose call fails or whose verdict does not
// decode is rejected locally without disturbing its siblings.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []core.Candidate) ([]core.Candidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	r.opts.Logger.Debug("reranking candidates", "count", len(candidates))

	cfg := r.opts.ModelConfig.WithTemperature(0)
	cfg.Stream = false

	keep := make([]bool, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	for i, candidate := range candidates {
		g.Go(func() error {
			keep[i] = r.check(gctx, query, candidate, cfg)
			// Failures are local rejects; never propagate and cancel siblings.
			return nil
		})
	}
	_ = g.Wait()

	kept := make([]core.Candidate, 0, len(candidates))
	for i, candidate := range candidates {
		if keep[i] {
			kept = append(kept, candidate)
		}
	}
	r.opts.Logger.Info("relevance filter applied", "in", len(candidates), "kept", len(kept))
	return kept, nil
}

// check runs one relevance call and decodes the verdict.
func (r *Reranker) check(ctx context.Context, query string, candidate core.Candidate, cfg model.Config) bool {
	rendered, err := r.opts.Prompts.Render(prompt.SemanticRelevance, map[string]string{
		"query":    query,
		"document": formatCandidate(candidate),
	})
	if err != nil {
		r.opts.Logger.Warn("relevance prompt failed, rejecting candidate", "id", candidate.ID, "error", err)
		return false
	}

	raw, err := r.gateway.Chat(ctx, []core.Message{core.System(rendered)}, cfg, nil)
	if err != nil {
		r.opts.Logger.Warn("relevance call failed, rejecting candidate", "id", candidate.ID, "error", err)
		return false
	}

	v, recognized := parseVerdict(raw)
	if !recognized {
		r.opts.Logger.Warn("unrecognized relevance verdict, rejecting candidate",
			"id", candidate.ID, "verdict", strings.TrimSpace(raw))
		return false
	}
	if v == verdictKeep {
		r.opts.Logger.Debug("candidate kept", "id", candidate.ID, "title", candidate.Title, "vector_score", candidate.VectorScore)
		return true
	}
	return false
}

func formatCandidate(c core.Candidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %q\n\n", c.Title)
	fmt.Fprintf(&b, "Content:\n%q\n", c.Content)
	if len(c.Tags) > 0 {
		fmt.Fprintf(&b, "\nTags:\n%q\n", strings.Join(c.Tags, ", "))
	}
	return b.String()
}
