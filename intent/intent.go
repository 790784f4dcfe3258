// Package intent labels a user utterance as an information query or an
// action request, plus the topical category that selects the recall
// collection. One structured-output model call per request; failures
// propagate, since downstream branching needs a definite result.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"mnemo/core"
	"mnemo/logging"
	"mnemo/model"
	"mnemo/prompt"
)

// Kind is the query-or-action branch decision.
type Kind int

const (
	// KindQuery asks for information.
	KindQuery Kind = iota
	// KindAction asks the assistant to do something.
	KindAction
)

// String returns the kind's display name.
func (k Kind) String() string {
	if k == KindAction {
		return "action"
	}
	return "query"
}

// Category selects the corpus an answer is expected to live in.
type Category int

const (
	// CategoryMemory targets personal facts and preferences.
	CategoryMemory Category = iota + 1
	// CategoryNote targets written notes and documents.
	CategoryNote
	// CategoryResource targets links and references.
	CategoryResource
	// CategoryAll spans every corpus.
	CategoryAll
)

// String returns the category's display name.
func (c Category) String() string {
	switch c {
	case CategoryMemory:
		return "memory"
	case CategoryNote:
		return "note"
	case CategoryResource:
		return "resource"
	default:
		return "all"
	}
}

// Result is one classification outcome.
type Result struct {
	Kind     Kind
	Category Category
	Summary  string
}

// wireResult is the numeric shape the model is asked to produce: type 0|1,
// category 1..4. Kept numeric on the wire for prompt stability.
type wireResult struct {
	Type     int    `json:"type" description:"0 for an information query, 1 for an action request"`
	Category int    `json:"category" description:"1 memory, 2 note, 3 resource, 4 all"`
	Summary  string `json:"summary" description:"One-sentence restatement of what the user wants"`
}

func (w wireResult) toResult() (Result, error) {
	res := Result{Summary: w.Summary}
	switch w.Type {
	case 0:
		res.Kind = KindQuery
	case 1:
		res.Kind = KindAction
	default:
		return Result{}, fmt.Errorf("intent type out of range: %d", w.Type)
	}
	switch w.Category {
	case 1, 2, 3, 4:
		res.Category = Category(w.Category)
	default:
		return Result{}, fmt.Errorf("intent category out of range: %d", w.Category)
	}
	return res, nil
}

// Options configure a Classifier.
type Options struct {
	// ModelConfig parameterizes the classification call; temperature
	// defaults low for consistent categorisation.
	ModelConfig model.Config
	// Logger receives classification diagnostics.
	Logger logging.Logger
}

// Classifier labels utterances through the model gateway.
type Classifier struct {
	gateway *model.Gateway
	opts    Options
}

// New constructs a Classifier.
func New(gateway *model.Gateway, optFns ...func(o *Options)) *Classifier {
	opts := Options{
		ModelConfig: model.Config{Provider: model.ProviderOpenAI}.WithTemperature(0.2),
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Classifier{gateway: gateway, opts: opts}
}

// Classify labels the query against the conversation history. Any failure
// (provider, transport or parse) propagates as a hard error for this
// request; there is no silent default intent.
func (c *Classifier) Classify(ctx context.Context, query string, history []core.Message) (Result, error) {
	wire, err := model.Invoke[wireResult](ctx, c.gateway, c.opts.ModelConfig, model.StructuredCall{
		Template: prompt.IntentRecognition,
		Vars: map[string]string{
			"query":        query,
			"conversation": Transcript(history),
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("intent classification: %w", err)
	}

	result, err := wire.toResult()
	if err != nil {
		raw, _ := json.Marshal(wire)
		return Result{}, &core.OutputParseError{Raw: string(raw), Err: err}
	}
	c.opts.Logger.Info("intent recognised",
		"kind", result.Kind.String(), "category", result.Category.String(), "summary", result.Summary)
	return result, nil
}

// Transcript flattens role-tagged history into the plain-text form the
// classification prompt expects: one "ROLE: text" line per message.
func Transcript(history []core.Message) string {
	if len(history) == 0 {
		return "(no prior conversation)"
	}
	lines := make([]string, 0, len(history))
	for _, msg := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", strings.ToUpper(string(msg.Role)), msg.Text))
	}
	return strings.Join(lines, "\n")
}
