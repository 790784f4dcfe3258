package action

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mnemo/core"
	"mnemo/internal/util"
	"mnemo/logging"
	"mnemo/model"
	"mnemo/prompt"
	"mnemo/recall"
)

// TimeLayout renders timestamps the way the selection prompt expects.
const TimeLayout = "Monday, 01/02/2006 15:04"

// Outcome statuses. The remote call result keeps the numeric success code as
// a string so the outcome serializes uniformly.
const (
	StatusOK    = "200"
	StatusError = "error"
)

// Outcome is the result of one action attempt. A failed attempt is still an
// Outcome (StatusError); Go errors are reserved for infrastructure faults
// such as a broken store or model gateway.
type Outcome struct {
	Status string `json:"status"`
	Action string `json:"action"`
	Data   any    `json:"data"`
}

// Invoker executes a webhook GET with query-string parameters.
type Invoker interface {
	Get(ctx context.Context, url string, params map[string]string) (any, error)
}

// Selection is the structured shape the model fills when choosing an action.
type Selection struct {
	ActionName          string         `json:"action_name" description:"Exact name of the chosen action"`
	Confidence          float64        `json:"confidence" description:"Selection confidence between 0 and 1"`
	Reasoning           string         `json:"reasoning" description:"Short justification for the choice"`
	ExtractedParameters map[string]any `json:"extracted_parameters" description:"Parameters extracted from the query per the action's schema"`
}

// SelectorOptions configure a Selector.
type SelectorOptions struct {
	// ModelConfig parameterizes the selection call; temperature defaults
	// low for consistent selection.
	ModelConfig model.Config
	// CandidateLimit caps how many actions recall proposes.
	CandidateLimit int
	Logger         logging.Logger
	Clock          func() time.Time
}

// Selector runs the full action pipeline: bootstrap, recall, model
// selection, parameter validation and webhook execution.
type Selector struct {
	registry *Registry
	recaller *recall.Recaller
	gateway  *model.Gateway
	invoker  Invoker
	opts     SelectorOptions
}

// NewSelector constructs a Selector.
func NewSelector(registry *Registry, recaller *recall.Recaller, gateway *model.Gateway, invoker Invoker, optFns ...func(o *SelectorOptions)) *Selector {
	opts := SelectorOptions{
		ModelConfig:    model.Config{Provider: model.ProviderOpenAI}.WithTemperature(0.2),
		CandidateLimit: 5,
		Logger:         logging.NoOpLogger{},
		Clock:          time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Selector{registry: registry, recaller: recaller, gateway: gateway, invoker: invoker, opts: opts}
}

// Perform resolves and executes the action matching the query. memories carry
// relevance-filtered context for the selection prompt; vector is the query
// embedding reused for action recall.
func (s *Selector) Perform(ctx context.Context, query string, vector []float32, memories []core.Candidate, conversationID string) (Outcome, error) {
	if err := s.registry.Bootstrap(ctx); err != nil {
		return Outcome{}, err
	}

	candidates, err := s.recaller.Actions(ctx, vector, s.opts.CandidateLimit)
	if err != nil {
		return Outcome{}, err
	}
	if len(candidates) == 0 {
		s.opts.Logger.Error("no actions found in vector store")
		return Outcome{Status: StatusError, Action: "Unknown", Data: "Action not found."}, nil
	}

	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		names = append(names, c.Action.Name)
	}
	s.opts.Logger.Info("selecting action", "candidates", strings.Join(names, ", "))

	selection, err := model.Invoke[Selection](ctx, s.gateway, s.opts.ModelConfig, model.StructuredCall{
		Template: prompt.ActionSelection,
		Vars: map[string]string{
			"available_actions": describeActions(candidates, s.opts.Logger),
			"context":           memoryContext(memories),
			"current_time":      s.opts.Clock().Format(TimeLayout),
			"query":             query,
		},
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("action selection: %w", err)
	}
	if selection.ActionName == "" {
		s.opts.Logger.Error("model did not select an action")
		return Outcome{Status: StatusError, Action: "Unknown", Data: "Could not determine an action to take."}, nil
	}

	chosen, ok := lookup(candidates, selection.ActionName)
	if !ok {
		s.opts.Logger.Error("selected action not among candidates", "name", selection.ActionName)
		return Outcome{Status: StatusError, Action: "Unknown", Data: "Action not found."}, nil
	}
	s.opts.Logger.Info("action selected",
		"name", chosen.Name, "confidence", selection.Confidence, "reasoning", selection.Reasoning)

	if err := util.ValidateAgainstSchema(selection.ExtractedParameters, chosen.Schema.Parameters); err != nil {
		s.opts.Logger.Error("extracted parameters rejected", "name", chosen.Name, "error", err)
		return Outcome{Status: StatusError, Action: chosen.Name, Data: fmt.Sprintf("Invalid parameters: %v", err)}, nil
	}

	params := map[string]string{
		"query":          query,
		"conversationId": conversationID,
	}
	for key, value := range selection.ExtractedParameters {
		params[key] = stringify(value)
	}

	data, err := s.invoker.Get(ctx, chosen.WebhookURL, params)
	if err != nil {
		s.opts.Logger.Error("action execution failed", "name", chosen.Name, "error", err)
		return Outcome{Status: StatusError, Action: chosen.Name, Data: "Remote action failed."}, nil
	}
	s.opts.Logger.Info("action executed", "name", chosen.Name)
	return Outcome{Status: StatusOK, Action: chosen.Name, Data: data}, nil
}

// describeActions renders one "- name: description" line per candidate. An
// action whose schema cannot describe itself still gets a line so the model
// sees the full candidate set.
func describeActions(candidates []recall.ScoredAction, logger logging.Logger) string {
	lines := make([]string, 0, len(candidates))
	for _, c := range candidates {
		description := c.Action.Schema.Description
		if description == "" {
			logger.Error("action has no usable description", "name", c.Action.Name)
			description = "No description available"
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", c.Action.Name, description))
	}
	return strings.Join(lines, "\n")
}

func memoryContext(memories []core.Candidate) string {
	if len(memories) == 0 {
		return "No relevant context memories found."
	}
	parts := make([]string, 0, len(memories))
	for _, m := range memories {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, "\n\n")
}

func lookup(candidates []recall.ScoredAction, name string) (core.Action, bool) {
	for _, c := range candidates {
		if c.Action.Name == name {
			return c.Action, true
		}
	}
	return core.Action{}, false
}

func stringify(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}
