// Package respond composes the final answer call: a system prompt built from
// the answer template plus exactly one kind of grounding context, followed by
// the conversation history and the user's question.
package respond

import (
	"fmt"
	"strings"
	"time"

	"mnemo/core"
	"mnemo/logging"
	"mnemo/prompt"
)

// TimeLayout renders the current time inside the answer prompt.
const TimeLayout = "Monday, 01/02/2006 15:04"

// Context is the grounding material for one answer. A Context carries either
// an action outcome or a memory set, never both; use the constructors.
type Context struct {
	actionName     string
	actionStatus   string
	actionResponse string
	hasAction      bool

	memories []core.Candidate
}

// ActionContext grounds the answer in a just-executed action outcome.
func ActionContext(name, status, response string) Context {
	return Context{actionName: name, actionStatus: status, actionResponse: response, hasAction: true}
}

// MemoryContext grounds the answer in relevance-filtered memories.
func MemoryContext(memories []core.Candidate) Context {
	return Context{memories: memories}
}

// Empty reports whether the context carries no grounding at all.
func (c Context) Empty() bool {
	return !c.hasAction && len(c.memories) == 0
}

func (c Context) render() string {
	if c.hasAction {
		var b strings.Builder
		b.WriteString("There was an action that just happened and I will paraphrase in a very natural way the response I got from it.\n")
		b.WriteString("###\n")
		fmt.Fprintf(&b, "Name: %s\n", c.actionName)
		fmt.Fprintf(&b, "Status: %s\n", c.actionStatus)
		fmt.Fprintf(&b, "Response: %s\n", c.actionResponse)
		b.WriteString("###")
		return b.String()
	}
	if len(c.memories) == 0 {
		return ""
	}

	blocks := make([]string, 0, len(c.memories))
	for _, m := range c.memories {
		var b strings.Builder
		fmt.Fprintf(&b, "MEMORY TITLE: %q\n", titleOrDefault(m.Title))
		if m.Context != "" {
			fmt.Fprintf(&b, "CONTEXT: %q\n", m.Context)
		}
		if len(m.Tags) > 0 {
			fmt.Fprintf(&b, "TAGS: [%s]\n", strings.Join(m.Tags, ", "))
		}
		fmt.Fprintf(&b, "CONTENTS:\n%s\n", m.Content)
		blocks = append(blocks, b.String())
	}
	return "\"\"\"\n" + strings.Join(blocks, "\n\n") + "\n\"\"\""
}

func titleOrDefault(title string) string {
	if title == "" {
		return "Untitled document"
	}
	return title
}

// Options configure a Composer.
type Options struct {
	// Prompts resolves the answer template.
	Prompts *prompt.Registry
	// Logger receives composition diagnostics.
	Logger logging.Logger
	// Clock is injectable for tests.
	Clock func() time.Time
}

// Composer builds the message sequence for the final answer call.
type Composer struct {
	opts Options
}

// NewComposer constructs a Composer.
func NewComposer(optFns ...func(o *Options)) *Composer {
	opts := Options{
		Prompts: prompt.NewRegistry(),
		Logger:  logging.NoOpLogger{},
		Clock:   time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Composer{opts: opts}
}

// Messages renders the answer call: system prompt, prior conversation, then
// the question as the newest human message.
func (c *Composer) Messages(question string, history []core.Message, grounding Context) ([]core.Message, error) {
	system, err := c.opts.Prompts.Render(prompt.FinalAnswer, map[string]string{
		"context":  grounding.render(),
		"time":     c.opts.Clock().Format(TimeLayout),
		"question": question,
	})
	if err != nil {
		return nil, fmt.Errorf("render answer prompt: %w", err)
	}
	c.opts.Logger.Debug("answer prompt composed", "history", len(history), "grounded", !grounding.Empty())

	messages := make([]core.Message, 0, len(history)+2)
	messages = append(messages, core.System(system))
	messages = append(messages, history...)
	messages = append(messages, core.Human(question))
	return messages, nil
}
