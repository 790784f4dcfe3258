package prompt

import (
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"mnemo/logging"
)

//go:embed templates/*.md
var defaultTemplates embed.FS

// Template names used by the pipeline. Callers overriding the template FS
// must provide files with these names.
const (
	IntentRecognition = "intent_recognition"
	ActionSelection   = "action_selection"
	SemanticRelevance = "semantic_relevance"
	FinalAnswer       = "assistant_final_answer"
	ConversationTitle = "conversation_title"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// Options configure a Registry.
type Options struct {
	// FS is the template source. Defaults to the embedded templates.
	FS fs.FS
	// Dir is the directory inside FS holding the *.md files.
	Dir string
	// CacheTTL bounds how long a loaded template is served from cache,
	// allowing on-disk prompt edits to be picked up without a restart.
	CacheTTL time.Duration
	// Logger receives load/render diagnostics.
	Logger logging.Logger
}

// Registry loads and renders named prompt templates.
type Registry struct {
	fsys   fs.FS
	dir    string
	cache  *cache.Cache
	logger logging.Logger
}

// NewRegistry creates a template registry. With no options it serves the
// embedded default templates.
func NewRegistry(optFns ...func(o *Options)) *Registry {
	opts := Options{
		FS:       defaultTemplates,
		Dir:      "templates",
		CacheTTL: 5 * time.Minute,
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{
		fsys:   opts.FS,
		dir:    opts.Dir,
		cache:  cache.New(opts.CacheTTL, 10*time.Minute),
		logger: opts.Logger,
	}
}

// Load returns the raw template text for a name, serving from cache when warm.
func (r *Registry) Load(name string) (string, error) {
	if cached, ok := r.cache.Get(name); ok {
		return cached.(string), nil
	}
	path := name + ".md"
	if r.dir != "" {
		path = r.dir + "/" + path
	}
	raw, err := fs.ReadFile(r.fsys, path)
	if err != nil {
		return "", fmt.Errorf("load prompt template %q: %w", name, err)
	}
	text := string(raw)
	r.cache.Set(name, text, cache.DefaultExpiration)
	r.logger.Debug("prompt template loaded", "name", name, "bytes", len(raw))
	return text, nil
}

// Render loads a template and substitutes every {{variable}} placeholder from
// vars. A placeholder with no matching variable is an error rather than a
// silently empty prompt section.
func (r *Registry) Render(name string, vars map[string]string) (string, error) {
	text, err := r.Load(name)
	if err != nil {
		return "", err
	}
	return renderVars(name, text, vars)
}

// Variables returns the distinct placeholder names a template declares, in
// first-appearance order.
func (r *Registry) Variables(name string) ([]string, error) {
	text, err := r.Load(name)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names, nil
}

func renderVars(name, text string, vars map[string]string) (string, error) {
	var missing []string
	rendered := placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]
		value, ok := vars[key]
		if !ok {
			missing = append(missing, key)
			return match
		}
		return value
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("template %q missing variables: %s", name, strings.Join(missing, ", "))
	}
	return rendered, nil
}
