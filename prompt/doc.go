// Package prompt manages the named markdown templates every model call is
// built from. Templates use {{variable}} placeholders, ship as embedded
// defaults and can be overridden with any fs.FS (e.g. a directory of
// operator-tuned prompts). Loaded templates are cached.
package prompt
