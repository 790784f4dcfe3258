// Package model implements the model-invocation gateway every pipeline stage
// goes through. It defines the provider-neutral ChatModel interface with its
// channel-based streaming contract, the per-call Config (provider, model,
// sampling, timeout and retry budget), and the Gateway with its two modes:
// conversational (optionally streaming to a token sink, with completion-time
// persistence) and structured output (template plus machine-generated format
// instructions, decoded strictly into a declared Go shape).
//
// Concrete provider adapters live in model/openai and model/anthropic; the
// switch that maps Config.Provider to an adapter is model/providers.Default.
package model
