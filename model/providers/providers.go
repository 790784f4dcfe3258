// Package providers wires the concrete model adapters into a
// model.Factory. It lives apart from package model so the gateway stays free
// of provider SDK imports.
package providers

import (
	"mnemo/core"
	"mnemo/model"
	"mnemo/model/anthropic"
	"mnemo/model/openai"
)

// Default returns the standard provider switch covering every adapter this
// module ships. Unknown providers fail with core.UnsupportedProviderError
// before any network call.
func Default() model.Factory {
	return func(cfg model.Config) (model.ChatModel, error) {
		switch cfg.Provider {
		case model.ProviderOpenAI:
			return openai.New(cfg), nil
		case model.ProviderAnthropic:
			return anthropic.New(cfg), nil
		default:
			return nil, &core.UnsupportedProviderError{Provider: cfg.Provider}
		}
	}
}
