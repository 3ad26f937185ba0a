package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"hedgego/internal/config"
)

// Providers understood by the default factory.
const (
	ProviderOpenAI   = "OpenAI"
	ProviderDeepSeek = "DeepSeek"
	ProviderOllama   = "Ollama"
)

// ModelInfo describes a known model's capabilities.
type ModelInfo struct {
	Name        string
	DisplayName string
	Provider    string
	JSONMode    bool
}

// knownModels is the selectable model list. Models without native JSON mode
// go through the text extraction path in the invoker.
var knownModels = []ModelInfo{
	{Name: "gpt-4o", DisplayName: "[openai] gpt-4o", Provider: ProviderOpenAI, JSONMode: true},
	{Name: "gpt-4o-mini", DisplayName: "[openai] gpt-4o-mini", Provider: ProviderOpenAI, JSONMode: true},
	{Name: "o4-mini", DisplayName: "[openai] o4-mini", Provider: ProviderOpenAI, JSONMode: true},
	{Name: "deepseek-chat", DisplayName: "[deepseek] deepseek-chat", Provider: ProviderDeepSeek, JSONMode: true},
	{Name: "deepseek-reasoner", DisplayName: "[deepseek] deepseek-reasoner", Provider: ProviderDeepSeek, JSONMode: false},
	{Name: "llama3.1", DisplayName: "[ollama] llama3.1", Provider: ProviderOllama, JSONMode: false},
	{Name: "qwen2.5", DisplayName: "[ollama] qwen2.5", Provider: ProviderOllama, JSONMode: false},
}

// KnownModels returns the selectable model list.
func KnownModels() []ModelInfo {
	out := make([]ModelInfo, len(knownModels))
	copy(out, knownModels)
	return out
}

// GetModelInfo looks up a model by name and provider. Unknown models return
// nil; the invoker then assumes native JSON mode.
func GetModelInfo(name, provider string) *ModelInfo {
	for i := range knownModels {
		if knownModels[i].Name == name && knownModels[i].Provider == provider {
			return &knownModels[i]
		}
	}
	return nil
}

// Factory resolves a chat model from a name/provider pair. Sessions inject
// a fake factory in tests.
type Factory func(ctx context.Context, name, provider string) (model.BaseChatModel, error)

// NewFactory returns the production factory backed by the configured
// provider endpoints. Ollama is served through its OpenAI-compatible API.
func NewFactory(cfg *config.Config) Factory {
	return func(ctx context.Context, name, provider string) (model.BaseChatModel, error) {
		maxTokens := 4096
		switch provider {
		case ProviderOpenAI:
			return openai.NewChatModel(ctx, &openai.ChatModelConfig{
				BaseURL:   cfg.OpenAIBaseURL,
				APIKey:    cfg.OpenAIAPIKey,
				Model:     name,
				MaxTokens: &maxTokens,
			})
		case ProviderDeepSeek:
			return deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
				APIKey:    cfg.DeepSeekAPIKey,
				Model:     name,
				MaxTokens: maxTokens,
			})
		case ProviderOllama:
			return openai.NewChatModel(ctx, &openai.ChatModelConfig{
				BaseURL:   cfg.OllamaBaseURL,
				APIKey:    "ollama",
				Model:     name,
				MaxTokens: &maxTokens,
			})
		default:
			return nil, fmt.Errorf("unknown model provider %q", provider)
		}
	}
}
