package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/edgard/standupbot/internal/config"
	"github.com/edgard/standupbot/internal/gemini"
	"github.com/edgard/standupbot/internal/openai"
)

// New builds the Extractor selected by cfg.Provider. LLM providers always
// fall back to Rules. Messages are stripped of markup before extraction.
func New(ctx context.Context, cfg config.ExtractorConfig, log *slog.Logger) (Extractor, error) {
	switch cfg.Provider {
	case "", config.ProviderRules:
		return NewPlainText(NewRules()), nil
	case config.ProviderGemini:
		client, err := gemini.NewClient(ctx, cfg.Gemini, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini extractor: %w", err)
		}
		return NewPlainText(NewLLM(client, NewRules(), cfg.Instruction, cfg.Timeout, log)), nil
	case config.ProviderOpenAI:
		client, err := openai.New(cfg.OpenAI, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai extractor: %w", err)
		}
		return NewPlainText(NewLLM(client, NewRules(), cfg.Instruction, cfg.Timeout, log)), nil
	default:
		return nil, fmt.Errorf("unknown extractor provider %q", cfg.Provider)
	}
}
