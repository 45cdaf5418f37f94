package config

import (
	"fmt"

	"github.com/jmylchreest/linkmagico/internal/logger"
	"github.com/jmylchreest/linkmagico/pkg/chat"
	"github.com/jmylchreest/linkmagico/pkg/llm"
)

// Responder builds the chat responder. Without a usable LLM provider it
// returns the keyword responder, which needs no network access.
func (c *Config) Responder() (chat.Responder, error) {
	keyword := chat.KeywordResponder{Defaults: c.Extract.Defaults}

	name := c.LLM.Provider
	apiKey := c.LLM.APIKey
	switch name {
	case "none":
		return keyword, nil
	case "":
		name, apiKey = llm.DetectProvider()
		if name == "" {
			logger.Debug("no LLM API key found, using keyword replies")
			return keyword, nil
		}
	}

	pcfg := llm.DefaultProviderConfig()
	pcfg.APIKey = apiKey
	pcfg.BaseURL = c.LLM.BaseURL
	pcfg.Model = c.LLM.Model

	p, err := llm.NewProvider(name, pcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", name, err)
	}

	logger.Debug("chat responder configured", "provider", p.Name(), "model", p.Model())

	return chat.NewLLMResponder(p,
		chat.WithFallback(keyword),
		chat.WithMaxTokens(c.LLM.MaxTokens),
		chat.WithTimeout(c.LLM.Timeout),
	), nil
}
