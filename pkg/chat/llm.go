package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmylchreest/linkmagico/internal/logger"
	"github.com/jmylchreest/linkmagico/pkg/llm"
	"github.com/jmylchreest/linkmagico/pkg/product"
)

const systemPrompt = `Você é o LinkMágico, um assistente de vendas simpático e objetivo.
Responda em português do Brasil, em no máximo três frases, usando apenas as
informações do produto abaixo. Se a informação não estiver disponível, diga
isso e convide o cliente a consultar a página do produto. Nunca invente preços,
prazos ou condições.`

// LLMResponder answers with a language model and falls back to another
// responder when the model fails or returns nothing.
type LLMResponder struct {
	provider  llm.Provider
	fallback  Responder
	maxTokens int
	timeout   time.Duration
}

// LLMOption configures an LLMResponder.
type LLMOption func(*LLMResponder)

// WithFallback sets the responder used when the model fails. Defaults to
// KeywordResponder.
func WithFallback(r Responder) LLMOption {
	return func(l *LLMResponder) {
		l.fallback = r
	}
}

// WithMaxTokens caps the reply length.
func WithMaxTokens(n int) LLMOption {
	return func(l *LLMResponder) {
		l.maxTokens = n
	}
}

// WithTimeout bounds each model call.
func WithTimeout(d time.Duration) LLMOption {
	return func(l *LLMResponder) {
		l.timeout = d
	}
}

// NewLLMResponder creates a responder backed by p.
func NewLLMResponder(p llm.Provider, opts ...LLMOption) *LLMResponder {
	l := &LLMResponder{
		provider:  p,
		fallback:  KeywordResponder{},
		maxTokens: 300,
		timeout:   20 * time.Second,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Respond implements Responder. It only returns an error when both the
// model and the fallback fail.
func (l *LLMResponder) Respond(ctx context.Context, message string, p product.Result) (string, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	reply, err := llm.Complete(ctx, l.provider, systemPrompt, Prompt(message, p), l.maxTokens)
	if err == nil && reply != "" {
		return reply, nil
	}
	if err == nil {
		err = errors.New("empty reply")
	}

	logger.Warn("llm reply failed, using fallback",
		"provider", l.provider.Name(),
		"model", l.provider.Model(),
		"fallback", l.fallback.Name(),
		"error", err)

	// The fallback gets a fresh context so a model timeout does not starve it.
	return l.fallback.Respond(context.WithoutCancel(ctx), message, p)
}

// Name implements Responder.
func (l *LLMResponder) Name() string {
	return "llm:" + l.provider.Name()
}

// Prompt renders the user prompt for a shopper message about p.
func Prompt(message string, p product.Result) string {
	var b strings.Builder
	b.WriteString("Produto:\n")
	fmt.Fprintf(&b, "- Nome: %s\n", p.Title)
	fmt.Fprintf(&b, "- Preço: %s\n", p.Price)
	fmt.Fprintf(&b, "- Descrição: %s\n", p.Description)
	if len(p.Benefits) > 0 {
		fmt.Fprintf(&b, "- Benefícios: %s\n", strings.Join(p.Benefits, "; "))
	}
	if len(p.Testimonials) > 0 {
		fmt.Fprintf(&b, "- Depoimentos: %s\n", strings.Join(p.Testimonials, " | "))
	}
	fmt.Fprintf(&b, "- Chamada para ação: %s\n", p.CallToAction)
	if p.FinalURL != "" {
		fmt.Fprintf(&b, "- Página: %s\n", p.FinalURL)
	}
	if p.Failed() {
		b.WriteString("(Os dados do produto não puderam ser extraídos da página.)\n")
	}
	fmt.Fprintf(&b, "\nPergunta do cliente: %s", strings.TrimSpace(message))
	return b.String()
}
