package matching

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/entrhq/formless/pkg/llm"
	"github.com/entrhq/formless/pkg/llm/tokenizer"
	"github.com/entrhq/formless/pkg/memory"
	"github.com/entrhq/formless/pkg/types"
	"golang.org/x/sync/errgroup"
)

// DefaultContextBudget caps the page context sent with each generation.
const DefaultContextBudget = 2000

// DefaultConcurrency bounds in-flight generation calls per request.
const DefaultConcurrency = 4

const generateSystemPrompt = `You fill in web form fields on behalf of the user.
Reply with only the text to enter into the field. No preamble, no quotes, no markdown.`

const mapSystemPrompt = `You map web form field labels to the names of stored user memories.
Reply with a single JSON object whose keys are field labels and whose values are memory names.
Only use memory names from the list. Leave out labels that have no suitable memory.`

// Engine matches labels against the memory store. Without a provider it
// only does exact and case-insensitive intent matching and skips prompt
// memories.
type Engine struct {
	memories      memory.Lister
	provider      llm.Provider
	tok           *tokenizer.Tokenizer
	contextBudget int
	concurrency   int
	log           *slog.Logger
}

var _ Matcher = (*Engine)(nil)

// EngineOption configures an Engine.
type EngineOption func(*Engine)

func WithProvider(p llm.Provider) EngineOption {
	return func(e *Engine) { e.provider = p }
}

func WithTokenizer(t *tokenizer.Tokenizer) EngineOption {
	return func(e *Engine) { e.tok = t }
}

// WithContextBudget sets the token budget for page context; <= 0 drops it.
func WithContextBudget(n int) EngineOption {
	return func(e *Engine) { e.contextBudget = n }
}

func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.log = l }
}

// WithConcurrency bounds parallel generation calls; values below 1 mean 1.
func WithConcurrency(n int) EngineOption {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.concurrency = n
	}
}

func NewEngine(memories memory.Lister, opts ...EngineOption) *Engine {
	e := &Engine{
		memories:      memories,
		contextBudget: DefaultContextBudget,
		concurrency:   DefaultConcurrency,
		log:           slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Match resolves every label in req. Labels without a confident match are
// left out of the response; an empty response is not an error.
func (e *Engine) Match(ctx context.Context, req Request) (Response, error) {
	if err := req.Validate(); err != nil {
		return Response{}, err
	}

	records, err := e.memories.List(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("matching: list memories: %w", err)
	}
	candidates := memory.FilterIntents(records, req.MemoryIntents)

	out := Response{MatchedFields: map[string]string{}}
	if len(candidates) == 0 && len(req.UserPrompts) == 0 {
		e.log.Debug("no candidate memories", "intents", req.MemoryIntents)
		return out, nil
	}

	exact := make(map[string]memory.Record, len(candidates))
	folded := make(map[string]memory.Record, len(candidates))
	for _, r := range candidates {
		if _, ok := exact[r.Intent]; !ok {
			exact[r.Intent] = r
		}
		key := strings.ToLower(strings.TrimSpace(r.Intent))
		if _, ok := folded[key]; !ok {
			folded[key] = r
		}
	}

	matched := make(map[string]memory.Record)
	var labels, unmatched []string
	seen := make(map[string]bool, len(req.ParsedFields))
	for _, label := range req.ParsedFields {
		if seen[label] {
			continue
		}
		seen[label] = true
		labels = append(labels, label)
		if r, ok := exact[label]; ok {
			matched[label] = r
		} else if r, ok := folded[strings.ToLower(strings.TrimSpace(label))]; ok {
			matched[label] = r
		} else {
			unmatched = append(unmatched, label)
		}
	}

	if len(unmatched) > 0 && len(candidates) > 0 && e.provider != nil {
		mapping, err := e.mapLabels(ctx, unmatched, memory.Intents(candidates))
		if err != nil {
			e.log.Warn("label mapping failed", "err", err)
		}
		for label, intent := range mapping {
			if _, done := matched[label]; done || !seen[label] {
				continue
			}
			if r, ok := exact[intent]; ok {
				matched[label] = r
			}
		}
	}

	// Prompt memories cost one LLM call each; run them concurrently.
	pageContext := e.trimContext(req.Context)
	values := make([]string, len(labels))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, label := range labels {
		g.Go(func() error {
			value, err := e.valueFor(gctx, label, matched, req.UserPrompts[label], pageContext)
			values[i] = value
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Response{}, err
	}

	for i, label := range labels {
		if values[i] != "" {
			out.MatchedFields[label] = values[i]
		}
	}
	return out, nil
}

func (e *Engine) valueFor(ctx context.Context, label string, matched map[string]memory.Record, userPrompt, pageContext string) (string, error) {
	r, ok := matched[label]
	switch {
	case ok && r.Type == memory.TypeText:
		return r.Value, nil
	case e.provider == nil:
		if ok || userPrompt != "" {
			e.log.Debug("skipping generation without provider", "label", label)
		}
		return "", nil
	case ok && r.Type == memory.TypePrompt:
		return e.generate(ctx, label, r.Value, userPrompt, pageContext)
	case userPrompt != "":
		return e.generate(ctx, label, "", userPrompt, pageContext)
	}
	return "", nil
}

func (e *Engine) generate(ctx context.Context, label, instruction, userPrompt, pageContext string) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Field: %s\n", label)
	if instruction != "" {
		fmt.Fprintf(&sb, "Instruction: %s\n", instruction)
	}
	if userPrompt != "" {
		fmt.Fprintf(&sb, "User request: %s\n", userPrompt)
	}
	if pageContext != "" {
		fmt.Fprintf(&sb, "\nPage context:\n%s\n", pageContext)
	}

	msg, err := e.provider.Complete(ctx, []*types.Message{
		types.NewSystemMessage(generateSystemPrompt),
		types.NewUserMessage(sb.String()),
	})
	if err != nil {
		return "", fmt.Errorf("matching: generate %q: %w", label, err)
	}
	return strings.TrimSpace(msg.Content), nil
}

func (e *Engine) mapLabels(ctx context.Context, labels, intents []string) (map[string]string, error) {
	var sb strings.Builder
	sb.WriteString("Field labels:\n")
	for _, l := range labels {
		fmt.Fprintf(&sb, "- %s\n", l)
	}
	sb.WriteString("\nMemory names:\n")
	for _, i := range intents {
		fmt.Fprintf(&sb, "- %s\n", i)
	}

	msg, err := e.provider.Complete(ctx, []*types.Message{
		types.NewSystemMessage(mapSystemPrompt),
		types.NewUserMessage(sb.String()),
	})
	if err != nil {
		return nil, err
	}
	return parseMapping(msg.Content)
}

// parseMapping extracts the first JSON object from an LLM reply, tolerating
// code fences and surrounding prose.
func parseMapping(reply string) (map[string]string, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start == -1 || end < start {
		return nil, fmt.Errorf("matching: no JSON object in reply")
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("matching: decode mapping: %w", err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out[k] = s
		}
	}
	return out, nil
}

func (e *Engine) trimContext(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || e.contextBudget <= 0 {
		return ""
	}
	return e.tok.Truncate(s, e.contextBudget)
}
