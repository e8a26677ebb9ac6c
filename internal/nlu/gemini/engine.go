// Package gemini implements nlu.Engine on a Gemini chat model. The model
// classifies each utterance; the engine keeps slots in the dialogue context
// and raises an intent flag once the intent has everything it needs.
package gemini

import (
	"context"
	"fmt"

	geminimodel "github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"google.golang.org/genai"

	errx "github.com/procurebot/relay/internal/core/error"
	"github.com/procurebot/relay/internal/nlu"
	logx "github.com/procurebot/relay/pkg/logger"
)

const (
	nodeInputConverter = "input_converter"
	nodeChatModel      = "nlu_chat_model"
	nodeParser         = "parser"
)

type Config struct {
	APIKey         string  `envconfig:"GEMINI_API_KEY"`
	BaseURL        string  `envconfig:"GEMINI_BASE_URL"`
	Model          string  `envconfig:"NLU_MODEL" default:"gemini-2.5-flash"`
	MaxTokens      int     `envconfig:"NLU_MAX_TOKENS" default:"1024"`
	Temperature    float32 `envconfig:"NLU_TEMPERATURE" default:"0.1"`
	ThinkingBudget int32   `envconfig:"NLU_THINKING_BUDGET" default:"0"`
	MinConfidence  float64 `envconfig:"NLU_MIN_CONFIDENCE" default:"0.5"`
}

type request struct {
	Text  string
	Prior nlu.Context
}

// turnState is graph-local and only touched inside state handlers.
type turnState struct {
	CostUSD float64
}

type Engine struct {
	runnable      compose.Runnable[request, *Analysis]
	minConfidence float64
	newID         func() string
}

// New connects to Gemini and builds the engine.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	chatModel, err := geminimodel.NewChatModel(ctx, &geminimodel.Config{
		Client:      client,
		Model:       cfg.Model,
		Temperature: &cfg.Temperature,
		MaxTokens:   &cfg.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(cfg.ThinkingBudget),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating NLU model")
		return nil, fmt.Errorf("error creating NLU model: %w", err)
	}
	return NewWithModel(ctx, chatModel, cfg)
}

// NewWithModel builds the engine around any chat model.
func NewWithModel(ctx context.Context, chatModel einomodel.BaseChatModel, cfg Config) (*Engine, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is nil")
	}
	g := compose.NewGraph[request, *Analysis](
		compose.WithGenLocalState(func(ctx context.Context) *turnState {
			return &turnState{}
		}),
	)

	if err := g.AddLambdaNode(nodeInputConverter, newInputConverterNode()); err != nil {
		return nil, fmt.Errorf("add input converter: %w", err)
	}
	if err := g.AddChatModelNode(nodeChatModel, chatModel,
		compose.WithStatePostHandler(newUsagePostHandler(cfg.Model)),
	); err != nil {
		return nil, fmt.Errorf("add chat model: %w", err)
	}
	if err := g.AddLambdaNode(nodeParser, newParserNode()); err != nil {
		return nil, fmt.Errorf("add parser: %w", err)
	}

	edges := [][2]string{
		{compose.START, nodeInputConverter},
		{nodeInputConverter, nodeChatModel},
		{nodeChatModel, nodeParser},
		{nodeParser, compose.END},
	}
	for _, edge := range edges {
		if err := g.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}

	runnable, err := g.Compile(ctx, compose.WithMaxRunSteps(10))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling NLU graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	minConf := cfg.MinConfidence
	if minConf <= 0 {
		minConf = 0.5
	}
	return &Engine{runnable: runnable, minConfidence: minConf, newID: uuid.NewString}, nil
}

// Message implements nlu.Engine.
func (e *Engine) Message(ctx context.Context, text string, prior nlu.Context) (*nlu.Response, error) {
	a, err := e.runnable.Invoke(ctx, request{Text: text, Prior: prior}, compose.WithCallbacks(newCallbacks()))
	if err != nil {
		return nil, errx.WrapNLU(err)
	}
	if a == nil {
		a = &Analysis{Slots: map[string]string{}}
	}
	if len(a.Errors) > 0 {
		logx.Debug().Strs("parsing_errors", a.Errors).Msg("nlu output had bad records")
	}
	return advance(prior, a, e.minConfidence, e.newID), nil
}

func newInputConverterNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in request) ([]*schema.Message, error) {
		systemPrompt, err := RenderSystem(ctx)
		if err != nil {
			return nil, fmt.Errorf("render nlu system prompt: %w", err)
		}
		return []*schema.Message{
			schema.SystemMessage(systemPrompt),
			schema.UserMessage(userMessage(in.Text, in.Prior)),
		}, nil
	})
}

func newParserNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, msg *schema.Message) (*Analysis, error) {
		if msg == nil {
			return nil, fmt.Errorf("nlu model returned no message")
		}
		return ParseAnalysis(msg.Content)
	})
}

// newUsagePostHandler logs token usage and cost of the model call.
func newUsagePostHandler(modelName string) func(context.Context, *schema.Message, *turnState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, state *turnState) (*schema.Message, error) {
		if out == nil || out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
			return out, nil
		}
		usage := out.ResponseMeta.Usage
		cost := ResolvePricing(modelName).Cost(usage)
		state.CostUSD += cost.Total()
		logx.Debug().
			Str("node", nodeChatModel).
			Str("model", modelName).
			Int("prompt_tokens", usage.PromptTokens).
			Int("completion_tokens", usage.CompletionTokens).
			Int("total_tokens", usage.TotalTokens).
			Float64("input_cost_usd", cost.Input).
			Float64("output_cost_usd", cost.Output).
			Float64("total_cost_usd", state.CostUSD).
			Msg("LLM usage")
		return out, nil
	}
}

var _ nlu.Engine = (*Engine)(nil)
