package resolver

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"llm_proxy/internal/models"
	"llm_proxy/internal/registry"
	"llm_proxy/internal/tools"
	"llm_proxy/internal/utils"
)

// defaultTemperature is applied when a model carries no override.
const defaultTemperature = 0.7

// EffectiveConfig is the fully resolved configuration for one request.
type EffectiveConfig struct {
	// Model and Version are nil when the identifier degraded to the default.
	Model   *models.Model
	Version *models.ModelVersion

	BaseModel string
	Params    models.JSONB
	Rag       models.RagPolicy
	Tools     []tools.CallableTool
	Client    *openai.Client
}

// identifierResolver is the registry surface the resolver needs.
type identifierResolver interface {
	ResolveIdentifier(ctx context.Context, identifier string) (*models.Model, *models.ModelVersion, error)
}

// toolLookup answers whether a granted tool is registered and enabled.
type toolLookup interface {
	GetToolByName(ctx context.Context, name string) (*models.ToolDefinition, error)
}

// Config holds the resolver's defaults and upstream settings.
type Config struct {
	Upstream         UpstreamConfig
	DefaultBaseModel string
}

// Resolver turns model identifiers into effective configurations.
type Resolver struct {
	registry    identifierResolver
	toolInfo    toolLookup
	synthesizer *tools.Synthesizer
	builtins    map[string]tools.CallableTool
	clients     *ClientCache
	cfg         Config
	logger      *utils.Logger
}

// New creates a resolver.
func New(reg identifierResolver, toolInfo toolLookup, synthesizer *tools.Synthesizer,
	builtins map[string]tools.CallableTool, cfg Config, logger *utils.Logger) *Resolver {
	if logger == nil {
		logger = utils.NewLogger("resolver")
	}
	return &Resolver{
		registry:    reg,
		toolInfo:    toolInfo,
		synthesizer: synthesizer,
		builtins:    builtins,
		clients:     NewClientCache(cfg.Upstream),
		cfg:         cfg,
		logger:      logger,
	}
}

// Resolve maps an identifier to an effective configuration. Unknown
// identifiers degrade to the default base model without error; disabled
// models and inactive versions surface their gate errors unchanged.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (*EffectiveConfig, error) {
	model, version, err := r.registry.ResolveIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}

	if model == nil {
		r.logger.Info("identifier did not resolve, using default", "identifier", identifier)
		return &EffectiveConfig{
			BaseModel: r.cfg.DefaultBaseModel,
			Client:    r.clients.Get(r.settings(r.cfg.DefaultBaseModel, nil)),
		}, nil
	}

	baseModel := version.BaseModel
	if baseModel == "" {
		baseModel = r.cfg.DefaultBaseModel
	}
	params := models.FilterParams(version.Params)

	resolved, err := r.resolveTools(ctx, version.ToolNames)
	if err != nil {
		return nil, err
	}

	return &EffectiveConfig{
		Model:     model,
		Version:   version,
		BaseModel: baseModel,
		Params:    params,
		Rag:       models.RagPolicy(version.Rag),
		Tools:     resolved,
		Client:    r.clients.Get(r.settings(baseModel, params)),
	}, nil
}

// resolveTools maps tool grants to callable tools: builtins first, then the
// synthesizer cache, which is reconciled once per resolution cycle. Grants
// that resolve to nothing are skipped.
func (r *Resolver) resolveTools(ctx context.Context, names models.StringList) ([]tools.CallableTool, error) {
	if len(names) == 0 {
		return nil, nil
	}

	if err := r.synthesizer.Reconcile(ctx); err != nil {
		return nil, fmt.Errorf("failed to reconcile tool cache: %w", err)
	}

	resolved := make([]tools.CallableTool, 0, len(names))
	for _, name := range names {
		if builtin, ok := r.builtins[name]; ok {
			enabled, err := r.toolEnabled(ctx, name)
			if err != nil {
				return nil, err
			}
			if !enabled {
				r.logger.Info("skipping disabled builtin tool", "tool", name)
				continue
			}
			resolved = append(resolved, builtin)
			continue
		}

		if tool, ok := r.synthesizer.Lookup(name); ok {
			resolved = append(resolved, tool)
			continue
		}

		r.logger.Warn("tool grant did not resolve", "tool", name)
	}

	return resolved, nil
}

func (r *Resolver) toolEnabled(ctx context.Context, name string) (bool, error) {
	if r.toolInfo == nil {
		return true, nil
	}

	def, err := r.toolInfo.GetToolByName(ctx, name)
	if err != nil {
		var notFound *registry.NotFoundError
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}
	return def.Enabled, nil
}

func (r *Resolver) settings(baseModel string, params models.JSONB) clientSettings {
	settings := clientSettings{
		BaseModel:   baseModel,
		Temperature: defaultTemperature,
	}
	if v, ok := params["temperature"]; ok {
		settings.Temperature = v
	}
	if v, ok := params["max_tokens"]; ok {
		settings.MaxTokens = v
	}
	if v, ok := params["top_p"]; ok {
		settings.TopP = v
	}
	return settings
}
