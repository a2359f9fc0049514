package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"llm_proxy/internal/config"
	"llm_proxy/internal/middleware"
	"llm_proxy/internal/registry"
	"llm_proxy/internal/resolver"
	"llm_proxy/internal/storage"
	"llm_proxy/internal/tools"
	"llm_proxy/internal/utils"
)

// Dependencies aggregates all services the HTTP layer needs.
type Dependencies struct {
	DB          *storage.DB
	Models      *registry.ConfigRegistry
	Tools       *registry.ToolRegistry
	Synthesizer *tools.Synthesizer
	Resolver    *resolver.Resolver
}

// Close releases the resources held by the dependencies.
func (d *Dependencies) Close() error {
	return d.DB.Close()
}

// NewRouter creates an HTTP router with all dependencies wired up
func NewRouter(cfg *config.Config) (*http.ServeMux, *Dependencies, error) {
	// Initialize database
	db, err := storage.NewDB(storage.DBConfig{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		ModelCacheSize:  cfg.Cache.ModelCacheSize,
		ModelCacheTTL:   cfg.Cache.ModelCacheTTL,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Initialize repositories and registries
	modelRepo := db.NewModelRepository()
	toolRepo := db.NewToolRepository()

	toolRegistry := registry.NewToolRegistry(toolRepo, utils.NewLogger("tool-registry"))
	if err := toolRegistry.EnsureBuiltinTools(ctx, tools.BuiltinDefinitions()); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to seed builtin tools: %w", err)
	}

	configRegistry := registry.NewConfigRegistry(modelRepo, toolRegistry, utils.NewLogger("config-registry"))
	if err := configRegistry.EnsureDefaultModel(ctx, cfg.Upstream.DefaultBaseModel); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to seed default model: %w", err)
	}

	// Initialize tool synthesis and the request resolver
	synthesizer := tools.NewSynthesizer(toolRegistry, utils.NewLogger("synthesizer"))

	// TODO: wire a real retriever once a vector store is deployed; until then
	// the knowledge base tool reports it is unavailable.
	builtins := tools.Builtins(nil)

	res := resolver.New(configRegistry, toolRegistry, synthesizer, builtins, resolver.Config{
		Upstream: resolver.UpstreamConfig{
			BaseURL: cfg.Upstream.BaseURL,
			APIKey:  cfg.Upstream.APIKey,
		},
		DefaultBaseModel: cfg.Upstream.DefaultBaseModel,
	}, utils.NewLogger("resolver"))

	deps := &Dependencies{
		DB:          db,
		Models:      configRegistry,
		Tools:       toolRegistry,
		Synthesizer: synthesizer,
		Resolver:    res,
	}

	mux := http.NewServeMux()
	registerRoutes(mux, deps, cfg)

	return mux, deps, nil
}

func registerRoutes(mux *http.ServeMux, deps *Dependencies, cfg *config.Config) {
	// Health check endpoint - public
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := deps.DB.Health(r.Context()); err != nil {
			utils.RespondWithError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	adminJWT := middleware.AdminJWTMiddleware(cfg, "admin")

	// Resolution endpoint - protected
	resolveHandler := NewResolveHandler(deps.Resolver)
	mux.Handle("/v1/resolve", adminJWT(http.HandlerFunc(resolveHandler.Resolve)))

	// Model management endpoints - protected
	modelsHandler := NewAdminModelsHandler(deps.Models)
	mux.Handle("/admin/models", adminJWT(http.HandlerFunc(modelsHandler.Collection)))
	mux.Handle("/admin/models/", adminJWT(http.HandlerFunc(modelsHandler.Item)))

	// Tool management endpoints - protected
	toolsHandler := NewAdminToolsHandler(deps.Tools)
	mux.Handle("/admin/tools", adminJWT(http.HandlerFunc(toolsHandler.Collection)))
	mux.Handle("/admin/tools/", adminJWT(http.HandlerFunc(toolsHandler.Item)))
}
