package ai

import (
	"context"
	"sync"
	"time"

	"tradecouncil/internal/metrics"
	"tradecouncil/pkg/errors"
	"tradecouncil/pkg/logger"
)

var _ Inferencer = (*Router)(nil)

// Router is the production Inferencer. It resolves the task to a model via
// the routing table, throttles per provider, applies the request timeout and
// classifies failures. Retries happen inside providers only.
type Router struct {
	routes          RoutingTable
	defaultProvider ProviderName
	timeout         time.Duration
	log             *logger.Logger

	mu        sync.RWMutex
	providers map[ProviderName]Provider
	limiters  map[ProviderName]RateLimiter
}

// RouterConfig configures a Router
type RouterConfig struct {
	Routes          RoutingTable
	DefaultProvider ProviderName
	Timeout         time.Duration
}

// NewRouter creates an empty router.
func NewRouter(cfg RouterConfig, log *logger.Logger) *Router {
	if cfg.Routes.Default.Model == "" {
		cfg.Routes = DefaultRoutingTable()
	}
	return &Router{
		routes:          cfg.Routes,
		defaultProvider: cfg.DefaultProvider,
		timeout:         cfg.Timeout,
		log:             log.With("component", "ai_router"),
		providers:       make(map[ProviderName]Provider),
		limiters:        make(map[ProviderName]RateLimiter),
	}
}

// Register adds a provider with its limiter. A nil limiter disables throttling.
func (r *Router) Register(provider Provider, limiter RateLimiter) error {
	if provider == nil {
		return errors.NewConfigurationError("ai provider", errors.Wrap(errors.ErrInvalidInput, "provider is nil"))
	}
	if limiter == nil {
		limiter = NewNoOpLimiter()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := provider.Name()
	if _, exists := r.providers[name]; exists {
		return errors.NewConfigurationError("ai provider", errors.Wrapf(errors.ErrInvalidInput, "provider %s already registered", name))
	}

	r.providers[name] = provider
	r.limiters[name] = limiter
	return nil
}

// Providers returns registered provider names.
func (r *Router) Providers() []ProviderName {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]ProviderName, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// Resolve returns the model and provider that will serve a task. When the
// routed provider is not registered the default provider's general model is used.
func (r *Router) Resolve(task Task) (ModelHandle, Provider, RateLimiter, error) {
	handle := r.routes.Pick(task)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.providers[handle.Provider]; ok {
		return handle, p, r.limiters[handle.Provider], nil
	}

	if p, ok := r.providers[r.defaultProvider]; ok {
		fallback := ModelHandle{
			Provider:        r.defaultProvider,
			Model:           DefaultModelFor(r.defaultProvider),
			MaxOutputTokens: handle.MaxOutputTokens,
		}
		return fallback, p, r.limiters[r.defaultProvider], nil
	}

	for name, p := range r.providers {
		fallback := ModelHandle{Provider: name, Model: DefaultModelFor(name), MaxOutputTokens: handle.MaxOutputTokens}
		return fallback, p, r.limiters[name], nil
	}

	return ModelHandle{}, nil, nil, errors.NewConfigurationError("inference provider", errors.Newf("no provider for task %s", task))
}

// Infer executes a request.
func (r *Router) Infer(ctx context.Context, req Request) (*Response, error) {
	handle, provider, limiter, err := r.Resolve(req.Task)
	if err != nil {
		return nil, err
	}

	if req.MaxOutputTokens <= 0 {
		req.MaxOutputTokens = handle.MaxOutputTokens
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()

	if err := limiter.Wait(ctx); err != nil {
		inferErr := errors.NewInferenceError(errors.InferenceRateLimited, handle.Provider.String(), handle.Model, err)
		metrics.RecordInference(handle.Provider.String(), handle.Model, string(req.Task), string(inferErr.Kind), time.Since(start), 0, 0)
		return nil, inferErr
	}

	resp, err := provider.Complete(ctx, handle, req)
	latency := time.Since(start)
	if err != nil {
		inferErr := classify(handle.Provider, handle.Model, err)
		metrics.RecordInference(handle.Provider.String(), handle.Model, string(req.Task), string(inferErr.Kind), latency, 0, 0)
		r.log.Warnw("inference failed",
			"task", req.Task,
			"provider", handle.Provider,
			"model", handle.Model,
			"kind", inferErr.Kind,
			"latency_ms", latency.Milliseconds(),
			"error", err,
		)
		return nil, inferErr
	}

	if resp.Model == "" {
		resp.Model = handle.Model
	}
	resp.Provider = handle.Provider
	resp.Latency = latency

	metrics.RecordInference(handle.Provider.String(), resp.Model, string(req.Task), "success", latency,
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	r.log.Debugw("inference completed",
		"task", req.Task,
		"provider", handle.Provider,
		"model", resp.Model,
		"latency_ms", latency.Milliseconds(),
		"tokens", resp.Usage.TotalTokens,
	)

	return resp, nil
}
