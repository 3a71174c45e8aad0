package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BearBump/ShipTrack/internal/carriers"
	"github.com/BearBump/ShipTrack/internal/integrations/carrier"
	"github.com/BearBump/ShipTrack/internal/integrations/carrier/fedex"
	"github.com/BearBump/ShipTrack/internal/integrations/carrier/mockcarrier"
	"github.com/BearBump/ShipTrack/internal/integrations/carrier/ups"
	"github.com/BearBump/ShipTrack/internal/integrations/carrier/usps"
)

const initTimeout = 15 * time.Second

// Registry owns exactly one provider per supported carrier. Configuration
// and credentials are loaded once, on first use; initialization runs at most
// once even under concurrent first requests (callers block in once.Do until
// the registry is ready), and there is no way back to uninitialized.
//
// A carrier whose real provider fails to initialize gets a mock fallback
// provider instead, so the supported set never shrinks because optional
// credentials are absent.
type Registry struct {
	once sync.Once

	mu        sync.RWMutex
	providers map[carriers.Code]carrier.Provider
	configs   map[carriers.Code]carriers.Config

	loadConfigs func() map[carriers.Code]carriers.Config
	credentials func(carriers.Code) carriers.Credentials
}

type Option func(*Registry)

// WithConfigs overrides the static config source. Test hook.
func WithConfigs(load func() map[carriers.Code]carriers.Config) Option {
	return func(r *Registry) { r.loadConfigs = load }
}

// WithCredentials overrides the credential source. Test hook.
func WithCredentials(creds func(carriers.Code) carriers.Credentials) Option {
	return func(r *Registry) { r.credentials = creds }
}

func New(opts ...Option) *Registry {
	r := &Registry{
		providers:   make(map[carriers.Code]carrier.Provider),
		configs:     make(map[carriers.Code]carriers.Config),
		loadConfigs: carriers.DefaultConfigs,
		credentials: carriers.CredentialsFromEnv,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Initialize loads configs and constructs providers. Idempotent and safe for
// concurrent callers; the losing callers wait for the winner to finish.
func (r *Registry) Initialize(ctx context.Context) {
	r.once.Do(func() { r.initialize(ctx) })
}

func (r *Registry) initialize(ctx context.Context) {
	cfgs := r.loadConfigs()

	r.mu.Lock()
	r.configs = cfgs
	r.mu.Unlock()

	for _, code := range carriers.Codes() {
		cfg, ok := cfgs[code]
		if !ok {
			slog.Warn("carrier config missing", "carrier", string(code))
			continue
		}

		p := newProvider(cfg, r.credentials(code))

		initCtx, cancel := context.WithTimeout(ctx, initTimeout)
		err := p.Initialize(initCtx)
		cancel()
		if err != nil {
			// Non-fatal: the carrier stays supported through the mock
			// fallback, it just never makes live calls.
			slog.Warn("carrier provider init failed, registering mock fallback",
				"carrier", string(code), "error", err.Error())
			r.Register(code, mockcarrier.New(cfg))
			continue
		}

		r.Register(code, p)
		slog.Info("carrier provider registered", "carrier", string(code), "available", p.IsAvailable())
	}
}

func newProvider(cfg carriers.Config, creds carriers.Credentials) carrier.Provider {
	switch cfg.Code {
	case carriers.UPS:
		return ups.New(cfg, creds)
	case carriers.FedEx:
		return fedex.New(cfg, creds)
	case carriers.USPS:
		return usps.New(cfg, creds)
	default:
		return mockcarrier.New(cfg)
	}
}

// Register inserts or overwrites the provider for a carrier.
func (r *Registry) Register(code carriers.Code, p carrier.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[code] = p
}

// Get returns the provider for a carrier, lazily initializing the registry
// on first use.
func (r *Registry) Get(ctx context.Context, code carriers.Code) (carrier.Provider, bool) {
	r.Initialize(ctx)
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[code]
	return p, ok
}

func (r *Registry) IsSupported(ctx context.Context, code carriers.Code) bool {
	_, ok := r.Get(ctx, code)
	return ok
}

// SupportedCarriers returns registered carriers in detection order.
func (r *Registry) SupportedCarriers(ctx context.Context) []carriers.Code {
	r.Initialize(ctx)
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]carriers.Code, 0, len(r.providers))
	for _, code := range carriers.Codes() {
		if _, ok := r.providers[code]; ok {
			out = append(out, code)
		}
	}
	return out
}

func (r *Registry) Config(ctx context.Context, code carriers.Code) (carriers.Config, bool) {
	r.Initialize(ctx)
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[code]
	return cfg, ok
}
