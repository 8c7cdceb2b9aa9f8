package etims

import (
	"context"
	"errors"
	"regexp"
	"sync"

	"go.uber.org/zap"
)

// ErrCredentialsNotFound is returned by a CredentialResolver that has no
// credentials for a taxpayer; the registry then falls back to the default client.
var ErrCredentialsNotFound = errors.New("etims: credentials not found")

var tinPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// ValidTIN reports whether tin is a non-empty alphanumeric taxpayer PIN.
func ValidTIN(tin string) bool { return tinPattern.MatchString(tin) }

// CredentialResolver looks up the integrator credentials registered for a TIN.
type CredentialResolver interface {
	Resolve(ctx context.Context, tin string) (Credentials, error)
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithClientOptions applies opts to every client the registry creates.
func WithClientOptions(opts ...Option) RegistryOption {
	return func(r *Registry) { r.clientOpts = append(r.clientOpts, opts...) }
}

// WithServiceOptions applies opts to every SDK the registry creates.
func WithServiceOptions(opts ...ServiceOption) RegistryOption {
	return func(r *Registry) { r.sdkOpts = append(r.sdkOpts, opts...) }
}

// WithCredentialResolver enables per-taxpayer credentials in ForTenant.
func WithCredentialResolver(res CredentialResolver) RegistryOption {
	return func(r *Registry) { r.resolver = res }
}

// WithRegistryLogger sets the registry logger.
func WithRegistryLogger(l *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// Registry owns one token-cached client per credential identity (username),
// so tenants never share a token.
type Registry struct {
	baseURL    string
	clientOpts []Option
	sdkOpts    []ServiceOption
	resolver   CredentialResolver
	logger     *zap.Logger

	mu         sync.RWMutex
	sdks       map[string]*SDK
	defaultKey string
}

// NewRegistry creates a registry whose default client uses defaults.
func NewRegistry(baseURL string, defaults Credentials, opts ...RegistryOption) *Registry {
	r := &Registry{
		baseURL: baseURL,
		logger:  zap.NewNop(),
		sdks:    make(map[string]*SDK),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.Get(defaults)
	r.defaultKey = defaults.Username
	return r
}

// Default returns the SDK used when a call names no tenant.
func (r *Registry) Default() *SDK {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sdks[r.defaultKey]
}

// Get returns the SDK for creds, creating it on first use. A known username
// presented with a new password updates the stored credentials.
func (r *Registry) Get(creds Credentials) *SDK {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sdk, ok := r.sdks[creds.Username]; ok {
		if sdk.client.Credentials() != creds {
			sdk.client.SetCredentials(creds)
		}
		return sdk
	}

	client := NewClient(r.baseURL, creds, r.clientOpts...)
	sdk := New(client, r.sdkOpts...)
	r.sdks[creds.Username] = sdk
	r.logger.Info("etims.registry.client_created", zap.String("username", creds.Username))
	return sdk
}

// Len returns the number of clients held.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sdks)
}

// Login validates creds and authenticates a fresh client with them. Only a
// successful login is registered, replacing any client held for the same
// username, and made the default for later calls.
func (r *Registry) Login(ctx context.Context, creds any) (*Response, error) {
	c, err := ValidateCredentials(creds)
	if err != nil {
		return nil, err
	}
	candidate := New(NewClient(r.baseURL, c, r.clientOpts...), r.sdkOpts...)
	resp, err := candidate.Auth.GetToken(ctx, c)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.sdks[c.Username] = candidate
	r.defaultKey = c.Username
	r.mu.Unlock()
	r.logger.Info("etims.registry.login", zap.String("username", c.Username))
	return resp, nil
}

// ForTenant returns the SDK for tin. Without a resolver, or when the resolver
// has no credentials for tin, the default SDK is returned. A malformed tin is
// a ValidationError.
func (r *Registry) ForTenant(ctx context.Context, tin string) (*SDK, error) {
	if tin != "" && !ValidTIN(tin) {
		return nil, &ValidationError{
			Message: "Validation failed",
			Errors:  []FieldError{{Field: "tin", Message: "must be alphanumeric"}},
		}
	}
	if r.resolver == nil || tin == "" {
		return r.Default(), nil
	}
	creds, err := r.resolver.Resolve(ctx, tin)
	if errors.Is(err, ErrCredentialsNotFound) {
		return r.Default(), nil
	}
	if err != nil {
		r.logger.Warn("etims.registry.resolve_failed", zap.String("tin", tin), zap.Error(err))
		return nil, &AuthenticationError{Message: "Unable to resolve credentials for taxpayer", Err: err}
	}
	return r.Get(creds), nil
}
