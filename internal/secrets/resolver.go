package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Checker-Finance/etims-adapter/pkg/etims"
	pkgsecrets "github.com/Checker-Finance/etims-adapter/pkg/secrets"
)

// Namespace is the last segment of every eTims credential secret name.
const Namespace = "etims"

// ErrInvalidTIN is returned for a tin that cannot form a secret name.
var ErrInvalidTIN = errors.New("invalid tin")

// AWSResolver resolves per-taxpayer values from AWS Secrets Manager, caching
// results locally to reduce API calls. It is generic over the resolved type T.
//
// Secret naming convention: {env}/{tin}/{namespace}
type AWSResolver[T any] struct {
	logger    *zap.Logger
	env       string
	namespace string
	provider  pkgsecrets.Provider
	cache     *pkgsecrets.Cache[T]
	parse     func(map[string]string) (T, error)
}

// NewAWSResolver constructs a generic per-taxpayer resolver. parse extracts T
// from the raw secret map and should validate required fields.
func NewAWSResolver[T any](
	logger *zap.Logger,
	env, namespace string,
	provider pkgsecrets.Provider,
	cache *pkgsecrets.Cache[T],
	parse func(map[string]string) (T, error),
) *AWSResolver[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AWSResolver[T]{
		logger:    logger,
		env:       env,
		namespace: namespace,
		provider:  provider,
		cache:     cache,
		parse:     parse,
	}
}

func (r *AWSResolver[T]) cacheKey(tin string) string {
	return strings.ToLower(tin + "|" + r.namespace)
}

// SecretName returns the secret holding tin's values.
func (r *AWSResolver[T]) SecretName(tin string) string {
	return strings.ToLower(fmt.Sprintf("%s/%s/%s", r.env, tin, r.namespace))
}

// Lookup returns T for tin, from the local cache when possible. Secrets the
// provider reports missing are remembered for the cache TTL, so unknown tins
// cost one provider call per TTL.
func (r *AWSResolver[T]) Lookup(ctx context.Context, tin string) (T, error) {
	var zero T
	if !etims.ValidTIN(tin) {
		return zero, fmt.Errorf("%w: %q", ErrInvalidTIN, tin)
	}
	key := r.cacheKey(tin)
	if v, ok := r.cache.Get(key); ok {
		return v, nil
	}
	if r.cache.Absent(key) {
		return zero, fmt.Errorf("resolve secret for %q: %w", tin, pkgsecrets.ErrSecretNotFound)
	}

	name := r.SecretName(tin)
	raw, err := r.provider.GetSecret(ctx, name)
	if err != nil {
		if errors.Is(err, pkgsecrets.ErrSecretNotFound) {
			r.cache.PutAbsent(key)
		}
		r.logger.Warn("aws.secret_fetch_failed", zap.String("key", name), zap.Error(err))
		return zero, fmt.Errorf("resolve secret for %q: %w", tin, err)
	}

	v, err := r.parse(raw)
	if err != nil {
		return zero, fmt.Errorf("parse secret %q: %w", name, err)
	}
	r.cache.Put(key, v)

	r.logger.Info("aws.secret_resolved", zap.String("tin", tin), zap.String("namespace", r.namespace))
	return v, nil
}

// Bust drops tin's cached value so the next Lookup refetches it.
func (r *AWSResolver[T]) Bust(tin string) {
	r.cache.Bust(r.cacheKey(tin))
}

// DiscoverTenants lists the TINs that have a secret under {env}/…/{namespace}.
func (r *AWSResolver[T]) DiscoverTenants(ctx context.Context) ([]string, error) {
	prefix := strings.ToLower(r.env + "/")
	suffix := "/" + r.namespace

	names, err := r.provider.ListSecrets(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("discover tenants: %w", err)
	}

	var tins []string
	for _, name := range names {
		lower := strings.ToLower(name)
		if !strings.HasPrefix(lower, prefix) || !strings.HasSuffix(lower, suffix) {
			continue
		}
		tin := strings.TrimSuffix(strings.TrimPrefix(lower, prefix), suffix)
		if tin != "" && !strings.Contains(tin, "/") {
			tins = append(tins, strings.ToUpper(tin))
		}
	}

	r.logger.Info("aws.tenants_discovered", zap.Int("count", len(tins)), zap.Strings("tins", tins))
	return tins, nil
}

// CredentialResolver resolves eTims integrator credentials per TIN.
// It satisfies etims.CredentialResolver.
type CredentialResolver struct {
	*AWSResolver[etims.Credentials]
}

// NewCredentialResolver builds the eTims credential resolver.
func NewCredentialResolver(logger *zap.Logger, env string, provider pkgsecrets.Provider, cache *pkgsecrets.Cache[etims.Credentials]) *CredentialResolver {
	return &CredentialResolver{
		AWSResolver: NewAWSResolver(logger, env, Namespace, provider, cache, parseCredentials),
	}
}

// Resolve returns tin's credentials, or etims.ErrCredentialsNotFound when no
// secret exists for it.
func (r *CredentialResolver) Resolve(ctx context.Context, tin string) (etims.Credentials, error) {
	creds, err := r.Lookup(ctx, tin)
	if errors.Is(err, pkgsecrets.ErrSecretNotFound) {
		return etims.Credentials{}, fmt.Errorf("%w: %s", etims.ErrCredentialsNotFound, tin)
	}
	return creds, err
}

func parseCredentials(m map[string]string) (etims.Credentials, error) {
	creds := etims.Credentials{Username: m["username"], Password: m["password"]}
	if creds.Username == "" || creds.Password == "" {
		return etims.Credentials{}, errors.New("secret must contain username and password")
	}
	return creds, nil
}
