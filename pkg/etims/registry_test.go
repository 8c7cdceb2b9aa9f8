package etims

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubResolver struct {
	creds map[string]Credentials
	err   error
}

func (s stubResolver) Resolve(_ context.Context, tin string) (Credentials, error) {
	if s.err != nil {
		return Credentials{}, s.err
	}
	c, ok := s.creds[tin]
	if !ok {
		return Credentials{}, ErrCredentialsNotFound
	}
	return c, nil
}

func TestRegistry_DefaultClient(t *testing.T) {
	r := NewRegistry("http://etims.test", testCreds)
	sdk := r.Default()
	require.NotNil(t, sdk)
	assert.Equal(t, testCreds, sdk.Client().Credentials())
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_ClientsKeyedByUsername(t *testing.T) {
	r := NewRegistry("http://etims.test", testCreds)

	a := r.Get(Credentials{Username: "tenant-a", Password: "pw"})
	b := r.Get(Credentials{Username: "tenant-b", Password: "pw"})
	again := r.Get(Credentials{Username: "tenant-a", Password: "rotated"})

	assert.NotSame(t, a, b)
	assert.Same(t, a, again)
	assert.Equal(t, "rotated", a.Client().Credentials().Password)
	assert.Equal(t, 3, r.Len())
}

func TestRegistry_LoginPromotesDefault(t *testing.T) {
	f := newFakeETims(t)
	r := NewRegistry(f.server.URL, Credentials{}, WithRegistryLogger(zap.NewNop()))

	resp, err := r.Login(context.Background(), map[string]any{"username": "integrator", "password": "s3cret"})
	require.NoError(t, err)
	assert.True(t, resp.Success)

	def := r.Default()
	assert.Equal(t, "integrator", def.Client().Credentials().Username)
	assert.True(t, def.Client().IsTokenValid())
}

func TestRegistry_LoginFailureKeepsDefault(t *testing.T) {
	f := newFakeETims(t)
	f.set(func(f *fakeETims) { f.tokenStatus = 401 })
	r := NewRegistry(f.server.URL, testCreds)

	_, err := r.Login(context.Background(), map[string]any{"username": "intruder", "password": "x"})
	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, testCreds.Username, r.Default().Client().Credentials().Username)
	assert.Equal(t, 1, r.Len(), "failed logins are not registered")
}

func TestRegistry_LoginFailureKeepsDefaultCredentials(t *testing.T) {
	f := newFakeETims(t)
	r := NewRegistry(f.server.URL, testCreds)
	def := r.Default()
	_, err := def.Client().Authenticate(context.Background())
	require.NoError(t, err)

	f.set(func(f *fakeETims) { f.tokenStatus = 401 })
	_, err = r.Login(context.Background(), map[string]any{"username": testCreds.Username, "password": "wrong"})
	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)

	assert.Same(t, def, r.Default())
	assert.Equal(t, testCreds, r.Default().Client().Credentials())
	assert.True(t, r.Default().Client().IsTokenValid())
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_LoginReplacesClientForKnownUsername(t *testing.T) {
	f := newFakeETims(t)
	r := NewRegistry(f.server.URL, testCreds)
	old := r.Default()

	rotated := Credentials{Username: testCreds.Username, Password: "rotated"}
	_, err := r.Login(context.Background(), map[string]any{"username": rotated.Username, "password": rotated.Password})
	require.NoError(t, err)

	assert.NotSame(t, old, r.Default())
	assert.Equal(t, rotated, r.Default().Client().Credentials())
	assert.True(t, r.Default().Client().IsTokenValid())
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_LoginValidation(t *testing.T) {
	r := NewRegistry("http://etims.test", testCreds)
	_, err := r.Login(context.Background(), map[string]any{})
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_ForTenant(t *testing.T) {
	tenant := Credentials{Username: "tenant-a", Password: "pw"}
	r := NewRegistry("http://etims.test", testCreds,
		WithCredentialResolver(stubResolver{creds: map[string]Credentials{"P000000001A": tenant}}))

	sdk, err := r.ForTenant(context.Background(), "P000000001A")
	require.NoError(t, err)
	assert.Equal(t, tenant, sdk.Client().Credentials())

	sdk, err = r.ForTenant(context.Background(), "P999999999Z")
	require.NoError(t, err)
	assert.Same(t, r.Default(), sdk, "unknown tenants use the default client")

	sdk, err = r.ForTenant(context.Background(), "")
	require.NoError(t, err)
	assert.Same(t, r.Default(), sdk)
}

func TestRegistry_ForTenantRejectsMalformedTIN(t *testing.T) {
	r := NewRegistry("http://etims.test", testCreds,
		WithCredentialResolver(stubResolver{err: errors.New("must not be called")}))

	for _, tin := range []string{"P0/../x", "P000 000", "P0001%2F"} {
		_, err := r.ForTenant(context.Background(), tin)
		var valErr *ValidationError
		require.ErrorAs(t, err, &valErr, tin)
		assert.Equal(t, "tin", valErr.Errors[0].Field)
	}
}

func TestValidTIN(t *testing.T) {
	assert.True(t, ValidTIN("P000000001A"))
	assert.False(t, ValidTIN(""))
	assert.False(t, ValidTIN("P0/1"))
	assert.False(t, ValidTIN("p-1"))
}

func TestRegistry_ForTenantResolverFailure(t *testing.T) {
	r := NewRegistry("http://etims.test", testCreds,
		WithCredentialResolver(stubResolver{err: errors.New("throttled")}))

	_, err := r.ForTenant(context.Background(), "P000000001A")
	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
}

func TestRegistry_WithoutResolver(t *testing.T) {
	r := NewRegistry("http://etims.test", testCreds)
	sdk, err := r.ForTenant(context.Background(), "P000000001A")
	require.NoError(t, err)
	assert.Same(t, r.Default(), sdk)
}

func TestRegistry_AppliesOptions(t *testing.T) {
	sink := &recordingSink{}
	f := newFakeETims(t)
	r := NewRegistry(f.server.URL, testCreds,
		WithClientOptions(WithSingleFlight()),
		WithServiceOptions(WithEventSink(sink)))

	_, err := r.Default().Stock.SaveStockMaster(context.Background(), map[string]any{
		"tin": "P000000001A", "bhfId": "00", "itemCd": "KE1NTXU0000001", "itemClsCd": "5059690800",
		"itemNm": "Sugar 1kg", "pkgUnitCd": "NT", "qtyUnitCd": "U", "splyAmt": 500, "vatTyCd": "B",
	})
	require.NoError(t, err)
	require.NotNil(t, r.Default().Client().refreshGroup)
	require.Len(t, sink.events, 1)
	assert.Equal(t, "stock.master_saved", sink.events[0].EventType)
}
