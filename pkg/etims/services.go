package etims

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Checker-Finance/etims-adapter/pkg/validation"
)

// Request arguments below accept the typed structs in types.go, a decoded
// JSON object (map[string]any) or raw JSON bytes.

// Auth obtains tokens for a set of credentials.
type Auth struct{ sdk *SDK }

// TokenData is the payload returned by Auth.GetToken.
type TokenData struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// GetToken validates creds, makes them the client credentials and
// authenticates. The returned envelope carries the token and its expiry.
func (a *Auth) GetToken(ctx context.Context, creds any) (*Response, error) {
	op := Operation{Name: "auth.token", Endpoint: TokenEndpoint, Schema: AuthSchema}
	a.sdk.logger.Info("etims.auth.token")

	c, err := ValidateCredentials(creds)
	if err != nil {
		return nil, a.sdk.fail(op, err)
	}
	a.sdk.client.SetCredentials(c)

	tok, err := a.sdk.client.Authenticate(ctx)
	if err != nil {
		return nil, a.sdk.fail(op, err)
	}
	data, err := json.Marshal(TokenData{AccessToken: tok.Value, ExpiresAt: tok.ExpiresAt})
	if err != nil {
		return nil, a.sdk.fail(op, fmt.Errorf("encode token: %w", err))
	}
	return &Response{Success: true, Data: data}, nil
}

// ValidateCredentials checks a credentials document against AuthSchema.
func ValidateCredentials(creds any) (Credentials, error) {
	doc, err := validation.ToDocument(creds)
	if err != nil {
		return Credentials{}, &ValidationError{
			Message: "Validation failed",
			Errors:  []FieldError{{Field: "body", Message: err.Error()}},
		}
	}
	cleaned, fieldErrs := AuthSchema.Validate(doc)
	if len(fieldErrs) > 0 {
		return Credentials{}, &ValidationError{Message: "Validation failed", Errors: fieldErrs}
	}
	username, _ := cleaned["username"].(string)
	password, _ := cleaned["password"].(string)
	return Credentials{Username: username, Password: password}, nil
}

// Initialization registers an OSCU device.
type Initialization struct{ sdk *SDK }

// SelectInitOsdcInfo initializes the device identified by dvcSrlNo.
func (s *Initialization) SelectInitOsdcInfo(ctx context.Context, req any) (*Response, error) {
	return s.sdk.Invoke(ctx, OpSelectInitOsdcInfo, req)
}

// BasicData retrieves code tables and reference lists.
type BasicData struct{ sdk *SDK }

func (s *BasicData) SelectCodeList(ctx context.Context, req any) (*Response, error) {
	return s.sdk.Invoke(ctx, OpSelectCodeList, req)
}

func (s *BasicData) SelectItemClsList(ctx context.Context, req any) (*Response, error) {
	return s.sdk.Invoke(ctx, OpSelectItemClsList, req)
}

func (s *BasicData) SelectBhfList(ctx context.Context, req any) (*Response, error) {
	return s.sdk.Invoke(ctx, OpSelectBhfList, req)
}

func (s *BasicData) SelectNoticeList(ctx context.Context, req any) (*Response, error) {
	return s.sdk.Invoke(ctx, OpSelectNoticeList, req)
}

func (s *BasicData) SelectTaxpayerInfo(ctx context.Context, req any) (*Response, error) {
	return s.sdk.Invoke(ctx, OpSelectTaxpayerInfo, req)
}

func (s *BasicData) SelectCustomerList(ctx context.Context, req any) (*Response, error) {
	return s.sdk.Invoke(ctx, OpSelectCustomerList, req)
}

// Items manages the item master.
type Items struct{ sdk *SDK }

func (s *Items) SaveItem(ctx context.Context, req any) (*Response, error) {
	return s.sdk.Invoke(ctx, OpSaveItem, req)
}

// Sales submits and retrieves sales transactions.
type Sales struct{ sdk *SDK }

func (s *Sales) SendSalesTrns(ctx context.Context, req any) (*Response, error) {
	return s.sdk.Invoke(ctx, OpSendSalesTrns, req)
}

func (s *Sales) SelectSalesTrns(ctx context.Context, req any) (*Response, error) {
	return s.sdk.Invoke(ctx, OpSelectSalesTrns, req)
}

// Stock reads stock movements and saves the stock master.
type Stock struct{ sdk *SDK }

func (s *Stock) SelectMoveList(ctx context.Context, req any) (*Response, error) {
	return s.sdk.Invoke(ctx, OpSelectMoveList, req)
}

func (s *Stock) SaveStockMaster(ctx context.Context, req any) (*Response, error) {
	return s.sdk.Invoke(ctx, OpSaveStockMaster, req)
}

// Purchase retrieves purchase transactions.
type Purchase struct{ sdk *SDK }

func (s *Purchase) SelectPurchaseTrns(ctx context.Context, req any) (*Response, error) {
	return s.sdk.Invoke(ctx, OpSelectPurchaseTrns, req)
}

// Imports retrieves imported items declared through customs.
type Imports struct{ sdk *SDK }

func (s *Imports) SelectImportItemList(ctx context.Context, req any) (*Response, error) {
	return s.sdk.Invoke(ctx, OpSelectImportItemList, req)
}
