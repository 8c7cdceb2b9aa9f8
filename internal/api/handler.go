package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Checker-Finance/etims-adapter/pkg/etims"
	"github.com/Checker-Finance/etims-adapter/pkg/validation"
)

// ClientRegistry resolves the eTims SDK serving a request.
type ClientRegistry interface {
	Login(ctx context.Context, creds any) (*etims.Response, error)
	ForTenant(ctx context.Context, tin string) (*etims.SDK, error)
}

// serviceFunc is the signature shared by every SDK service method.
type serviceFunc func(ctx context.Context, req any) (*etims.Response, error)

// serviceCall picks a service method off a resolved SDK.
type serviceCall func(sdk *etims.SDK) serviceFunc

// Handler forwards inbound API calls to the eTims SDK.
type Handler struct {
	logger   *zap.Logger
	registry ClientRegistry
}

// NewHandler creates a new Handler.
func NewHandler(logger *zap.Logger, registry ClientRegistry) *Handler {
	return &Handler{logger: logger, registry: registry}
}

// Token authenticates with the credentials in the body and returns the token.
func (h *Handler) Token(c *fiber.Ctx) error {
	doc, err := decodeBody(c)
	if err != nil {
		return err
	}
	h.logger.Info("api.auth.token", zap.String("request_id", requestID(c)))

	resp, err := h.registry.Login(c.UserContext(), doc)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

// Operation returns a handler running the service method picked by call,
// against the client registered for the body's tin.
func (h *Handler) Operation(name string, call serviceCall) fiber.Handler {
	return func(c *fiber.Ctx) error {
		doc, err := decodeBody(c)
		if err != nil {
			return err
		}
		tin, _ := doc["tin"].(string)

		h.logger.Info("api."+name,
			zap.String("tin", tin),
			zap.String("request_id", requestID(c)))

		ctx := etims.ContextWithCorrelationID(c.UserContext(), requestID(c))
		sdk, err := h.registry.ForTenant(ctx, tin)
		if err != nil {
			return err
		}
		resp, err := call(sdk)(ctx, doc)
		if err != nil {
			return err
		}
		return c.JSON(resp)
	}
}

func decodeBody(c *fiber.Ctx) (map[string]any, error) {
	doc, err := validation.Decode(c.Body())
	if err != nil {
		return nil, &etims.ValidationError{
			Message: "Validation failed",
			Errors:  []etims.FieldError{{Field: "body", Message: err.Error()}},
		}
	}
	return doc, nil
}
