package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Checker-Finance/etims-adapter/internal/rate"
	"github.com/Checker-Finance/etims-adapter/pkg/etims"
)

// HealthCheck checks one dependency.
type HealthCheck func(ctx context.Context) error

type operationRoute struct {
	path string
	op   etims.Operation
	call serviceCall
}

var operationRoutes = []operationRoute{
	{"/initialization/osdc-info", etims.OpSelectInitOsdcInfo,
		func(s *etims.SDK) serviceFunc { return s.Initialization.SelectInitOsdcInfo }},

	{"/basic-data/code-list", etims.OpSelectCodeList,
		func(s *etims.SDK) serviceFunc { return s.BasicData.SelectCodeList }},
	{"/basic-data/item-cls-list", etims.OpSelectItemClsList,
		func(s *etims.SDK) serviceFunc { return s.BasicData.SelectItemClsList }},
	{"/basic-data/bhf-list", etims.OpSelectBhfList,
		func(s *etims.SDK) serviceFunc { return s.BasicData.SelectBhfList }},
	{"/basic-data/notice-list", etims.OpSelectNoticeList,
		func(s *etims.SDK) serviceFunc { return s.BasicData.SelectNoticeList }},
	{"/basic-data/taxpayer-info", etims.OpSelectTaxpayerInfo,
		func(s *etims.SDK) serviceFunc { return s.BasicData.SelectTaxpayerInfo }},
	{"/basic-data/customer-list", etims.OpSelectCustomerList,
		func(s *etims.SDK) serviceFunc { return s.BasicData.SelectCustomerList }},

	{"/items/save", etims.OpSaveItem,
		func(s *etims.SDK) serviceFunc { return s.Items.SaveItem }},

	{"/sales/send", etims.OpSendSalesTrns,
		func(s *etims.SDK) serviceFunc { return s.Sales.SendSalesTrns }},
	{"/sales/select", etims.OpSelectSalesTrns,
		func(s *etims.SDK) serviceFunc { return s.Sales.SelectSalesTrns }},

	{"/stock/move-list", etims.OpSelectMoveList,
		func(s *etims.SDK) serviceFunc { return s.Stock.SelectMoveList }},
	{"/stock/save-master", etims.OpSaveStockMaster,
		func(s *etims.SDK) serviceFunc { return s.Stock.SaveStockMaster }},

	{"/purchase/select", etims.OpSelectPurchaseTrns,
		func(s *etims.SDK) serviceFunc { return s.Purchase.SelectPurchaseTrns }},

	{"/imports/item-list", etims.OpSelectImportItemList,
		func(s *etims.SDK) serviceFunc { return s.Imports.SelectImportItemList }},
}

// RegisterRoutes mounts the API under /api plus /metrics, and a 404 fallback.
// limiter may be nil.
func RegisterRoutes(app *fiber.App, h *Handler, limiter *rate.Manager, checks map[string]HealthCheck) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")
	api.Get("/health", Health(checks))

	api.Use(RateLimit(limiter))
	api.Post("/auth/token", h.Token)

	for _, r := range operationRoutes {
		api.Post(r.path, RequireAuth(), h.Operation(r.op.Name, r.call))
	}

	app.Use(NotFound)
}

// Health reports ok, or degraded with 503 when any check fails.
func Health(checks map[string]HealthCheck) fiber.Handler {
	return func(c *fiber.Ctx) error {
		results := make(map[string]string, len(checks))
		status := "ok"
		code := fiber.StatusOK

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = "degraded"
				code = fiber.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		return c.Status(code).JSON(fiber.Map{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
			"checks":    results,
		})
	}
}
