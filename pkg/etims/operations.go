package etims

import (
	"github.com/Checker-Finance/etims-adapter/pkg/model"
	"github.com/Checker-Finance/etims-adapter/pkg/validation"
)

// Operation describes one forwarding call to eTims.
type Operation struct {
	// Name is used in logs and metrics, e.g. "sales.send".
	Name     string
	Endpoint string
	Schema   validation.Schema
	// Scoped operations carry tin, bhfId and cmcKey as request headers.
	Scoped bool
	// Cacheable operations are reference lookups served through the LookupCache.
	Cacheable bool
	// Event, when set, is emitted after a successful call.
	Event string
	// InvalidatesLookups clears the scope's cached lookups after a successful call.
	InvalidatesLookups bool
}

var (
	OpSelectInitOsdcInfo = Operation{
		Name:     "initialization.osdc_info",
		Endpoint: EndpointSelectInitOsdcInfo,
		Schema:   InitializationSchema,
	}
	OpSelectCodeList = Operation{
		Name:      "basic_data.code_list",
		Endpoint:  EndpointSelectCodeList,
		Schema:    ScopedListSchema,
		Scoped:    true,
		Cacheable: true,
	}
	OpSelectItemClsList = Operation{
		Name:      "basic_data.item_cls_list",
		Endpoint:  EndpointSelectItemClsList,
		Schema:    ScopedListSchema,
		Scoped:    true,
		Cacheable: true,
	}
	OpSelectBhfList = Operation{
		Name:      "basic_data.bhf_list",
		Endpoint:  EndpointSelectBhfList,
		Schema:    BhfListSchema,
		Cacheable: true,
	}
	OpSelectNoticeList = Operation{
		Name:     "basic_data.notice_list",
		Endpoint: EndpointSelectNoticeList,
		Schema:   ScopedListSchema,
		Scoped:   true,
	}
	OpSelectTaxpayerInfo = Operation{
		Name:      "basic_data.taxpayer_info",
		Endpoint:  EndpointSelectTaxpayerInfo,
		Schema:    ScopedListSchema,
		Scoped:    true,
		Cacheable: true,
	}
	OpSelectCustomerList = Operation{
		Name:     "basic_data.customer_list",
		Endpoint: EndpointSelectCustomerList,
		Schema:   ScopedListSchema,
		Scoped:   true,
	}
	OpSaveItem = Operation{
		Name:     "items.save",
		Endpoint: EndpointSaveItem,
		Schema:   ItemSchema,
		Scoped:   true,
		Event:    model.EventItemSaved,

		InvalidatesLookups: true,
	}
	OpSendSalesTrns = Operation{
		Name:     "sales.send",
		Endpoint: EndpointSendSalesTrns,
		Schema:   SalesTrnsSchema,
		Scoped:   true,
		Event:    model.EventSalesSubmitted,
	}
	OpSelectSalesTrns = Operation{
		Name:     "sales.select",
		Endpoint: EndpointSelectSalesTrns,
		Schema:   SelectSalesTrnsSchema,
		Scoped:   true,
	}
	OpSelectMoveList = Operation{
		Name:     "stock.move_list",
		Endpoint: EndpointSelectMoveList,
		Schema:   ScopedListSchema,
		Scoped:   true,
	}
	OpSaveStockMaster = Operation{
		Name:     "stock.save_master",
		Endpoint: EndpointSaveStockMaster,
		Schema:   StockMasterSchema,
		Scoped:   true,
		Event:    model.EventStockMasterSaved,

		InvalidatesLookups: true,
	}
	OpSelectPurchaseTrns = Operation{
		Name:     "purchase.select",
		Endpoint: EndpointSelectPurchaseTrns,
		Schema:   ScopedListSchema,
		Scoped:   true,
	}
	OpSelectImportItemList = Operation{
		Name:     "imports.item_list",
		Endpoint: EndpointSelectImportItemList,
		Schema:   ScopedListSchema,
		Scoped:   true,
	}
)

// Operations lists every forwarding operation.
var Operations = []Operation{
	OpSelectInitOsdcInfo,
	OpSelectCodeList,
	OpSelectItemClsList,
	OpSelectBhfList,
	OpSelectNoticeList,
	OpSelectTaxpayerInfo,
	OpSelectCustomerList,
	OpSaveItem,
	OpSendSalesTrns,
	OpSelectSalesTrns,
	OpSelectMoveList,
	OpSaveStockMaster,
	OpSelectPurchaseTrns,
	OpSelectImportItemList,
}

// EventTopic returns the bus topic an event type is published on.
func EventTopic(eventType string) string {
	return "evt.etims." + eventType + ".v1"
}
