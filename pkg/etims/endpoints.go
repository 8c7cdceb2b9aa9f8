package etims

// Base URLs of the KRA eTims OSCU API.
const (
	ProductionBaseURL = "https://etims-api.kra.go.ke/etims-api"
	SandboxBaseURL    = "https://etims-api-sbx.kra.go.ke"
)

// TokenEndpoint issues bearer tokens. Requests to it never trigger authentication.
const TokenEndpoint = "/oauth2/v1/generate"

const oscuPrefix = "/etims-oscu/v1"

// OSCU endpoint paths.
const (
	EndpointSelectInitOsdcInfo   = oscuPrefix + "/selectInitOsdcInfo"
	EndpointSelectCodeList       = oscuPrefix + "/selectCodeList"
	EndpointSelectItemClsList    = oscuPrefix + "/selectItemClsList"
	EndpointSelectBhfList        = oscuPrefix + "/selectBhfList"
	EndpointSelectNoticeList     = oscuPrefix + "/selectNoticeList"
	EndpointSelectTaxpayerInfo   = oscuPrefix + "/selectTaxpayerInfo"
	EndpointSelectCustomerList   = oscuPrefix + "/selectCustomerList"
	EndpointSaveItem             = oscuPrefix + "/saveItem"
	EndpointSendSalesTrns        = oscuPrefix + "/sendSalesTrns"
	EndpointSelectSalesTrns      = oscuPrefix + "/selectSalesTrns"
	EndpointSelectMoveList       = oscuPrefix + "/selectMoveList"
	EndpointSaveStockMaster      = oscuPrefix + "/saveStockMaster"
	EndpointSelectPurchaseTrns   = oscuPrefix + "/selectPurchaseTrns"
	EndpointSelectImportItemList = oscuPrefix + "/selectImportItemList"
)

// Scope header names sent on taxpayer-scoped calls.
const (
	HeaderTIN      = "tin"
	HeaderBranchID = "bhfId"
	HeaderCmcKey   = "cmcKey"
)
