package etims

import v "github.com/Checker-Finance/etims-adapter/pkg/validation"

// Request schemas, one per operation family.
var (
	AuthSchema = v.Schema{
		v.Required("username", v.String),
		v.Required("password", v.String),
	}

	InitializationSchema = v.Schema{
		v.Required("tin", v.String),
		v.Required("bhfId", v.String),
		v.Required("dvcSrlNo", v.String),
	}

	// ScopedListSchema covers every list lookup scoped to a taxpayer branch.
	ScopedListSchema = v.Schema{
		v.Required("tin", v.String),
		v.Required("bhfId", v.String),
		v.Required("lastReqDt", v.String),
	}

	BhfListSchema = v.Schema{
		v.Required("lastReqDt", v.String),
	}

	SalesTrnsItemSchema = v.Schema{
		v.Required("itemCd", v.String),
		v.Required("itemNm", v.String),
		v.Required("qty", v.Number),
		v.Required("prc", v.Number),
		v.Required("splyAmt", v.Number),
		v.Optional("dcRt", v.Number),
		v.Optional("dcAmt", v.Number),
		v.Required("taxTyCd", v.String),
		v.Required("taxAmt", v.Number),
	}

	SalesTrnsSchema = v.Schema{
		v.Required("tin", v.String),
		v.Required("bhfId", v.String),
		v.Required("invcNo", v.String),
		v.ArrayOf("salesTrnsItems", SalesTrnsItemSchema),
	}

	SelectSalesTrnsSchema = v.Schema{
		v.Required("tin", v.String),
		v.Required("bhfId", v.String),
		v.Required("lastReqDt", v.String),
		v.Optional("invcNo", v.String),
	}

	StockMasterSchema = v.Schema{
		v.Required("tin", v.String),
		v.Required("bhfId", v.String),
		v.Required("itemCd", v.String),
		v.Required("itemClsCd", v.String),
		v.Required("itemNm", v.String),
		v.Required("pkgUnitCd", v.String),
		v.Required("qtyUnitCd", v.String),
		v.Required("splyAmt", v.Number),
		v.Required("vatTyCd", v.String),
	}

	ItemSchema = v.Schema{
		v.Required("tin", v.String),
		v.Required("bhfId", v.String),
		v.Required("itemCd", v.String),
		v.Required("itemClsCd", v.String),
		v.Optional("itemTyCd", v.String),
		v.Required("itemNm", v.String),
		v.Optional("orgnNatCd", v.String),
		v.Required("pkgUnitCd", v.String),
		v.Required("qtyUnitCd", v.String),
		v.Required("taxTyCd", v.String),
		v.Required("dftPrc", v.Number),
		v.Optional("isrcAplcbYn", v.String),
		v.Optional("useYn", v.String),
		v.Optional("regrId", v.String),
		v.Optional("regrNm", v.String),
		v.Optional("modrId", v.String),
		v.Optional("modrNm", v.String),
	}
)
