package etims

import "github.com/shopspring/decimal"

// Typed requests. Field names follow the eTims wire names; amounts use
// decimal.Decimal so prices and taxes never pass through float64.
// CmcKey is sent as a header and never forwarded in the body.

type InitializationRequest struct {
	TIN      string `json:"tin"`
	BhfID    string `json:"bhfId"`
	DvcSrlNo string `json:"dvcSrlNo"`
}

// ListRequest is the body of every list lookup scoped to a branch.
type ListRequest struct {
	TIN       string `json:"tin"`
	BhfID     string `json:"bhfId"`
	LastReqDt string `json:"lastReqDt"`
	CmcKey    string `json:"cmcKey,omitempty"`
}

type BhfListRequest struct {
	LastReqDt string `json:"lastReqDt"`
}

type SalesTrnsItem struct {
	ItemCd  string           `json:"itemCd"`
	ItemNm  string           `json:"itemNm"`
	Qty     decimal.Decimal  `json:"qty"`
	Prc     decimal.Decimal  `json:"prc"`
	SplyAmt decimal.Decimal  `json:"splyAmt"`
	DcRt    *decimal.Decimal `json:"dcRt,omitempty"`
	DcAmt   *decimal.Decimal `json:"dcAmt,omitempty"`
	TaxTyCd string           `json:"taxTyCd"`
	TaxAmt  decimal.Decimal  `json:"taxAmt"`
}

type SalesTrnsRequest struct {
	TIN            string          `json:"tin"`
	BhfID          string          `json:"bhfId"`
	InvcNo         string          `json:"invcNo"`
	SalesTrnsItems []SalesTrnsItem `json:"salesTrnsItems"`
	CmcKey         string          `json:"cmcKey,omitempty"`
}

type SelectSalesTrnsRequest struct {
	TIN       string `json:"tin"`
	BhfID     string `json:"bhfId"`
	LastReqDt string `json:"lastReqDt"`
	InvcNo    string `json:"invcNo,omitempty"`
	CmcKey    string `json:"cmcKey,omitempty"`
}

type StockMasterRequest struct {
	TIN       string          `json:"tin"`
	BhfID     string          `json:"bhfId"`
	ItemCd    string          `json:"itemCd"`
	ItemClsCd string          `json:"itemClsCd"`
	ItemNm    string          `json:"itemNm"`
	PkgUnitCd string          `json:"pkgUnitCd"`
	QtyUnitCd string          `json:"qtyUnitCd"`
	SplyAmt   decimal.Decimal `json:"splyAmt"`
	VatTyCd   string          `json:"vatTyCd"`
	CmcKey    string          `json:"cmcKey,omitempty"`
}

type ItemRequest struct {
	TIN         string          `json:"tin"`
	BhfID       string          `json:"bhfId"`
	ItemCd      string          `json:"itemCd"`
	ItemClsCd   string          `json:"itemClsCd"`
	ItemTyCd    string          `json:"itemTyCd,omitempty"`
	ItemNm      string          `json:"itemNm"`
	OrgnNatCd   string          `json:"orgnNatCd,omitempty"`
	PkgUnitCd   string          `json:"pkgUnitCd"`
	QtyUnitCd   string          `json:"qtyUnitCd"`
	TaxTyCd     string          `json:"taxTyCd"`
	DftPrc      decimal.Decimal `json:"dftPrc"`
	IsrcAplcbYn string          `json:"isrcAplcbYn,omitempty"`
	UseYn       string          `json:"useYn,omitempty"`
	RegrID      string          `json:"regrId,omitempty"`
	RegrNm      string          `json:"regrNm,omitempty"`
	ModrID      string          `json:"modrId,omitempty"`
	ModrNm      string          `json:"modrNm,omitempty"`
	CmcKey      string          `json:"cmcKey,omitempty"`
}
