package zoho

import (
	"github.com/shopspring/decimal"
)

// ExternalRef identifies a record created on the platform.
type ExternalRef struct {
	ID string `json:"external_id"`
}

// envelope is the status part every Zoho response carries.
type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
	APIDomain   string `json:"api_domain"`
	Error       string `json:"error"`
}

type AccountPayload struct {
	AccountName string `json:"account_name"`
	AccountCode string `json:"account_code"`
	AccountType string `json:"account_type"`
	Description string `json:"description,omitempty"`
}

type ContactPersonPayload struct {
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Email            string `json:"email,omitempty"`
	Phone            string `json:"phone,omitempty"`
	IsPrimaryContact bool   `json:"is_primary_contact"`
}

type ContactPayload struct {
	ContactName     string                 `json:"contact_name"`
	CompanyName     string                 `json:"company_name,omitempty"`
	ContactType     string                 `json:"contact_type"`
	CustomerSubType string                 `json:"customer_sub_type"`
	AccountID       string                 `json:"account_id"`
	Notes           string                 `json:"notes,omitempty"`
	ContactPersons  []ContactPersonPayload `json:"contact_persons"`
}

// Monetary payload fields are float64 so they are encoded as JSON numbers.

type ItemPayload struct {
	Name                     string  `json:"name"`
	Unit                     string  `json:"unit"`
	Description              string  `json:"description,omitempty"`
	Rate                     float64 `json:"rate"`
	AccountID                string  `json:"account_id"`
	PurchaseRate             float64 `json:"purchase_rate"`
	PurchaseAccountID        string  `json:"purchase_account_id"`
	PurchaseDescription      string  `json:"purchase_description,omitempty"`
	ItemType                 string  `json:"item_type"`
	ProductType              string  `json:"product_type"`
	IsReturnable             bool    `json:"is_returnable"`
	InventoryAccountID       string  `json:"inventory_account_id,omitempty"`
	InventoryValuationMethod string  `json:"inventory_valuation_method,omitempty"`
	ReorderLevel             *int    `json:"reorder_level,omitempty"`
}

type PriceBookItemPayload struct {
	ItemID        string  `json:"item_id"`
	PricebookRate float64 `json:"pricebook_rate"`
}

type PriceBookPayload struct {
	Name                string                 `json:"name"`
	Description         string                 `json:"description,omitempty"`
	CurrencyID          string                 `json:"currency_id"`
	PricebookType       string                 `json:"pricebook_type"`
	SalesOrPurchaseType string                 `json:"sales_or_purchase_type"`
	RoundingType        string                 `json:"rounding_type"`
	IsIncrease          *bool                  `json:"is_increase,omitempty"`
	Percentage          *float64               `json:"percentage,omitempty"`
	Status              string                 `json:"status"`
	PricebookItems      []PriceBookItemPayload `json:"pricebook_items,omitempty"`
}

// Lookup records used to fill submission forms.

type ChartAccount struct {
	AccountID   string `json:"account_id"`
	AccountName string `json:"account_name"`
	AccountCode string `json:"account_code"`
	AccountType string `json:"account_type"`
	IsActive    bool   `json:"is_active"`
}

type Item struct {
	ItemID string          `json:"item_id"`
	Name   string          `json:"name"`
	SKU    string          `json:"sku,omitempty"`
	Unit   string          `json:"unit,omitempty"`
	Rate   decimal.Decimal `json:"rate"`
	Status string          `json:"status,omitempty"`
}

type Currency struct {
	CurrencyID     string `json:"currency_id"`
	CurrencyCode   string `json:"currency_code"`
	CurrencyName   string `json:"currency_name"`
	CurrencySymbol string `json:"currency_symbol"`
	IsBaseCurrency bool   `json:"is_base_currency"`
}

type Location struct {
	LocationID   string `json:"location_id"`
	LocationName string `json:"location_name"`
	IsPrimary    bool   `json:"is_primary"`
	Status       string `json:"status,omitempty"`
}
