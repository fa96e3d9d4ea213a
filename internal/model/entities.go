package model

import (
	"github.com/shopspring/decimal"
)

// Customer sub types.
const (
	CustomerIndividual = "individual"
	CustomerBusiness   = "business"
	CustomerOther      = "other"
)

// Price book types and rounding modes.
const (
	PricebookPerItem         = "per_item"
	PricebookFixedPercentage = "fixed_percentage"

	RoundingNone                 = "no_rounding"
	RoundingDollar               = "round_to_dollar"
	RoundingDollarMinus01        = "round_to_dollar_minus_01"
	RoundingHalfDollar           = "round_to_half_dollar"
	RoundingHalfDollarMinus01    = "round_to_half_dollar_minus_01"
	ValuationFIFO                = "fifo"
	ValuationWeightedAverageCost = "wac"
)

// Account is a chart-of-accounts (ledger) entry.
type Account struct {
	Approval
	AccountName string `gorm:"type:varchar(255);not null" json:"account_name"`
	AccountCode string `gorm:"type:varchar(50);uniqueIndex;not null" json:"account_code"`
	AccountType string `gorm:"type:varchar(50);not null" json:"account_type"`
	Description string `gorm:"type:text" json:"description,omitempty"`
}

func (*Account) Kind() Kind            { return KindAccount }
func (a *Account) DisplayName() string { return a.AccountName }

type ContactPerson struct {
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Email            string `json:"email,omitempty"`
	Phone            string `json:"phone,omitempty"`
	IsPrimaryContact bool   `json:"is_primary_contact"`
}

// Customer is a contact together with the receivable account it books against.
type Customer struct {
	Approval
	ContactName       string          `gorm:"type:varchar(100);not null" json:"contact_name"`
	CompanyName       string          `gorm:"type:varchar(100)" json:"company_name,omitempty"`
	CustomerSubType   string          `gorm:"type:varchar(20);not null;default:individual" json:"customer_sub_type"`
	ContactPersons    []ContactPerson `gorm:"type:jsonb;serializer:json" json:"contact_persons"`
	AccountName       string          `gorm:"type:varchar(255);not null" json:"account_name"`
	AccountCode       string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"account_code"`
	AccountType       string          `gorm:"type:varchar(50);not null" json:"account_type"`
	Description       string          `gorm:"type:text" json:"description,omitempty"`
	ExternalAccountID *string         `gorm:"type:varchar(64)" json:"external_account_id,omitempty"`
}

func (*Customer) Kind() Kind            { return KindCustomer }
func (c *Customer) DisplayName() string { return c.ContactName }

// Product becomes an inventory item once approved.
type Product struct {
	Approval
	Name                     string          `gorm:"type:varchar(100);not null" json:"name"`
	Unit                     string          `gorm:"type:varchar(30);not null" json:"unit"`
	Description              string          `gorm:"type:text" json:"description,omitempty"`
	Rate                     decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"rate"`
	AccountID                string          `gorm:"type:varchar(64);not null" json:"account_id"`
	PurchaseRate             decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"purchase_rate"`
	PurchaseAccountID        string          `gorm:"type:varchar(64);not null" json:"purchase_account_id"`
	PurchaseDescription      string          `gorm:"type:text" json:"purchase_description,omitempty"`
	TrackInventory           bool            `gorm:"not null;default:false" json:"track_inventory"`
	InventoryValuationMethod string          `gorm:"type:varchar(10)" json:"inventory_valuation_method,omitempty"`
	ReorderLevel             *int            `json:"reorder_level,omitempty"`
	InventoryAccountID       string          `gorm:"type:varchar(64)" json:"inventory_account_id,omitempty"`
	ReturnableItem           bool            `gorm:"not null;default:false" json:"returnable_item"`
}

func (*Product) Kind() Kind            { return KindProduct }
func (p *Product) DisplayName() string { return p.Name }

type PricebookItem struct {
	ItemID        string          `json:"item_id"`
	ItemName      string          `json:"item_name,omitempty"`
	PricebookRate decimal.Decimal `json:"pricebook_rate"`
}

// PriceList becomes a price book once approved.
type PriceList struct {
	Approval
	Name                string           `gorm:"type:varchar(100);not null" json:"name"`
	Description         string           `gorm:"type:text" json:"description,omitempty"`
	CurrencyID          string           `gorm:"type:varchar(64);not null" json:"currency_id"`
	SalesOrPurchaseType string           `gorm:"type:varchar(20);not null" json:"sales_or_purchase_type"`
	RoundingType        string           `gorm:"type:varchar(40);not null;default:no_rounding" json:"rounding_type"`
	PricebookType       string           `gorm:"type:varchar(20);not null" json:"pricebook_type"`
	IsIncrease          *bool            `json:"is_increase,omitempty"`
	Percentage          *decimal.Decimal `gorm:"type:numeric(10,2)" json:"percentage,omitempty"`
	PricebookItems      []PricebookItem  `gorm:"type:jsonb;serializer:json" json:"pricebook_items,omitempty"`
}

func (*PriceList) Kind() Kind            { return KindPriceList }
func (p *PriceList) DisplayName() string { return p.Name }

var (
	_ Approvable = (*Account)(nil)
	_ Approvable = (*Customer)(nil)
	_ Approvable = (*Product)(nil)
	_ Approvable = (*PriceList)(nil)
)
