package service

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"opsconsole/internal/model"
	"opsconsole/internal/validation"
)

// --- Submission DTOs ---
// Request bodies never carry status, created_by or external ids; the server sets them.

type CreateAccountRequest struct {
	AccountName string `json:"account_name" binding:"required,max=255"`
	AccountCode string `json:"account_code" binding:"required,max=50"`
	AccountType string `json:"account_type" binding:"required,max=50"`
	Description string `json:"description" binding:"max=500"`
}

type ContactPersonRequest struct {
	FirstName        string `json:"first_name" binding:"required,max=50"`
	LastName         string `json:"last_name" binding:"required,max=50"`
	Email            string `json:"email" binding:"required,email"`
	Phone            string `json:"phone" binding:"max=30"`
	IsPrimaryContact bool   `json:"is_primary_contact"`
}

type CreateCustomerRequest struct {
	ContactName     string                 `json:"contact_name" binding:"required,max=100"`
	CompanyName     string                 `json:"company_name" binding:"max=100"`
	CustomerSubType string                 `json:"customer_sub_type" binding:"omitempty,oneof=individual business other"`
	ContactPersons  []ContactPersonRequest `json:"contact_persons" binding:"required,min=1,dive"`
	AccountName     string                 `json:"account_name" binding:"required,max=255"`
	AccountCode     string                 `json:"account_code" binding:"required,max=50"`
	AccountType     string                 `json:"account_type" binding:"required,max=50"`
	Description     string                 `json:"description" binding:"max=500"`
}

type CreateProductRequest struct {
	Name                     string           `json:"name" binding:"required,max=100"`
	Unit                     string           `json:"unit" binding:"required,max=30"`
	Description              string           `json:"description" binding:"max=500"`
	Rate                     *decimal.Decimal `json:"rate" binding:"required"`
	AccountID                string           `json:"account_id" binding:"max=64"`
	PurchaseRate             *decimal.Decimal `json:"purchase_rate" binding:"required"`
	PurchaseAccountID        string           `json:"purchase_account_id" binding:"required,max=64"`
	PurchaseDescription      string           `json:"purchase_description" binding:"max=500"`
	TrackInventory           bool             `json:"track_inventory"`
	InventoryValuationMethod string           `json:"inventory_valuation_method" binding:"omitempty,oneof=fifo wac"`
	ReorderLevel             *int             `json:"reorder_level" binding:"omitempty,gte=0"`
	InventoryAccountID       string           `json:"inventory_account_id" binding:"max=64"`
	ReturnableItem           bool             `json:"returnable_item"`
}

type PricebookItemRequest struct {
	ItemID        string           `json:"item_id" binding:"required"`
	ItemName      string           `json:"item_name"`
	PricebookRate *decimal.Decimal `json:"pricebook_rate" binding:"required"`
}

type CreatePriceListRequest struct {
	Name                string                 `json:"name" binding:"required,max=100"`
	Description         string                 `json:"description" binding:"max=500"`
	CurrencyID          string                 `json:"currency_id" binding:"required"`
	SalesOrPurchaseType string                 `json:"sales_or_purchase_type" binding:"required,oneof=sales purchases"`
	RoundingType        string                 `json:"rounding_type" binding:"omitempty,oneof=no_rounding round_to_dollar round_to_dollar_minus_01 round_to_half_dollar round_to_half_dollar_minus_01"`
	PricebookType       string                 `json:"pricebook_type" binding:"required,oneof=per_item fixed_percentage"`
	IsIncrease          *bool                  `json:"is_increase"`
	Percentage          *decimal.Decimal       `json:"percentage"`
	PricebookItems      []PricebookItemRequest `json:"pricebook_items" binding:"omitempty,dive"`
}

// DecisionRequest is the body of a review call.
type DecisionRequest struct {
	Status model.Status `json:"status" binding:"required,oneof=approved rejected"`
}

var maxPercentage = decimal.NewFromInt(100000)

func init() {
	validation.RegisterStruct(customerRules, CreateCustomerRequest{})
	validation.RegisterStruct(productRules, CreateProductRequest{})
	validation.RegisterStruct(priceListRules, CreatePriceListRequest{})
	validation.RegisterStruct(pricebookItemRules, PricebookItemRequest{})
}

func customerRules(sl validator.StructLevel) {
	r := sl.Current().Interface().(CreateCustomerRequest)
	if r.CustomerSubType == model.CustomerBusiness && strings.TrimSpace(r.CompanyName) == "" {
		validation.Report(sl, r.CompanyName, "company_name", "is required for business customers")
	}
}

func productRules(sl validator.StructLevel) {
	r := sl.Current().Interface().(CreateProductRequest)
	if r.Rate != nil && r.Rate.IsNegative() {
		validation.Report(sl, r.Rate, "rate", "must be greater than or equal to 0")
	}
	if r.PurchaseRate != nil && r.PurchaseRate.IsNegative() {
		validation.Report(sl, r.PurchaseRate, "purchase_rate", "must be greater than or equal to 0")
	}
	if r.TrackInventory && strings.TrimSpace(r.InventoryAccountID) == "" {
		validation.Report(sl, r.InventoryAccountID, "inventory_account_id", "is required when inventory is tracked")
	}
}

func priceListRules(sl validator.StructLevel) {
	r := sl.Current().Interface().(CreatePriceListRequest)
	switch r.PricebookType {
	case model.PricebookPerItem:
		if len(r.PricebookItems) == 0 {
			validation.Report(sl, r.PricebookItems, "pricebook_items", "must contain at least 1 item(s) for per_item price lists")
		}
		if r.Percentage != nil {
			validation.Report(sl, r.Percentage, "percentage", "must be empty for per_item price lists")
		}
	case model.PricebookFixedPercentage:
		switch {
		case r.Percentage == nil || !r.Percentage.IsPositive():
			validation.Report(sl, r.Percentage, "percentage", "must be greater than 0")
		case r.Percentage.GreaterThan(maxPercentage):
			validation.Report(sl, r.Percentage, "percentage", "must be at most 100000")
		}
		if len(r.PricebookItems) > 0 {
			validation.Report(sl, r.PricebookItems, "pricebook_items", "must be empty for fixed_percentage price lists")
		}
	}
}

func pricebookItemRules(sl validator.StructLevel) {
	r := sl.Current().Interface().(PricebookItemRequest)
	if r.PricebookRate != nil && r.PricebookRate.IsNegative() {
		validation.Report(sl, r.PricebookRate, "pricebook_rate", "must be greater than or equal to 0")
	}
}

// --- DTO to model ---

func (r CreateAccountRequest) toModel(actor model.Actor) *model.Account {
	return &model.Account{
		Approval:    model.Approval{CreatedBy: actor.ID},
		AccountName: strings.TrimSpace(r.AccountName),
		AccountCode: strings.TrimSpace(r.AccountCode),
		AccountType: r.AccountType,
		Description: r.Description,
	}
}

func (r CreateCustomerRequest) toModel(actor model.Actor) *model.Customer {
	subType := r.CustomerSubType
	if subType == "" {
		subType = model.CustomerIndividual
	}
	persons := make([]model.ContactPerson, 0, len(r.ContactPersons))
	for _, p := range r.ContactPersons {
		persons = append(persons, model.ContactPerson{
			FirstName:        p.FirstName,
			LastName:         p.LastName,
			Email:            model.NormalizeEmail(p.Email),
			Phone:            p.Phone,
			IsPrimaryContact: p.IsPrimaryContact,
		})
	}
	return &model.Customer{
		Approval:        model.Approval{CreatedBy: actor.ID},
		ContactName:     strings.TrimSpace(r.ContactName),
		CompanyName:     strings.TrimSpace(r.CompanyName),
		CustomerSubType: subType,
		ContactPersons:  persons,
		AccountName:     strings.TrimSpace(r.AccountName),
		AccountCode:     strings.TrimSpace(r.AccountCode),
		AccountType:     r.AccountType,
		Description:     r.Description,
	}
}

func (r CreateProductRequest) toModel(actor model.Actor, defaultAccountID string) *model.Product {
	accountID := strings.TrimSpace(r.AccountID)
	if accountID == "" {
		accountID = defaultAccountID
	}
	return &model.Product{
		Approval:                 model.Approval{CreatedBy: actor.ID},
		Name:                     strings.TrimSpace(r.Name),
		Unit:                     r.Unit,
		Description:              r.Description,
		Rate:                     *r.Rate,
		AccountID:                accountID,
		PurchaseRate:             *r.PurchaseRate,
		PurchaseAccountID:        r.PurchaseAccountID,
		PurchaseDescription:      r.PurchaseDescription,
		TrackInventory:           r.TrackInventory,
		InventoryValuationMethod: r.InventoryValuationMethod,
		ReorderLevel:             r.ReorderLevel,
		InventoryAccountID:       r.InventoryAccountID,
		ReturnableItem:           r.ReturnableItem,
	}
}

func (r CreatePriceListRequest) toModel(actor model.Actor) *model.PriceList {
	rounding := r.RoundingType
	if rounding == "" {
		rounding = model.RoundingNone
	}
	var items []model.PricebookItem
	for _, it := range r.PricebookItems {
		items = append(items, model.PricebookItem{
			ItemID:        it.ItemID,
			ItemName:      it.ItemName,
			PricebookRate: *it.PricebookRate,
		})
	}
	return &model.PriceList{
		Approval:            model.Approval{CreatedBy: actor.ID},
		Name:                strings.TrimSpace(r.Name),
		Description:         r.Description,
		CurrencyID:          r.CurrencyID,
		SalesOrPurchaseType: r.SalesOrPurchaseType,
		RoundingType:        rounding,
		PricebookType:       r.PricebookType,
		IsIncrease:          r.IsIncrease,
		Percentage:          r.Percentage,
		PricebookItems:      items,
	}
}
