package service

import (
	"github.com/shopspring/decimal"

	"opsconsole/internal/model"
	"opsconsole/internal/zoho"
)

const (
	contactTypeCustomer = "customer"
	itemTypeInventory   = "inventory"
	productTypeGoods    = "goods"
	pricebookActive     = "active"
)

func accountPayload(a *model.Account) zoho.AccountPayload {
	return zoho.AccountPayload{
		AccountName: a.AccountName,
		AccountCode: a.AccountCode,
		AccountType: a.AccountType,
		Description: a.Description,
	}
}

// customerAccountPayload is the chart account a customer books against.
func customerAccountPayload(c *model.Customer) zoho.AccountPayload {
	return zoho.AccountPayload{
		AccountName: c.AccountName,
		AccountCode: c.AccountCode,
		AccountType: c.AccountType,
		Description: c.Description,
	}
}

func contactPayload(c *model.Customer, accountID string) zoho.ContactPayload {
	persons := make([]zoho.ContactPersonPayload, 0, len(c.ContactPersons))
	for _, p := range c.ContactPersons {
		persons = append(persons, zoho.ContactPersonPayload{
			FirstName:        p.FirstName,
			LastName:         p.LastName,
			Email:            p.Email,
			Phone:            p.Phone,
			IsPrimaryContact: p.IsPrimaryContact,
		})
	}
	// The platform wants exactly one primary person.
	if len(persons) > 0 && !hasPrimary(persons) {
		persons[0].IsPrimaryContact = true
	}
	return zoho.ContactPayload{
		ContactName:     c.ContactName,
		CompanyName:     c.CompanyName,
		ContactType:     contactTypeCustomer,
		CustomerSubType: c.CustomerSubType,
		AccountID:       accountID,
		Notes:           c.Description,
		ContactPersons:  persons,
	}
}

func hasPrimary(persons []zoho.ContactPersonPayload) bool {
	for _, p := range persons {
		if p.IsPrimaryContact {
			return true
		}
	}
	return false
}

func itemPayload(p *model.Product) zoho.ItemPayload {
	out := zoho.ItemPayload{
		Name:                p.Name,
		Unit:                p.Unit,
		Description:         p.Description,
		Rate:                p.Rate.InexactFloat64(),
		AccountID:           p.AccountID,
		PurchaseRate:        p.PurchaseRate.InexactFloat64(),
		PurchaseAccountID:   p.PurchaseAccountID,
		PurchaseDescription: p.PurchaseDescription,
		ItemType:            itemTypeInventory,
		ProductType:         productTypeGoods,
		IsReturnable:        p.ReturnableItem,
		ReorderLevel:        p.ReorderLevel,
	}
	if p.TrackInventory {
		out.InventoryAccountID = p.InventoryAccountID
		out.InventoryValuationMethod = p.InventoryValuationMethod
	}
	return out
}

func priceBookPayload(pl *model.PriceList) zoho.PriceBookPayload {
	out := zoho.PriceBookPayload{
		Name:                pl.Name,
		Description:         pl.Description,
		CurrencyID:          pl.CurrencyID,
		PricebookType:       pl.PricebookType,
		SalesOrPurchaseType: pl.SalesOrPurchaseType,
		RoundingType:        pl.RoundingType,
		Status:              pricebookActive,
	}
	switch pl.PricebookType {
	case model.PricebookPerItem:
		for _, it := range pl.PricebookItems {
			out.PricebookItems = append(out.PricebookItems, zoho.PriceBookItemPayload{
				ItemID:        it.ItemID,
				PricebookRate: it.PricebookRate.InexactFloat64(),
			})
		}
	case model.PricebookFixedPercentage:
		// is_increase only has meaning for a percentage markup or markdown.
		increase := true
		if pl.IsIncrease != nil {
			increase = *pl.IsIncrease
		}
		out.IsIncrease = &increase
		pct := decimal.Zero
		if pl.Percentage != nil {
			pct = *pl.Percentage
		}
		f := pct.InexactFloat64()
		out.Percentage = &f
	}
	return out
}
