package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"opsconsole/internal/service"
	"opsconsole/pkg/response"
)

// LookupHandler exposes platform reference data to the submission forms.
type LookupHandler struct {
	lookups service.LookupService
}

func NewLookupHandler(lookups service.LookupService) *LookupHandler {
	return &LookupHandler{lookups: lookups}
}

func (h *LookupHandler) RegisterRoutes(router *gin.RouterGroup) {
	g := router.Group("/external")
	g.GET("/accounts", h.ChartOfAccounts)
	g.GET("/items", h.Items)
	g.GET("/currencies", h.Currencies)
	g.GET("/locations", h.Locations)
}

// ChartOfAccounts lists platform ledger accounts
// @Summary      List chart of accounts
// @Tags         external
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]zoho.ChartAccount}
// @Failure      502  {object}  response.Response
// @Failure      503  {object}  response.Response
// @Router       /api/external/accounts [get]
func (h *LookupHandler) ChartOfAccounts(c *gin.Context) {
	serveLookup(c, "Chart of accounts", h.lookups.ChartOfAccounts)
}

// Items lists platform inventory items
// @Summary      List items
// @Tags         external
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]zoho.Item}
// @Failure      502  {object}  response.Response
// @Router       /api/external/items [get]
func (h *LookupHandler) Items(c *gin.Context) {
	serveLookup(c, "Items", h.lookups.Items)
}

// Currencies lists platform currencies
// @Summary      List currencies
// @Tags         external
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]zoho.Currency}
// @Failure      502  {object}  response.Response
// @Router       /api/external/currencies [get]
func (h *LookupHandler) Currencies(c *gin.Context) {
	serveLookup(c, "Currencies", h.lookups.Currencies)
}

// Locations lists platform warehouses and locations
// @Summary      List locations
// @Tags         external
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]zoho.Location}
// @Failure      502  {object}  response.Response
// @Router       /api/external/locations [get]
func (h *LookupHandler) Locations(c *gin.Context) {
	serveLookup(c, "Locations", h.lookups.Locations)
}

func serveLookup[T any](c *gin.Context, label string, fetch func(context.Context) ([]T, error)) {
	items, err := fetch(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.List(http.StatusOK, label, items, int64(len(items))))
}
