package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
	"github.com/SEBSEB62/KAYE-sub000/internal/sales"
	"github.com/SEBSEB62/KAYE-sub000/internal/workspace"
)

type cartAddRequest struct {
	ProductID string `json:"productId" validate:"required"`
}

type cartQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type miscItemRequest struct {
	Name  string          `json:"name" validate:"required,max=80"`
	Price decimal.Decimal `json:"price"`
}

type checkoutRequest struct {
	PaymentMethod string `json:"paymentMethod" validate:"required"`
	CustomerName  string `json:"customerName" validate:"max=80"`
}

func (a *API) cartRoutes(r chi.Router) {
	r.Get("/", a.handleGetCart)
	r.Delete("/", a.handleClearCart)
	r.Get("/suggestion", a.handleSuggestion)
	r.Group(func(r chi.Router) {
		r.Use(a.requireLicence)
		r.Post("/items", a.handleAddToCart)
		r.Patch("/items/{lineID}", a.handleCartQuantity)
		r.Delete("/items/{lineID}", a.handleRemoveFromCart)
		r.Post("/misc", a.handleAddMiscItem)
	})
}

func (a *API) saleRoutes(r chi.Router) {
	r.Get("/", a.handleListSales)
	r.Get("/{saleID}", a.handleGetSale)
	r.Delete("/{saleID}", a.handleDeleteSale)
	r.Post("/{saleID}/refund", a.handleRefundSale)
	r.Get("/{saleID}/receipt", a.handleReceipt)
}

type cartView struct {
	Items     []domain.CartItem `json:"items"`
	Total     decimal.Decimal   `json:"total"`
	TokenMode bool              `json:"tokenMode"`
}

func viewCart(ws *workspace.Workspace) cartView {
	return cartView{Items: ws.Cart(), Total: ws.CartTotal(), TokenMode: ws.Settings().TokenMode}
}

func (a *API) handleGetCart(w http.ResponseWriter, r *http.Request) {
	ws, err := a.service.Open(r.Context(), actorOf(r).AccountID)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewCart(ws))
}

func (a *API) handleClearCart(w http.ResponseWriter, r *http.Request) {
	ws, err := a.service.Open(r.Context(), actorOf(r).AccountID)
	if err != nil {
		fail(w, err)
		return
	}
	ws.ClearCart()
	writeJSON(w, http.StatusOK, viewCart(ws))
}

func (a *API) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var req cartAddRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ws, err := a.service.Open(r.Context(), actorOf(r).AccountID)
	if err != nil {
		fail(w, err)
		return
	}
	if _, err := ws.AddToCart(req.ProductID); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewCart(ws))
}

// handleCartQuantity sets a line's quantity. Zero or less removes the line;
// more than the stock is clamped to it.
func (a *API) handleCartQuantity(w http.ResponseWriter, r *http.Request) {
	var req cartQuantityRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ws, err := a.service.Open(r.Context(), actorOf(r).AccountID)
	if err != nil {
		fail(w, err)
		return
	}
	if _, err := ws.UpdateCartQuantity(chi.URLParam(r, "lineID"), req.Quantity); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewCart(ws))
}

func (a *API) handleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	ws, err := a.service.Open(r.Context(), actorOf(r).AccountID)
	if err != nil {
		fail(w, err)
		return
	}
	if err := ws.RemoveFromCart(chi.URLParam(r, "lineID")); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewCart(ws))
}

func (a *API) handleAddMiscItem(w http.ResponseWriter, r *http.Request) {
	var req miscItemRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ws, err := a.service.Open(r.Context(), actorOf(r).AccountID)
	if err != nil {
		fail(w, err)
		return
	}
	if _, err := ws.AddMiscItem(req.Name, req.Price); err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewCart(ws))
}

func (a *API) handleSuggestion(w http.ResponseWriter, r *http.Request) {
	resp, err := a.service.Suggest(r.Context(), actorOf(r).AccountID)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	method, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	actor := actorOf(r)
	ws, err := a.service.Open(r.Context(), actor.AccountID)
	if err != nil {
		fail(w, err)
		return
	}
	sale, err := ws.ProcessSale(method, strings.TrimSpace(req.CustomerName), actor.Member)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"sale": sale})
}

func (a *API) handleListSales(w http.ResponseWriter, r *http.Request) {
	ws, err := a.service.Open(r.Context(), actorOf(r).AccountID)
	if err != nil {
		fail(w, err)
		return
	}
	rng, err := parseRange(r, a.service.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 200, 2000)

	out := make([]domain.SaleRecord, 0)
	for _, sale := range ws.Sales() {
		if len(out) == limit {
			break
		}
		if rng == nil || rng.Contains(sale.Date) {
			out = append(out, sale)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sales": out})
}

func (a *API) handleGetSale(w http.ResponseWriter, r *http.Request) {
	ws, err := a.service.Open(r.Context(), actorOf(r).AccountID)
	if err != nil {
		fail(w, err)
		return
	}
	sale, ok := ws.Sale(chi.URLParam(r, "saleID"))
	if !ok {
		fail(w, sales.ErrSaleNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sale": sale})
}

// handleDeleteSale cancels a sale entirely: the record is removed and its
// stock is put back.
func (a *API) handleDeleteSale(w http.ResponseWriter, r *http.Request) {
	ws, err := a.service.Open(r.Context(), actorOf(r).AccountID)
	if err != nil {
		fail(w, err)
		return
	}
	if err := ws.DeleteSale(chi.URLParam(r, "saleID")); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleRefundSale(w http.ResponseWriter, r *http.Request) {
	ws, err := a.service.Open(r.Context(), actorOf(r).AccountID)
	if err != nil {
		fail(w, err)
		return
	}
	sale, err := ws.MarkRefunded(chi.URLParam(r, "saleID"))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sale": sale})
}

// handleReceipt answers JSON by default, or the raw ESC/POS stream with
// format=escpos for direct printing.
func (a *API) handleReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := a.service.Receipt(r.Context(), actorOf(r).AccountID, chi.URLParam(r, "saleID"))
	if err != nil {
		fail(w, err)
		return
	}
	if strings.EqualFold(r.URL.Query().Get("format"), "escpos") {
		writeAttachment(w, "application/octet-stream", receipt.FileName, receipt.ESCPOS)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}
