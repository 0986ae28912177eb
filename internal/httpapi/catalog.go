package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
	"github.com/SEBSEB62/KAYE-sub000/internal/inventory"
	"github.com/SEBSEB62/KAYE-sub000/internal/media"
)

type productRequest struct {
	Name               string          `json:"name" validate:"required,max=80"`
	Price              decimal.Decimal `json:"price"`
	PurchasePrice      decimal.Decimal `json:"purchasePrice"`
	TokenPrice         decimal.Decimal `json:"tokenPrice"`
	Stock              int             `json:"stock" validate:"gte=0"`
	Category           string          `json:"category" validate:"max=40"`
	Image              *domain.Image   `json:"image"`
	PackageUnit        string          `json:"packageUnit" validate:"max=40"`
	ServingsPerPackage int             `json:"servingsPerPackage" validate:"gte=0"`
	LaborTimeMinutes   decimal.Decimal `json:"laborTimeMinutes"`
}

func (p productRequest) product(id string) domain.Product {
	out := domain.Product{
		ID:                 id,
		Name:               p.Name,
		Price:              p.Price,
		PurchasePrice:      p.PurchasePrice,
		TokenPrice:         p.TokenPrice,
		Stock:              p.Stock,
		Category:           p.Category,
		PackageUnit:        p.PackageUnit,
		ServingsPerPackage: p.ServingsPerPackage,
		LaborTimeMinutes:   p.LaborTimeMinutes,
	}
	if p.Image != nil {
		out.Image = *p.Image
	}
	return out
}

type restockRequest struct {
	Quantity int    `json:"quantity" validate:"gt=0"`
	Note     string `json:"note" validate:"max=200"`
}

type ideaRequest struct {
	Name string `json:"name" validate:"required,max=80"`
}

func (a *API) productRoutes(r chi.Router) {
	r.Get("/", a.handleListProducts)
	r.Post("/", a.handleCreateProduct)
	r.Post("/ideas", a.handleProductIdea)
	r.Get("/{productID}", a.handleGetProduct)
	r.Put("/{productID}", a.handleUpdateProduct)
	r.Delete("/{productID}", a.handleDeleteProduct)
	r.Post("/{productID}/restock", a.handleRestock)
	r.Get("/{productID}/history", a.handleProductHistory)
	r.Put("/{productID}/image", a.handleProductImage)
}

func (a *API) handleListProducts(w http.ResponseWriter, r *http.Request) {
	ws, err := a.service.Open(r.Context(), actorOf(r).AccountID)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": ws.Products()})
}

func (a *API) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ws, err := a.service.Open(r.Context(), actorOf(r).AccountID)
	if err != nil {
		fail(w, err)
		return
	}
	product, err := ws.AddProduct(req.product(""))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"product": product})
}

func (a *API) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	ws, err := a.service.Open(r.Context(), actorOf(r).AccountID)
	if err != nil {
		fail(w, err)
		return
	}
	product, ok := ws.Product(chi.URLParam(r, "productID"))
	if !ok {
		fail(w, inventory.ErrProductNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": product})
}

// handleUpdateProduct replaces every field. A request without an image keeps
// the current one.
func (a *API) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ws, err := a.service.Open(r.Context(), actorOf(r).AccountID)
	if err != nil {
		fail(w, err)
		return
	}
	id := chi.URLParam(r, "productID")
	current, ok := ws.Product(id)
	if !ok {
		fail(w, inventory.ErrProductNotFound)
		return
	}
	next := req.product(id)
	if req.Image == nil {
		next.Image = current.Image
	}
	product, err := ws.UpdateProduct(next)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": product})
}

func (a *API) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	ws, err := a.service.Open(r.Context(), actorOf(r).AccountID)
	if err != nil {
		fail(w, err)
		return
	}
	if err := ws.DeleteProduct(chi.URLParam(r, "productID")); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleRestock(w http.ResponseWriter, r *http.Request) {
	var req restockRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ws, err := a.service.Open(r.Context(), actorOf(r).AccountID)
	if err != nil {
		fail(w, err)
		return
	}
	product, err := ws.Restock(chi.URLParam(r, "productID"), req.Quantity, req.Note)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": product})
}

func (a *API) handleProductHistory(w http.ResponseWriter, r *http.Request) {
	ws, err := a.service.Open(r.Context(), actorOf(r).AccountID)
	if err != nil {
		fail(w, err)
		return
	}
	id := chi.URLParam(r, "productID")
	if _, ok := ws.Product(id); !ok {
		fail(w, inventory.ErrProductNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": latest(ws.StockHistory(id), r)})
}

func (a *API) handleStockHistory(w http.ResponseWriter, r *http.Request) {
	ws, err := a.service.Open(r.Context(), actorOf(r).AccountID)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": latest(ws.StockHistory(""), r)})
}

// latest returns the newest entries first, capped by the limit parameter.
func latest(history []domain.StockHistoryEntry, r *http.Request) []domain.StockHistoryEntry {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 1000)
	out := make([]domain.StockHistoryEntry, 0, min(limit, len(history)))
	for i := len(history) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, history[i])
	}
	return out
}

// handleProductImage accepts either a multipart form with an "image" file or
// the raw picture as the request body.
func (a *API) handleProductImage(w http.ResponseWriter, r *http.Request) {
	data, err := readUpload(w, r, "image")
	if err != nil {
		fail(w, err)
		return
	}
	product, err := a.service.SetProductImage(r.Context(), actorOf(r).AccountID, chi.URLParam(r, "productID"), data)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": product})
}

func (a *API) handleProductIdea(w http.ResponseWriter, r *http.Request) {
	var req ideaRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	idea, err := a.service.ProductIdea(r.Context(), actorOf(r).AccountID, req.Name)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"idea": idea})
}

func readUpload(w http.ResponseWriter, r *http.Request, field string) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, media.MaxUploadBytes+(64<<10))
	if err := r.ParseMultipartForm(media.MaxUploadBytes); err == nil {
		file, _, err := r.FormFile(field)
		if err != nil {
			return nil, fmt.Errorf("%w: missing %q file", media.ErrEmpty, field)
		}
		defer file.Close()
		return io.ReadAll(file)
	} else if !errors.Is(err, http.ErrNotMultipart) {
		return nil, err
	}
	return io.ReadAll(r.Body)
}
