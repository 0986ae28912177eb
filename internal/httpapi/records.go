package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
	"github.com/SEBSEB62/KAYE-sub000/internal/workspace"
)

type donationRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"paymentMethod" validate:"required"`
	Donor         string          `json:"donor" validate:"max=80"`
}

// cashMovementRequest serves manual refunds, safe deposits and cash-outs.
type cashMovementRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason" validate:"max=200"`
}

// recordRoutes wires list, create and delete for one ledger collection.
func recordRoutes[T any, Req any](
	a *API,
	key string,
	list func(*workspace.Workspace) []T,
	create func(*workspace.Workspace, Req) (T, error),
	remove func(*workspace.Workspace, string) error,
) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			ws, err := a.service.Open(r.Context(), actorOf(r).AccountID)
			if err != nil {
				fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{key: list(ws)})
		})
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var req Req
			if err := a.decodeJSON(w, r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			ws, err := a.service.Open(r.Context(), actorOf(r).AccountID)
			if err != nil {
				fail(w, err)
				return
			}
			record, err := create(ws, req)
			if err != nil {
				fail(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{"record": record})
		})
		r.Delete("/{recordID}", func(w http.ResponseWriter, r *http.Request) {
			ws, err := a.service.Open(r.Context(), actorOf(r).AccountID)
			if err != nil {
				fail(w, err)
				return
			}
			if err := remove(ws, chi.URLParam(r, "recordID")); err != nil {
				fail(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

func (a *API) donationRoutes(r chi.Router) {
	recordRoutes(a, "donations",
		(*workspace.Workspace).Donations,
		func(ws *workspace.Workspace, req donationRequest) (domain.DonationRecord, error) {
			method, err := domain.ParsePaymentMethod(req.PaymentMethod)
			if err != nil {
				return domain.DonationRecord{}, err
			}
			return ws.AddDonation(req.Amount, method, strings.TrimSpace(req.Donor))
		},
		(*workspace.Workspace).DeleteDonation,
	)(r)
}

func (a *API) manualRefundRoutes(r chi.Router) {
	recordRoutes(a, "manualRefunds",
		(*workspace.Workspace).ManualRefunds,
		func(ws *workspace.Workspace, req cashMovementRequest) (domain.ManualRefund, error) {
			return ws.AddManualRefund(req.Amount, strings.TrimSpace(req.Reason))
		},
		(*workspace.Workspace).DeleteManualRefund,
	)(r)
}

func (a *API) safeDepositRoutes(r chi.Router) {
	recordRoutes(a, "safeDeposits",
		(*workspace.Workspace).SafeDeposits,
		func(ws *workspace.Workspace, req cashMovementRequest) (domain.SafeDepositRecord, error) {
			return ws.AddSafeDeposit(req.Amount, strings.TrimSpace(req.Reason))
		},
		(*workspace.Workspace).DeleteSafeDeposit,
	)(r)
}

func (a *API) cashOutRoutes(r chi.Router) {
	recordRoutes(a, "cashOuts",
		(*workspace.Workspace).CashOuts,
		func(ws *workspace.Workspace, req cashMovementRequest) (domain.CashOutRecord, error) {
			return ws.AddCashOut(req.Amount, strings.TrimSpace(req.Reason))
		},
		(*workspace.Workspace).DeleteCashOut,
	)(r)
}
