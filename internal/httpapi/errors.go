package httpapi

import (
	"errors"
	"net/http"

	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
	"github.com/SEBSEB62/KAYE-sub000/internal/inventory"
	"github.com/SEBSEB62/KAYE-sub000/internal/ledger"
	"github.com/SEBSEB62/KAYE-sub000/internal/license"
	"github.com/SEBSEB62/KAYE-sub000/internal/media"
	"github.com/SEBSEB62/KAYE-sub000/internal/sales"
	"github.com/SEBSEB62/KAYE-sub000/internal/service"
	"github.com/SEBSEB62/KAYE-sub000/internal/store"
	"github.com/SEBSEB62/KAYE-sub000/internal/suggest"
	"github.com/SEBSEB62/KAYE-sub000/internal/team"
	"github.com/SEBSEB62/KAYE-sub000/internal/workspace"
)

var errLicenceExpired = errors.New("subscription expired, activate a licence key to continue")

var statusByError = []struct {
	err    error
	status int
}{
	{store.ErrNotFound, http.StatusNotFound},
	{inventory.ErrProductNotFound, http.StatusNotFound},
	{sales.ErrNotInCart, http.StatusNotFound},
	{sales.ErrSaleNotFound, http.StatusNotFound},
	{ledger.ErrRecordNotFound, http.StatusNotFound},
	{team.ErrMemberNotFound, http.StatusNotFound},

	{inventory.ErrInvalidProduct, http.StatusBadRequest},
	{inventory.ErrInvalidQuantity, http.StatusBadRequest},
	{sales.ErrInvalidItem, http.StatusBadRequest},
	{domain.ErrUnknownPaymentMethod, http.StatusBadRequest},
	{sales.ErrInvalidPayment, http.StatusBadRequest},
	{ledger.ErrInvalidAmount, http.StatusBadRequest},
	{ledger.ErrInvalidPayment, http.StatusBadRequest},
	{workspace.ErrInvalidSettings, http.StatusBadRequest},
	{team.ErrInvalidPIN, http.StatusBadRequest},
	{team.ErrInvalidName, http.StatusBadRequest},
	{team.ErrInvalidRole, http.StatusBadRequest},
	{service.ErrInvalidAccount, http.StatusBadRequest},
	{service.ErrInvalidBackup, http.StatusBadRequest},
	{license.ErrInvalidKey, http.StatusBadRequest},
	{media.ErrEmpty, http.StatusBadRequest},

	{sales.ErrOutOfStock, http.StatusConflict},
	{sales.ErrInsufficientStock, http.StatusConflict},
	{sales.ErrAlreadyRefunded, http.StatusConflict},
	{team.ErrDuplicateMember, http.StatusConflict},
	{team.ErrLastOwner, http.StatusConflict},
	{service.ErrAccountExists, http.StatusConflict},

	{sales.ErrEmptyCart, http.StatusUnprocessableEntity},
	{license.ErrRejected, http.StatusUnprocessableEntity},

	{team.ErrBadCredentials, http.StatusUnauthorized},
	{service.ErrForbidden, http.StatusForbidden},
	{service.ErrClaimRequired, http.StatusForbidden},
	{errLicenceExpired, http.StatusPaymentRequired},
	{media.ErrTooLarge, http.StatusRequestEntityTooLarge},
	{media.ErrUnsupported, http.StatusUnsupportedMediaType},

	{suggest.ErrDisabled, http.StatusServiceUnavailable},
	{suggest.ErrUnavailable, http.StatusServiceUnavailable},
	{license.ErrUnavailable, http.StatusServiceUnavailable},
}

// statusFor is the single place where domain errors become HTTP statuses.
// Anything unknown is an internal error.
func statusFor(err error) int {
	for _, m := range statusByError {
		if errors.Is(err, m.err) {
			return m.status
		}
	}
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}
