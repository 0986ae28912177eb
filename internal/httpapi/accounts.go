package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
	"github.com/SEBSEB62/KAYE-sub000/internal/team"
)

type registerRequest struct {
	AccountID    string `json:"accountId" validate:"required,max=64"`
	BusinessName string `json:"businessName" validate:"max=120"`
	OwnerName    string `json:"ownerName" validate:"required,max=60"`
	PIN          string `json:"pin" validate:"required,numeric,min=4,max=8"`
	ClaimCode    string `json:"claimCode" validate:"max=64"`
}

type loginRequest struct {
	AccountID string `json:"accountId" validate:"required"`
	Member    string `json:"member" validate:"required"`
	PIN       string `json:"pin" validate:"required"`
}

type memberRequest struct {
	Name string            `json:"name" validate:"required,max=60"`
	Role domain.MemberRole `json:"role" validate:"required,oneof=owner member"`
	PIN  string            `json:"pin" validate:"required,numeric,min=4,max=8"`
}

type pinRequest struct {
	PIN string `json:"pin" validate:"required,numeric,min=4,max=8"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many attempts"))
		return
	}
	var req registerRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	settings, owner, err := a.service.Register(r.Context(), req.AccountID, req.BusinessName, req.OwnerName, req.PIN, req.ClaimCode)
	if err != nil {
		fail(w, err)
		return
	}
	login, err := a.auth.Issue(domain.Actor{AccountID: req.AccountID, Member: owner.Name, Role: owner.Role})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"settings": settings,
		"member":   owner,
		"session":  login,
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req loginRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	actor, err := a.service.Login(r.Context(), req.AccountID, req.Member, req.PIN)
	if err != nil {
		fail(w, err)
		return
	}
	resp, err := a.auth.Issue(actor)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) teamRoutes(r chi.Router) {
	r.Get("/", a.handleListMembers)
	r.With(a.requireOwner).Post("/", a.handleAddMember)
	r.With(a.requireOwner).Delete("/{memberID}", a.handleRemoveMember)
	r.Put("/{memberID}/pin", a.handleChangePIN)
}

func (a *API) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := a.service.Members(r.Context(), actorOf(r).AccountID)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": members})
}

func (a *API) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	member, err := a.service.AddMember(r.Context(), actorOf(r).AccountID, req.Name, req.Role, req.PIN)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"member": member})
}

func (a *API) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	if err := a.service.RemoveMember(r.Context(), actorOf(r).AccountID, chi.URLParam(r, "memberID")); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleChangePIN(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.service.ChangePIN(r.Context(), actorOf(r).AccountID, chi.URLParam(r, "memberID"), req.PIN); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// publicSettings hides PIN hashes from every settings payload.
func publicSettings(s domain.Settings) domain.Settings {
	s.Team = team.Public(s.Team)
	return s
}
