package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/SEBSEB62/KAYE-sub000/internal/domain"
	"github.com/SEBSEB62/KAYE-sub000/internal/license"
	"github.com/SEBSEB62/KAYE-sub000/internal/report"
	"github.com/SEBSEB62/KAYE-sub000/internal/service"
)

// settingsPatch only touches the fields that are present.
type settingsPatch struct {
	BusinessName  *string          `json:"businessName" validate:"omitempty,max=120"`
	Logo          *domain.Image    `json:"logo"`
	Theme         *string          `json:"theme" validate:"omitempty,oneof=light dark"`
	TokenMode     *bool            `json:"tokenMode"`
	TokenValue    *decimal.Decimal `json:"tokenValue"`
	Categories    []string         `json:"categories" validate:"omitempty,dive,required,max=40"`
	HourlyRate    *decimal.Decimal `json:"hourlyRate"`
	URSSAFRate    *decimal.Decimal `json:"urssafRate"`
	InitialCash   *decimal.Decimal `json:"initialCash"`
	ReceiptFooter *string          `json:"receiptFooter" validate:"omitempty,max=200"`
}

func (p settingsPatch) apply(s *domain.Settings) error {
	if p.BusinessName != nil {
		s.BusinessName = *p.BusinessName
	}
	if p.Logo != nil {
		s.Logo = *p.Logo
	}
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	if p.TokenMode != nil {
		s.TokenMode = *p.TokenMode
	}
	if p.TokenValue != nil {
		s.TokenValue = *p.TokenValue
	}
	if p.Categories != nil {
		s.Categories = p.Categories
	}
	if p.HourlyRate != nil {
		s.HourlyRate = *p.HourlyRate
	}
	if p.URSSAFRate != nil {
		s.URSSAFRate = *p.URSSAFRate
	}
	if p.InitialCash != nil {
		s.InitialCash = *p.InitialCash
	}
	if p.ReceiptFooter != nil {
		s.ReceiptFooter = *p.ReceiptFooter
	}
	return nil
}

type activateRequest struct {
	Key string `json:"key" validate:"required,max=64"`
}

func (a *API) settingsRoutes(r chi.Router) {
	r.Get("/", a.handleGetSettings)
	r.With(a.requireOwner).Patch("/", a.handlePatchSettings)
	r.With(a.requireOwner).Put("/logo", a.handleLogo)
}

func (a *API) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	ws, err := a.service.Open(r.Context(), actorOf(r).AccountID)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": publicSettings(ws.Settings())})
}

func (a *API) handlePatchSettings(w http.ResponseWriter, r *http.Request) {
	var patch settingsPatch
	if err := a.decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ws, err := a.service.Open(r.Context(), actorOf(r).AccountID)
	if err != nil {
		fail(w, err)
		return
	}
	settings, err := ws.UpdateSettings(patch.apply)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": publicSettings(settings)})
}

func (a *API) handleLogo(w http.ResponseWriter, r *http.Request) {
	data, err := readUpload(w, r, "logo")
	if err != nil {
		fail(w, err)
		return
	}
	settings, err := a.service.SetLogo(r.Context(), actorOf(r).AccountID, data)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": publicSettings(settings)})
}

func (a *API) reportRoutes(r chi.Router) {
	r.Get("/summary", a.handleReportSummary)
	r.Get("/summary.html", a.handleReportDocument)
	r.Get("/summary.csv", a.handleReportDocument)
	r.Get("/summary.xlsx", a.handleReportDocument)
}

func (a *API) handleReportSummary(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r, a.service.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rep, err := a.service.Report(r.Context(), actorOf(r).AccountID, rng)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// handleReportDocument renders the report in the format named by the path
// extension.
func (a *API) handleReportDocument(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r, a.service.Location())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	logLimit := parsePositiveLimit(r.URL.Query().Get("log"), report.DefaultLogLimit, 1000)
	doc, err := a.service.Document(r.Context(), actorOf(r).AccountID, rng, logLimit)
	if err != nil {
		fail(w, err)
		return
	}

	var buf bytes.Buffer
	name := "rapport-" + a.now().In(a.service.Location()).Format(time.DateOnly)
	switch {
	case strings.HasSuffix(r.URL.Path, ".html"):
		if err := report.RenderHTML(&buf, doc); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	case strings.HasSuffix(r.URL.Path, ".csv"):
		if err := report.RenderCSV(&buf, doc); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeAttachment(w, "text/csv; charset=utf-8", name+".csv", buf.Bytes())
	default:
		if err := report.RenderXLSX(&buf, doc); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeAttachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", name+".xlsx", buf.Bytes())
	}
}

func (a *API) backupRoutes(r chi.Router) {
	r.Get("/", a.handleExport)
	r.With(a.requireOwner).Post("/", a.handleRestore)
}

func (a *API) handleExport(w http.ResponseWriter, r *http.Request) {
	accountID := actorOf(r).AccountID
	data, err := a.service.Export(r.Context(), accountID)
	if err != nil {
		fail(w, err)
		return
	}
	name := fmt.Sprintf("buvette-%s-%s.json", accountID, a.now().In(a.service.Location()).Format(time.DateOnly))
	writeAttachment(w, "application/json", name, data)
}

func (a *API) handleRestore(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, service.MaxBackupBytes)
	body := r.Body
	if err := r.ParseMultipartForm(service.MaxBackupBytes); err == nil {
		file, _, err := r.FormFile("backup")
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New(`missing "backup" file`))
			return
		}
		defer file.Close()
		body = file
	}

	bundle, err := a.service.Restore(r.Context(), actorOf(r).AccountID, body)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"products": len(bundle.Products),
		"sales":    len(bundle.Sales),
		"settings": publicSettings(*bundle.Settings),
	})
}

func (a *API) licenceRoutes(r chi.Router) {
	r.Get("/", a.handleLicenceStatus)
	r.With(a.requireOwner).Post("/activate", a.handleActivate)
}

type licenceView struct {
	license.Status
	JustActivated bool `json:"justActivated"`
}

func (a *API) handleLicenceStatus(w http.ResponseWriter, r *http.Request) {
	accountID := actorOf(r).AccountID
	status, err := a.service.LicenseStatus(r.Context(), accountID)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, licenceView{Status: status, JustActivated: a.service.ConsumeJustActivated(accountID)})
}

func (a *API) handleActivate(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := a.decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	status, err := a.service.ActivateApp(r.Context(), actorOf(r).AccountID, req.Key)
	if err != nil {
		writeError(w, statusFor(err), errors.New(license.Message(err)))
		return
	}
	writeJSON(w, http.StatusOK, licenceView{Status: status})
}
