package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"syndic/internal/core"
	"syndic/internal/ledger"
	"syndic/internal/log"
	"syndic/internal/services"
	"syndic/internal/view"
	"syndic/internal/workflow"
)

const maxUploadBytes = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", log.FieldError, err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps domain failures onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case services.IsValidationError(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ledger.ErrDuplicatePeriod):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// requireWriter rejects mutations once the operator session expired or the
// principal cannot write. A nil session means the process runs open.
func (s *Server) requireWriter(w http.ResponseWriter) bool {
	if s.sess == nil {
		return true
	}
	if !s.sess.Active() {
		writeError(w, http.StatusUnauthorized, "session expired")
		return false
	}
	if !s.sess.CanWrite() {
		writeError(w, http.StatusForbidden, "read-only session")
		return false
	}
	return true
}

func queryYear(r *http.Request) int {
	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			return y
		}
	}
	return time.Now().Year()
}

func queryInt(r *http.Request, name, alt string) (int64, bool) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" && alt != "" {
		v = strings.TrimSpace(r.URL.Query().Get(alt))
	}
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	year := queryYear(r)
	snap, err := s.snapshot(r.Context(), year)
	if err != nil {
		slog.ErrorContext(r.Context(), "snapshot load failed", log.FieldYear, year, log.FieldError, err)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"year":    snap.Year,
		"units":   snap.Units,
		"dues":    snap.Dues,
		"charges": snap.Charges,
		"totals":  core.AnnualTotalsForYear(snap.Dues, snap.Charges, year),
	})
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	year := queryYear(r)
	snap, err := s.snapshot(r.Context(), year)
	if err != nil {
		slog.ErrorContext(r.Context(), "snapshot load failed", log.FieldYear, year, log.FieldError, err)
		writeDomainError(w, err)
		return
	}

	table := view.BuildTable(year, snap.Units, snap.Dues, snap.Charges)

	page, _ := queryInt(r, "page", "")
	perPage, _ := queryInt(r, "per_page", "")
	rows, pagination := view.Paginate(table.Rows, int(page), int(perPage))
	table.Rows = rows

	writeJSON(w, http.StatusOK, map[string]any{
		"table":      table,
		"pagination": pagination,
	})
}

func (s *Server) handleCards(w http.ResponseWriter, r *http.Request) {
	year := queryYear(r)
	unitID, ok := queryInt(r, "unit_id", "")
	if !ok {
		writeError(w, http.StatusBadRequest, "unit_id is required")
		return
	}

	snap, err := s.snapshot(r.Context(), year)
	if err != nil {
		slog.ErrorContext(r.Context(), "snapshot load failed", log.FieldYear, year, log.FieldError, err)
		writeDomainError(w, err)
		return
	}

	var unit core.Unit
	found := false
	for _, u := range snap.Units {
		if u.ID == unitID {
			unit = u
			found = true
			break
		}
	}
	if !found {
		writeError(w, http.StatusNotFound, "unknown unit")
		return
	}

	through := core.Decembre
	if year == time.Now().Year() {
		through = core.Month(time.Now().Month())
	}
	if v := strings.TrimSpace(r.URL.Query().Get("through")); v != "" {
		m, err := core.ParseMonth(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		through = m
	}

	cards := view.BuildCards(unit, year, through, snap.Dues, snap.Charges)
	writeJSON(w, http.StatusOK, map[string]any{
		"unit":  unit,
		"year":  year,
		"cards": cards,
	})
}

func (s *Server) handlePresence(w http.ResponseWriter, r *http.Request) {
	year := queryYear(r)
	monthParam := strings.TrimSpace(r.URL.Query().Get("month"))
	if monthParam == "" {
		writeError(w, http.StatusBadRequest, "month is required")
		return
	}
	month, err := core.ParseMonth(monthParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := s.snapshot(r.Context(), year)
	if err != nil {
		slog.ErrorContext(r.Context(), "snapshot load failed", log.FieldYear, year, log.FieldError, err)
		writeDomainError(w, err)
		return
	}

	presence := core.PresenceForMonth(snap.Dues, snap.Units, month, year, s.adminName)
	writeJSON(w, http.StatusOK, map[string]any{
		"year":   year,
		"month":  month,
		"paid":   presence.Paid,
		"unpaid": presence.Unpaid,
	})
}

func (s *Server) handleUploadStatus(w http.ResponseWriter, r *http.Request) {
	var key workflow.Key
	if chargeID, ok := queryInt(r, "charge_id", ""); ok {
		key = workflow.ChargeKey(chargeID)
	} else {
		unitID, okUnit := queryInt(r, "unit_id", "")
		monthParam := strings.TrimSpace(r.URL.Query().Get("month"))
		if !okUnit || monthParam == "" {
			writeError(w, http.StatusBadRequest, "charge_id, or unit_id and month, are required")
			return
		}
		month, err := core.ParseMonth(monthParam)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		key = workflow.DueKey(unitID, month, queryYear(r))
	}

	info := s.uploads.Status(key)
	writeJSON(w, http.StatusOK, map[string]any{
		"key":     key,
		"status":  info.Status,
		"message": info.Message,
	})
}

type duePayload struct {
	UnitID int64  `json:"unit_id"`
	Month  string `json:"month"`
	Year   int    `json:"year"`
	Amount string `json:"amount"`
}

func (s *Server) handleCreateDue(w http.ResponseWriter, r *http.Request) {
	if !s.requireWriter(w) {
		return
	}

	var payload duePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	month, err := core.ParseMonth(payload.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	due, err := s.ledger.RecordDue(r.Context(), payload.UnitID, month, payload.Year, payload.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateSnapshot(payload.Year)
	writeJSON(w, http.StatusCreated, due)
}

// handleRecordDueWithReceipt records a due and generates its receipt in one
// step.
func (s *Server) handleRecordDueWithReceipt(w http.ResponseWriter, r *http.Request) {
	if !s.requireWriter(w) {
		return
	}

	var payload duePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	month, err := core.ParseMonth(payload.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := services.ParseAmount(payload.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	snap, err := s.snapshot(r.Context(), payload.Year)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var unit core.Unit
	found := false
	for _, u := range snap.Units {
		if u.ID == payload.UnitID {
			unit = u
			found = true
			break
		}
	}
	if !found {
		writeError(w, http.StatusNotFound, "unknown unit")
		return
	}

	due, err := s.uploads.RecordDueWithReceipt(r.Context(), unit, month, payload.Year, amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateSnapshot(payload.Year)
	writeJSON(w, http.StatusCreated, due)
}

func (s *Server) handleDeleteDue(w http.ResponseWriter, r *http.Request) {
	if !s.requireWriter(w) {
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	year := queryYear(r)

	snap, err := s.snapshot(r.Context(), year)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var due core.Due
	found := false
	for _, d := range snap.Dues {
		if d.ID == id {
			due = d
			found = true
			break
		}
	}
	if !found {
		writeError(w, http.StatusNotFound, "unknown due")
		return
	}

	if err := s.ledger.RemoveDue(r.Context(), due); err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateSnapshot(year)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// handleUploadDueReceipt accepts a multipart receipt for an existing due.
func (s *Server) handleUploadDueReceipt(w http.ResponseWriter, r *http.Request) {
	if !s.requireWriter(w) {
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	year := queryYear(r)

	snap, err := s.snapshot(r.Context(), year)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var due core.Due
	found := false
	for _, d := range snap.Dues {
		if d.ID == id {
			due = d
			found = true
			break
		}
	}
	if !found {
		writeError(w, http.StatusNotFound, "unknown due")
		return
	}

	filename, data, contentType, err := readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.uploads.UploadDueReceipt(r.Context(), due, filename, data, contentType); err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateSnapshot(year)
	writeJSON(w, http.StatusOK, map[string]any{"due_id": id, "status": "uploaded"})
}

type chargePayload struct {
	Month    string `json:"month"`
	Year     int    `json:"year"`
	Category string `json:"category"`
	Amount   string `json:"amount"`
}

func (s *Server) handleCreateCharge(w http.ResponseWriter, r *http.Request) {
	if !s.requireWriter(w) {
		return
	}

	var payload chargePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	month, err := core.ParseMonth(payload.Month)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	charge, err := s.ledger.RecordCharge(r.Context(), month, payload.Year, payload.Category, payload.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateSnapshot(payload.Year)
	writeJSON(w, http.StatusCreated, charge)
}

func (s *Server) handleDeleteCharge(w http.ResponseWriter, r *http.Request) {
	if !s.requireWriter(w) {
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	year := queryYear(r)

	snap, err := s.snapshot(r.Context(), year)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var charge core.Charge
	found := false
	for _, c := range snap.Charges {
		if c.ID == id {
			charge = c
			found = true
			break
		}
	}
	if !found {
		writeError(w, http.StatusNotFound, "unknown charge")
		return
	}

	if err := s.ledger.RemoveCharge(r.Context(), charge); err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateSnapshot(year)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func (s *Server) handleUploadChargeJustification(w http.ResponseWriter, r *http.Request) {
	if !s.requireWriter(w) {
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	year := queryYear(r)

	snap, err := s.snapshot(r.Context(), year)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var charge core.Charge
	found := false
	for _, c := range snap.Charges {
		if c.ID == id {
			charge = c
			found = true
			break
		}
	}
	if !found {
		writeError(w, http.StatusNotFound, "unknown charge")
		return
	}

	filename, data, contentType, err := readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.uploads.UploadChargeJustification(r.Context(), charge, filename, data, contentType); err != nil {
		writeDomainError(w, err)
		return
	}

	s.invalidateSnapshot(year)
	writeJSON(w, http.StatusOK, map[string]any{"charge_id": id, "status": "uploaded"})
}

// readUpload pulls the "file" part out of a multipart form.
func readUpload(r *http.Request) (filename string, data []byte, contentType string, err error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", nil, "", errors.New("invalid multipart form")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, "", errors.New("missing file field")
	}
	defer file.Close()

	data, err = io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return "", nil, "", errors.New("read upload")
	}

	contentType = header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return header.Filename, data, contentType, nil
}
