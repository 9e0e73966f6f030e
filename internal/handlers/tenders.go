package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"procurement/db"
	"procurement/internal/workflow"
)

// parsePaginationParams парсит limit и offset из query, с дефолтами и ограничениями
func parsePaginationParams(r *http.Request) workflow.Page {
	page := workflow.Page{Limit: 5, Offset: 0}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 50 {
			page.Limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			page.Offset = o
		}
	}
	return page
}

func parseIDParam(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

// CreateTenderHandler обрабатывает POST /api/tenders/new запрос
func (h *Handler) CreateTenderHandler(w http.ResponseWriter, r *http.Request) {
	// Ограничение размера тела, чтобы избежать DoS
	r.Body = http.MaxBytesReader(w, r.Body, 1048576)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "failed to read request body")
		return
	}
	defer r.Body.Close()

	var spec workflow.TenderSpec
	if err := json.Unmarshal(body, &spec); err != nil {
		writeBadRequest(w, "invalid JSON format")
		return
	}

	tender, err := h.Tenders.Create(r.Context(), spec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tender)
}

// GetTendersHandler возвращает список тендеров с фильтром по serviceType
func (h *Handler) GetTendersHandler(w http.ResponseWriter, r *http.Request) {
	page := parsePaginationParams(r)

	var serviceTypes []db.ServiceType
	for _, v := range r.URL.Query()["service_type"] {
		serviceTypes = append(serviceTypes, db.ServiceType(v))
	}

	tenders, err := h.Tenders.List(r.Context(), serviceTypes, page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tenders)
}

// GetUserTendersHandler возвращает тендеры, созданные пользователем username
func (h *Handler) GetUserTendersHandler(w http.ResponseWriter, r *http.Request) {
	page := parsePaginationParams(r)

	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		writeBadRequest(w, "missing username parameter")
		return
	}

	tenders, err := h.Tenders.ListMine(r.Context(), username, page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tenders)
}

func (h *Handler) GetTenderStatusHandler(w http.ResponseWriter, r *http.Request) {
	tenderID, ok := parseIDParam(r, "tenderId")
	if !ok {
		writeBadRequest(w, "invalid tenderId")
		return
	}
	username := r.URL.Query().Get("username")
	if username == "" {
		writeBadRequest(w, "missing username")
		return
	}

	status, err := h.Tenders.GetStatus(r.Context(), tenderID, username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) ChangeTenderStatusHandler(w http.ResponseWriter, r *http.Request) {
	tenderID, ok := parseIDParam(r, "tenderId")
	if !ok {
		writeBadRequest(w, "invalid tenderId")
		return
	}

	status := r.URL.Query().Get("status")
	username := r.URL.Query().Get("username")
	if status == "" || username == "" {
		writeBadRequest(w, "missing status or username")
		return
	}

	tender, err := h.Tenders.ChangeStatus(r.Context(), tenderID, db.TenderStatus(status), username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tender)
}

func (h *Handler) EditTenderHandler(w http.ResponseWriter, r *http.Request) {
	tenderID, ok := parseIDParam(r, "tenderId")
	if !ok {
		writeBadRequest(w, "invalid tenderId")
		return
	}
	username := r.URL.Query().Get("username")
	if username == "" {
		writeBadRequest(w, "missing username")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "cannot read body")
		return
	}
	defer r.Body.Close()

	var patch workflow.TenderPatch
	if err := json.Unmarshal(body, &patch); err != nil {
		writeBadRequest(w, "invalid JSON")
		return
	}

	tender, err := h.Tenders.Edit(r.Context(), tenderID, patch, username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tender)
}

func (h *Handler) RollbackTenderHandler(w http.ResponseWriter, r *http.Request) {
	tenderID, ok := parseIDParam(r, "tenderId")
	if !ok {
		writeBadRequest(w, "invalid tenderId")
		return
	}
	version, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil || version < 1 {
		writeBadRequest(w, "invalid version number")
		return
	}
	username := r.URL.Query().Get("username")
	if username == "" {
		writeBadRequest(w, "missing username")
		return
	}

	tender, err := h.Tenders.Rollback(r.Context(), tenderID, version, username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tender)
}
