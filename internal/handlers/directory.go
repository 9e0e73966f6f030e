package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"procurement/db"
)

func (h *Handler) CreateEmployeeHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "failed to read request body")
		return
	}
	defer r.Body.Close()

	var employee db.Employee
	if err := json.Unmarshal(body, &employee); err != nil {
		writeBadRequest(w, "invalid JSON format")
		return
	}
	if employee.Username == "" || employee.FirstName == "" || employee.LastName == "" {
		writeBadRequest(w, "username, firstName and lastName are required")
		return
	}

	if err := h.Directory.CreateEmployee(r.Context(), &employee); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, employee)
}

func (h *Handler) GetEmployeesHandler(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Directory.GetEmployees(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, employees)
}

func (h *Handler) CreateOrganizationHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "failed to read request body")
		return
	}
	defer r.Body.Close()

	var org db.Organization
	if err := json.Unmarshal(body, &org); err != nil {
		writeBadRequest(w, "invalid JSON format")
		return
	}
	if org.Name == "" {
		writeBadRequest(w, "name is required")
		return
	}

	if err := h.Directory.CreateOrganization(r.Context(), &org); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (h *Handler) GetOrganizationsHandler(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.Directory.GetOrganizations(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orgs)
}

// AddOrganizationResponsibleHandler назначает сотрудника ответственным за
// организацию. Обе стороны связи должны существовать.
func (h *Handler) AddOrganizationResponsibleHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "failed to read request body")
		return
	}
	defer r.Body.Close()

	var input struct {
		OrganizationID uuid.UUID `json:"organizationId"`
		UserID         uuid.UUID `json:"userId"`
	}
	if err := json.Unmarshal(body, &input); err != nil {
		writeBadRequest(w, "invalid JSON format")
		return
	}

	if _, err := h.Directory.GetOrganization(r.Context(), input.OrganizationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResponse{Reason: "organization does not exist"})
			return
		}
		writeError(w, err)
		return
	}
	if _, err := h.Directory.GetEmployeeByID(r.Context(), input.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResponse{Reason: "user does not exist"})
			return
		}
		writeError(w, err)
		return
	}

	if err := h.Directory.CreateOrganizationResponsible(r.Context(), input.OrganizationID, input.UserID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, input)
}
