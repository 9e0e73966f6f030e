package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"procurement/db"
	"procurement/internal/workflow"
)

// TenderWorkflow — операции жизненного цикла тендера.
type TenderWorkflow interface {
	Create(ctx context.Context, spec workflow.TenderSpec) (*db.Tender, error)
	List(ctx context.Context, serviceTypes []db.ServiceType, page workflow.Page) ([]db.Tender, error)
	ListMine(ctx context.Context, username string, page workflow.Page) ([]db.Tender, error)
	GetStatus(ctx context.Context, tenderID uuid.UUID, username string) (db.TenderStatus, error)
	ChangeStatus(ctx context.Context, tenderID uuid.UUID, status db.TenderStatus, username string) (*db.Tender, error)
	Edit(ctx context.Context, tenderID uuid.UUID, patch workflow.TenderPatch, username string) (*db.Tender, error)
	Rollback(ctx context.Context, tenderID uuid.UUID, version int, username string) (*db.Tender, error)
}

// BidWorkflow — операции жизненного цикла предложения и решения.
type BidWorkflow interface {
	Create(ctx context.Context, spec workflow.BidSpec) (*db.Bid, error)
	ListMine(ctx context.Context, username string, page workflow.Page) ([]db.Bid, error)
	ListForTender(ctx context.Context, tenderID uuid.UUID, username string, page workflow.Page) ([]db.Bid, error)
	GetStatus(ctx context.Context, bidID uuid.UUID, username string) (db.BidStatus, error)
	ChangeStatus(ctx context.Context, bidID uuid.UUID, status db.BidStatus, username string) (*db.Bid, error)
	Edit(ctx context.Context, bidID uuid.UUID, patch workflow.BidPatch, username string) (*db.Bid, error)
	Rollback(ctx context.Context, bidID uuid.UUID, version int, username string) (*db.Bid, error)
	SubmitDecision(ctx context.Context, bidID uuid.UUID, decision db.DecisionType, username string) (*workflow.DecisionResult, error)
	SendFeedback(ctx context.Context, bidID uuid.UUID, description, username string) (*db.BidReview, error)
	ListReviews(ctx context.Context, tenderID uuid.UUID, authorUsername, requesterUsername string, page workflow.Page) ([]db.BidReview, error)
}

// Directory — справочник сотрудников и организаций.
type Directory interface {
	CreateEmployee(ctx context.Context, e *db.Employee) error
	GetEmployees(ctx context.Context) ([]db.Employee, error)
	GetEmployeeByID(ctx context.Context, id uuid.UUID) (*db.Employee, error)
	CreateOrganization(ctx context.Context, o *db.Organization) error
	GetOrganizations(ctx context.Context) ([]db.Organization, error)
	GetOrganization(ctx context.Context, id uuid.UUID) (*db.Organization, error)
	CreateOrganizationResponsible(ctx context.Context, orgID, userID uuid.UUID) error
}

type Handler struct {
	Tenders   TenderWorkflow
	Bids      BidWorkflow
	Directory Directory
}

func NewHandler(tenders TenderWorkflow, bids BidWorkflow, directory Directory) *Handler {
	return &Handler{Tenders: tenders, Bids: bids, Directory: directory}
}

// PingHandler отвечает "ok" для проверки сервера
func (h *Handler) PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Reason string `json:"reason"`
}

// writeError переводит категорию ошибки движка в HTTP-статус; тело всегда
// {"reason": ...}.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	reason := err.Error()

	switch workflow.KindOf(err) {
	case workflow.KindNotFound:
		status = http.StatusNotFound
	case workflow.KindUnauthorized:
		status = http.StatusUnauthorized
	case workflow.KindForbidden:
		status = http.StatusForbidden
	case workflow.KindValidation:
		status = http.StatusBadRequest
	case workflow.KindConflict:
		status = http.StatusConflict
	default:
		logrus.WithError(err).Error("internal error")
		reason = "internal error"
	}
	writeJSON(w, status, errorResponse{Reason: reason})
}

func writeBadRequest(w http.ResponseWriter, reason string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Reason: reason})
}
