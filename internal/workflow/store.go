package workflow

import (
	"context"

	"github.com/google/uuid"

	"procurement/db"
)

// Store — граница хранилища, нужная движку. Отсутствие строки хранилище
// сигналит через sql.ErrNoRows, конфликт версии — через db.ErrVersionConflict.
type Store interface {
	GetEmployeeByUsername(ctx context.Context, username string) (*db.Employee, error)
	GetEmployeeByID(ctx context.Context, id uuid.UUID) (*db.Employee, error)
	GetOrganization(ctx context.Context, id uuid.UUID) (*db.Organization, error)
	IsUserResponsibleForOrganization(ctx context.Context, userID, orgID uuid.UUID) (bool, error)
	GetUserOrganization(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
	GetResponsibleCount(ctx context.Context, orgID uuid.UUID) (int, error)

	CreateTender(ctx context.Context, t *db.Tender) error
	GetTender(ctx context.Context, id uuid.UUID) (*db.Tender, error)
	GetTenders(ctx context.Context, serviceTypes []db.ServiceType, limit, offset int) ([]db.Tender, error)
	GetUserTenders(ctx context.Context, username string, limit, offset int) ([]db.Tender, error)
	UpdateTenderStatus(ctx context.Context, id uuid.UUID, status db.TenderStatus) error
	UpdateTenderVersioned(ctx context.Context, t *db.Tender, expectedVersion int, snap *db.TenderHistory) error
	GetTenderHistory(ctx context.Context, tenderID uuid.UUID, username string, version int) (*db.TenderHistory, error)

	CreateBid(ctx context.Context, b *db.Bid) error
	GetBid(ctx context.Context, id uuid.UUID) (*db.Bid, error)
	GetUserBids(ctx context.Context, authorID uuid.UUID, limit, offset int) ([]db.Bid, error)
	GetBidsForTender(ctx context.Context, tenderID, authorID uuid.UUID, limit, offset int) ([]db.Bid, error)
	UpdateBidVersioned(ctx context.Context, b *db.Bid, expectedVersion int, snap *db.BidHistory) error
	GetBidHistory(ctx context.Context, bidID uuid.UUID, editorUsername string, version int) (*db.BidHistory, error)

	UpsertBidDecision(ctx context.Context, bidID, userID uuid.UUID, decision db.DecisionType) error
	GetBidDecisions(ctx context.Context, bidID uuid.UUID) ([]db.Decision, error)

	CreateBidReview(ctx context.Context, r *db.BidReview) error
	GetBidReviewsByAuthorForTender(ctx context.Context, authorUsername string, tenderID uuid.UUID, limit, offset int) ([]db.BidReview, error)
}
