package workflow

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"procurement/db"
)

// BidService — жизненный цикл предложения и сбор решений кворумом
// ответственных.
type BidService struct {
	store Store
}

func NewBidService(store Store) *BidService {
	return &BidService{store: store}
}

func (s *BidService) Create(ctx context.Context, spec BidSpec) (*db.Bid, error) {
	if err := validateBidSpec(spec); err != nil {
		return nil, err
	}

	if _, err := s.store.GetTender(ctx, spec.TenderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NotFound("tender %s does not exist", spec.TenderID)
		}
		return nil, err
	}

	switch spec.AuthorType {
	case db.AuthorUser:
		if _, err := s.store.GetEmployeeByID(ctx, spec.AuthorID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, NotFound("author user %s does not exist", spec.AuthorID)
			}
			return nil, err
		}
	case db.AuthorOrganization:
		if _, err := s.store.GetOrganization(ctx, spec.AuthorID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, NotFound("author organization %s does not exist", spec.AuthorID)
			}
			return nil, err
		}
	}

	bid := &db.Bid{
		Name:        spec.Name,
		Description: spec.Description,
		Status:      db.BidCreated,
		TenderID:    spec.TenderID,
		AuthorType:  spec.AuthorType,
		AuthorID:    spec.AuthorID,
	}
	if err := s.store.CreateBid(ctx, bid); err != nil {
		return nil, err
	}
	return bid, nil
}

func (s *BidService) ListMine(ctx context.Context, username string, page Page) ([]db.Bid, error) {
	employee, err := s.resolveEmployee(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.store.GetUserBids(ctx, employee.ID, page.Limit, page.Offset)
}

func (s *BidService) ListForTender(ctx context.Context, tenderID uuid.UUID, username string, page Page) ([]db.Bid, error) {
	employee, err := s.resolveEmployee(ctx, username)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetTender(ctx, tenderID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NotFound("tender %s does not exist", tenderID)
		}
		return nil, err
	}
	return s.store.GetBidsForTender(ctx, tenderID, employee.ID, page.Limit, page.Offset)
}

func (s *BidService) GetStatus(ctx context.Context, bidID uuid.UUID, username string) (db.BidStatus, error) {
	_, bid, err := s.requireParticipant(ctx, bidID, username)
	if err != nil {
		return "", err
	}
	return bid.Status, nil
}

// ChangeStatus двигает версию на 1, историю не пишет. Требует
// ответственности за организацию-владельца предложения.
func (s *BidService) ChangeStatus(ctx context.Context, bidID uuid.UUID, status db.BidStatus, username string) (*db.Bid, error) {
	if !status.Valid() {
		return nil, Validation("invalid bid status %q", status)
	}
	employee, bid, err := s.resolveBid(ctx, bidID, username)
	if err != nil {
		return nil, err
	}
	if err := s.requireResponsible(ctx, employee, bid); err != nil {
		return nil, err
	}

	bid.Status = status
	expected := bid.Version
	if bidStatusPolicy.bumpVersion {
		bid.Version++
	}
	if err := s.store.UpdateBidVersioned(ctx, bid, expected, nil); err != nil {
		if errors.Is(err, db.ErrVersionConflict) {
			return nil, Conflict("bid %s was modified concurrently, re-read and retry", bidID)
		}
		return nil, err
	}
	return bid, nil
}

// Edit — та же версионированная правка, что и у тендеров: снимок
// доправочного контента, патч, версия +1, compare-and-swap.
func (s *BidService) Edit(ctx context.Context, bidID uuid.UUID, patch BidPatch, username string) (*db.Bid, error) {
	if err := validateBidPatch(patch); err != nil {
		return nil, err
	}
	_, bid, err := s.requireParticipant(ctx, bidID, username)
	if err != nil {
		return nil, err
	}

	var snap *db.BidHistory
	if bidEditPolicy.snapshot {
		snap = bidSnapshot(bid, username)
	}
	patch.apply(bid)
	expected := bid.Version
	if bidEditPolicy.bumpVersion {
		bid.Version++
	}

	if err := s.store.UpdateBidVersioned(ctx, bid, expected, snap); err != nil {
		if errors.Is(err, db.ErrVersionConflict) {
			return nil, Conflict("bid %s was modified concurrently, re-read and retry", bidID)
		}
		return nil, err
	}
	return bid, nil
}

func (s *BidService) Rollback(ctx context.Context, bidID uuid.UUID, version int, username string) (*db.Bid, error) {
	_, bid, err := s.requireParticipant(ctx, bidID, username)
	if err != nil {
		return nil, err
	}

	h, err := s.store.GetBidHistory(ctx, bidID, username, version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NotFound("bid %s has no version %d", bidID, version)
		}
		return nil, err
	}

	var snap *db.BidHistory
	if bidRollbackPolicy.snapshot {
		snap = bidSnapshot(bid, username)
	}

	bid.Name = h.Name
	bid.Description = h.Description
	bid.Status = h.Status
	bid.CreatedAt = h.CreatedAt
	expected := bid.Version
	if bidRollbackPolicy.bumpVersion {
		bid.Version++
	}

	if err := s.store.UpdateBidVersioned(ctx, bid, expected, snap); err != nil {
		if errors.Is(err, db.ErrVersionConflict) {
			return nil, Conflict("bid %s was modified concurrently, re-read and retry", bidID)
		}
		return nil, err
	}
	return bid, nil
}

// SubmitDecision записывает решение и агрегирует итог. Любое отклонение
// перевешивает; кворум одобрений — min(3, число ответственных организации) —
// закрывает родительский тендер. Неответственный подающий получает
// OutcomeForbidden без записи решения и без ошибки.
func (s *BidService) SubmitDecision(ctx context.Context, bidID uuid.UUID, decision db.DecisionType, username string) (*DecisionResult, error) {
	if !decision.Valid() {
		return nil, Validation("invalid decision %q", decision)
	}
	employee, bid, err := s.resolveBid(ctx, bidID, username)
	if err != nil {
		return nil, err
	}

	orgID, err := s.owningOrganization(ctx, bid)
	if err != nil {
		return nil, err
	}
	responsible, err := s.store.IsUserResponsibleForOrganization(ctx, employee.ID, orgID)
	if err != nil {
		return nil, err
	}
	if !responsible {
		return &DecisionResult{Outcome: OutcomeForbidden, Bid: bid}, nil
	}

	if err := s.store.UpsertBidDecision(ctx, bid.ID, employee.ID, decision); err != nil {
		return nil, err
	}

	decisions, err := s.store.GetBidDecisions(ctx, bid.ID)
	if err != nil {
		return nil, err
	}

	approvals := 0
	for _, d := range decisions {
		if d.DecisionType == db.DecisionRejected {
			return &DecisionResult{Outcome: OutcomeRejected, Bid: bid}, nil
		}
		if d.DecisionType == db.DecisionApproved {
			approvals++
		}
	}

	total, err := s.store.GetResponsibleCount(ctx, orgID)
	if err != nil {
		return nil, err
	}
	quorum := min(quorumCap, total)
	if approvals < quorum {
		return &DecisionResult{Outcome: OutcomeAccepted, Bid: bid}, nil
	}

	tender, err := s.store.GetTender(ctx, bid.TenderID)
	if err != nil {
		return nil, err
	}
	if tender.Status != db.TenderClosed {
		if err := s.store.UpdateTenderStatus(ctx, tender.ID, db.TenderClosed); err != nil {
			return nil, err
		}
	}
	return &DecisionResult{Outcome: OutcomeAccepted, Bid: bid, TenderClosed: true}, nil
}

// SendFeedback сохраняет отзыв по предложению. Неответственный получает
// Forbidden — в отличие от решений, здесь это ошибка.
func (s *BidService) SendFeedback(ctx context.Context, bidID uuid.UUID, description, username string) (*db.BidReview, error) {
	if description == "" || len(description) > maxReviewLen {
		return nil, Validation("feedback is required and max length %d", maxReviewLen)
	}
	employee, bid, err := s.resolveBid(ctx, bidID, username)
	if err != nil {
		return nil, err
	}
	if err := s.requireResponsible(ctx, employee, bid); err != nil {
		return nil, err
	}

	review := &db.BidReview{
		BidID:       bid.ID,
		ReviewerID:  employee.ID,
		Description: description,
	}
	if err := s.store.CreateBidReview(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

// ListReviews возвращает отзывы на предложения автора в рамках тендера.
// Запросивший должен отвечать за организацию тендера.
func (s *BidService) ListReviews(ctx context.Context, tenderID uuid.UUID, authorUsername, requesterUsername string, page Page) ([]db.BidReview, error) {
	requester, err := s.resolveEmployee(ctx, requesterUsername)
	if err != nil {
		return nil, err
	}
	tender, err := s.store.GetTender(ctx, tenderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NotFound("tender %s does not exist", tenderID)
		}
		return nil, err
	}
	responsible, err := s.store.IsUserResponsibleForOrganization(ctx, requester.ID, tender.OrganizationID)
	if err != nil {
		return nil, err
	}
	if !responsible {
		return nil, Forbidden("user %q is not responsible for the tender organization", requesterUsername)
	}
	return s.store.GetBidReviewsByAuthorForTender(ctx, authorUsername, tenderID, page.Limit, page.Offset)
}

func (s *BidService) resolveEmployee(ctx context.Context, username string) (*db.Employee, error) {
	employee, err := s.store.GetEmployeeByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, Unauthorized("user %q does not exist", username)
		}
		return nil, err
	}
	return employee, nil
}

func (s *BidService) resolveBid(ctx context.Context, bidID uuid.UUID, username string) (*db.Employee, *db.Bid, error) {
	employee, err := s.resolveEmployee(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	bid, err := s.store.GetBid(ctx, bidID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, NotFound("bid %s does not exist", bidID)
		}
		return nil, nil, err
	}
	return employee, bid, nil
}

// owningOrganization: у организационного предложения владелец — сам автор,
// у пользовательского — организация, за которую отвечает автор.
func (s *BidService) owningOrganization(ctx context.Context, bid *db.Bid) (uuid.UUID, error) {
	if bid.AuthorType == db.AuthorOrganization {
		return bid.AuthorID, nil
	}
	orgID, err := s.store.GetUserOrganization(ctx, bid.AuthorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, NotFound("bid author has no organization")
		}
		return uuid.Nil, err
	}
	return orgID, nil
}

func (s *BidService) requireResponsible(ctx context.Context, employee *db.Employee, bid *db.Bid) error {
	orgID, err := s.owningOrganization(ctx, bid)
	if err != nil {
		return err
	}
	responsible, err := s.store.IsUserResponsibleForOrganization(ctx, employee.ID, orgID)
	if err != nil {
		return err
	}
	if !responsible {
		return Forbidden("user %q is not responsible for the bid organization", employee.Username)
	}
	return nil
}

// requireParticipant: автор предложения (для пользовательских) либо
// ответственный за организацию-владельца.
func (s *BidService) requireParticipant(ctx context.Context, bidID uuid.UUID, username string) (*db.Employee, *db.Bid, error) {
	employee, bid, err := s.resolveBid(ctx, bidID, username)
	if err != nil {
		return nil, nil, err
	}
	if bid.AuthorType == db.AuthorUser && bid.AuthorID == employee.ID {
		return employee, bid, nil
	}
	if err := s.requireResponsible(ctx, employee, bid); err != nil {
		return nil, nil, err
	}
	return employee, bid, nil
}

func validateBidSpec(spec BidSpec) error {
	if spec.Name == "" || len(spec.Name) > maxNameLen {
		return Validation("name is required and max length %d", maxNameLen)
	}
	if spec.Description == "" || len(spec.Description) > maxDescriptionLen {
		return Validation("description is required and max length %d", maxDescriptionLen)
	}
	if spec.TenderID == uuid.Nil {
		return Validation("tenderId is required")
	}
	if !spec.AuthorType.Valid() {
		return Validation("invalid author type %q", spec.AuthorType)
	}
	if spec.AuthorID == uuid.Nil {
		return Validation("authorId is required")
	}
	return nil
}

func validateBidPatch(patch BidPatch) error {
	if patch.Name != nil && (*patch.Name == "" || len(*patch.Name) > maxNameLen) {
		return Validation("name must be non-empty and max length %d", maxNameLen)
	}
	if patch.Description != nil && (*patch.Description == "" || len(*patch.Description) > maxDescriptionLen) {
		return Validation("description must be non-empty and max length %d", maxDescriptionLen)
	}
	return nil
}

func bidSnapshot(b *db.Bid, editor string) *db.BidHistory {
	return &db.BidHistory{
		BidID:          b.ID,
		Name:           b.Name,
		Description:    b.Description,
		Status:         b.Status,
		TenderID:       b.TenderID,
		AuthorType:     b.AuthorType,
		AuthorID:       b.AuthorID,
		EditorUsername: editor,
		Version:        b.Version,
		CreatedAt:      b.CreatedAt,
	}
}
