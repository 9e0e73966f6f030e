package db

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Bid (Предложение)
type Bid struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Description string     `db:"description" json:"description"`
	Status      BidStatus  `db:"status" json:"status"`
	TenderID    uuid.UUID  `db:"tender_id" json:"tenderId"`
	AuthorType  AuthorType `db:"author_type" json:"authorType"`
	AuthorID    uuid.UUID  `db:"author_id" json:"authorId"`
	Version     int        `db:"version" json:"version"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
}

// BidHistory — снимок контента предложения до правки. editor_username —
// кто внёс правку; откат адресуется тройкой (bid, editor, version).
type BidHistory struct {
	ID             uuid.UUID  `db:"id" json:"-"`
	BidID          uuid.UUID  `db:"bid_id" json:"bidId"`
	Name           string     `db:"name" json:"name"`
	Description    string     `db:"description" json:"description"`
	Status         BidStatus  `db:"status" json:"status"`
	TenderID       uuid.UUID  `db:"tender_id" json:"tenderId"`
	AuthorType     AuthorType `db:"author_type" json:"authorType"`
	AuthorID       uuid.UUID  `db:"author_id" json:"authorId"`
	EditorUsername string     `db:"editor_username" json:"editorUsername"`
	Version        int        `db:"version" json:"version"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
}

// Decision — решение ответственного по предложению, одно на пару
// (предложение, сотрудник).
type Decision struct {
	BidID        uuid.UUID    `db:"bid_id" json:"bidId"`
	UserID       uuid.UUID    `db:"user_id" json:"userId"`
	DecisionType DecisionType `db:"decision_type" json:"decisionType"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
}

// BidReview (Отзыв)
type BidReview struct {
	ID          uuid.UUID `db:"id" json:"id"`
	BidID       uuid.UUID `db:"bid_id" json:"bidId"`
	ReviewerID  uuid.UUID `db:"reviewer_id" json:"reviewerId"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

func (s *Storage) CreateBid(ctx context.Context, b *Bid) error {
	query := `
        INSERT INTO bid
            (name, description, status, tender_id, author_type, author_id, version)
        VALUES
            ($1, $2, $3, $4, $5, $6, 1)
        RETURNING id, version, created_at`
	return s.db.QueryRowContext(ctx, query,
		b.Name, b.Description, b.Status, b.TenderID, b.AuthorType, b.AuthorID).
		Scan(&b.ID, &b.Version, &b.CreatedAt)
}

func (s *Storage) GetBid(ctx context.Context, id uuid.UUID) (*Bid, error) {
	b := &Bid{}
	query := `SELECT * FROM bid WHERE id=$1`
	err := s.db.GetContext(ctx, b, query, id)
	return b, err
}

func (s *Storage) GetUserBids(ctx context.Context, authorID uuid.UUID, limit, offset int) ([]Bid, error) {
	query := `
        SELECT * FROM bid
        WHERE author_id = $1
        ORDER BY name ASC
        LIMIT $2 OFFSET $3`
	bids := []Bid{}
	err := s.db.SelectContext(ctx, &bids, query, authorID, limit, offset)
	return bids, err
}

func (s *Storage) GetBidsForTender(ctx context.Context, tenderID, authorID uuid.UUID, limit, offset int) ([]Bid, error) {
	query := `
        SELECT * FROM bid
        WHERE tender_id = $1 AND author_id = $2
        ORDER BY name ASC
        LIMIT $3 OFFSET $4`
	bids := []Bid{}
	err := s.db.SelectContext(ctx, &bids, query, tenderID, authorID, limit, offset)
	return bids, err
}

// UpdateBidVersioned — compare-and-swap по версии, как у тендеров. Снимок
// snap (опционален: смена статуса истории не пишет) уходит той же
// транзакцией.
func (s *Storage) UpdateBidVersioned(ctx context.Context, b *Bid, expectedVersion int, snap *BidHistory) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if snap != nil {
		query := `
            INSERT INTO bid_history
                (bid_id, name, description, status, tender_id, author_type, author_id, editor_username, version, created_at)
            VALUES
                ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
		_, err = tx.ExecContext(ctx, query,
			snap.BidID, snap.Name, snap.Description, snap.Status, snap.TenderID,
			snap.AuthorType, snap.AuthorID, snap.EditorUsername, snap.Version, snap.CreatedAt)
		if err != nil {
			return err
		}
	}

	query := `
        UPDATE bid
        SET name=$1, description=$2, status=$3, version=$4, created_at=$5
        WHERE id=$6 AND version=$7`
	res, err := tx.ExecContext(ctx, query,
		b.Name, b.Description, b.Status, b.Version, b.CreatedAt, b.ID, expectedVersion)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	return tx.Commit()
}

func (s *Storage) GetBidHistory(ctx context.Context, bidID uuid.UUID, editorUsername string, version int) (*BidHistory, error) {
	h := &BidHistory{}
	query := `
        SELECT * FROM bid_history
        WHERE bid_id = $1 AND editor_username = $2 AND version = $3`
	err := s.db.GetContext(ctx, h, query, bidID, editorUsername, version)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// UpsertBidDecision: повторное решение того же сотрудника заменяет прежнее,
// в кворуме оно считается один раз.
func (s *Storage) UpsertBidDecision(ctx context.Context, bidID, userID uuid.UUID, decision DecisionType) error {
	query := `
        INSERT INTO decision (bid_id, user_id, decision_type, created_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (bid_id, user_id) DO UPDATE SET decision_type = EXCLUDED.decision_type, created_at = NOW()`
	_, err := s.db.ExecContext(ctx, query, bidID, userID, decision)
	return err
}

func (s *Storage) GetBidDecisions(ctx context.Context, bidID uuid.UUID) ([]Decision, error) {
	decisions := []Decision{}
	query := `SELECT * FROM decision WHERE bid_id = $1`
	err := s.db.SelectContext(ctx, &decisions, query, bidID)
	return decisions, err
}

func (s *Storage) CreateBidReview(ctx context.Context, r *BidReview) error {
	query := `
        INSERT INTO bid_review (bid_id, reviewer_id, description)
        VALUES ($1, $2, $3)
        RETURNING id, created_at`
	return s.db.QueryRowContext(ctx, query, r.BidID, r.ReviewerID, r.Description).
		Scan(&r.ID, &r.CreatedAt)
}

func (s *Storage) GetBidReviewsByAuthorForTender(ctx context.Context, authorUsername string, tenderID uuid.UUID, limit, offset int) ([]BidReview, error) {
	reviews := []BidReview{}
	query := `
        SELECT r.*
        FROM bid_review r
        JOIN bid b ON r.bid_id = b.id
        JOIN employee e ON b.author_id = e.id AND b.author_type = 'User'
        WHERE e.username = $1 AND b.tender_id = $2
        ORDER BY r.created_at DESC
        LIMIT $3 OFFSET $4`
	err := s.db.SelectContext(ctx, &reviews, query, authorUsername, tenderID, limit, offset)
	return reviews, err
}
