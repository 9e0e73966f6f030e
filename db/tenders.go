package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Tender (Тендер)
type Tender struct {
	ID              uuid.UUID    `db:"id" json:"id"`
	Name            string       `db:"name" json:"name"`
	Description     string       `db:"description" json:"description"`
	ServiceType     ServiceType  `db:"service_type" json:"serviceType"`
	Status          TenderStatus `db:"status" json:"status"`
	OrganizationID  uuid.UUID    `db:"organization_id" json:"organizationId"`
	CreatorUsername string       `db:"creator_username" json:"creatorUsername"`
	Version         int          `db:"version" json:"version"`
	CreatedAt       time.Time    `db:"created_at" json:"createdAt"`
}

// TenderHistory — снимок контента тендера до правки. Версия снимка равна
// версии тендера до правки.
type TenderHistory struct {
	ID              uuid.UUID    `db:"id" json:"-"`
	TenderID        uuid.UUID    `db:"refer_tender_id" json:"tenderId"`
	Name            string       `db:"name" json:"name"`
	Description     string       `db:"description" json:"description"`
	ServiceType     ServiceType  `db:"service_type" json:"serviceType"`
	Status          TenderStatus `db:"status" json:"status"`
	OrganizationID  uuid.UUID    `db:"organization_id" json:"organizationId"`
	CreatorUsername string       `db:"creator_username" json:"creatorUsername"`
	Version         int          `db:"version" json:"version"`
	CreatedAt       time.Time    `db:"created_at" json:"createdAt"`
}

func (s *Storage) CreateTender(ctx context.Context, t *Tender) error {
	query := `
        INSERT INTO tender
            (name, description, service_type, status, organization_id, creator_username, version)
        VALUES
            ($1, $2, $3, $4, $5, $6, 1)
        RETURNING id, version, created_at`
	return s.db.QueryRowContext(ctx, query,
		t.Name, t.Description, t.ServiceType, t.Status, t.OrganizationID, t.CreatorUsername).
		Scan(&t.ID, &t.Version, &t.CreatedAt)
}

func (s *Storage) GetTender(ctx context.Context, id uuid.UUID) (*Tender, error) {
	t := &Tender{}
	query := `SELECT * FROM tender WHERE id=$1`
	err := s.db.GetContext(ctx, t, query, id)
	return t, err
}

func (s *Storage) GetTenders(ctx context.Context, serviceTypes []ServiceType, limit, offset int) ([]Tender, error) {
	baseQuery := "SELECT * FROM tender"
	var args []interface{}
	filter := ""

	if len(serviceTypes) > 0 {
		placeholders := make([]string, len(serviceTypes))
		for i, v := range serviceTypes {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
			args = append(args, v)
		}
		filter = fmt.Sprintf(" WHERE service_type IN (%s)", strings.Join(placeholders, ", "))
	}

	query := baseQuery + filter + " ORDER BY name ASC"
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	tenders := []Tender{}
	err := s.db.SelectContext(ctx, &tenders, query, args...)
	if err != nil {
		return nil, err
	}
	return tenders, nil
}

func (s *Storage) GetUserTenders(ctx context.Context, username string, limit, offset int) ([]Tender, error) {
	query := `
        SELECT * FROM tender
        WHERE creator_username = $1
        ORDER BY name ASC
        LIMIT $2 OFFSET $3`
	tenders := []Tender{}
	err := s.db.SelectContext(ctx, &tenders, query, username, limit, offset)
	if err != nil {
		return nil, err
	}
	return tenders, nil
}

// UpdateTenderStatus пишет статус напрямую: без снимка истории и без
// инкремента версии.
func (s *Storage) UpdateTenderStatus(ctx context.Context, id uuid.UUID, status TenderStatus) error {
	query := `UPDATE tender SET status=$1 WHERE id=$2`
	_, err := s.db.ExecContext(ctx, query, status, id)
	return err
}

// UpdateTenderVersioned сохраняет тендер, сверяя версию строки с той, что
// была прочитана (compare-and-swap). Снимок snap, если задан, пишется в
// истории той же транзакцией. При несовпадении версии — ErrVersionConflict.
func (s *Storage) UpdateTenderVersioned(ctx context.Context, t *Tender, expectedVersion int, snap *TenderHistory) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if snap != nil {
		query := `
            INSERT INTO tender_history
                (refer_tender_id, name, description, service_type, status, organization_id, creator_username, version, created_at)
            VALUES
                ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
		_, err = tx.ExecContext(ctx, query,
			snap.TenderID, snap.Name, snap.Description, snap.ServiceType, snap.Status,
			snap.OrganizationID, snap.CreatorUsername, snap.Version, snap.CreatedAt)
		if err != nil {
			return err
		}
	}

	query := `
        UPDATE tender
        SET name=$1, description=$2, service_type=$3, status=$4, organization_id=$5,
            creator_username=$6, version=$7, created_at=$8
        WHERE id=$9 AND version=$10`
	res, err := tx.ExecContext(ctx, query,
		t.Name, t.Description, t.ServiceType, t.Status, t.OrganizationID,
		t.CreatorUsername, t.Version, t.CreatedAt, t.ID, expectedVersion)
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

// GetTenderHistory находит снимок по тройке (тендер, автор правки, версия).
func (s *Storage) GetTenderHistory(ctx context.Context, tenderID uuid.UUID, username string, version int) (*TenderHistory, error) {
	h := &TenderHistory{}
	query := `
        SELECT * FROM tender_history
        WHERE refer_tender_id = $1 AND creator_username = $2 AND version = $3`
	err := s.db.GetContext(ctx, h, query, tenderID, username, version)
	if err != nil {
		return nil, err
	}
	return h, nil
}
