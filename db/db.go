package db

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ErrVersionConflict возвращается, когда версия сущности изменилась между
// чтением и записью.
var ErrVersionConflict = errors.New("version conflict")

type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// Employee (Пользователь)
type Employee struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	FirstName string    `db:"first_name" json:"firstName"`
	LastName  string    `db:"last_name" json:"lastName"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

func (s *Storage) CreateEmployee(ctx context.Context, e *Employee) error {
	query := `
        INSERT INTO employee (username, first_name, last_name)
        VALUES ($1, $2, $3)
        RETURNING id, created_at`
	return s.db.QueryRowContext(ctx, query, e.Username, e.FirstName, e.LastName).
		Scan(&e.ID, &e.CreatedAt)
}

func (s *Storage) GetEmployees(ctx context.Context) ([]Employee, error) {
	employees := []Employee{}
	query := `SELECT * FROM employee ORDER BY first_name ASC`
	err := s.db.SelectContext(ctx, &employees, query)
	return employees, err
}

func (s *Storage) GetEmployeeByUsername(ctx context.Context, username string) (*Employee, error) {
	e := &Employee{}
	query := `SELECT * FROM employee WHERE username=$1`
	err := s.db.GetContext(ctx, e, query, username)
	return e, err
}

func (s *Storage) GetEmployeeByID(ctx context.Context, id uuid.UUID) (*Employee, error) {
	e := &Employee{}
	query := `SELECT * FROM employee WHERE id=$1`
	err := s.db.GetContext(ctx, e, query, id)
	return e, err
}

// Organization (Организация)
type Organization struct {
	ID          uuid.UUID        `db:"id" json:"id"`
	Name        string           `db:"name" json:"name"`
	Description string           `db:"description" json:"description"`
	Type        OrganizationType `db:"type" json:"type"`
	CreatedAt   time.Time        `db:"created_at" json:"createdAt"`
}

func (s *Storage) CreateOrganization(ctx context.Context, o *Organization) error {
	query := `
        INSERT INTO organization (name, description, type)
        VALUES ($1, $2, $3)
        RETURNING id, created_at`
	return s.db.QueryRowContext(ctx, query, o.Name, o.Description, o.Type).
		Scan(&o.ID, &o.CreatedAt)
}

func (s *Storage) GetOrganizations(ctx context.Context) ([]Organization, error) {
	orgs := []Organization{}
	query := `SELECT * FROM organization ORDER BY name ASC`
	err := s.db.SelectContext(ctx, &orgs, query)
	return orgs, err
}

func (s *Storage) GetOrganization(ctx context.Context, id uuid.UUID) (*Organization, error) {
	o := &Organization{}
	query := `SELECT * FROM organization WHERE id=$1`
	err := s.db.GetContext(ctx, o, query, id)
	return o, err
}

func (s *Storage) CreateOrganizationResponsible(ctx context.Context, orgID, userID uuid.UUID) error {
	query := `
        INSERT INTO organization_responsible (organization_id, user_id)
        VALUES ($1, $2)
        ON CONFLICT (organization_id, user_id) DO NOTHING`
	_, err := s.db.ExecContext(ctx, query, orgID, userID)
	return err
}

func (s *Storage) IsUserResponsibleForOrganization(ctx context.Context, userID, orgID uuid.UUID) (bool, error) {
	var count int
	query := `SELECT COUNT(1) FROM organization_responsible WHERE user_id=$1 AND organization_id=$2`
	err := s.db.GetContext(ctx, &count, query, userID, orgID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserOrganization возвращает организацию, за которую отвечает пользователь.
// sql.ErrNoRows — пользователь не отвечает ни за одну организацию.
func (s *Storage) GetUserOrganization(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	var orgID uuid.UUID
	query := `SELECT organization_id FROM organization_responsible WHERE user_id=$1 LIMIT 1`
	err := s.db.GetContext(ctx, &orgID, query, userID)
	return orgID, err
}

func (s *Storage) GetResponsibleCount(ctx context.Context, orgID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(1) FROM organization_responsible WHERE organization_id = $1`
	err := s.db.GetContext(ctx, &count, query, orgID)
	return count, err
}
