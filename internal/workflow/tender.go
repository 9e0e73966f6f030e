package workflow

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"procurement/db"
)

// TenderService — жизненный цикл тендера: создание, списки, статус,
// версионированные правки и откат.
type TenderService struct {
	store Store
}

func NewTenderService(store Store) *TenderService {
	return &TenderService{store: store}
}

func (s *TenderService) Create(ctx context.Context, spec TenderSpec) (*db.Tender, error) {
	if err := validateTenderSpec(spec); err != nil {
		return nil, err
	}

	employee, err := s.store.GetEmployeeByUsername(ctx, spec.CreatorUsername)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, Unauthorized("user %q does not exist", spec.CreatorUsername)
		}
		return nil, err
	}

	responsible, err := s.store.IsUserResponsibleForOrganization(ctx, employee.ID, spec.OrganizationID)
	if err != nil {
		return nil, err
	}
	if !responsible {
		return nil, Forbidden("user %q is not responsible for the organization", spec.CreatorUsername)
	}

	tender := &db.Tender{
		Name:            spec.Name,
		Description:     spec.Description,
		ServiceType:     spec.ServiceType,
		Status:          spec.Status,
		OrganizationID:  spec.OrganizationID,
		CreatorUsername: spec.CreatorUsername,
	}
	if err := s.store.CreateTender(ctx, tender); err != nil {
		return nil, err
	}
	return tender, nil
}

func (s *TenderService) List(ctx context.Context, serviceTypes []db.ServiceType, page Page) ([]db.Tender, error) {
	for _, st := range serviceTypes {
		if !st.Valid() {
			return nil, Validation("invalid service type %q", st)
		}
	}
	return s.store.GetTenders(ctx, serviceTypes, page.Limit, page.Offset)
}

func (s *TenderService) ListMine(ctx context.Context, username string, page Page) ([]db.Tender, error) {
	if _, err := s.store.GetEmployeeByUsername(ctx, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, Unauthorized("user %q does not exist", username)
		}
		return nil, err
	}
	return s.store.GetUserTenders(ctx, username, page.Limit, page.Offset)
}

func (s *TenderService) GetStatus(ctx context.Context, tenderID uuid.UUID, username string) (db.TenderStatus, error) {
	tender, err := s.requireCreator(ctx, tenderID, username)
	if err != nil {
		return "", err
	}
	return tender.Status, nil
}

// ChangeStatus пишет статус напрямую: без снимка и без инкремента версии.
// Повторная установка текущего статуса — no-op.
func (s *TenderService) ChangeStatus(ctx context.Context, tenderID uuid.UUID, status db.TenderStatus, username string) (*db.Tender, error) {
	if !status.Valid() {
		return nil, Validation("invalid tender status %q", status)
	}
	tender, err := s.requireCreator(ctx, tenderID, username)
	if err != nil {
		return nil, err
	}
	if tender.Status == status {
		return tender, nil
	}
	tender.Status = status
	if tenderStatusPolicy.bumpVersion {
		tender.Version++
	}
	if err := s.store.UpdateTenderStatus(ctx, tender.ID, status); err != nil {
		return nil, err
	}
	return tender, nil
}

// Edit снимает доправочный контент в историю под доправочной версией,
// накладывает заданные поля патча и двигает версию на 1. Запись идёт через
// compare-and-swap: параллельная правка даёт Conflict.
func (s *TenderService) Edit(ctx context.Context, tenderID uuid.UUID, patch TenderPatch, username string) (*db.Tender, error) {
	if err := validateTenderPatch(patch); err != nil {
		return nil, err
	}
	tender, err := s.requireCreator(ctx, tenderID, username)
	if err != nil {
		return nil, err
	}

	var snap *db.TenderHistory
	if tenderEditPolicy.snapshot {
		snap = tenderSnapshot(tender)
	}
	patch.apply(tender)
	expected := tender.Version
	if tenderEditPolicy.bumpVersion {
		tender.Version++
	}

	if err := s.store.UpdateTenderVersioned(ctx, tender, expected, snap); err != nil {
		if errors.Is(err, db.ErrVersionConflict) {
			return nil, Conflict("tender %s was modified concurrently, re-read and retry", tenderID)
		}
		return nil, err
	}
	return tender, nil
}

// Rollback находит снимок по тройке (тендер, автор, версия) и целиком
// копирует его контент на живой тендер, включая статус и created_at.
// Версия не откатывается, а растёт: откат — такая же правка.
func (s *TenderService) Rollback(ctx context.Context, tenderID uuid.UUID, version int, username string) (*db.Tender, error) {
	tender, err := s.requireCreator(ctx, tenderID, username)
	if err != nil {
		return nil, err
	}

	h, err := s.store.GetTenderHistory(ctx, tenderID, username, version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NotFound("tender %s has no version %d", tenderID, version)
		}
		return nil, err
	}

	var snap *db.TenderHistory
	if tenderRollbackPolicy.snapshot {
		snap = tenderSnapshot(tender)
	}

	tender.Name = h.Name
	tender.Description = h.Description
	tender.ServiceType = h.ServiceType
	tender.Status = h.Status
	tender.OrganizationID = h.OrganizationID
	tender.CreatorUsername = h.CreatorUsername
	tender.CreatedAt = h.CreatedAt
	expected := tender.Version
	if tenderRollbackPolicy.bumpVersion {
		tender.Version++
	}

	if err := s.store.UpdateTenderVersioned(ctx, tender, expected, snap); err != nil {
		if errors.Is(err, db.ErrVersionConflict) {
			return nil, Conflict("tender %s was modified concurrently, re-read and retry", tenderID)
		}
		return nil, err
	}
	return tender, nil
}

// requireCreator: личность известна, тендер существует, вызывающий — его
// создатель. Владение тендером уже, чем ответственность за организацию.
func (s *TenderService) requireCreator(ctx context.Context, tenderID uuid.UUID, username string) (*db.Tender, error) {
	if _, err := s.store.GetEmployeeByUsername(ctx, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, Unauthorized("user %q does not exist", username)
		}
		return nil, err
	}
	tender, err := s.store.GetTender(ctx, tenderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NotFound("tender %s does not exist", tenderID)
		}
		return nil, err
	}
	if tender.CreatorUsername != username {
		return nil, Forbidden("user %q is not the creator of the tender", username)
	}
	return tender, nil
}

func tenderSnapshot(t *db.Tender) *db.TenderHistory {
	return &db.TenderHistory{
		TenderID:        t.ID,
		Name:            t.Name,
		Description:     t.Description,
		ServiceType:     t.ServiceType,
		Status:          t.Status,
		OrganizationID:  t.OrganizationID,
		CreatorUsername: t.CreatorUsername,
		Version:         t.Version,
		CreatedAt:       t.CreatedAt,
	}
}

func validateTenderSpec(spec TenderSpec) error {
	if spec.Name == "" || len(spec.Name) > maxNameLen {
		return Validation("name is required and max length %d", maxNameLen)
	}
	if spec.Description == "" || len(spec.Description) > maxDescriptionLen {
		return Validation("description is required and max length %d", maxDescriptionLen)
	}
	if !spec.ServiceType.Valid() {
		return Validation("invalid service type %q", spec.ServiceType)
	}
	if !spec.Status.Valid() {
		return Validation("invalid tender status %q", spec.Status)
	}
	if spec.OrganizationID == uuid.Nil {
		return Validation("organizationId is required")
	}
	if spec.CreatorUsername == "" {
		return Validation("creatorUsername is required")
	}
	return nil
}

func validateTenderPatch(patch TenderPatch) error {
	if patch.Name != nil && (*patch.Name == "" || len(*patch.Name) > maxNameLen) {
		return Validation("name must be non-empty and max length %d", maxNameLen)
	}
	if patch.Description != nil && (*patch.Description == "" || len(*patch.Description) > maxDescriptionLen) {
		return Validation("description must be non-empty and max length %d", maxDescriptionLen)
	}
	if patch.ServiceType != nil && !patch.ServiceType.Valid() {
		return Validation("invalid service type %q", *patch.ServiceType)
	}
	return nil
}
