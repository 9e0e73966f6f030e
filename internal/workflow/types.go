package workflow

import (
	"github.com/google/uuid"

	"procurement/db"
)

// Page — limit/offset для списочных операций.
type Page struct {
	Limit  int
	Offset int
}

// TenderSpec — данные нового тендера. Статус выбирает создатель.
type TenderSpec struct {
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	ServiceType     db.ServiceType  `json:"serviceType"`
	Status          db.TenderStatus `json:"status"`
	OrganizationID  uuid.UUID       `json:"organizationId"`
	CreatorUsername string          `json:"creatorUsername"`
}

// TenderPatch перечисляет необязательные поля правки; nil-поле не трогается.
type TenderPatch struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	ServiceType *db.ServiceType `json:"serviceType"`
}

func (p TenderPatch) apply(t *db.Tender) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.ServiceType != nil {
		t.ServiceType = *p.ServiceType
	}
}

// BidSpec — данные нового предложения.
type BidSpec struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	TenderID    uuid.UUID     `json:"tenderId"`
	AuthorType  db.AuthorType `json:"authorType"`
	AuthorID    uuid.UUID     `json:"authorId"`
}

// BidPatch — необязательные поля правки предложения.
type BidPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (p BidPatch) apply(b *db.Bid) {
	if p.Name != nil {
		b.Name = *p.Name
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
}

// mutationPolicy: пишет ли мутация снимок в историю и двигает ли версию.
type mutationPolicy struct {
	snapshot    bool
	bumpVersion bool
}

// Таблица политик по сущностям и мутациям. Правки и откаты всегда
// снимаются; смена статуса тендера не трогает ни историю, ни версию,
// смена статуса предложения двигает версию без снимка.
var (
	tenderEditPolicy     = mutationPolicy{snapshot: true, bumpVersion: true}
	tenderRollbackPolicy = mutationPolicy{snapshot: true, bumpVersion: true}
	tenderStatusPolicy   = mutationPolicy{}

	bidEditPolicy     = mutationPolicy{snapshot: true, bumpVersion: true}
	bidRollbackPolicy = mutationPolicy{snapshot: true, bumpVersion: true}
	bidStatusPolicy   = mutationPolicy{bumpVersion: true}
)

// DecisionOutcome — исход подачи решения.
type DecisionOutcome string

const (
	// OutcomeAccepted — решение записано и учтено.
	OutcomeAccepted DecisionOutcome = "ACCEPTED"
	// OutcomeRejected — по предложению есть хотя бы одно отклонение.
	OutcomeRejected DecisionOutcome = "REJECTED"
	// OutcomeForbidden — подавший не ответственен за организацию;
	// решение не записано, ошибка не поднимается.
	OutcomeForbidden DecisionOutcome = "FORBIDDEN"
)

// DecisionResult — явный результат подачи решения.
type DecisionResult struct {
	Outcome      DecisionOutcome `json:"outcome"`
	Bid          *db.Bid         `json:"bid"`
	TenderClosed bool            `json:"tenderClosed"`
}

const (
	maxNameLen        = 100
	maxDescriptionLen = 500
	maxReviewLen      = 1000
	quorumCap         = 3
)
