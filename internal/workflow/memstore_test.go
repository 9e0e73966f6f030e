package workflow_test

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/google/uuid"

	"procurement/db"
)

// memStore — ручная реализация workflow.Store поверх map'ов, отсутствие
// строки сигналит sql.ErrNoRows, как sqlx.
type memStore struct {
	employees    map[uuid.UUID]db.Employee
	usernames    map[string]uuid.UUID
	orgs         map[uuid.UUID]db.Organization
	responsibles map[uuid.UUID]map[uuid.UUID]bool
	tenders      map[uuid.UUID]db.Tender
	tenderHist   []db.TenderHistory
	bids         map[uuid.UUID]db.Bid
	bidHist      []db.BidHistory
	decisions    map[uuid.UUID]map[uuid.UUID]db.DecisionType
	reviews      []db.BidReview

	forceTenderConflict bool
	forceBidConflict    bool
}

func newMemStore() *memStore {
	return &memStore{
		employees:    map[uuid.UUID]db.Employee{},
		usernames:    map[string]uuid.UUID{},
		orgs:         map[uuid.UUID]db.Organization{},
		responsibles: map[uuid.UUID]map[uuid.UUID]bool{},
		tenders:      map[uuid.UUID]db.Tender{},
		bids:         map[uuid.UUID]db.Bid{},
		decisions:    map[uuid.UUID]map[uuid.UUID]db.DecisionType{},
	}
}

func (m *memStore) addEmployee(username string) db.Employee {
	e := db.Employee{ID: uuid.New(), Username: username, FirstName: username, LastName: "Test", CreatedAt: time.Now()}
	m.employees[e.ID] = e
	m.usernames[username] = e.ID
	return e
}

func (m *memStore) addOrganization(name string) db.Organization {
	o := db.Organization{ID: uuid.New(), Name: name, Type: db.OrganizationLLC, CreatedAt: time.Now()}
	m.orgs[o.ID] = o
	return o
}

func (m *memStore) addResponsible(orgID, userID uuid.UUID) {
	if m.responsibles[orgID] == nil {
		m.responsibles[orgID] = map[uuid.UUID]bool{}
	}
	m.responsibles[orgID][userID] = true
}

func (m *memStore) GetEmployeeByUsername(ctx context.Context, username string) (*db.Employee, error) {
	id, ok := m.usernames[username]
	if !ok {
		return nil, sql.ErrNoRows
	}
	e := m.employees[id]
	return &e, nil
}

func (m *memStore) GetEmployeeByID(ctx context.Context, id uuid.UUID) (*db.Employee, error) {
	e, ok := m.employees[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (m *memStore) GetOrganization(ctx context.Context, id uuid.UUID) (*db.Organization, error) {
	o, ok := m.orgs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &o, nil
}

func (m *memStore) IsUserResponsibleForOrganization(ctx context.Context, userID, orgID uuid.UUID) (bool, error) {
	return m.responsibles[orgID][userID], nil
}

func (m *memStore) GetUserOrganization(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	for orgID, users := range m.responsibles {
		if users[userID] {
			return orgID, nil
		}
	}
	return uuid.Nil, sql.ErrNoRows
}

func (m *memStore) GetResponsibleCount(ctx context.Context, orgID uuid.UUID) (int, error) {
	return len(m.responsibles[orgID]), nil
}

func (m *memStore) CreateTender(ctx context.Context, t *db.Tender) error {
	t.ID = uuid.New()
	t.Version = 1
	t.CreatedAt = time.Now()
	m.tenders[t.ID] = *t
	return nil
}

func (m *memStore) GetTender(ctx context.Context, id uuid.UUID) (*db.Tender, error) {
	t, ok := m.tenders[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &t, nil
}

func (m *memStore) GetTenders(ctx context.Context, serviceTypes []db.ServiceType, limit, offset int) ([]db.Tender, error) {
	var out []db.Tender
	for _, t := range m.tenders {
		if len(serviceTypes) > 0 {
			match := false
			for _, st := range serviceTypes {
				if t.ServiceType == st {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, limit, offset), nil
}

func (m *memStore) GetUserTenders(ctx context.Context, username string, limit, offset int) ([]db.Tender, error) {
	var out []db.Tender
	for _, t := range m.tenders {
		if t.CreatorUsername == username {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, limit, offset), nil
}

func (m *memStore) UpdateTenderStatus(ctx context.Context, id uuid.UUID, status db.TenderStatus) error {
	t := m.tenders[id]
	t.Status = status
	m.tenders[id] = t
	return nil
}

func (m *memStore) UpdateTenderVersioned(ctx context.Context, t *db.Tender, expectedVersion int, snap *db.TenderHistory) error {
	if m.forceTenderConflict {
		return db.ErrVersionConflict
	}
	current, ok := m.tenders[t.ID]
	if !ok || current.Version != expectedVersion {
		return db.ErrVersionConflict
	}
	if snap != nil {
		m.tenderHist = append(m.tenderHist, *snap)
	}
	m.tenders[t.ID] = *t
	return nil
}

func (m *memStore) GetTenderHistory(ctx context.Context, tenderID uuid.UUID, username string, version int) (*db.TenderHistory, error) {
	for _, h := range m.tenderHist {
		if h.TenderID == tenderID && h.CreatorUsername == username && h.Version == version {
			snap := h
			return &snap, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memStore) CreateBid(ctx context.Context, b *db.Bid) error {
	b.ID = uuid.New()
	b.Version = 1
	b.CreatedAt = time.Now()
	m.bids[b.ID] = *b
	return nil
}

func (m *memStore) GetBid(ctx context.Context, id uuid.UUID) (*db.Bid, error) {
	b, ok := m.bids[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &b, nil
}

func (m *memStore) GetUserBids(ctx context.Context, authorID uuid.UUID, limit, offset int) ([]db.Bid, error) {
	var out []db.Bid
	for _, b := range m.bids {
		if b.AuthorID == authorID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, limit, offset), nil
}

func (m *memStore) GetBidsForTender(ctx context.Context, tenderID, authorID uuid.UUID, limit, offset int) ([]db.Bid, error) {
	var out []db.Bid
	for _, b := range m.bids {
		if b.TenderID == tenderID && b.AuthorID == authorID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return paginate(out, limit, offset), nil
}

func (m *memStore) UpdateBidVersioned(ctx context.Context, b *db.Bid, expectedVersion int, snap *db.BidHistory) error {
	if m.forceBidConflict {
		return db.ErrVersionConflict
	}
	current, ok := m.bids[b.ID]
	if !ok || current.Version != expectedVersion {
		return db.ErrVersionConflict
	}
	if snap != nil {
		m.bidHist = append(m.bidHist, *snap)
	}
	m.bids[b.ID] = *b
	return nil
}

func (m *memStore) GetBidHistory(ctx context.Context, bidID uuid.UUID, editorUsername string, version int) (*db.BidHistory, error) {
	for _, h := range m.bidHist {
		if h.BidID == bidID && h.EditorUsername == editorUsername && h.Version == version {
			snap := h
			return &snap, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memStore) UpsertBidDecision(ctx context.Context, bidID, userID uuid.UUID, decision db.DecisionType) error {
	if m.decisions[bidID] == nil {
		m.decisions[bidID] = map[uuid.UUID]db.DecisionType{}
	}
	m.decisions[bidID][userID] = decision
	return nil
}

func (m *memStore) GetBidDecisions(ctx context.Context, bidID uuid.UUID) ([]db.Decision, error) {
	var out []db.Decision
	for userID, d := range m.decisions[bidID] {
		out = append(out, db.Decision{BidID: bidID, UserID: userID, DecisionType: d})
	}
	return out, nil
}

func (m *memStore) CreateBidReview(ctx context.Context, r *db.BidReview) error {
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	m.reviews = append(m.reviews, *r)
	return nil
}

func (m *memStore) GetBidReviewsByAuthorForTender(ctx context.Context, authorUsername string, tenderID uuid.UUID, limit, offset int) ([]db.BidReview, error) {
	authorID, ok := m.usernames[authorUsername]
	if !ok {
		return []db.BidReview{}, nil
	}
	var out []db.BidReview
	for _, r := range m.reviews {
		b, ok := m.bids[r.BidID]
		if ok && b.TenderID == tenderID && b.AuthorType == db.AuthorUser && b.AuthorID == authorID {
			out = append(out, r)
		}
	}
	return paginate(out, limit, offset), nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
