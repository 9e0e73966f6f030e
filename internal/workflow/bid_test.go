package workflow_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"procurement/db"
	"procurement/internal/workflow"
)

// bidFixture: организация-заказчик с тендером и организация-поставщик,
// от сотрудника которой подаётся предложение.
type bidFixture struct {
	store    *memStore
	service  *workflow.BidService
	buyerOrg db.Organization
	owner    db.Employee
	tender   db.Tender

	supplierOrg db.Organization
	supplier    db.Employee
}

func newBidFixture(t *testing.T) *bidFixture {
	t.Helper()
	store := newMemStore()

	buyerOrg := store.addOrganization("Buyer LLC")
	owner := store.addEmployee("owner")
	store.addResponsible(buyerOrg.ID, owner.ID)

	tender := db.Tender{
		Name:            "Pipe delivery",
		Description:     "Delivery of steel pipes",
		ServiceType:     db.ServiceDelivery,
		Status:          db.TenderPublished,
		OrganizationID:  buyerOrg.ID,
		CreatorUsername: owner.Username,
	}
	require.NoError(t, store.CreateTender(context.Background(), &tender))

	supplierOrg := store.addOrganization("Supplier LLC")
	supplier := store.addEmployee("supplier")
	store.addResponsible(supplierOrg.ID, supplier.ID)

	return &bidFixture{
		store:       store,
		service:     workflow.NewBidService(store),
		buyerOrg:    buyerOrg,
		owner:       owner,
		tender:      tender,
		supplierOrg: supplierOrg,
		supplier:    supplier,
	}
}

func (f *bidFixture) spec() workflow.BidSpec {
	return workflow.BidSpec{
		Name:        "Steel pipes",
		Description: "200 tons, GOST",
		TenderID:    f.tender.ID,
		AuthorType:  db.AuthorUser,
		AuthorID:    f.supplier.ID,
	}
}

func (f *bidFixture) create(t *testing.T) *db.Bid {
	t.Helper()
	bid, err := f.service.Create(context.Background(), f.spec())
	require.NoError(t, err)
	return bid
}

func TestBidCreate(t *testing.T) {
	f := newBidFixture(t)

	bid := f.create(t)

	require.Equal(t, 1, bid.Version)
	require.Equal(t, db.BidCreated, bid.Status)
	require.Equal(t, f.supplier.ID, bid.AuthorID)
	require.Empty(t, f.store.bidHist)
}

func TestBidCreateUnknownTender(t *testing.T) {
	f := newBidFixture(t)

	spec := f.spec()
	spec.TenderID = uuid.New()
	_, err := f.service.Create(context.Background(), spec)

	require.Equal(t, workflow.KindNotFound, workflow.KindOf(err))
}

func TestBidCreateUnknownAuthor(t *testing.T) {
	f := newBidFixture(t)

	spec := f.spec()
	spec.AuthorID = uuid.New()
	_, err := f.service.Create(context.Background(), spec)
	require.Equal(t, workflow.KindNotFound, workflow.KindOf(err))

	spec = f.spec()
	spec.AuthorType = db.AuthorOrganization
	spec.AuthorID = uuid.New()
	_, err = f.service.Create(context.Background(), spec)
	require.Equal(t, workflow.KindNotFound, workflow.KindOf(err))
}

func TestBidEditSnapshotsAndBumps(t *testing.T) {
	f := newBidFixture(t)
	bid := f.create(t)

	name := "Copper pipes"
	updated, err := f.service.Edit(context.Background(), bid.ID,
		workflow.BidPatch{Name: &name}, f.supplier.Username)
	require.NoError(t, err)

	require.Equal(t, 2, updated.Version)
	require.Equal(t, "Copper pipes", updated.Name)
	require.Equal(t, "200 tons, GOST", updated.Description)

	require.Len(t, f.store.bidHist, 1)
	snap := f.store.bidHist[0]
	require.Equal(t, 1, snap.Version)
	require.Equal(t, "Steel pipes", snap.Name)
	require.Equal(t, f.supplier.Username, snap.EditorUsername)
}

func TestBidEditByStranger(t *testing.T) {
	f := newBidFixture(t)
	bid := f.create(t)
	f.store.addEmployee("stranger")

	name := "Hijacked"
	_, err := f.service.Edit(context.Background(), bid.ID,
		workflow.BidPatch{Name: &name}, "stranger")

	require.Equal(t, workflow.KindForbidden, workflow.KindOf(err))
}

func TestBidEditConflict(t *testing.T) {
	f := newBidFixture(t)
	bid := f.create(t)
	f.store.forceBidConflict = true

	name := "Racer"
	_, err := f.service.Edit(context.Background(), bid.ID,
		workflow.BidPatch{Name: &name}, f.supplier.Username)

	require.Equal(t, workflow.KindConflict, workflow.KindOf(err))
}

func TestBidChangeStatusBumpsWithoutSnapshot(t *testing.T) {
	f := newBidFixture(t)
	bid := f.create(t)

	updated, err := f.service.ChangeStatus(context.Background(), bid.ID, db.BidPublished, f.supplier.Username)
	require.NoError(t, err)

	require.Equal(t, db.BidPublished, updated.Status)
	require.Equal(t, 2, updated.Version)
	require.Empty(t, f.store.bidHist)
}

func TestBidChangeStatusNotResponsible(t *testing.T) {
	f := newBidFixture(t)
	bid := f.create(t)
	f.store.addEmployee("outsider")

	_, err := f.service.ChangeStatus(context.Background(), bid.ID, db.BidCanceled, "outsider")
	require.Equal(t, workflow.KindForbidden, workflow.KindOf(err))
}

func TestBidRollbackRestoresContent(t *testing.T) {
	f := newBidFixture(t)
	bid := f.create(t)
	ctx := context.Background()

	name := "Copper pipes"
	_, err := f.service.Edit(ctx, bid.ID, workflow.BidPatch{Name: &name}, f.supplier.Username)
	require.NoError(t, err)

	restored, err := f.service.Rollback(ctx, bid.ID, 1, f.supplier.Username)
	require.NoError(t, err)

	require.Equal(t, "Steel pipes", restored.Name)
	require.Equal(t, 3, restored.Version)

	// снимок дооткатного состояния записан под версией 2
	snap, err := f.store.GetBidHistory(ctx, bid.ID, f.supplier.Username, 2)
	require.NoError(t, err)
	require.Equal(t, "Copper pipes", snap.Name)
}

func TestBidRollbackUnknownVersion(t *testing.T) {
	f := newBidFixture(t)
	bid := f.create(t)

	_, err := f.service.Rollback(context.Background(), bid.ID, 7, f.supplier.Username)
	require.Equal(t, workflow.KindNotFound, workflow.KindOf(err))
	require.Equal(t, 1, f.store.bids[bid.ID].Version)
}

func TestBidGetStatusParticipants(t *testing.T) {
	f := newBidFixture(t)
	bid := f.create(t)

	status, err := f.service.GetStatus(context.Background(), bid.ID, f.supplier.Username)
	require.NoError(t, err)
	require.Equal(t, db.BidCreated, status)

	f.store.addEmployee("outsider")
	_, err = f.service.GetStatus(context.Background(), bid.ID, "outsider")
	require.Equal(t, workflow.KindForbidden, workflow.KindOf(err))
}

func TestSubmitDecisionQuorumClosesTender(t *testing.T) {
	f := newBidFixture(t)
	bid := f.create(t)
	ctx := context.Background()

	// 5 ответственных у поставщика: кворум срезается до 3
	var reviewers []db.Employee
	for i := 0; i < 4; i++ {
		rev := f.store.addEmployee(fmt.Sprintf("reviewer%d", i))
		f.store.addResponsible(f.supplierOrg.ID, rev.ID)
		reviewers = append(reviewers, rev)
	}

	for i := 0; i < 2; i++ {
		res, err := f.service.SubmitDecision(ctx, bid.ID, db.DecisionApproved, reviewers[i].Username)
		require.NoError(t, err)
		require.Equal(t, workflow.OutcomeAccepted, res.Outcome)
		require.False(t, res.TenderClosed)
	}

	res, err := f.service.SubmitDecision(ctx, bid.ID, db.DecisionApproved, reviewers[2].Username)
	require.NoError(t, err)
	require.Equal(t, workflow.OutcomeAccepted, res.Outcome)
	require.True(t, res.TenderClosed)
	require.Equal(t, db.TenderClosed, f.store.tenders[f.tender.ID].Status)
}

func TestSubmitDecisionSingleResponsible(t *testing.T) {
	f := newBidFixture(t)
	bid := f.create(t)

	// единственный ответственный: его одобрения достаточно
	res, err := f.service.SubmitDecision(context.Background(), bid.ID, db.DecisionApproved, f.supplier.Username)
	require.NoError(t, err)
	require.Equal(t, workflow.OutcomeAccepted, res.Outcome)
	require.True(t, res.TenderClosed)
}

func TestSubmitDecisionRejectionWins(t *testing.T) {
	f := newBidFixture(t)
	bid := f.create(t)
	ctx := context.Background()

	rev := f.store.addEmployee("reviewer")
	f.store.addResponsible(f.supplierOrg.ID, rev.ID)

	_, err := f.service.SubmitDecision(ctx, bid.ID, db.DecisionApproved, f.supplier.Username)
	require.NoError(t, err)

	res, err := f.service.SubmitDecision(ctx, bid.ID, db.DecisionRejected, rev.Username)
	require.NoError(t, err)
	require.Equal(t, workflow.OutcomeRejected, res.Outcome)
	require.False(t, res.TenderClosed)
	require.Equal(t, db.TenderPublished, f.store.tenders[f.tender.ID].Status)
}

func TestSubmitDecisionNotResponsible(t *testing.T) {
	f := newBidFixture(t)
	bid := f.create(t)
	f.store.addEmployee("outsider")

	res, err := f.service.SubmitDecision(context.Background(), bid.ID, db.DecisionApproved, "outsider")
	require.NoError(t, err)
	require.Equal(t, workflow.OutcomeForbidden, res.Outcome)
	require.Empty(t, f.store.decisions[bid.ID])
}

func TestSubmitDecisionUpsert(t *testing.T) {
	f := newBidFixture(t)
	bid := f.create(t)
	ctx := context.Background()

	rev := f.store.addEmployee("reviewer")
	f.store.addResponsible(f.supplierOrg.ID, rev.ID)

	// повторное одобрение того же сотрудника не приближает кворум из 2
	for i := 0; i < 2; i++ {
		res, err := f.service.SubmitDecision(ctx, bid.ID, db.DecisionApproved, f.supplier.Username)
		require.NoError(t, err)
		require.Equal(t, workflow.OutcomeAccepted, res.Outcome)
		require.False(t, res.TenderClosed)
	}

	res, err := f.service.SubmitDecision(ctx, bid.ID, db.DecisionApproved, rev.Username)
	require.NoError(t, err)
	require.True(t, res.TenderClosed)
}

func TestSendFeedback(t *testing.T) {
	f := newBidFixture(t)
	bid := f.create(t)

	review, err := f.service.SendFeedback(context.Background(), bid.ID, "Solid offer", f.supplier.Username)
	require.NoError(t, err)
	require.Equal(t, f.supplier.ID, review.ReviewerID)
	require.Equal(t, "Solid offer", review.Description)
	require.Len(t, f.store.reviews, 1)
}

func TestSendFeedbackNotResponsible(t *testing.T) {
	f := newBidFixture(t)
	bid := f.create(t)
	f.store.addEmployee("outsider")

	_, err := f.service.SendFeedback(context.Background(), bid.ID, "Sneaky", "outsider")
	require.Equal(t, workflow.KindForbidden, workflow.KindOf(err))
	require.Empty(t, f.store.reviews)
}

func TestListReviews(t *testing.T) {
	f := newBidFixture(t)
	bid := f.create(t)
	ctx := context.Background()

	_, err := f.service.SendFeedback(ctx, bid.ID, "Solid offer", f.supplier.Username)
	require.NoError(t, err)

	reviews, err := f.service.ListReviews(ctx, f.tender.ID, f.supplier.Username, f.owner.Username, workflow.Page{Limit: 10})
	require.NoError(t, err)
	require.Len(t, reviews, 1)

	f.store.addEmployee("outsider")
	_, err = f.service.ListReviews(ctx, f.tender.ID, f.supplier.Username, "outsider", workflow.Page{Limit: 10})
	require.Equal(t, workflow.KindForbidden, workflow.KindOf(err))
}
