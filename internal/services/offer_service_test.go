package services_test

import (
	"context"
	"testing"
	"time"

	"supplymarket/internal/models"
	"supplymarket/internal/repositories"
	"supplymarket/internal/services"
	"supplymarket/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type offerFixture struct {
	store    *repositories.Store
	catalog  testutil.Catalog
	buyer    models.User
	supplier models.User
	company  models.Company
	request  models.Request
}

func newOfferFixture(t *testing.T) offerFixture {
	t.Helper()
	store := newStore(t)
	f := offerFixture{store: store, catalog: testutil.SeedCatalog(t, store)}
	f.buyer = testutil.CreateUser(t, store, models.RoleBuyer)
	f.supplier = testutil.CreateUser(t, store, models.RoleSupplier)
	f.company = testutil.CreateCompany(t, store, f.catalog, &f.supplier)
	f.request = testutil.CreateRequest(t, store, f.catalog, f.buyer)
	return f
}

func (f offerFixture) rival(t *testing.T) (models.User, models.Company) {
	t.Helper()
	u := testutil.CreateUser(t, f.store, models.RoleSupplier)
	return u, testutil.CreateCompany(t, f.store, f.catalog, &u)
}

func TestOfferService_CreateOffer(t *testing.T) {
	ctx := context.Background()
	f := newOfferFixture(t)
	publisher := new(MockPublisher)
	publisher.On("PublishEvent", services.EventOfferCreated, mock.AnythingOfType("services.OfferEvent")).Return(nil).Once()
	svc := services.NewOfferService(f.store, publisher)

	in := services.OfferInput{
		RequestID:        f.request.ID,
		Price:            decimal.NewFromInt(41000),
		PriceUnit:        "KZT/t",
		DeliveryIncluded: false,
		DeliveryPrice:    decimal.NewNullDecimal(decimal.NewFromInt(15000)),
		ValidUntil:       time.Now().Add(48 * time.Hour),
	}
	offer, err := svc.CreateOffer(ctx, actorOf(f.supplier), in)
	require.NoError(t, err)
	assert.Equal(t, models.OfferPending, offer.Status)
	assert.Equal(t, f.company.ID, offer.CompanyID)
	publisher.AssertExpectations(t)

	stored, err := f.store.Offers.FindUnique(ctx, "id", offer.ID)
	require.NoError(t, err)
	require.True(t, stored.DeliveryPrice.Valid)
	assert.True(t, decimal.NewFromInt(15000).Equal(stored.DeliveryPrice.Decimal))

	// One offer per company per request
	_, err = svc.CreateOffer(ctx, actorOf(f.supplier), in)
	assert.ErrorIs(t, err, services.ErrConflict)

	rivalUser, _ := f.rival(t)
	expired := in
	expired.ValidUntil = time.Now().Add(-time.Minute)
	_, err = svc.CreateOffer(ctx, actorOf(rivalUser), expired)
	assert.ErrorIs(t, err, services.ErrInvalidInput)

	negative := in
	negative.Price = decimal.NewFromInt(-1)
	_, err = svc.CreateOffer(ctx, actorOf(rivalUser), negative)
	assert.ErrorIs(t, err, services.ErrInvalidInput)

	missing := in
	missing.RequestID = "00000000-0000-0000-0000-000000000000"
	_, err = svc.CreateOffer(ctx, actorOf(rivalUser), missing)
	assert.True(t, repositories.IsNotFound(err))

	_, err = svc.CreateOffer(ctx, actorOf(f.buyer), in)
	assert.ErrorIs(t, err, services.ErrForbidden)
}

func TestOfferService_CreateOfferOnClosedRequest(t *testing.T) {
	ctx := context.Background()
	f := newOfferFixture(t)
	svc := services.NewOfferService(f.store, nil)
	_, err := f.store.Requests.Update(ctx, f.request.ID, map[string]any{"status": models.RequestClosed})
	require.NoError(t, err)

	_, err = svc.CreateOffer(ctx, actorOf(f.supplier), services.OfferInput{
		RequestID:  f.request.ID,
		Price:      decimal.NewFromInt(1000),
		ValidUntil: time.Now().Add(time.Hour),
	})
	assert.ErrorIs(t, err, services.ErrInvalidState)
}

func TestOfferService_AcceptOffer(t *testing.T) {
	ctx := context.Background()
	f := newOfferFixture(t)
	publisher := new(MockPublisher)
	publisher.On("PublishEvent", services.EventOfferAccepted, mock.MatchedBy(func(e services.OfferEvent) bool {
		return e.Status == models.OfferAccepted
	})).Return(nil).Once()
	svc := services.NewOfferService(f.store, publisher)

	winner := testutil.CreateOffer(t, f.store, f.request, f.company, 41000)
	_, rivalCompany := f.rival(t)
	loser := testutil.CreateOffer(t, f.store, f.request, rivalCompany, 43000)

	_, err := svc.AcceptOffer(ctx, actorOf(f.supplier), winner.ID)
	assert.ErrorIs(t, err, services.ErrForbidden)

	accepted, err := svc.AcceptOffer(ctx, actorOf(f.buyer), winner.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferAccepted, accepted.Status)
	publisher.AssertExpectations(t)

	storedLoser, err := f.store.Offers.FindUnique(ctx, "id", loser.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferRejected, storedLoser.Status)

	storedRequest, err := f.store.Requests.FindUnique(ctx, "id", f.request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestClosed, storedRequest.Status)

	// The request is closed now
	_, err = svc.AcceptOffer(ctx, actorOf(f.buyer), loser.ID)
	assert.ErrorIs(t, err, services.ErrInvalidState)
}

func TestOfferService_AcceptExpiredOfferRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newOfferFixture(t)
	svc := services.NewOfferService(f.store, nil)
	offer := testutil.CreateOffer(t, f.store, f.request, f.company, 41000)
	_, err := f.store.Offers.Update(ctx, offer.ID, map[string]any{"validUntil": time.Now().Add(-time.Hour)})
	require.NoError(t, err)

	_, err = svc.AcceptOffer(ctx, actorOf(f.buyer), offer.ID)
	assert.ErrorIs(t, err, services.ErrInvalidState)

	stored, err := f.store.Requests.FindUnique(ctx, "id", f.request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestOpen, stored.Status)
}

// changeAfterRequestRead runs stmts on the same connection right after the
// next read of the requests table, standing in for a writer that commits
// between that read and the accept's own writes.
func changeAfterRequestRead(t *testing.T, db *gorm.DB, stmts ...string) (arm func()) {
	t.Helper()
	armed := false
	err := db.Callback().Query().After("gorm:query").Register("test:change_after_request_read", func(tx *gorm.DB) {
		if !armed || tx.Statement.Table != "requests" {
			return
		}
		armed = false
		for _, stmt := range stmts {
			if err := tx.Session(&gorm.Session{NewDB: true}).Exec(stmt).Error; err != nil {
				tx.AddError(err)
			}
		}
	})
	require.NoError(t, err)
	return func() { armed = true }
}

func TestOfferService_AcceptAfterRequestClosedElsewhere(t *testing.T) {
	ctx := context.Background()
	f := newOfferFixture(t)
	svc := services.NewOfferService(f.store, nil)
	_, rivalCompany := f.rival(t)
	mine := testutil.CreateOffer(t, f.store, f.request, f.company, 41000)
	theirs := testutil.CreateOffer(t, f.store, f.request, rivalCompany, 39000)

	arm := changeAfterRequestRead(t, f.store.DB(),
		"UPDATE requests SET status = 'closed' WHERE id = '"+f.request.ID+"'",
		"UPDATE offers SET status = 'accepted' WHERE id = '"+theirs.ID+"'",
	)
	arm()
	_, err := svc.AcceptOffer(ctx, actorOf(f.buyer), mine.ID)
	assert.ErrorIs(t, err, services.ErrInvalidState)

	stored, err := f.store.Offers.FindUnique(ctx, "id", mine.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferPending, stored.Status)
	accepted, err := f.store.Offers.Count(ctx, repositories.WhereAll(repositories.Eq("status", models.OfferAccepted)))
	require.NoError(t, err)
	assert.Equal(t, int64(0), accepted)
}

func TestOfferService_AcceptAfterOfferWithdrawnElsewhere(t *testing.T) {
	ctx := context.Background()
	f := newOfferFixture(t)
	svc := services.NewOfferService(f.store, nil)
	offer := testutil.CreateOffer(t, f.store, f.request, f.company, 41000)

	arm := changeAfterRequestRead(t, f.store.DB(),
		"UPDATE offers SET status = 'withdrawn' WHERE id = '"+offer.ID+"'",
	)
	arm()
	_, err := svc.AcceptOffer(ctx, actorOf(f.buyer), offer.ID)
	assert.ErrorIs(t, err, services.ErrInvalidState)

	request, err := f.store.Requests.FindUnique(ctx, "id", f.request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestOpen, request.Status)
}

func TestOfferService_RejectAndWithdraw(t *testing.T) {
	ctx := context.Background()
	f := newOfferFixture(t)
	svc := services.NewOfferService(f.store, nil)
	first := testutil.CreateOffer(t, f.store, f.request, f.company, 41000)
	rivalUser, rivalCompany := f.rival(t)
	second := testutil.CreateOffer(t, f.store, f.request, rivalCompany, 43000)

	_, err := svc.RejectOffer(ctx, actorOf(rivalUser), first.ID)
	assert.ErrorIs(t, err, services.ErrForbidden)

	rejected, err := svc.RejectOffer(ctx, actorOf(f.buyer), first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferRejected, rejected.Status)

	_, err = svc.RejectOffer(ctx, actorOf(f.buyer), first.ID)
	assert.ErrorIs(t, err, services.ErrInvalidState)

	_, err = svc.WithdrawOffer(ctx, actorOf(f.supplier), second.ID)
	assert.ErrorIs(t, err, services.ErrForbidden)

	withdrawn, err := svc.WithdrawOffer(ctx, actorOf(rivalUser), second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferWithdrawn, withdrawn.Status)

	_, err = svc.WithdrawOffer(ctx, actorOf(rivalUser), second.ID)
	assert.ErrorIs(t, err, services.ErrInvalidState)
}

func TestOfferService_ListingAndSummary(t *testing.T) {
	ctx := context.Background()
	f := newOfferFixture(t)
	svc := services.NewOfferService(f.store, nil)
	testutil.CreateOffer(t, f.store, f.request, f.company, 40000)
	rivalUser, rivalCompany := f.rival(t)
	rivalOffer := testutil.CreateOffer(t, f.store, f.request, rivalCompany, 44000)
	_, thirdCompany := f.rival(t)
	withdrawn := testutil.CreateOffer(t, f.store, f.request, thirdCompany, 1000)
	_, err := f.store.Offers.Update(ctx, withdrawn.ID, map[string]any{"status": models.OfferWithdrawn})
	require.NoError(t, err)

	offers, err := svc.ListOffersForRequest(ctx, actorOf(f.buyer), f.request.ID, repositories.Query{
		OrderBy: []repositories.Order{{Field: "price"}},
	})
	require.NoError(t, err)
	require.Len(t, offers, 3)
	assert.Equal(t, withdrawn.ID, offers[0].ID)

	_, err = svc.ListOffersForRequest(ctx, actorOf(rivalUser), f.request.ID, repositories.Query{})
	assert.ErrorIs(t, err, services.ErrForbidden)

	mine, err := svc.ListMyOffers(ctx, actorOf(rivalUser), repositories.Query{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, rivalOffer.ID, mine[0].ID)

	summary, err := svc.OfferSummary(ctx, actorOf(f.buyer), f.request.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), *summary.Count)
	assert.Equal(t, "40000", summary.Min["price"].(decimal.Decimal).String())
	assert.Equal(t, "44000", summary.Max["price"].(decimal.Decimal).String())
	assert.True(t, decimal.NewFromInt(42000).Equal(*summary.Avg["price"]))
}

func TestOfferService_ExpireOffers(t *testing.T) {
	ctx := context.Background()
	f := newOfferFixture(t)
	svc := services.NewOfferService(f.store, nil)
	stale := testutil.CreateOffer(t, f.store, f.request, f.company, 41000)
	_, rivalCompany := f.rival(t)
	fresh := testutil.CreateOffer(t, f.store, f.request, rivalCompany, 42000)
	_, err := f.store.Offers.Update(ctx, stale.ID, map[string]any{"validUntil": time.Now().Add(-time.Hour)})
	require.NoError(t, err)

	n, err := svc.ExpireOffers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := f.store.Offers.FindUnique(ctx, "id", stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferExpired, got.Status)
	got, err = f.store.Offers.FindUnique(ctx, "id", fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OfferPending, got.Status)

	// A second sweep finds nothing left to expire
	n, err = svc.ExpireOffers(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
