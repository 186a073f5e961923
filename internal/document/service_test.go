package document

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rooflens.io/internal/auth"
)

func branchAdmin(branchID string) auth.Principal {
	return auth.Principal{
		SubjectID:       "staff-" + branchID,
		Role:            auth.RoleBranchAdmin,
		PermissionLevel: auth.LevelBranchAdmin,
		Scope:           auth.TenantScope{BranchID: branchID},
	}
}

func superadmin() auth.Principal {
	return auth.Principal{SubjectID: "root", Role: auth.RoleSuperadmin, PermissionLevel: auth.LevelSuperadmin}
}

func newTestService(t *testing.T, opts ...ServiceOption) (*Service, *InMemory) {
	t.Helper()
	store := NewInMemory()
	svc, err := NewService(store, opts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, store
}

func createPending(t *testing.T, svc *Service, p auth.Principal, branchID string) (*Document, string) {
	t.Helper()
	doc, err := svc.Create(context.Background(), p, CreateInput{
		Kind:           KindOffer,
		Title:          "Roof renewal",
		BranchID:       branchID,
		CustomerID:     "C1",
		RecipientName:  "Kari Eier",
		RecipientEmail: "kari@example.com",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	sent, token, err := svc.Send(context.Background(), p, doc.ID)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sent.Status != StatusPending {
		t.Fatalf("expected pending after send, got %s", sent.Status)
	}
	if token == "" {
		t.Fatal("expected a share token")
	}
	return sent, token
}

func TestLifecycleAcceptWritesSingleRecord(t *testing.T) {
	svc, store := newTestService(t)
	admin := branchAdmin("B1")
	doc, token := createPending(t, svc, admin, "B1")

	view, err := svc.PublicByToken(context.Background(), KindOffer, token)
	if err != nil {
		t.Fatalf("PublicByToken: %v", err)
	}
	if view.Status != StatusPending || view.Kind != KindOffer {
		t.Fatalf("unexpected public view: %+v", view)
	}

	actor := Actor{Name: "Kari Eier", Email: "kari@example.com", OriginAddr: "203.0.113.9"}
	view, err = svc.RespondByToken(context.Background(), KindOffer, token, OutcomeAccepted, actor, "")
	if err != nil {
		t.Fatalf("RespondByToken: %v", err)
	}
	if view.Status != StatusAccepted {
		t.Fatalf("expected accepted, got %s", view.Status)
	}

	stored, err := svc.Get(context.Background(), admin, doc.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != StatusAccepted || stored.AcceptedByEmail != "kari@example.com" || stored.AcceptedAt == nil {
		t.Fatalf("acceptance fields missing: %+v", stored)
	}

	recs, err := store.Records(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected exactly one acceptance record, got %d", len(recs))
	}
	if recs[0].Outcome != OutcomeAccepted || recs[0].OriginAddr != "203.0.113.9" {
		t.Fatalf("unexpected record: %+v", recs[0])
	}
}

func TestRespondConcurrentExactlyOneWinner(t *testing.T) {
	svc, store := newTestService(t)
	admin := branchAdmin("B1")
	doc, token := createPending(t, svc, admin, "B1")

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome := OutcomeAccepted
			actor := Actor{Name: "Kari Eier", Email: "kari@example.com"}
			if i%2 == 1 {
				outcome = OutcomeRejected
				actor = Actor{Name: "Ola Annen", Email: "ola@example.com"}
			}
			_, errs[i] = svc.RespondByToken(context.Background(), KindOffer, token, outcome, actor, "changed mind")
		}(i)
	}
	wg.Wait()

	stored, err := store.Get(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !stored.Status.Terminal() {
		t.Fatalf("document did not reach a terminal state: %s", stored.Status)
	}

	recs, err := store.Records(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected exactly one acceptance record after the race, got %d", len(recs))
	}

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrAlreadyResolved):
		default:
			t.Fatalf("unexpected error from racer: %v", err)
		}
	}
	if succeeded == 0 {
		t.Fatal("expected at least one responder to succeed")
	}
}

func TestRepeatAcceptSameActorIsIdempotent(t *testing.T) {
	svc, store := newTestService(t)
	admin := branchAdmin("B1")
	doc, token := createPending(t, svc, admin, "B1")

	actor := Actor{Name: "Kari Eier", Email: "kari@example.com"}
	if _, err := svc.RespondByToken(context.Background(), KindOffer, token, OutcomeAccepted, actor, ""); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	view, err := svc.RespondByToken(context.Background(), KindOffer, token, OutcomeAccepted, actor, "")
	if err != nil {
		t.Fatalf("repeat accept must succeed: %v", err)
	}
	if view.Status != StatusAccepted {
		t.Fatalf("expected accepted, got %s", view.Status)
	}

	recs, _ := store.Records(context.Background(), doc.ID)
	if len(recs) != 1 {
		t.Fatalf("repeat accept must not write a second record, got %d", len(recs))
	}
}

func TestConflictingOutcomeKeepsFirstResult(t *testing.T) {
	svc, store := newTestService(t)
	admin := branchAdmin("B1")
	doc, token := createPending(t, svc, admin, "B1")

	reject := Actor{Name: "Kari Eier", Email: "kari@example.com"}
	if _, err := svc.RespondByToken(context.Background(), KindOffer, token, OutcomeRejected, reject, "price too high"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	_, err := svc.RespondByToken(context.Background(), KindOffer, token, OutcomeAccepted, reject, "")
	if !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}

	stored, _ := store.Get(context.Background(), doc.ID)
	if stored.Status != StatusRejected || stored.RejectionReason != "price too high" {
		t.Fatalf("first outcome must be preserved: %+v", stored)
	}
	recs, _ := store.Records(context.Background(), doc.ID)
	if len(recs) != 1 {
		t.Fatalf("expected one record, got %d", len(recs))
	}
}

func TestExpiryTakesPrecedenceAtReadTime(t *testing.T) {
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, WithClock(func() time.Time { return current }))
	admin := branchAdmin("B1")

	deadline := current.Add(24 * time.Hour)
	doc, err := svc.Create(context.Background(), admin, CreateInput{
		Kind:           KindServiceAgreement,
		Title:          "Annual inspection plan",
		BranchID:       "B1",
		CustomerID:     "C1",
		RecipientName:  "Kari Eier",
		RecipientEmail: "kari@example.com",
		ExpiresAt:      &deadline,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, token, err := svc.Send(context.Background(), admin, doc.ID)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	// No sweep has run, the stored status is still pending.
	current = deadline.Add(time.Hour)
	view, err := svc.PublicByToken(context.Background(), KindServiceAgreement, token)
	if err != nil {
		t.Fatalf("PublicByToken: %v", err)
	}
	if view.Status != StatusExpired {
		t.Fatalf("read must report expired, got %s", view.Status)
	}

	_, err = svc.RespondByToken(context.Background(), KindServiceAgreement, token, OutcomeAccepted, Actor{Name: "Kari", Email: "kari@example.com"}, "")
	if !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}

	n, err := svc.ExpireOverdue(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("sweep expected to persist one expiry, got n=%d err=%v", n, err)
	}
	stored, _ := svc.Get(context.Background(), admin, doc.ID)
	if stored.Status != StatusExpired {
		t.Fatalf("sweep did not persist expiry: %s", stored.Status)
	}
}

func TestTokenRotationInvalidatesOldToken(t *testing.T) {
	svc, _ := newTestService(t)
	admin := branchAdmin("B1")
	doc, oldToken := createPending(t, svc, admin, "B1")

	_, newToken, err := svc.Send(context.Background(), admin, doc.ID)
	if err != nil {
		t.Fatalf("re-send: %v", err)
	}
	if newToken == oldToken {
		t.Fatal("rotation must produce a fresh token")
	}

	if _, err := svc.PublicByToken(context.Background(), KindOffer, oldToken); !errors.Is(err, ErrNotFound) {
		t.Fatalf("rotated token must be not-found, got %v", err)
	}
	if _, err := svc.PublicByToken(context.Background(), KindOffer, newToken); err != nil {
		t.Fatalf("new token must resolve: %v", err)
	}
}

func TestDeletedDocumentIndistinguishableFromUnknownToken(t *testing.T) {
	svc, _ := newTestService(t)
	admin := branchAdmin("B1")
	doc, token := createPending(t, svc, admin, "B1")

	if err := svc.Delete(context.Background(), admin, doc.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	_, errDeleted := svc.PublicByToken(context.Background(), KindOffer, token)
	_, errUnknown := svc.PublicByToken(context.Background(), KindOffer, "no-such-token")
	if !errors.Is(errDeleted, ErrNotFound) || !errors.Is(errUnknown, ErrNotFound) {
		t.Fatalf("deleted and unknown must both be not-found, got %v / %v", errDeleted, errUnknown)
	}
}

func TestCancelRequiresBranchAdmin(t *testing.T) {
	svc, _ := newTestService(t)
	admin := branchAdmin("B1")
	doc, _ := createPending(t, svc, admin, "B1")

	inspector := auth.Principal{
		SubjectID:       "insp-1",
		Role:            auth.RoleInspector,
		PermissionLevel: auth.LevelInspector,
		Scope:           auth.TenantScope{BranchID: "B1"},
	}
	if _, err := svc.Cancel(context.Background(), inspector, doc.ID); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("inspector cancel must be denied, got %v", err)
	}

	cancelled, err := svc.Cancel(context.Background(), admin, doc.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}

	if _, err := svc.Cancel(context.Background(), admin, doc.ID); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("cancelling a terminal document must conflict, got %v", err)
	}
}

func TestCorrectIsSuperadminOnly(t *testing.T) {
	svc, _ := newTestService(t)
	admin := branchAdmin("B1")
	doc, token := createPending(t, svc, admin, "B1")

	if _, err := svc.RespondByToken(context.Background(), KindOffer, token, OutcomeRejected, Actor{Name: "K", Email: "k@example.com"}, ""); err != nil {
		t.Fatalf("reject: %v", err)
	}

	if _, err := svc.Correct(context.Background(), admin, doc.ID, StatusPending); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("branch admin correction must be denied, got %v", err)
	}

	corrected, err := svc.Correct(context.Background(), superadmin(), doc.ID, StatusPending)
	if err != nil {
		t.Fatalf("Correct: %v", err)
	}
	if corrected.Status != StatusPending {
		t.Fatalf("expected pending after correction, got %s", corrected.Status)
	}
}

func TestCreateRejectsMissingTenant(t *testing.T) {
	svc, _ := newTestService(t)
	admin := branchAdmin("B1")

	_, err := svc.Create(context.Background(), admin, CreateInput{Kind: KindOffer, Title: "No branch", CustomerID: "C1"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing branch must be rejected, got %v", err)
	}
	_, err = svc.Create(context.Background(), admin, CreateInput{Kind: KindOffer, Title: "No owner", BranchID: "B1"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("missing owner must be rejected, got %v", err)
	}
}

func TestSendRequiresRecipientIdentity(t *testing.T) {
	svc, _ := newTestService(t)
	admin := branchAdmin("B1")
	doc, err := svc.Create(context.Background(), admin, CreateInput{
		Kind: KindOffer, Title: "No recipient", BranchID: "B1", CustomerID: "C1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, _, err := svc.Send(context.Background(), admin, doc.ID); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("send without recipient must be rejected, got %v", err)
	}
}

func TestListIsTenantScoped(t *testing.T) {
	svc, _ := newTestService(t)
	adminB1 := branchAdmin("B1")
	adminB2 := branchAdmin("B2")
	createPending(t, svc, adminB1, "B1")
	createPending(t, svc, adminB2, "B2")

	docs, err := svc.List(context.Background(), adminB1, KindOffer)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 1 || docs[0].BranchID != "B1" {
		t.Fatalf("scoped list leaked across branches: %+v", docs)
	}

	all, err := svc.List(context.Background(), superadmin(), KindOffer)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("superadmin list must be unbounded, got %d", len(all))
	}
}

func TestCrossBranchGetReportsNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	adminB1 := branchAdmin("B1")
	doc, _ := createPending(t, svc, adminB1, "B1")

	_, err := svc.Get(context.Background(), branchAdmin("B2"), doc.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-branch get must look like not-found, got %v", err)
	}
}

func TestWrongKindRouteLeavesDocumentUntouched(t *testing.T) {
	svc, store := newTestService(t)
	admin := branchAdmin("B1")
	doc, token := createPending(t, svc, admin, "B1")

	actor := Actor{Name: "Kari Eier", Email: "kari@example.com"}
	_, err := svc.RespondByToken(context.Background(), KindServiceAgreement, token, OutcomeAccepted, actor, "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("offer token on the service-agreement route must be not found, got %v", err)
	}
	if _, err := svc.PublicByToken(context.Background(), KindServiceAgreement, token); !errors.Is(err, ErrNotFound) {
		t.Fatalf("wrong-kind view must be not found, got %v", err)
	}

	// The refusal happened before the transition, never after it.
	stored, err := store.Get(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != StatusPending {
		t.Fatalf("document must still be pending, got %s", stored.Status)
	}
	recs, err := store.Records(context.Background(), doc.ID)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("no acceptance record may exist, got %d", len(recs))
	}

	// The right route still works.
	if _, err := svc.RespondByToken(context.Background(), KindOffer, token, OutcomeAccepted, actor, ""); err != nil {
		t.Fatalf("respond on the correct route: %v", err)
	}
}

func TestSendDefaultsExpiryWindow(t *testing.T) {
	current := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	svc, store := newTestService(t,
		WithClock(func() time.Time { return current }),
		WithDefaultTTL(30*24*time.Hour),
	)
	admin := branchAdmin("B1")

	doc, err := svc.Create(context.Background(), admin, CreateInput{
		Kind:           KindOffer,
		Title:          "Open-ended offer",
		BranchID:       "B1",
		CustomerID:     "C1",
		RecipientName:  "Kari Eier",
		RecipientEmail: "kari@example.com",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	sent, _, err := svc.Send(context.Background(), admin, doc.ID)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	want := current.Add(30 * 24 * time.Hour)
	if sent.ExpiresAt == nil || !sent.ExpiresAt.Equal(want) {
		t.Fatalf("expected default expiry %s, got %v", want, sent.ExpiresAt)
	}
	stored, _ := store.Get(context.Background(), doc.ID)
	if stored.ExpiresAt == nil || !stored.ExpiresAt.Equal(want) {
		t.Fatalf("default expiry not persisted: %v", stored.ExpiresAt)
	}

	// A staff-chosen deadline wins over the default.
	deadline := current.Add(48 * time.Hour)
	doc2, err := svc.Create(context.Background(), admin, CreateInput{
		Kind:           KindOffer,
		Title:          "Tight offer",
		BranchID:       "B1",
		CustomerID:     "C1",
		RecipientName:  "Kari Eier",
		RecipientEmail: "kari@example.com",
		ExpiresAt:      &deadline,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	sent2, _, err := svc.Send(context.Background(), admin, doc2.ID)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sent2.ExpiresAt == nil || !sent2.ExpiresAt.Equal(deadline) {
		t.Fatalf("staff deadline must be kept, got %v", sent2.ExpiresAt)
	}
}
