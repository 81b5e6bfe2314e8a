package emergencyinfo

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

var errRepoNotFound = fmt.Errorf("repo: %w", ErrNotFound)

type testRepo struct {
	byID map[string]Info
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Info{}}
}

func (r *testRepo) Create(_ context.Context, i Info) error {
	r.byID[i.ID] = i
	return nil
}

func (r *testRepo) Update(_ context.Context, i Info) error {
	if _, ok := r.byID[i.ID]; !ok {
		return errRepoNotFound
	}
	r.byID[i.ID] = i
	return nil
}

func (r *testRepo) GetByID(_ context.Context, id string) (Info, error) {
	i, ok := r.byID[id]
	if !ok {
		return Info{}, errRepoNotFound
	}
	return i, nil
}

func (r *testRepo) GetByRecipient(_ context.Context, recipientID string) (Info, error) {
	for _, i := range r.byID {
		if i.CareRecipientID == recipientID {
			return i, nil
		}
	}
	return Info{}, errRepoNotFound
}

func (r *testRepo) Delete(_ context.Context, id string) error {
	delete(r.byID, id)
	return nil
}

func (r *testRepo) DeleteByRecipient(_ context.Context, recipientID string) error {
	for id, i := range r.byID {
		if i.CareRecipientID == recipientID {
			delete(r.byID, id)
		}
	}
	return nil
}

// passwords: user-1 / "account-pass"
type fakePasswords struct{}

func (fakePasswords) VerifyPassword(_ context.Context, userID, password string) (bool, error) {
	return userID == "user-1" && password == "account-pass", nil
}

func newTestService(mode UnlockMode) (*Service, *testRepo) {
	repo := newTestRepo()
	svc := NewService(repo, fakePasswords{}, mode)
	svc.cost = bcrypt.MinCost
	return svc, repo
}

func mustCreate(t *testing.T, svc *Service, recipientID, pin string) Info {
	t.Helper()
	i, err := svc.Create(context.Background(), CreateInput{
		CareRecipientID: recipientID,
		PIN:             pin,
		Contents: Contents{
			BloodType: " o+ ",
			Allergies: "penicillin",
			EmergencyContacts: []Contact{
				{Name: "Luis", Phone: "555-0101", Relationship: "son"},
				{Name: " ", Phone: ""},
			},
		},
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	return i
}

// -------------------------
// Tests
// -------------------------

func TestParseUnlockMode(t *testing.T) {
	cases := map[string]UnlockMode{"": UnlockModeEither, "PIN": UnlockModePIN, " password ": UnlockModePassword, "either": UnlockModeEither}
	for in, want := range cases {
		got, err := ParseUnlockMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseUnlockMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseUnlockMode("fingerprint"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestService_Create_HashesPINAndNormalizes(t *testing.T) {
	svc, repo := newTestService(UnlockModeEither)
	i := mustCreate(t, svc, "rec-1", "1234")

	stored := repo.byID[i.ID]
	if stored.PINHash == "" || stored.PINHash == "1234" {
		t.Fatalf("pin must be stored hashed")
	}
	if stored.BloodType != "O+" || len(stored.EmergencyContacts) != 1 {
		t.Fatalf("unexpected normalized contents: %+v", stored.Contents)
	}

	if _, err := svc.Create(context.Background(), CreateInput{CareRecipientID: "rec-1"}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	for _, bad := range []string{"12", "123456789", "12a4"} {
		if _, err := svc.Create(context.Background(), CreateInput{CareRecipientID: "rec-2", PIN: bad}); !errors.Is(err, ErrInvalidPIN) {
			t.Fatalf("pin %q: expected ErrInvalidPIN, got %v", bad, err)
		}
	}
}

func TestService_VerifyPIN(t *testing.T) {
	svc, _ := newTestService(UnlockModeEither)
	ctx := context.Background()
	i := mustCreate(t, svc, "rec-1", "1234")

	if _, ok, err := svc.VerifyPIN(ctx, i.ID, "0000"); err != nil || ok {
		t.Fatalf("wrong pin must not verify: %v %v", ok, err)
	}
	full, ok, err := svc.VerifyPIN(ctx, i.ID, "1234")
	if err != nil || !ok {
		t.Fatalf("expected verified, got %v %v", ok, err)
	}
	if full.Allergies != "penicillin" {
		t.Fatalf("verified call must return contents")
	}
	if _, _, err := svc.VerifyPIN(ctx, "missing", "1234"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestService_UnlockModes(t *testing.T) {
	ctx := context.Background()

	t.Run("password mode rejects pin", func(t *testing.T) {
		svc, _ := newTestService(UnlockModePassword)
		i := mustCreate(t, svc, "rec-1", "1234")
		if _, _, err := svc.VerifyPIN(ctx, i.ID, "1234"); !errors.Is(err, ErrMethodNotAllowed) {
			t.Fatalf("expected ErrMethodNotAllowed, got %v", err)
		}
		if _, ok, err := svc.VerifyPassword(ctx, i.ID, "user-1", "account-pass"); err != nil || !ok {
			t.Fatalf("expected password to verify, got %v %v", ok, err)
		}
	})

	t.Run("pin mode rejects password when a pin exists", func(t *testing.T) {
		svc, _ := newTestService(UnlockModePIN)
		i := mustCreate(t, svc, "rec-1", "1234")
		if _, _, err := svc.VerifyPassword(ctx, i.ID, "user-1", "account-pass"); !errors.Is(err, ErrMethodNotAllowed) {
			t.Fatalf("expected ErrMethodNotAllowed, got %v", err)
		}
	})

	t.Run("record without pin only unlocks by password", func(t *testing.T) {
		svc, _ := newTestService(UnlockModePIN)
		i := mustCreate(t, svc, "rec-1", "")
		if _, ok, _ := svc.VerifyPIN(ctx, i.ID, "1234"); ok {
			t.Fatalf("record without pin must not verify by pin")
		}
		if _, ok, err := svc.VerifyPassword(ctx, i.ID, "user-1", "account-pass"); err != nil || !ok {
			t.Fatalf("expected password to verify, got %v %v", ok, err)
		}
		if _, ok, _ := svc.VerifyPassword(ctx, i.ID, "user-2", "account-pass"); ok {
			t.Fatalf("another user's password must not verify")
		}
	})
}

func TestService_UpdateAndDelete_RequireCredential(t *testing.T) {
	svc, repo := newTestService(UnlockModeEither)
	ctx := context.Background()
	i := mustCreate(t, svc, "rec-1", "1234")

	newContents := Contents{BloodType: "A-"}
	if _, err := svc.Update(ctx, i.ID, "user-1", Credential{PIN: "9999"}, UpdateInput{Contents: &newContents}); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
	if _, err := svc.Update(ctx, i.ID, "user-1", Credential{}, UpdateInput{Contents: &newContents}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput without credential, got %v", err)
	}

	removePIN := ""
	updated, err := svc.Update(ctx, i.ID, "user-1", Credential{PIN: "1234"}, UpdateInput{Contents: &newContents, NewPIN: &removePIN})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if updated.BloodType != "A-" || updated.HasPIN() {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	if err := svc.Delete(ctx, i.ID, "user-1", Credential{Password: "wrong"}); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
	if err := svc.Delete(ctx, i.ID, "user-1", Credential{Password: "account-pass"}); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if len(repo.byID) != 0 {
		t.Fatalf("expected info deleted")
	}
}

func TestService_PurgeRecipient(t *testing.T) {
	svc, repo := newTestService(UnlockModeEither)
	mustCreate(t, svc, "rec-1", "")
	mustCreate(t, svc, "rec-2", "")

	if err := svc.PurgeRecipient(context.Background(), "rec-1"); err != nil {
		t.Fatalf("PurgeRecipient error: %v", err)
	}
	if len(repo.byID) != 1 {
		t.Fatalf("expected one info left, got %d", len(repo.byID))
	}
}

// brokenRepo simula una base caída: toda lectura falla con un error que no es "no existe".
type brokenRepo struct {
	*testRepo
	err     error
	created int
}

func (r *brokenRepo) GetByID(context.Context, string) (Info, error) { return Info{}, r.err }

func (r *brokenRepo) GetByRecipient(context.Context, string) (Info, error) { return Info{}, r.err }

func (r *brokenRepo) Create(ctx context.Context, i Info) error {
	r.created++
	return r.testRepo.Create(ctx, i)
}

func TestService_RepoFailureIsNotNotFound(t *testing.T) {
	down := errors.New("connection refused")
	repo := &brokenRepo{testRepo: newTestRepo(), err: down}
	svc := NewService(repo, fakePasswords{}, UnlockModeEither)
	svc.cost = bcrypt.MinCost
	ctx := context.Background()

	if _, err := svc.GetByID(ctx, "e1"); !errors.Is(err, down) || errors.Is(err, ErrNotFound) {
		t.Fatalf("GetByID must surface the repo failure, got %v", err)
	}
	if _, err := svc.GetByRecipient(ctx, "rec-1"); !errors.Is(err, down) || errors.Is(err, ErrNotFound) {
		t.Fatalf("GetByRecipient must surface the repo failure, got %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{CareRecipientID: "rec-1", PIN: "1234"}); !errors.Is(err, down) {
		t.Fatalf("Create must fail when the lookup fails, got %v", err)
	}
	if repo.created != 0 {
		t.Fatalf("Create must not insert after a failed lookup, inserted %d", repo.created)
	}
}

// racingRepo no ve la ficha en la lectura pero el insert choca con la restricción única.
type racingRepo struct {
	*testRepo
}

func (r racingRepo) Create(context.Context, Info) error {
	return fmt.Errorf("insert: %w", ErrAlreadyExists)
}

func TestService_Create_LosesRaceWithAlreadyExists(t *testing.T) {
	svc := NewService(racingRepo{newTestRepo()}, fakePasswords{}, UnlockModeEither)
	svc.cost = bcrypt.MinCost

	if _, err := svc.Create(context.Background(), CreateInput{CareRecipientID: "rec-1"}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestService_PINRule(t *testing.T) {
	svc, _ := newTestService(UnlockModeEither)
	for i, pin := range []string{"1234", "12345678"} {
		if _, err := svc.Create(context.Background(), CreateInput{CareRecipientID: fmt.Sprintf("ok-%d", i), PIN: pin}); err != nil {
			t.Fatalf("pin %q must be accepted: %v", pin, err)
		}
	}
	for _, bad := range []string{"-123", "12.4", "1 234", "١٢٣٤"} {
		if _, err := svc.Create(context.Background(), CreateInput{CareRecipientID: "rec-bad", PIN: bad}); !errors.Is(err, ErrInvalidPIN) {
			t.Fatalf("pin %q: expected ErrInvalidPIN, got %v", bad, err)
		}
	}
}
