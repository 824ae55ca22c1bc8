package submissions

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/classpod/core/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.UserModel{}, &models.SubmissionModel{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// fakeScopes resolves roles from a static map instead of the membership
// table; the service only sees the ScopeChecker surface.
type fakeScopes struct {
	roles map[string]string
}

func (f *fakeScopes) IsInstructor(ctx context.Context, userID, classroomID string) (bool, error) {
	return f.roles[userID] == models.RoleInstructor, nil
}

func (f *fakeScopes) Allows(ctx context.Context, userID, scope, classroomID string) (bool, error) {
	role := f.roles[userID]
	return role == models.RoleInstructor || role == models.RoleStudent, nil
}

type fakeState struct {
	live map[string]string // classroomID -> activityID
}

func (f *fakeState) LiveActivity(classroomID string) (string, bool) {
	id, ok := f.live[classroomID]
	return id, ok
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *fakeState) {
	t.Helper()
	db := testDB(t)
	scopes := &fakeScopes{roles: map[string]string{
		"alice":   models.RoleStudent,
		"bob":     models.RoleStudent,
		"teacher": models.RoleInstructor,
	}}
	state := &fakeState{live: map[string]string{"class-1": "act-1"}}
	return NewService(db, scopes, state, nil), db, state
}

func TestSubmitRequiresLiveActivity(t *testing.T) {
	svc, _, state := newTestService(t)
	delete(state.live, "class-1")

	_, err := svc.Submit(context.Background(), "class-1", "alice", "{}")
	if !errors.Is(err, ErrNoActiveActivity) {
		t.Fatalf("err = %v, want ErrNoActiveActivity", err)
	}
}

func TestSubmitRejectsInstructor(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Submit(context.Background(), "class-1", "teacher", "{}")
	if !errors.Is(err, ErrInstructorSubmit) {
		t.Fatalf("err = %v, want ErrInstructorSubmit", err)
	}
}

func TestSubmitRejectsNonMember(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Submit(context.Background(), "class-1", "mallory", "{}")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestVersionsIncreaseGaplessly(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	// Each submit is observed from past the cooldown window.
	offset := time.Duration(0)
	svc.now = func() time.Time { return time.Now().Add(offset) }

	for want := 1; want <= 3; want++ {
		offset += Cooldown
		sub, err := svc.Submit(ctx, "class-1", "alice", fmt.Sprintf(`{"attempt":%d}`, want))
		if err != nil {
			t.Fatalf("submit %d: %v", want, err)
		}
		if sub.Version != want {
			t.Fatalf("submit %d got version %d", want, sub.Version)
		}
	}

	latest, err := svc.Latest(ctx, "act-1", "alice")
	if err != nil || latest == nil {
		t.Fatalf("Latest: %v, %v", latest, err)
	}
	if latest.Version != 3 {
		t.Errorf("Latest version = %d, want 3", latest.Version)
	}
}

func TestCooldownBlocksRapidResubmit(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, "class-1", "alice", "{}"); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	_, err := svc.Submit(ctx, "class-1", "alice", "{}")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("immediate resubmit err = %v, want ErrRateLimited", err)
	}

	svc.now = func() time.Time { return time.Now().Add(Cooldown) }
	sub, err := svc.Submit(ctx, "class-1", "alice", "{}")
	if err != nil {
		t.Fatalf("resubmit after cooldown: %v", err)
	}
	if sub.Version != 2 {
		t.Errorf("version after cooldown = %d, want 2", sub.Version)
	}
}

func TestCooldownIsPerUser(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, "class-1", "alice", "{}"); err != nil {
		t.Fatalf("alice submit: %v", err)
	}
	// Bob's first submission is independent of alice's clock.
	sub, err := svc.Submit(ctx, "class-1", "bob", "{}")
	if err != nil {
		t.Fatalf("bob submit: %v", err)
	}
	if sub.Version != 1 {
		t.Errorf("bob version = %d, want 1", sub.Version)
	}
}

func TestNewActivityRestartsVersioning(t *testing.T) {
	svc, _, state := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Submit(ctx, "class-1", "alice", "{}"); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	state.live["class-1"] = "act-2"
	sub, err := svc.Submit(ctx, "class-1", "alice", "{}")
	if err != nil {
		t.Fatalf("submit to new activity: %v", err)
	}
	if sub.Version != 1 {
		t.Errorf("version in new activity = %d, want 1", sub.Version)
	}
}

func TestLostRaceReturnsConflict(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	sub, err := svc.Submit(ctx, "class-1", "alice", "{}")
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}

	// Soft-delete the row: the reader no longer sees it, but the unique
	// index still holds (act-1, alice, 1). That is exactly the shape of a
	// concurrent insert landing between the version read and the write.
	if err := db.Delete(sub).Error; err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	svc.now = func() time.Time { return time.Now().Add(Cooldown) }
	_, err = svc.Submit(ctx, "class-1", "alice", "{}")
	if !errors.Is(err, ErrConflictingVersion) {
		t.Fatalf("err = %v, want ErrConflictingVersion", err)
	}
}

func TestSubmitAttachesSubmitterIdentity(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	user := models.UserModel{Base: models.Base{ID: "alice"}, Username: "alice", Name: "Alice"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	sub, err := svc.Submit(ctx, "class-1", "alice", "{}")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sub.User == nil || sub.User.Username != "alice" {
		t.Errorf("submitter identity not attached: %+v", sub.User)
	}
}

// Two students interleaving submissions during one activity: versions stay
// per-user, cooldowns stay per-user, and an ended activity cuts intake off.
func TestInterleavedClassroomSession(t *testing.T) {
	svc, _, state := newTestService(t)
	ctx := context.Background()

	offset := time.Duration(0)
	svc.now = func() time.Time { return time.Now().Add(offset) }

	subA1, err := svc.Submit(ctx, "class-1", "alice", `{"draft":1}`)
	if err != nil {
		t.Fatalf("alice v1: %v", err)
	}
	subB1, err := svc.Submit(ctx, "class-1", "bob", `{"draft":1}`)
	if err != nil {
		t.Fatalf("bob v1: %v", err)
	}
	if subA1.Version != 1 || subB1.Version != 1 {
		t.Fatalf("first versions = %d, %d, want 1, 1", subA1.Version, subB1.Version)
	}

	// Alice revises too fast, then succeeds after the cooldown; bob's clock
	// is untouched by any of it.
	if _, err := svc.Submit(ctx, "class-1", "alice", `{"draft":2}`); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("alice rapid revise err = %v, want ErrRateLimited", err)
	}
	offset += Cooldown
	subA2, err := svc.Submit(ctx, "class-1", "alice", `{"draft":2}`)
	if err != nil {
		t.Fatalf("alice v2: %v", err)
	}
	if subA2.Version != 2 {
		t.Fatalf("alice second version = %d, want 2", subA2.Version)
	}

	latestB, err := svc.Latest(ctx, "act-1", "bob")
	if err != nil || latestB == nil || latestB.Version != 1 {
		t.Fatalf("bob latest = %+v, %v, want version 1", latestB, err)
	}

	// The activity ends; nobody can submit any more.
	delete(state.live, "class-1")
	if _, err := svc.Submit(ctx, "class-1", "bob", `{"draft":2}`); !errors.Is(err, ErrNoActiveActivity) {
		t.Fatalf("submit after end err = %v, want ErrNoActiveActivity", err)
	}
}

func TestLatestWithoutSubmissions(t *testing.T) {
	svc, _, _ := newTestService(t)

	latest, err := svc.Latest(context.Background(), "act-1", "alice")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest != nil {
		t.Errorf("Latest = %+v, want nil", latest)
	}
}
