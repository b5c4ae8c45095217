package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/codebugsleuth/bughunter/internal/db"
	"github.com/codebugsleuth/bughunter/internal/models"
	"github.com/codebugsleuth/bughunter/internal/plans"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func TestUserStore_CreateAndLookup(t *testing.T) {
	conn := openTestDB(t)
	users := NewUserStore(conn)
	ctx := context.Background()

	created, err := users.Create(ctx, "New.User@Example.COM", "hashed", "New User", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Tier != models.TierFree || created.Status != models.StatusTrialing {
		t.Fatalf("new user tier=%s status=%s, want free/trialing", created.Tier, created.Status)
	}
	if created.TrialEndsAt == nil {
		t.Fatal("trial end not set")
	}
	remaining := time.Until(*created.TrialEndsAt)
	if remaining < 6*24*time.Hour || remaining > 7*24*time.Hour+time.Minute {
		t.Fatalf("trial window = %v, want about 7 days", remaining)
	}

	byEmail, errFind := users.ByEmail(ctx, "new.user@example.com")
	if errFind != nil {
		t.Fatalf("ByEmail: %v", errFind)
	}
	if byEmail.ID != created.ID {
		t.Fatalf("lookup returned user %s, want %s", byEmail.ID, created.ID)
	}

	if _, errDup := users.Create(ctx, "new.user@example.com", "hashed", "Dup", false); !errors.Is(errDup, ErrEmailTaken) {
		t.Fatalf("duplicate create err = %v, want ErrEmailTaken", errDup)
	}
}

func TestUserStore_NotFound(t *testing.T) {
	conn := openTestDB(t)
	users := NewUserStore(conn)

	if _, err := users.ByID(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("ByID err = %v, want ErrUserNotFound", err)
	}
	if _, err := users.ByStripeCustomer(context.Background(), "cus_missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("ByStripeCustomer err = %v, want ErrUserNotFound", err)
	}
}

func TestUserStore_ConsumeQuota_Boundary(t *testing.T) {
	conn := openTestDB(t)
	users := NewUserStore(conn)
	ctx := context.Background()

	user, err := users.Create(ctx, "quota@example.com", "hashed", "", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	for i := 0; i < 5; i++ {
		ok, errConsume := users.ConsumeQuota(ctx, user.ID, 5)
		if errConsume != nil {
			t.Fatalf("ConsumeQuota #%d: %v", i+1, errConsume)
		}
		if !ok {
			t.Fatalf("ConsumeQuota #%d denied below limit", i+1)
		}
	}

	ok, errConsume := users.ConsumeQuota(ctx, user.ID, 5)
	if errConsume != nil {
		t.Fatalf("ConsumeQuota at limit: %v", errConsume)
	}
	if ok {
		t.Fatal("ConsumeQuota succeeded past the limit")
	}

	reloaded, errFind := users.ByID(ctx, user.ID)
	if errFind != nil {
		t.Fatalf("ByID: %v", errFind)
	}
	if reloaded.QuotaUsed != 5 {
		t.Fatalf("quota_used = %d, want 5", reloaded.QuotaUsed)
	}
}

func TestUserStore_ConsumeQuota_Concurrent(t *testing.T) {
	conn := openTestDB(t)
	users := NewUserStore(conn)
	ctx := context.Background()

	user, err := users.Create(ctx, "race@example.com", "hashed", "", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	const attempts = 20
	const limit = 5
	var granted int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, errConsume := users.ConsumeQuota(ctx, user.ID, limit)
			if errConsume != nil {
				return
			}
			if ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if granted > limit {
		t.Fatalf("granted %d concurrent consumptions, limit is %d", granted, limit)
	}
	reloaded, errFind := users.ByID(ctx, user.ID)
	if errFind != nil {
		t.Fatalf("ByID: %v", errFind)
	}
	if reloaded.QuotaUsed > limit {
		t.Fatalf("quota_used = %d, exceeds limit %d", reloaded.QuotaUsed, limit)
	}
}

func TestUserStore_ConsumeQuota_Unlimited(t *testing.T) {
	conn := openTestDB(t)
	users := NewUserStore(conn)
	ctx := context.Background()

	user, err := users.Create(ctx, "unlimited@example.com", "hashed", "", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	for i := 0; i < 10; i++ {
		ok, errConsume := users.ConsumeQuota(ctx, user.ID, plans.UnlimitedQuota)
		if errConsume != nil || !ok {
			t.Fatalf("unlimited consume #%d: ok=%v err=%v", i+1, ok, errConsume)
		}
	}
}

func TestPaymentStore_CompleteIsIdempotent(t *testing.T) {
	conn := openTestDB(t)
	payments := NewPaymentStore(conn)
	ctx := context.Background()

	record, err := payments.CreatePending(ctx, "user-1", "cs_test_123", "basic plan", 9)
	if err != nil {
		t.Fatalf("CreatePending: %v", err)
	}
	if record.Status != models.PaymentStatusPending {
		t.Fatalf("status = %s, want pending", record.Status)
	}

	applied, errComplete := payments.MarkCompleted(ctx, "cs_test_123")
	if errComplete != nil {
		t.Fatalf("MarkCompleted: %v", errComplete)
	}
	if !applied {
		t.Fatal("first completion not applied")
	}

	replayed, errReplay := payments.MarkCompleted(ctx, "cs_test_123")
	if errReplay != nil {
		t.Fatalf("MarkCompleted replay: %v", errReplay)
	}
	if replayed {
		t.Fatal("replayed completion applied twice")
	}

	reloaded, errFind := payments.BySessionID(ctx, "cs_test_123")
	if errFind != nil {
		t.Fatalf("BySessionID: %v", errFind)
	}
	if reloaded.Status != models.PaymentStatusCompleted || reloaded.CompletedAt == nil {
		t.Fatalf("status=%s completed_at=%v after completion", reloaded.Status, reloaded.CompletedAt)
	}
}

func TestPaymentStore_SumCompleted(t *testing.T) {
	conn := openTestDB(t)
	payments := NewPaymentStore(conn)
	ctx := context.Background()

	for i, amount := range []float64{9, 19, 49} {
		sessionID := fmt.Sprintf("cs_sum_%d", i)
		if _, err := payments.CreatePending(ctx, "user-1", sessionID, "plan", amount); err != nil {
			t.Fatalf("CreatePending: %v", err)
		}
		if i < 2 {
			if _, err := payments.MarkCompleted(ctx, sessionID); err != nil {
				t.Fatalf("MarkCompleted: %v", err)
			}
		}
	}

	total, errSum := payments.SumCompleted(ctx, nil)
	if errSum != nil {
		t.Fatalf("SumCompleted: %v", errSum)
	}
	if total != 28 {
		t.Fatalf("total = %v, want 28 (pending payments excluded)", total)
	}
}

func TestUsageStore_AppendAndList(t *testing.T) {
	conn := openTestDB(t)
	usage := NewUsageStore(conn)
	ctx := context.Background()

	if err := usage.Append(ctx, "user-1", "analysis", map[string]any{"file": "main.go"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := usage.Append(ctx, "user-1", "analysis", nil); err != nil {
		t.Fatalf("Append without metadata: %v", err)
	}
	if err := usage.Append(ctx, "user-2", "login", nil); err != nil {
		t.Fatalf("Append: %v", err)
	}

	events, errList := usage.ListByUser(ctx, "user-1", 10)
	if errList != nil {
		t.Fatalf("ListByUser: %v", errList)
	}
	if len(events) != 2 {
		t.Fatalf("user-1 events = %d, want 2", len(events))
	}
	for _, event := range events {
		if event.Action != "analysis" {
			t.Fatalf("event action = %q, want analysis", event.Action)
		}
		if len(event.Metadata) == 0 {
			t.Fatalf("event metadata empty, want at least the {} default")
		}
	}
}

func TestUserStore_Counts(t *testing.T) {
	conn := openTestDB(t)
	users := NewUserStore(conn)
	ctx := context.Background()

	seed := func(email string, tier models.Tier, status models.SubscriptionStatus) {
		t.Helper()
		user, errCreate := users.Create(ctx, email, "hashed", "", false)
		if errCreate != nil {
			t.Fatalf("Create %s: %v", email, errCreate)
		}
		user.Tier = tier
		user.Status = status
		if errSave := users.Save(ctx, user); errSave != nil {
			t.Fatalf("Save %s: %v", email, errSave)
		}
	}
	seed("paid@example.com", models.TierPro, models.StatusActive)
	seed("freeloader@example.com", models.TierFree, models.StatusActive)
	seed("trial@example.com", models.TierFree, models.StatusTrialing)
	seed("gone@example.com", models.TierBasic, models.StatusCancelled)

	total, errTotal := users.CountAll(ctx)
	if errTotal != nil {
		t.Fatalf("CountAll: %v", errTotal)
	}
	if total != 4 {
		t.Fatalf("total = %d, want 4", total)
	}

	paid, errPaid := users.CountActivePaid(ctx)
	if errPaid != nil {
		t.Fatalf("CountActivePaid: %v", errPaid)
	}
	if paid != 1 {
		t.Fatalf("active paid = %d, want 1 (active free tier excluded)", paid)
	}

	trialing, errTrialing := users.CountByStatus(ctx, models.StatusTrialing)
	if errTrialing != nil {
		t.Fatalf("CountByStatus: %v", errTrialing)
	}
	if trialing != 1 {
		t.Fatalf("trialing = %d, want 1", trialing)
	}
}

func TestUserStore_SearchByEmail(t *testing.T) {
	conn := openTestDB(t)
	users := NewUserStore(conn)
	ctx := context.Background()

	for _, email := range []string{"alice@corp.example.com", "bob@corp.example.com", "carol@other.example.com"} {
		if _, errCreate := users.Create(ctx, email, "hashed", "", false); errCreate != nil {
			t.Fatalf("Create %s: %v", email, errCreate)
		}
	}

	matches, errSearch := users.SearchByEmail(ctx, "CORP.example", 10)
	if errSearch != nil {
		t.Fatalf("SearchByEmail: %v", errSearch)
	}
	if len(matches) != 2 {
		t.Fatalf("matches = %d, want 2 (case-insensitive substring)", len(matches))
	}
	for _, match := range matches {
		if !strings.Contains(match.Email, "corp.example.com") {
			t.Fatalf("unexpected match %q", match.Email)
		}
	}

	all, errAll := users.SearchByEmail(ctx, "", 10)
	if errAll != nil {
		t.Fatalf("SearchByEmail empty query: %v", errAll)
	}
	if len(all) != 3 {
		t.Fatalf("empty query matches = %d, want all 3", len(all))
	}

	none, errNone := users.SearchByEmail(ctx, "nobody", 10)
	if errNone != nil {
		t.Fatalf("SearchByEmail no match: %v", errNone)
	}
	if len(none) != 0 {
		t.Fatalf("matches = %d, want 0", len(none))
	}
}

func TestAnalysisStore_SaveAndOwnerScope(t *testing.T) {
	conn := openTestDB(t)
	analyses := NewAnalysisStore(conn)
	ctx := context.Background()

	result := &models.AnalysisResult{
		UserID:       "owner",
		FileName:     "main.py",
		FileType:     "python",
		AnalysisType: "security",
		Issues:       []byte(`[{"severity":"high"}]`),
		Suggestions:  []byte(`[]`),
		SecurityScore: 40,
		Summary:      "1 issue found",
	}
	if err := analyses.SaveResult(ctx, result); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	if result.ID == "" {
		t.Fatal("result ID not assigned")
	}

	fetched, errFind := analyses.ResultByID(ctx, "owner", result.ID)
	if errFind != nil {
		t.Fatalf("ResultByID: %v", errFind)
	}
	if fetched.FileName != "main.py" {
		t.Fatalf("file name = %q", fetched.FileName)
	}

	if _, errOther := analyses.ResultByID(ctx, "intruder", result.ID); !errors.Is(errOther, ErrAnalysisNotFound) {
		t.Fatalf("cross-user fetch err = %v, want ErrAnalysisNotFound", errOther)
	}

	history, errHistory := analyses.HistoryByUser(ctx, "owner", 10)
	if errHistory != nil {
		t.Fatalf("HistoryByUser: %v", errHistory)
	}
	if len(history) != 1 || history[0].ResultID != result.ID {
		t.Fatalf("history = %+v, want one entry pointing at the result", history)
	}
}
