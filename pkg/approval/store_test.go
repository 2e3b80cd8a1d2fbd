package approval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jaretmartin/symtex/pkg/policy"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// forEachStore runs the same conformance test against every Store
// implementation.
func forEachStore(t *testing.T, fn func(t *testing.T, store Store)) {
	t.Helper()

	t.Run("memory", func(t *testing.T) {
		store := NewMemoryStore()
		defer store.Close()
		fn(t, store)
	})

	t.Run("sqlite", func(t *testing.T) {
		cfg := DefaultSQLiteConfig()
		cfg.Path = filepath.Join(t.TempDir(), "approvals.db")
		store, err := NewSQLiteStore(cfg, quietLogger())
		if err != nil {
			t.Fatalf("NewSQLiteStore() error = %v", err)
		}
		defer store.Close()
		fn(t, store)
	})
}

func pendingRequest(id string) *Request {
	expires := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &Request{
		ID:            id,
		ActionType:    "send_email",
		ActionSummary: "send_email proposed by cognate crm-bot",
		Context: map[string]interface{}{
			"recipient": "vip@external.example",
			"amount":    float64(250),
		},
		PolicyID:  "pol-email",
		RiskLevel: policy.RiskHigh,
		Status:    StatusPending,
		Requestor: "crm-bot",
		Approvers: []policy.Approver{
			{Kind: policy.ApproverUser, ID: "dana", Timeout: time.Hour},
		},
		CreatedAt: time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC),
		ExpiresAt: &expires,
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		want := pendingRequest("req-1")
		if err := store.Create(ctx, want); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		got, err := store.Get(ctx, "req-1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.ActionType != want.ActionType {
			t.Errorf("ActionType = %q, want %q", got.ActionType, want.ActionType)
		}
		if got.Status != StatusPending {
			t.Errorf("Status = %q, want %q", got.Status, StatusPending)
		}
		if got.RiskLevel != policy.RiskHigh {
			t.Errorf("RiskLevel = %q, want %q", got.RiskLevel, policy.RiskHigh)
		}
		if !got.CreatedAt.Equal(want.CreatedAt) {
			t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
		}
		if got.ExpiresAt == nil || !got.ExpiresAt.Equal(*want.ExpiresAt) {
			t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, want.ExpiresAt)
		}
		if len(got.Approvers) != 1 || got.Approvers[0].ID != "dana" || got.Approvers[0].Timeout != time.Hour {
			t.Errorf("Approvers = %+v, want dana with 1h timeout", got.Approvers)
		}
		if got.Context["recipient"] != "vip@external.example" {
			t.Errorf("Context[recipient] = %v, want vip@external.example", got.Context["recipient"])
		}
	})
}

func TestStore_GetMissing(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		_, err := store.Get(context.Background(), "nope")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})
}

func TestStore_CreateDuplicateFails(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		if err := store.Create(ctx, pendingRequest("req-1")); err != nil {
			t.Fatalf("first Create() error = %v", err)
		}
		if err := store.Create(ctx, pendingRequest("req-1")); err == nil {
			t.Error("second Create() with same ID did not fail")
		}
	})
}

func TestStore_TransitionAppliesAndPersists(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		if err := store.Create(ctx, pendingRequest("req-1")); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		updated, err := store.Transition(ctx, "req-1", StatusPending, func(r *Request) error {
			now := time.Date(2026, 3, 1, 11, 30, 0, 0, time.UTC)
			r.Status = StatusApproved
			r.DecidedAt = &now
			r.DecidedBy = "dana"
			r.Reason = "looks safe"
			return nil
		})
		if err != nil {
			t.Fatalf("Transition() error = %v", err)
		}
		if updated.Status != StatusApproved || updated.DecidedBy != "dana" {
			t.Errorf("returned request = %q by %q, want approved by dana", updated.Status, updated.DecidedBy)
		}

		got, err := store.Get(ctx, "req-1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Status != StatusApproved {
			t.Errorf("persisted Status = %q, want %q", got.Status, StatusApproved)
		}
		if got.Reason != "looks safe" {
			t.Errorf("persisted Reason = %q, want %q", got.Reason, "looks safe")
		}
		if got.DecidedAt == nil {
			t.Error("persisted DecidedAt is nil")
		}
	})
}

func TestStore_TransitionFromWrongState(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		if err := store.Create(ctx, pendingRequest("req-1")); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if _, err := store.Transition(ctx, "req-1", StatusPending, func(r *Request) error {
			r.Status = StatusApproved
			return nil
		}); err != nil {
			t.Fatalf("first Transition() error = %v", err)
		}

		_, err := store.Transition(ctx, "req-1", StatusPending, func(r *Request) error {
			r.Status = StatusRejected
			return nil
		})
		var ste *StateTransitionError
		if !errors.As(err, &ste) {
			t.Fatalf("Transition() error = %v, want StateTransitionError", err)
		}
		if ste.Current != StatusApproved {
			t.Errorf("StateTransitionError.Current = %q, want %q", ste.Current, StatusApproved)
		}
	})
}

func TestStore_TransitionApplyErrorChangesNothing(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		if err := store.Create(ctx, pendingRequest("req-1")); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		wantErr := fmt.Errorf("apply failed")
		_, err := store.Transition(ctx, "req-1", StatusPending, func(r *Request) error {
			r.Status = StatusApproved
			return wantErr
		})
		if !errors.Is(err, wantErr) {
			t.Fatalf("Transition() error = %v, want %v", err, wantErr)
		}

		got, err := store.Get(ctx, "req-1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Status != StatusPending {
			t.Errorf("Status after failed apply = %q, want %q", got.Status, StatusPending)
		}
	})
}

func TestStore_ConcurrentTransitionsOneWins(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		if err := store.Create(ctx, pendingRequest("req-1")); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		const deciders = 8
		var wg sync.WaitGroup
		errs := make([]error, deciders)
		for i := 0; i < deciders; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				_, errs[n] = store.Transition(ctx, "req-1", StatusPending, func(r *Request) error {
					r.Status = StatusApproved
					r.DecidedBy = fmt.Sprintf("approver-%d", n)
					return nil
				})
			}(i)
		}
		wg.Wait()

		wins := 0
		for _, err := range errs {
			if err == nil {
				wins++
				continue
			}
			var ste *StateTransitionError
			if !errors.As(err, &ste) {
				t.Errorf("loser error = %v, want StateTransitionError", err)
			}
		}
		if wins != 1 {
			t.Errorf("winning transitions = %d, want exactly 1", wins)
		}
	})
}

func TestStore_ListPending(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		now := time.Now().UTC()

		past := pendingRequest("req-past")
		pastDeadline := now.Add(-time.Minute)
		past.ExpiresAt = &pastDeadline
		past.CreatedAt = now.Add(-2 * time.Hour)

		future := pendingRequest("req-future")
		futureDeadline := now.Add(time.Hour)
		future.ExpiresAt = &futureDeadline
		future.CreatedAt = now.Add(-time.Hour)

		forever := pendingRequest("req-forever")
		forever.ExpiresAt = nil
		forever.CreatedAt = now.Add(-30 * time.Minute)

		decided := pendingRequest("req-decided")
		decided.Status = StatusApproved
		decided.CreatedAt = now.Add(-3 * time.Hour)

		for _, req := range []*Request{past, future, forever, decided} {
			if err := store.Create(ctx, req); err != nil {
				t.Fatalf("Create(%s) error = %v", req.ID, err)
			}
		}

		all, err := store.ListPending(ctx, nil)
		if err != nil {
			t.Fatalf("ListPending(nil) error = %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("ListPending(nil) returned %d requests, want 3", len(all))
		}
		if all[0].ID != "req-past" {
			t.Errorf("oldest pending = %q, want req-past", all[0].ID)
		}

		due, err := store.ListPending(ctx, &now)
		if err != nil {
			t.Fatalf("ListPending(now) error = %v", err)
		}
		if len(due) != 1 || due[0].ID != "req-past" {
			t.Errorf("ListPending(now) = %v, want only req-past", requestIDs(due))
		}
	})
}

func TestStore_ListFilters(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		now := time.Now().UTC()

		first := pendingRequest("req-a")
		first.CreatedAt = now.Add(-2 * time.Hour)
		first.Requestor = "crm-bot"

		second := pendingRequest("req-b")
		second.CreatedAt = now.Add(-time.Hour)
		second.Requestor = "billing-bot"
		second.PolicyID = "pol-spend"

		third := pendingRequest("req-c")
		third.CreatedAt = now
		third.Requestor = "crm-bot"
		third.Status = StatusRejected

		for _, req := range []*Request{first, second, third} {
			if err := store.Create(ctx, req); err != nil {
				t.Fatalf("Create(%s) error = %v", req.ID, err)
			}
		}

		tests := []struct {
			name   string
			filter Filter
			want   []string
		}{
			{"all newest first", Filter{}, []string{"req-c", "req-b", "req-a"}},
			{"by status", Filter{Status: StatusPending}, []string{"req-b", "req-a"}},
			{"by requestor", Filter{Requestor: "crm-bot"}, []string{"req-c", "req-a"}},
			{"by policy", Filter{PolicyID: "pol-spend"}, []string{"req-b"}},
			{"limited", Filter{Limit: 2}, []string{"req-c", "req-b"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := store.List(ctx, tt.filter)
				if err != nil {
					t.Fatalf("List() error = %v", err)
				}
				ids := requestIDs(got)
				if len(ids) != len(tt.want) {
					t.Fatalf("List() = %v, want %v", ids, tt.want)
				}
				for i := range ids {
					if ids[i] != tt.want[i] {
						t.Errorf("List()[%d] = %q, want %q", i, ids[i], tt.want[i])
					}
				}
			})
		}
	})
}

func TestStore_UpdateOnlyTouchesPending(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		if err := store.Create(ctx, pendingRequest("req-1")); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		req, err := store.Get(ctx, "req-1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		req.EscalationLevel = 1
		req.Approvers = []policy.Approver{{Kind: policy.ApproverRole, ID: "ciso", Timeout: 4 * time.Hour}}
		if err := store.Update(ctx, req); err != nil {
			t.Fatalf("Update() on pending error = %v", err)
		}

		got, err := store.Get(ctx, "req-1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.EscalationLevel != 1 {
			t.Errorf("EscalationLevel = %d, want 1", got.EscalationLevel)
		}
		if len(got.Approvers) != 1 || got.Approvers[0].ID != "ciso" {
			t.Errorf("Approvers = %+v, want ciso", got.Approvers)
		}

		if _, err := store.Transition(ctx, "req-1", StatusPending, func(r *Request) error {
			r.Status = StatusRejected
			return nil
		}); err != nil {
			t.Fatalf("Transition() error = %v", err)
		}

		req.EscalationLevel = 2
		err = store.Update(ctx, req)
		var ste *StateTransitionError
		if !errors.As(err, &ste) {
			t.Fatalf("Update() on rejected error = %v, want StateTransitionError", err)
		}
		if ste.Current != StatusRejected {
			t.Errorf("StateTransitionError.Current = %q, want %q", ste.Current, StatusRejected)
		}
	})
}

func TestStore_IncrementRerun(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		ctx := context.Background()
		if err := store.Create(ctx, pendingRequest("req-1")); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		// Pending requests cannot be rerun.
		_, err := store.IncrementRerun(ctx, "req-1")
		var ste *StateTransitionError
		if !errors.As(err, &ste) {
			t.Fatalf("IncrementRerun() on pending error = %v, want StateTransitionError", err)
		}

		if _, err := store.Transition(ctx, "req-1", StatusPending, func(r *Request) error {
			r.Status = StatusApproved
			return nil
		}); err != nil {
			t.Fatalf("Transition() error = %v", err)
		}

		for want := 1; want <= 2; want++ {
			got, err := store.IncrementRerun(ctx, "req-1")
			if err != nil {
				t.Fatalf("IncrementRerun() error = %v", err)
			}
			if got.RerunCount != want {
				t.Errorf("RerunCount = %d, want %d", got.RerunCount, want)
			}
		}
	})
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	defer store.Close()

	if err := store.Create(ctx, pendingRequest("req-1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	first, err := store.Get(ctx, "req-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	first.Context["recipient"] = "tampered@example.com"
	first.Status = StatusApproved

	second, err := store.Get(ctx, "req-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if second.Context["recipient"] != "vip@external.example" {
		t.Errorf("stored context changed through a returned copy: %v", second.Context["recipient"])
	}
	if second.Status != StatusPending {
		t.Errorf("stored status changed through a returned copy: %v", second.Status)
	}
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultSQLiteConfig()
	cfg.Path = filepath.Join(t.TempDir(), "approvals.db")

	store, err := NewSQLiteStore(cfg, quietLogger())
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	if err := store.Create(ctx, pendingRequest("req-1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewSQLiteStore(cfg, quietLogger())
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(ctx, "req-1")
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	if got.Status != StatusPending || got.PolicyID != "pol-email" {
		t.Errorf("reopened request = %q/%q, want pending/pol-email", got.Status, got.PolicyID)
	}
}

func TestNewSQLiteStore_RequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(SQLiteConfig{}, quietLogger()); err == nil {
		t.Error("NewSQLiteStore() with empty path did not fail")
	}
}

func requestIDs(reqs []*Request) []string {
	ids := make([]string, len(reqs))
	for i, r := range reqs {
		ids[i] = r.ID
	}
	return ids
}
