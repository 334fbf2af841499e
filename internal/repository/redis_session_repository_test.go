package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"cinebot-go/internal/model"
)

func newRedisRepository(t *testing.T, ttl time.Duration) (*redisSessionRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisSessionRepository(rdb, ttl).(*redisSessionRepository), mr
}

func TestRedisGetDoesNotInsert(t *testing.T) {
	repo, mr := newRedisRepository(t, 0)
	s, err := repo.Get(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if s.Step != model.StepGreet || s.LastRecommendations == nil || len(s.LastRecommendations) != 0 {
		t.Fatalf("expected fresh greet session, got %+v", s)
	}
	if mr.Exists(sessionKey("alice")) {
		t.Fatal("Get must not insert")
	}
}

func TestRedisRoundTrip(t *testing.T) {
	repo, _ := newRedisRepository(t, 0)
	ctx := context.Background()
	updated := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	want := model.Session{
		Step:                model.StepRecommend,
		Genre:               "terror",
		GenreID:             27,
		LastRecommendations: []model.Movie{{ID: 10, Title: "O Chamado", Overview: "medo", PosterPath: "/p.jpg"}},
		ShownIDs:            []int64{10, 11},
		UpdatedAt:           updated,
	}
	if err := repo.Put(ctx, "alice", want); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	got, err := repo.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Step != want.Step || got.Genre != want.Genre || got.GenreID != want.GenreID || !got.UpdatedAt.Equal(updated) {
		t.Fatalf("unexpected session %+v", got)
	}
	if len(got.LastRecommendations) != 1 || got.LastRecommendations[0] != want.LastRecommendations[0] {
		t.Fatalf("unexpected recommendations %+v", got.LastRecommendations)
	}
	if len(got.ShownIDs) != 2 || got.ShownIDs[0] != 10 || got.ShownIDs[1] != 11 {
		t.Fatalf("unexpected shown ids %v", got.ShownIDs)
	}
}

func TestRedisTTL(t *testing.T) {
	tests := []struct {
		name    string
		ttl     time.Duration
		wantTTL time.Duration
	}{
		{"expiring", time.Minute, time.Minute},
		{"no expiry", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mr := newRedisRepository(t, tt.ttl)
			ctx := context.Background()
			s := model.NewSession()
			s.Step = model.StepAskGenre

			if err := repo.Put(ctx, "alice", s); err != nil {
				t.Fatalf("Put returned error: %v", err)
			}
			mr.FastForward(40 * time.Second)
			if err := repo.Put(ctx, "alice", s); err != nil {
				t.Fatalf("Put returned error: %v", err)
			}
			if got := mr.TTL(sessionKey("alice")); got != tt.wantTTL {
				t.Fatalf("expected ttl %v after renewal, got %v", tt.wantTTL, got)
			}

			mr.FastForward(40 * time.Second)
			if got, _ := repo.Get(ctx, "alice"); got.Step != model.StepAskGenre {
				t.Fatalf("renewed session expired early: %+v", got)
			}
		})
	}
}

func TestRedisSessionExpires(t *testing.T) {
	repo, mr := newRedisRepository(t, time.Minute)
	ctx := context.Background()
	s := model.NewSession()
	s.Step = model.StepDone
	s.Genre = "drama"
	if err := repo.Put(ctx, "alice", s); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	got, err := repo.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Step != model.StepGreet {
		t.Fatalf("expected expired session to start over, got %+v", got)
	}
}

func TestRedisDelete(t *testing.T) {
	repo, mr := newRedisRepository(t, 0)
	ctx := context.Background()
	if err := repo.Put(ctx, "alice", model.NewSession()); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if err := repo.Delete(ctx, "alice"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if mr.Exists(sessionKey("alice")) {
		t.Fatal("session still stored after Delete")
	}
}

func TestRedisCorruptSession(t *testing.T) {
	repo, mr := newRedisRepository(t, 0)
	if err := mr.Set(sessionKey("alice"), "{not json"); err != nil {
		t.Fatalf("seeding redis: %v", err)
	}
	if _, err := repo.Get(context.Background(), "alice"); err == nil {
		t.Fatal("expected an error for a corrupt session")
	}
}

func TestRedisLockExcludesOtherHolders(t *testing.T) {
	repo, mr := newRedisRepository(t, 0)
	ctx := context.Background()

	unlock, err := repo.Lock(ctx, "alice")
	if err != nil {
		t.Fatalf("Lock returned error: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	if _, err := repo.Lock(waitCtx, "alice"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected second holder to time out, got %v", err)
	}

	other, err := repo.Lock(ctx, "bob")
	if err != nil {
		t.Fatalf("locks of different users must not conflict: %v", err)
	}
	other()

	unlock()
	if mr.Exists(lockKey("alice")) {
		t.Fatal("lock still held after unlock")
	}
	again, err := repo.Lock(ctx, "alice")
	if err != nil {
		t.Fatalf("Lock after release returned error: %v", err)
	}
	again()
}

func TestRedisUnlockKeepsForeignLock(t *testing.T) {
	repo, mr := newRedisRepository(t, 0)
	ctx := context.Background()

	unlock, err := repo.Lock(ctx, "alice")
	if err != nil {
		t.Fatalf("Lock returned error: %v", err)
	}
	// lock expired and was taken by another replica
	if err := mr.Set(lockKey("alice"), "someone-else"); err != nil {
		t.Fatalf("seeding redis: %v", err)
	}
	unlock()
	if got, _ := mr.Get(lockKey("alice")); got != "someone-else" {
		t.Fatalf("unlock removed a lock it does not own, value now %q", got)
	}
}
