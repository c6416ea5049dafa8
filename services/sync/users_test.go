package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"streamlens/internal/database"
	"streamlens/services/jellyfin"
)

func TestUserSyncUpserts(t *testing.T) {
	db := openSyncDB(t)
	repo := database.NewUserRepository(db)
	login := time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)
	client := &fakeJellyfin{users: []jellyfin.User{
		{JellyfinID: "u1", Username: "alice", IsAdministrator: true, LastLogin: login, LastSeen: login},
		{JellyfinID: "u2", Username: "bob", LastLogin: login, LastSeen: login},
	}}
	svc := NewUserSync(db, repo, client)
	ctx := context.Background()

	if err := svc.Sync(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}

	users, err := repo.List(ctx, db)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("users = %d, want 2", len(users))
	}

	// A renamed user updates in place instead of creating a new row.
	client.users[1].Username = "robert"
	if err := svc.Sync(ctx); err != nil {
		t.Fatalf("second sync: %v", err)
	}

	users, err = repo.List(ctx, db)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("users = %d, want 2", len(users))
	}
	var names []string
	for _, u := range users {
		names = append(names, u.Username)
	}
	if names[0] != "alice" || names[1] != "robert" {
		t.Errorf("usernames = %v, want [alice robert]", names)
	}
}

func TestUserSyncKeepsVanishedUsers(t *testing.T) {
	db := openSyncDB(t)
	repo := database.NewUserRepository(db)
	client := &fakeJellyfin{users: []jellyfin.User{
		{JellyfinID: "u1", Username: "alice"},
		{JellyfinID: "u2", Username: "bob"},
	}}
	svc := NewUserSync(db, repo, client)
	ctx := context.Background()

	if err := svc.Sync(ctx); err != nil {
		t.Fatalf("first sync: %v", err)
	}

	client.users = client.users[:1]
	if err := svc.Sync(ctx); err != nil {
		t.Fatalf("second sync: %v", err)
	}

	users, err := repo.List(ctx, db)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("users = %d, want 2 (removed users are kept)", len(users))
	}
}

func TestUserSyncFetchErrorAbortsPass(t *testing.T) {
	db := openSyncDB(t)
	repo := database.NewUserRepository(db)
	client := &fakeJellyfin{err: errors.New("jellyfin down")}
	svc := NewUserSync(db, repo, client)

	if err := svc.Sync(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	users, err := repo.List(context.Background(), db)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(users) != 0 {
		t.Errorf("users = %d, want 0", len(users))
	}
}
