package user

import (
	"context"
	"fmt"
	"testing"

	"github.com/kocahmet1/ultrasat-progress/internal/data/repos/testutil"
	types "github.com/kocahmet1/ultrasat-progress/internal/domain"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/dbctx"
)

func TestUserRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewUserRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	prefix := testutil.UniqueID("userrepo")
	var users []*types.User
	for i := 0; i < 5; i++ {
		users = append(users, &types.User{ID: fmt.Sprintf("%s-%02d", prefix, i), DisplayName: "U"})
	}
	created, err := repo.Create(dbc, users)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 5 {
		t.Fatalf("Create: want=5 got=%d", len(created))
	}

	got, err := repo.GetByIDs(dbc, []string{users[0].ID, users[3].ID})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetByIDs: want=2 got=%d", len(got))
	}

	page, err := repo.ListIDs(dbc, users[1].ID, 2)
	if err != nil {
		t.Fatalf("ListIDs: %v", err)
	}
	if len(page) != 2 || page[0] != users[2].ID || page[1] != users[3].ID {
		t.Fatalf("ListIDs: unexpected page %v", page)
	}

	all, err := repo.ListAllIDs(dbc)
	if err != nil {
		t.Fatalf("ListAllIDs: %v", err)
	}
	seen := 0
	for _, id := range all {
		for _, u := range users {
			if id == u.ID {
				seen++
			}
		}
	}
	if seen != 5 {
		t.Fatalf("ListAllIDs: want=5 seeded ids got=%d", seen)
	}
}

func TestUserRepo_EnsureIDs(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewUserRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	known := testutil.UniqueID("ensure")
	if _, err := repo.Create(dbc, []*types.User{{ID: known, DisplayName: "Known"}}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	fresh := testutil.UniqueID("ensure")
	if err := repo.EnsureIDs(dbc, []string{known, fresh, fresh, ""}); err != nil {
		t.Fatalf("EnsureIDs: %v", err)
	}
	if err := repo.EnsureIDs(dbc, []string{fresh}); err != nil {
		t.Fatalf("EnsureIDs(again): %v", err)
	}

	got, err := repo.GetByIDs(dbc, []string{known, fresh})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("GetByIDs: want=2 got=%d", len(got))
	}
	for _, u := range got {
		if u.ID == known && u.DisplayName != "Known" {
			t.Fatalf("EnsureIDs overwrote existing user: %+v", u)
		}
	}
}
