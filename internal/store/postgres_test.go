package store_test

import (
	"context"
	"errors"
	"testing"

	"analyst-alchemist/internal/profile"
	"analyst-alchemist/internal/store"
	"analyst-alchemist/internal/testutil"
)

func TestPostgresStoreProfileCRUD(t *testing.T) {
	st := testutil.OpenProfileStore(t)
	ctx := context.Background()
	owner := store.UserOwner("ana")

	if _, err := st.LoadProfile(ctx, owner); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	p := profile.Profile{ID: "agt_1", Name: "Alpha", Class: "Value Investor", WorkflowID: "value", PersonaID: "deep_value"}
	if err := st.SaveProfile(ctx, owner, p); err != nil {
		t.Fatalf("save: %v", err)
	}
	p.Name = "Alpha Two"
	p.Joined = true
	if err := st.SaveProfile(ctx, owner, p); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := st.LoadProfile(ctx, owner)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Name != "Alpha Two" || !got.Joined || got.PersonaID != "deep_value" {
		t.Fatalf("profile = %+v", got)
	}

	if _, err := st.Pool.Exec(ctx, `UPDATE agent_profiles SET payload = '{"version":99}' WHERE owner = $1`, owner); err != nil {
		t.Fatalf("corrupt row: %v", err)
	}
	if _, err := st.LoadProfile(ctx, owner); !errors.Is(err, profile.ErrUnsupportedVersion) {
		t.Fatalf("err = %v, want ErrUnsupportedVersion", err)
	}

	if err := st.DeleteProfile(ctx, owner); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := st.DeleteProfile(ctx, owner); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}
