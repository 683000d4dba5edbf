package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/HerbHall/ponplan/internal/store"
	"github.com/HerbHall/ponplan/internal/testutil"
	"github.com/HerbHall/ponplan/pkg/models"
)

func newTestStore(t *testing.T) *InventoryStore {
	t.Helper()
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background(), "inventory", migrations()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewInventoryStore(db.DB())
}

func insert(t *testing.T, s *InventoryStore, opts ...func(*models.PonDevice)) models.PonDevice {
	t.Helper()
	d := testutil.NewPonDevice(opts...)
	if err := s.InsertDevice(context.Background(), &d); err != nil {
		t.Fatalf("InsertDevice(%s): %v", d.Name, err)
	}
	return d
}

func TestStore_InsertGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	olt := insert(t, s, testutil.WithName("OLT-1"), testutil.WithDeclaredPorts(4), testutil.WithLocation("CO"))
	insert(t, s, testutil.WithName("MS-1"), testutil.WithType(models.DeviceTypeMS, "1x8"), testutil.WithParent(olt.ID))

	got, err := s.GetDevice(ctx, olt.ID)
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}
	if got == nil {
		t.Fatal("GetDevice returned nil for a stored device")
	}
	if got.Name != "OLT-1" || got.TypeCode != "gpon" || got.DeclaredPorts != 4 || got.Location != "CO" || got.ParentID != "" {
		t.Errorf("GetDevice = %+v", got)
	}
	if got.ActivePorts != 1 {
		t.Errorf("ActivePorts = %d, want 1", got.ActivePorts)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not stored")
	}

	missing, err := s.GetDevice(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("GetDevice(missing) = %v, %v; want nil, nil", missing, err)
	}
}

func TestStore_DuplicateID(t *testing.T) {
	s := newTestStore(t)
	d := insert(t, s, testutil.WithID("olt-fixed"))
	dup := testutil.NewPonDevice(testutil.WithID(d.ID))
	if err := s.InsertDevice(context.Background(), &dup); err == nil {
		t.Error("InsertDevice accepted a duplicate ID")
	}
}

func TestStore_AncestorsAndCustomers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	olt := insert(t, s, testutil.WithName("OLT"))
	ms := insert(t, s, testutil.WithName("MS"), testutil.WithType(models.DeviceTypeMS, "1x16"), testutil.WithParent(olt.ID))
	fdb := insert(t, s, testutil.WithName("FDB"), testutil.WithType(models.DeviceTypeFDB, ""), testutil.WithParent(ms.ID))
	x2 := insert(t, s, testutil.WithName("X2"), testutil.WithType(models.DeviceTypeX2, "1x2"), testutil.WithParent(fdb.ID))
	cust := insert(t, s, testutil.WithName("Home"), testutil.WithType(models.DeviceTypeCustomer, ""), testutil.WithParent(x2.ID))
	insert(t, s, testutil.WithName("Shop"), testutil.WithType(models.DeviceTypeCustomer, ""), testutil.WithParent(fdb.ID))

	chain, err := s.Ancestors(ctx, cust.ID)
	if err != nil {
		t.Fatalf("Ancestors: %v", err)
	}
	want := []string{olt.ID, ms.ID, fdb.ID, x2.ID, cust.ID}
	if len(chain) != len(want) {
		t.Fatalf("Ancestors length = %d, want %d", len(chain), len(want))
	}
	for i, d := range chain {
		if d.ID != want[i] {
			t.Errorf("chain[%d] = %s, want %s", i, d.Name, want[i])
		}
	}

	kids, err := s.ListChildren(ctx, fdb.ID)
	if err != nil {
		t.Fatalf("ListChildren: %v", err)
	}
	if len(kids) != 2 || kids[0].Name != "Shop" || kids[1].Name != "X2" || kids[1].ActivePorts != 1 {
		t.Errorf("ListChildren(FDB) = %+v", kids)
	}

	if chain, err := s.Ancestors(ctx, "nope"); err != nil || len(chain) != 0 {
		t.Errorf("Ancestors(missing) = %v, %v", chain, err)
	}

	tests := []struct {
		root string
		want int
	}{
		{olt.ID, 2},
		{fdb.ID, 2},
		{x2.ID, 1},
		{cust.ID, 1},
	}
	for _, tt := range tests {
		n, err := s.CountCustomers(ctx, tt.root)
		if err != nil {
			t.Fatalf("CountCustomers: %v", err)
		}
		if n != tt.want {
			t.Errorf("CountCustomers(%s) = %d, want %d", tt.root, n, tt.want)
		}
	}
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	olt := insert(t, s)
	ms := insert(t, s, testutil.WithType(models.DeviceTypeMS, "1x8"), testutil.WithParent(olt.ID))

	if _, err := s.DeleteDevice(ctx, olt.ID); !errors.Is(err, ErrHasChildren) {
		t.Errorf("delete parent: err = %v, want ErrHasChildren", err)
	}
	if _, err := s.DeleteDevice(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete missing: err = %v, want ErrNotFound", err)
	}

	gone, err := s.DeleteDevice(ctx, ms.ID)
	if err != nil {
		t.Fatalf("delete leaf: %v", err)
	}
	if gone.ID != ms.ID || gone.ParentID != olt.ID {
		t.Errorf("deleted = %+v", gone)
	}
	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("Count after delete = %d, want 1", n)
	}
}
