package kvstore

import (
	"context"
	"testing"
	"time"
)

func TestMemory_SetGet(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := m.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != "v" {
		t.Errorf("Expected %q, got %q", "v", val)
	}
}

func TestMemory_GetMissingKey(t *testing.T) {
	m := NewMemory()

	val, err := m.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get on missing key should not error, got: %v", err)
	}
	if val != "" {
		t.Errorf("Expected empty string for missing key, got %q", val)
	}
}

func TestMemory_TTLExpiry(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.Set(ctx, "k", "v", 20*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if val, _ := m.Get(ctx, "k"); val != "v" {
		t.Fatalf("Expected value before expiry, got %q", val)
	}

	time.Sleep(30 * time.Millisecond)

	if val, _ := m.Get(ctx, "k"); val != "" {
		t.Errorf("Expected empty value after expiry, got %q", val)
	}
}

func TestMemory_SetNX(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	ok, err := m.SetNX(ctx, "k", "first", 0)
	if err != nil || !ok {
		t.Fatalf("SetNX on missing key should win: ok=%v err=%v", ok, err)
	}

	ok, err = m.SetNX(ctx, "k", "second", 0)
	if err != nil || ok {
		t.Fatalf("SetNX on existing key should lose: ok=%v err=%v", ok, err)
	}
	if val, _ := m.Get(ctx, "k"); val != "first" {
		t.Errorf("first writer's value must survive, got %q", val)
	}

	// Süresi dolmuş anahtar yok sayılır — SetNX tekrar kazanabilmeli.
	if err := m.Set(ctx, "t", "old", 10*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if ok, _ := m.SetNX(ctx, "t", "fresh", 0); !ok {
		t.Error("SetNX should treat an expired key as absent")
	}
}

func TestMemory_HashOps(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.HSet(ctx, "h", "f1", "v1"); err != nil {
		t.Fatalf("HSet failed: %v", err)
	}
	if err := m.HSet(ctx, "h", "f2", "v2"); err != nil {
		t.Fatalf("HSet failed: %v", err)
	}

	val, _ := m.HGet(ctx, "h", "f1")
	if val != "v1" {
		t.Errorf("Expected v1, got %q", val)
	}

	all, _ := m.HGetAll(ctx, "h")
	if len(all) != 2 {
		t.Errorf("Expected 2 fields, got %d", len(all))
	}

	if err := m.HDel(ctx, "h", "f1"); err != nil {
		t.Fatalf("HDel failed: %v", err)
	}
	all, _ = m.HGetAll(ctx, "h")
	if len(all) != 1 {
		t.Errorf("Expected 1 field after HDel, got %d", len(all))
	}

	// Olmayan field'ı silmek hata değildir
	if err := m.HDel(ctx, "h", "nope"); err != nil {
		t.Errorf("HDel on missing field should not error: %v", err)
	}
}

func TestMemory_HGetAllReturnsCopy(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_ = m.HSet(ctx, "h", "f", "v")
	all, _ := m.HGetAll(ctx, "h")
	all["f"] = "mutated"

	val, _ := m.HGet(ctx, "h", "f")
	if val != "v" {
		t.Errorf("Store mutated through returned map: got %q", val)
	}
}

func TestMemory_SetOps(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_ = m.SAdd(ctx, "s", "a", "b")
	members, _ := m.SMembers(ctx, "s")
	if len(members) != 2 {
		t.Fatalf("Expected 2 members, got %d", len(members))
	}

	_ = m.SRem(ctx, "s", "a")
	members, _ = m.SMembers(ctx, "s")
	if len(members) != 1 || members[0] != "b" {
		t.Errorf("Expected [b], got %v", members)
	}
}

func TestMemory_Delete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_ = m.Set(ctx, "k", "v", 0)
	_ = m.HSet(ctx, "k", "f", "v")

	if err := m.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if val, _ := m.Get(ctx, "k"); val != "" {
		t.Errorf("Expected string deleted, got %q", val)
	}
	if all, _ := m.HGetAll(ctx, "k"); len(all) != 0 {
		t.Errorf("Expected hash deleted, got %v", all)
	}

	// İkinci delete no-op'tur
	if err := m.Delete(ctx, "k"); err != nil {
		t.Errorf("Second Delete should not error: %v", err)
	}
}

func TestMemory_Exists(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	ok, _ := m.Exists(ctx, "k")
	if ok {
		t.Error("Exists should be false for missing key")
	}

	_ = m.Set(ctx, "k", "v", 0)
	ok, _ = m.Exists(ctx, "k")
	if !ok {
		t.Error("Exists should be true after Set")
	}
}
