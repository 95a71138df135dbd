package store

import (
	"context"
	"errors"
	"testing"

	"github.com/oyaguma3/radius-aaa-server/pkg/apperr"
	"github.com/oyaguma3/radius-aaa-server/pkg/model"
)

func TestMACStore_PutGetDelete(t *testing.T) {
	vc, mr := newTestValkeyClient(t)
	store := NewMACStore(vc)
	ctx := context.Background()

	entry := model.NewMACEntry("aa:bb:cc:dd:ee:ff", "100", "printer")
	if err := store.Put(ctx, entry); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if got := mr.HGet("mac:aa:bb:cc:dd:ee:ff", "vlan"); got != "100" {
		t.Errorf("vlan = %q, want %q", got, "100")
	}

	got, err := store.Get(ctx, "aa:bb:cc:dd:ee:ff")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.MAC != "aa:bb:cc:dd:ee:ff" || got.VLAN != "100" || got.Description != "printer" {
		t.Errorf("Get = %+v", got)
	}

	if err := store.Delete(ctx, "aa:bb:cc:dd:ee:ff"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if mr.Exists("mac:aa:bb:cc:dd:ee:ff") {
		t.Error("key still exists after Delete")
	}
}

func TestMACStore_GetNotFound(t *testing.T) {
	vc, _ := newTestValkeyClient(t)

	_, err := NewMACStore(vc).Get(context.Background(), "00:11:22:33:44:55")
	if !errors.Is(err, apperr.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestMACStore_GetWithoutVLAN(t *testing.T) {
	vc, mr := newTestValkeyClient(t)
	mr.HSet("mac:00:11:22:33:44:55", "description", "camera")

	got, err := NewMACStore(vc).Get(context.Background(), "00:11:22:33:44:55")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.VLAN != "" {
		t.Errorf("VLAN = %q, want empty", got.VLAN)
	}
}

func TestMACStore_ValkeyError(t *testing.T) {
	vc, mr := newTestValkeyClient(t)
	mr.Close()

	_, err := NewMACStore(vc).Get(context.Background(), "00:11:22:33:44:55")
	if !errors.Is(err, apperr.ErrValkeyUnavailable) {
		t.Errorf("expected ErrValkeyUnavailable, got %v", err)
	}
}
