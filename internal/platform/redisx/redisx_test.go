package redisx

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/yungbote/matside-backend/internal/platform/logger"
)

func TestOpenDisabled(t *testing.T) {
	rdb, err := Open(context.Background(), logger.Nop(), Config{})
	if err != nil || rdb != nil {
		t.Fatalf("expected nil client and error, got %v %v", rdb, err)
	}
}

func TestOpenPings(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := Open(context.Background(), logger.Nop(), Config{Addr: mr.Addr(), DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rdb.Close()
	if err := rdb.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := mr.Get("k"); got != "v" {
		t.Fatalf("miniredis value: %q", got)
	}
}

func TestOpenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	if _, err := Open(context.Background(), logger.Nop(), Config{Addr: addr, DialTimeout: 200 * time.Millisecond}); err == nil {
		t.Fatal("expected ping error")
	}
}
