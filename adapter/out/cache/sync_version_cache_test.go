package cache

import (
	"context"
	"testing"

	"sync_server/core/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*miniredis.Miniredis, *VersionCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewVersionCache(client).(*VersionCache)
}

func TestVersionCache_MissReadsAsZero(t *testing.T) {
	_, c := newTestCache(t)

	v, err := c.GetVersion(context.Background(), domain.KindTask, 1)
	if err != nil || v != 0 {
		t.Errorf("miss = %d, %v; want 0, nil", v, err)
	}
}

func TestVersionCache_SetGet(t *testing.T) {
	mr, c := newTestCache(t)
	ctx := context.Background()

	if err := c.SetVersion(ctx, domain.KindTask, 1, 7); err != nil {
		t.Fatal(err)
	}
	v, err := c.GetVersion(ctx, domain.KindTask, 1)
	if err != nil || v != 7 {
		t.Errorf("get = %d, %v; want 7", v, err)
	}

	// Kinds do not share a keyspace.
	v, err = c.GetVersion(ctx, domain.KindDirectory, 1)
	if err != nil || v != 0 {
		t.Errorf("other kind = %d, %v; want 0", v, err)
	}

	if mr.TTL(versionKey(domain.KindTask, 1)) != versionTTL {
		t.Error("cached version must carry the bounded TTL")
	}
}

func TestVersionCache_Invalidate(t *testing.T) {
	_, c := newTestCache(t)
	ctx := context.Background()

	if err := c.SetVersion(ctx, domain.KindTask, 1, 7); err != nil {
		t.Fatal(err)
	}
	if err := c.Invalidate(ctx, domain.KindTask, 1); err != nil {
		t.Fatal(err)
	}
	if v, _ := c.GetVersion(ctx, domain.KindTask, 1); v != 0 {
		t.Errorf("version after invalidate = %d, want 0", v)
	}
}

func TestVersionCache_StaleOverwrite(t *testing.T) {
	_, c := newTestCache(t)
	ctx := context.Background()

	if err := c.SetVersion(ctx, domain.KindDirectory, 5, 2); err != nil {
		t.Fatal(err)
	}
	if err := c.SetVersion(ctx, domain.KindDirectory, 5, 3); err != nil {
		t.Fatal(err)
	}
	if v, _ := c.GetVersion(ctx, domain.KindDirectory, 5); v != 3 {
		t.Errorf("version = %d, want the latest write", v)
	}
}
