package mysql

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"redpacket.com/internal/redpacket/domain"
	"redpacket.com/pkg/xerr"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 内存库每个连接都是独立的库
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	r := New(db)
	require.NoError(t, r.AutoMigrate(context.Background()))
	return r
}

func newClaim(packetID uint64, twitterID, addr string) *domain.Claim {
	return &domain.Claim{
		PacketID:             packetID,
		ClaimerTwitterID:     twitterID,
		ClaimerAddress:       addr,
		ClaimerTwitterHandle: "alice",
		Nonce:                "42",
	}
}

func TestReserve_UniqueConstraint(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	ok, err := r.Reserve(ctx, newClaim(7, "u1", "0xAAaa000000000000000000000000000000000001"))
	require.NoError(t, err)
	assert.True(t, ok)

	// 换个地址也不行，唯一键是 (packet, twitter id)
	ok, err = r.Reserve(ctx, newClaim(7, "u1", "0xbbbb000000000000000000000000000000000002"))
	require.NoError(t, err)
	assert.False(t, ok)

	// 别的红包不受影响
	ok, err = r.Reserve(ctx, newClaim(8, "u1", "0xaaaa000000000000000000000000000000000001"))
	require.NoError(t, err)
	assert.True(t, ok)

	c, err := r.GetClaim(ctx, 7, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.SignaturePending, c.Signature)
	assert.Equal(t, "0xaaaa000000000000000000000000000000000001", c.ClaimerAddress)
	assert.False(t, c.IsSigned())
}

func TestReserve_Concurrent(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	const n = 16
	var wins atomic.Int32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			ok, err := r.Reserve(ctx, newClaim(1, "racer", "0x1111111111111111111111111111111111111111"))
			assert.NoError(t, err)
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins.Load())
}

func TestExistsAndSetSignature(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	exists, err := r.Exists(ctx, 3, "u1")
	require.NoError(t, err)
	assert.False(t, exists)

	c := newClaim(3, "u1", "0x1111111111111111111111111111111111111111")
	ok, err := r.Reserve(ctx, c)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotZero(t, c.ID)

	exists, err = r.Exists(ctx, 3, "u1")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, r.SetSignature(ctx, c.ID, "0xsig"))
	got, err := r.GetClaim(ctx, 3, "u1")
	require.NoError(t, err)
	assert.Equal(t, "0xsig", got.Signature)

	err = r.SetSignature(ctx, 999, "0xsig")
	assert.True(t, xerr.Is(err, xerr.RecordNotFound))
}

func TestSetSettlement_MatchesIdentityAndAddress(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	addr := "0xabcdef1111111111111111111111111111111111"
	_, err := r.Reserve(ctx, newClaim(5, "u1", addr))
	require.NoError(t, err)

	tests := []struct {
		name      string
		twitterID string
		address   string
		want      int64
	}{
		{"别人的身份", "u2", addr, 0},
		{"别人的地址", "u1", "0x2222222222222222222222222222222222222222", 0},
		{"地址大小写不敏感", "u1", "0xABCDEF1111111111111111111111111111111111", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := r.SetSettlement(ctx, 5, tt.twitterID, tt.address, "1.5", "0xtx")
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}

	c, err := r.GetClaim(ctx, 5, "u1")
	require.NoError(t, err)
	require.NotNil(t, c.Amount)
	assert.Equal(t, "1.5", *c.Amount)
	assert.True(t, c.IsSettled())
}

func TestSettleUnsettled_Idempotent(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	addr := "0x1111111111111111111111111111111111111111"
	_, err := r.Reserve(ctx, newClaim(5, "u1", addr))
	require.NoError(t, err)

	n, err := r.SettleUnsettled(ctx, 5, "u1", "0x1111111111111111111111111111111111111111", "2", "0xtx1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = r.SettleUnsettled(ctx, 5, "u1", addr, "3", "0xtx2")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	c, err := r.GetClaim(ctx, 5, "u1")
	require.NoError(t, err)
	assert.Equal(t, "0xtx1", *c.TxHash)
}

func TestSettleUnsettled_SharedAddress(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	addr := "0x1111111111111111111111111111111111111111"
	for _, id := range []string{"alice", "bob"} {
		ok, err := r.Reserve(ctx, newClaim(7, id, addr))
		require.NoError(t, err)
		require.True(t, ok)
	}

	tests := []struct {
		name      string
		twitterID string
		address   string
		want      int64
	}{
		{"missing twitter id", "", addr, 0},
		{"unknown twitter id", "carol", addr, 0},
		{"other address", "alice", "0x2222222222222222222222222222222222222222", 0},
		{"owner", "alice", "0x1111111111111111111111111111111111111111", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := r.SettleUnsettled(ctx, 7, tt.twitterID, tt.address, "1.5", "0xabc")
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}

	alice, err := r.GetClaim(ctx, 7, "alice")
	require.NoError(t, err)
	require.NotNil(t, alice.TxHash)
	assert.Equal(t, "0xabc", *alice.TxHash)

	bob, err := r.GetClaim(ctx, 7, "bob")
	require.NoError(t, err)
	assert.Nil(t, bob.TxHash)
	assert.False(t, bob.IsSettled())

	// bob 没结算，还能被运维释放
	released, err := r.Release(ctx, 7, "bob")
	require.NoError(t, err)
	assert.True(t, released)
}

func TestRelease_OnlyPendingAndUnsettled(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	pending := newClaim(1, "pending", "0x1111111111111111111111111111111111111111")
	signed := newClaim(1, "signed", "0x2222222222222222222222222222222222222222")
	for _, c := range []*domain.Claim{pending, signed} {
		ok, err := r.Reserve(ctx, c)
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.NoError(t, r.SetSignature(ctx, signed.ID, "0xsig"))

	released, err := r.Release(ctx, 1, "signed")
	require.NoError(t, err)
	assert.False(t, released)

	released, err = r.Release(ctx, 1, "pending")
	require.NoError(t, err)
	assert.True(t, released)

	// 释放后可以重新占坑
	ok, err := r.Reserve(ctx, newClaim(1, "pending", "0x1111111111111111111111111111111111111111"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimit_WindowAndPrune(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, r.Record(ctx, "u1", now.Add(-50*time.Hour)))
	require.NoError(t, r.Record(ctx, "u1", now.Add(-25*time.Hour)))
	require.NoError(t, r.Record(ctx, "u1", now.Add(-2*time.Hour)))
	require.NoError(t, r.Record(ctx, "u1", now.Add(-time.Minute)))
	require.NoError(t, r.Record(ctx, "u2", now))

	n, err := r.CountSince(ctx, "u1", now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	pruned, err := r.PruneBefore(ctx, now.Add(-48*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, pruned)

	n, err = r.CountSince(ctx, "u1", now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestFollowCache_Upsert(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	fc, err := r.GetFollow(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Nil(t, fc)

	t1 := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, r.UpsertFollow(ctx, "u1", "c1", false, t1))
	t2 := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, r.UpsertFollow(ctx, "u1", "c1", true, t2))

	fc, err = r.GetFollow(ctx, "u1", "c1")
	require.NoError(t, err)
	require.NotNil(t, fc)
	assert.True(t, fc.Follows)
	assert.True(t, fc.CheckedAt.Equal(t2))

	var rows int64
	require.NoError(t, r.db.Model(&domain.FollowCache{}).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)
}

func TestPacket_CreateAndLookup(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	p := &domain.Packet{
		PublicID:             uuid.NewString(),
		PacketID:             11,
		CreatorAddress:       "0xABCD000000000000000000000000000000000001",
		CreatorTwitterID:     "creator",
		CreatorTwitterHandle: "bob",
		TxHash:               "0xtx",
	}
	ok, err := r.CreatePacket(ctx, p)
	require.NoError(t, err)
	assert.True(t, ok)

	dup := *p
	dup.ID = 0
	dup.PublicID = uuid.NewString()
	ok, err = r.CreatePacket(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := r.GetByPublicID(ctx, p.PublicID)
	require.NoError(t, err)
	assert.EqualValues(t, 11, got.PacketID)
	assert.Equal(t, "0xabcd000000000000000000000000000000000001", got.CreatorAddress)

	_, err = r.GetByPublicID(ctx, dup.PublicID)
	assert.True(t, xerr.Is(err, xerr.RecordNotFound))

	_, err = r.GetByPacketID(ctx, 12)
	assert.True(t, xerr.Is(err, xerr.RecordNotFound))

	created, err := r.ListByCreator(ctx, "creator", 1, 50)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, p.PublicID, created[0].PublicID)
}

func TestListByClaimer_JoinsCreator(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	_, err := r.CreatePacket(ctx, &domain.Packet{PublicID: uuid.NewString(), PacketID: 1, CreatorTwitterID: "c", CreatorTwitterHandle: "bob"})
	require.NoError(t, err)
	_, err = r.Reserve(ctx, newClaim(1, "u1", "0x1111111111111111111111111111111111111111"))
	require.NoError(t, err)
	// 没登记过的红包也要能列出来
	_, err = r.Reserve(ctx, newClaim(2, "u1", "0x1111111111111111111111111111111111111111"))
	require.NoError(t, err)

	items, err := r.ListByClaimer(ctx, "u1", 1, 50)
	require.NoError(t, err)
	require.Len(t, items, 2)

	byPacket := map[uint64]domain.ClaimedItem{}
	for _, it := range items {
		byPacket[it.PacketID] = it
	}
	require.NotNil(t, byPacket[1].CreatorTwitterHandle)
	assert.Equal(t, "bob", *byPacket[1].CreatorTwitterHandle)
	assert.Nil(t, byPacket[2].CreatorTwitterHandle)
}
