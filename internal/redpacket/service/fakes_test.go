package service

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"redpacket.com/internal/redpacket/domain"
	"redpacket.com/internal/redpacket/repo/mysql"
	"redpacket.com/internal/redpacket/signer"
	"redpacket.com/pkg/xerr"
)

const (
	testContract = "0x5fbdb2315678afecb367f032d93f642f64180aa3"
	testClaimer  = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	testTxHash   = "0x1111111111111111111111111111111111111111111111111111111111111111"
)

func newTestRepo(t *testing.T) *mysql.Repo {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	r := mysql.New(db)
	require.NoError(t, r.AutoMigrate(context.Background()))
	return r
}

type fakeChain struct {
	mu          sync.Mutex
	state       *domain.PacketState
	stateErr    error
	settlements map[string]*domain.Settlement
	claimed     []domain.ClaimedEvent
	latest      uint64
}

func (f *fakeChain) GetPacket(_ context.Context, packetID uint64) (*domain.PacketState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stateErr != nil {
		return nil, f.stateErr
	}
	if f.state == nil || f.state.PacketID != packetID {
		return nil, xerr.New(xerr.RecordNotFound, "packet not found on chain")
	}
	cp := *f.state
	return &cp, nil
}

func (f *fakeChain) GetSettlement(_ context.Context, txHash string) (*domain.Settlement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.settlements[txHash]
	if !ok {
		return nil, xerr.New(xerr.RecordNotFound, "transaction not found")
	}
	return st, nil
}

func (f *fakeChain) LatestBlock(context.Context) (uint64, error) { return f.latest, nil }

func (f *fakeChain) FetchClaimed(_ context.Context, from, to uint64) ([]domain.ClaimedEvent, error) {
	var out []domain.ClaimedEvent
	for _, ev := range f.claimed {
		if ev.BlockNumber >= from && ev.BlockNumber <= to {
			out = append(out, ev)
		}
	}
	return out, nil
}

func openPacket(packetID uint64, now time.Time) *domain.PacketState {
	return &domain.PacketState{
		PacketID:        packetID,
		Creator:         "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266",
		TotalAmount:     big.NewInt(10_000_000),
		RemainingAmount: big.NewInt(10_000_000),
		TotalClaims:     5,
		Expiry:          now.Add(24 * time.Hour).Unix(),
	}
}

type stubFollow struct {
	err   error
	calls atomic.Int32
	token atomic.Value
}

func (s *stubFollow) Verify(_ context.Context, token, _, _ string) error {
	s.calls.Add(1)
	s.token.Store(token)
	return s.err
}

type flakySigner struct {
	mu    sync.Mutex
	inner *signer.Signer
	fails int
	calls int
}

func (f *flakySigner) SignClaim(msg signer.ClaimMessage) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.fails
	f.mu.Unlock()
	if fail {
		return nil, errors.New("kms timeout")
	}
	return f.inner.SignClaim(msg)
}

func newTestSigner(t *testing.T) *signer.Signer {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	s, err := signer.New(key, 31337, testContract)
	require.NoError(t, err)
	return s
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func eligibleIdentity(twitterID string, now time.Time) domain.Identity {
	return domain.Identity{
		TwitterID:   twitterID,
		Handle:      "user" + twitterID,
		AccessToken: "user-token",
		Profile: domain.Profile{
			CreatedAt:      strPtr(now.AddDate(-1, 0, 0).Format(time.RFC3339)),
			FollowersCount: int64Ptr(100),
		},
	}
}
