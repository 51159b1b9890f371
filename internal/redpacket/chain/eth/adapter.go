package eth

import (
	"context"
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
	"redpacket.com/internal/redpacket/domain"
	"redpacket.com/pkg/logger"
	"redpacket.com/pkg/xerr"
)

// Backend ethclient.Client 的子集，测试里换成内存实现
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

type Adapter struct {
	backend  Backend
	codec    *Codec
	contract common.Address
	closeFn  func()
}

// 确保实现接口
var _ domain.ChainReader = (*Adapter)(nil)

func Dial(rpcURL, contract string) (*Adapter, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, err
	}
	a, err := NewWithBackend(client, contract)
	if err != nil {
		client.Close()
		return nil, err
	}
	a.closeFn = client.Close
	return a, nil
}

func NewWithBackend(backend Backend, contract string) (*Adapter, error) {
	if !common.IsHexAddress(contract) {
		return nil, errors.New("invalid red packet contract address")
	}
	codec, err := NewCodec()
	if err != nil {
		return nil, err
	}
	return &Adapter{
		backend:  backend,
		codec:    codec,
		contract: common.HexToAddress(contract),
	}, nil
}

func (a *Adapter) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func (a *Adapter) Codec() *Codec { return a.codec }

// GetPacket 读合约 packets(id)，RPC 错误不重试，直接报 503
func (a *Adapter) GetPacket(ctx context.Context, packetID uint64) (*domain.PacketState, error) {
	data, err := a.codec.packPackets(packetID)
	if err != nil {
		return nil, xerr.Wrap(err, xerr.ServerCommonError, "pack packets call failed")
	}
	out, err := a.backend.CallContract(ctx, ethereum.CallMsg{To: &a.contract, Data: data}, nil)
	if err != nil {
		return nil, xerr.Wrap(err, xerr.UpstreamUnavailable, "failed to read packet")
	}
	state, ok := a.codec.unpackPackets(packetID, out)
	if !ok {
		return nil, xerr.New(xerr.UpstreamUnavailable, "unexpected packets() response")
	}
	if !state.Exists() {
		return nil, xerr.New(xerr.RecordNotFound, "packet not found")
	}
	return state, nil
}

// GetSettlement 交易目标地址取自交易本身，状态和日志取自回执
func (a *Adapter) GetSettlement(ctx context.Context, txHash string) (*domain.Settlement, error) {
	hash := common.HexToHash(txHash)

	receipt, err := a.backend.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, xerr.New(xerr.RecordNotFound, "transaction not found")
		}
		return nil, xerr.Wrap(err, xerr.UpstreamUnavailable, "failed to fetch receipt")
	}
	tx, _, err := a.backend.TransactionByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, xerr.New(xerr.RecordNotFound, "transaction not found")
		}
		return nil, xerr.Wrap(err, xerr.UpstreamUnavailable, "failed to fetch transaction")
	}

	s := &domain.Settlement{
		TxHash:    hash.Hex(),
		Succeeded: receipt.Status == types.ReceiptStatusSuccessful,
	}
	if to := tx.To(); to != nil {
		s.To = strings.ToLower(to.Hex())
	}
	for _, lg := range receipt.Logs {
		if lg == nil || lg.Address != a.contract {
			continue
		}
		if ev, ok := a.codec.DecodeClaimed(*lg); ok {
			a.attachTwitterID(ev, tx)
			s.Claimed = append(s.Claimed, *ev)
			continue
		}
		if ev, ok := a.codec.DecodeCreated(*lg); ok {
			s.Created = append(s.Created, *ev)
		}
	}
	return s, nil
}

func (a *Adapter) LatestBlock(ctx context.Context) (uint64, error) {
	n, err := a.backend.BlockNumber(ctx)
	if err != nil {
		return 0, xerr.Wrap(err, xerr.UpstreamUnavailable, "failed to fetch block number")
	}
	return n, nil
}

// FetchClaimed 扫 [from, to] 区间合约的 PacketClaimed 日志
func (a *Adapter) FetchClaimed(ctx context.Context, from, to uint64) ([]domain.ClaimedEvent, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{a.contract},
		Topics:    [][]common.Hash{{a.codec.ClaimedTopic()}},
	}
	logs, err := a.backend.FilterLogs(ctx, query)
	if err != nil {
		return nil, xerr.Wrap(err, xerr.UpstreamUnavailable, "failed to filter logs")
	}
	events := make([]domain.ClaimedEvent, 0, len(logs))
	txs := make(map[common.Hash]*types.Transaction)
	for _, lg := range logs {
		ev, ok := a.codec.DecodeClaimed(lg)
		if !ok {
			logger.Warn(ctx, "skip undecodable claim log",
				zap.String("tx", lg.TxHash.Hex()),
				zap.Uint("index", lg.Index))
			continue
		}
		tx, seen := txs[lg.TxHash]
		if !seen {
			tx, err = a.claimTx(ctx, lg.TxHash)
			if err != nil {
				return nil, err
			}
			txs[lg.TxHash] = tx
		}
		a.attachTwitterID(ev, tx)
		events = append(events, *ev)
	}
	return events, nil
}

// claimTx 交易查不到时返回 nil，事件照常返回，只是没有 twitter id
func (a *Adapter) claimTx(ctx context.Context, hash common.Hash) (*types.Transaction, error) {
	tx, _, err := a.backend.TransactionByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			logger.Warn(ctx, "claim transaction not found", zap.String("tx", hash.Hex()))
			return nil, nil
		}
		return nil, xerr.Wrap(err, xerr.UpstreamUnavailable, "failed to fetch transaction")
	}
	return tx, nil
}

// attachTwitterID 只有直接调用本合约 claim 且 packetId 对得上时才填
func (a *Adapter) attachTwitterID(ev *domain.ClaimedEvent, tx *types.Transaction) {
	if tx == nil || tx.To() == nil || *tx.To() != a.contract {
		return
	}
	call, ok := a.codec.DecodeClaimCall(tx.Data())
	if !ok || call.PacketID != ev.PacketID {
		return
	}
	ev.TwitterUserID = call.TwitterUserID
}
