package signer

import (
	"crypto/ecdsa"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"redpacket.com/pkg/hdwallet"
)

const (
	DomainName    = "RedPacket"
	DomainVersion = "1"
	primaryType   = "Claim"
)

var claimTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	primaryType: {
		{Name: "packetId", Type: "uint256"},
		{Name: "claimer", Type: "address"},
		{Name: "twitterUserId", Type: "string"},
		{Name: "nonce", Type: "uint256"},
	},
}

// ClaimMessage 合约 claim 校验的结构体
type ClaimMessage struct {
	PacketID      uint64
	Claimer       string
	TwitterUserID string
	Nonce         *big.Int
}

// Signer EIP-712 签名，域绑定 chainId 和合约地址，换链换合约都不能重放
type Signer struct {
	key      *ecdsa.PrivateKey
	address  common.Address
	chainID  int64
	contract common.Address
}

type KeySource struct {
	PrivateKey   string
	Mnemonic     string
	AccountIndex uint32
}

func New(key *ecdsa.PrivateKey, chainID int64, contract string) (*Signer, error) {
	if key == nil {
		return nil, errors.New("signer key is nil")
	}
	if !common.IsHexAddress(contract) {
		return nil, fmt.Errorf("invalid verifying contract %q", contract)
	}
	return &Signer{
		key:      key,
		address:  crypto.PubkeyToAddress(key.PublicKey),
		chainID:  chainID,
		contract: common.HexToAddress(contract),
	}, nil
}

// LoadKey 私钥优先，没有再用助记词派生
func LoadKey(src KeySource) (*ecdsa.PrivateKey, error) {
	if pk := strings.TrimPrefix(strings.TrimSpace(src.PrivateKey), "0x"); pk != "" {
		key, err := crypto.HexToECDSA(pk)
		if err != nil {
			return nil, fmt.Errorf("parse signer private key: %w", err)
		}
		return key, nil
	}
	if src.Mnemonic != "" {
		w, err := hdwallet.New(src.Mnemonic, "")
		if err != nil {
			return nil, err
		}
		return w.DeriveKey(src.AccountIndex)
	}
	return nil, errors.New("signer key not configured")
}

func (s *Signer) Address() common.Address { return s.address }

// Hash EIP-712 digest
func (s *Signer) Hash(msg ClaimMessage) ([]byte, error) {
	if msg.Nonce == nil {
		return nil, errors.New("nonce is required")
	}
	if !common.IsHexAddress(msg.Claimer) {
		return nil, fmt.Errorf("invalid claimer address %q", msg.Claimer)
	}
	typed := apitypes.TypedData{
		Types:       claimTypes,
		PrimaryType: primaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              DomainName,
			Version:           DomainVersion,
			ChainId:           math.NewHexOrDecimal256(s.chainID),
			VerifyingContract: s.contract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"packetId":      new(big.Int).SetUint64(msg.PacketID),
			"claimer":       common.HexToAddress(msg.Claimer).Hex(),
			"twitterUserId": msg.TwitterUserID,
			"nonce":         new(big.Int).Set(msg.Nonce),
		},
	}
	hash, _, err := apitypes.TypedDataAndHash(typed)
	if err != nil {
		return nil, fmt.Errorf("hash typed data: %w", err)
	}
	return hash, nil
}

// SignClaim 返回 65 字节签名，v 为 27/28
func (s *Signer) SignClaim(msg ClaimMessage) ([]byte, error) {
	hash, err := s.Hash(msg)
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(hash, s.key)
	if err != nil {
		return nil, fmt.Errorf("sign claim: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// Recover 从签名恢复签名者地址
func (s *Signer) Recover(msg ClaimMessage, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, errors.New("invalid signature length")
	}
	hash, err := s.Hash(msg)
	if err != nil {
		return common.Address{}, err
	}
	cp := make([]byte, len(sig))
	copy(cp, sig)
	if cp[crypto.RecoveryIDOffset] >= 27 {
		cp[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(hash, cp)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// NewNonce 256 位随机数
func NewNonce() (*big.Int, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}
