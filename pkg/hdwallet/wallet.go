// Package hdwallet 从助记词派生 EVM 签名私钥
package hdwallet

import (
	"crypto/ecdsa"
	"errors"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"
)

const CoinTypeETH = 60

var ErrInvalidMnemonic = errors.New("hdwallet: invalid mnemonic")

type HDWallet struct {
	masterKey *hdkeychain.ExtendedKey
}

// New 助记词 + 可选 passphrase 生成根私钥
func New(mnemonic, passphrase string) (*HDWallet, error) {
	if mnemonic == "" || !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	seed := bip39.NewSeed(mnemonic, passphrase)
	// EVM 派生与网络参数无关，MainNet 只决定序列化前缀
	masterKey, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, err
	}
	return &HDWallet{masterKey: masterKey}, nil
}

// DeriveKey 按 BIP44 m/44'/60'/0'/0/{index} 派生私钥
func (w *HDWallet) DeriveKey(index uint32) (*ecdsa.PrivateKey, error) {
	path := []uint32{
		44 + hdkeychain.HardenedKeyStart,
		CoinTypeETH + hdkeychain.HardenedKeyStart,
		0 + hdkeychain.HardenedKeyStart,
		0,
		index,
	}
	key := w.masterKey
	var err error
	for _, idx := range path {
		key, err = key.Derive(idx)
		if err != nil {
			return nil, err
		}
	}
	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, err
	}
	return priv.ToECDSA(), nil
}

// DeriveAddress 返回 index 对应的地址
func (w *HDWallet) DeriveAddress(index uint32) (common.Address, error) {
	key, err := w.DeriveKey(index)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}
