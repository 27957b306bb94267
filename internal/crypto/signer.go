package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Polygon mainnet CTF Exchange contract, the verifying contract for order
// signatures.
const ExchangeAddress = "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"

// Pre-computed keccak256 hashes of the canonical EIP-712 type strings.
var (
	// EIP712Domain(string name,string version,uint256 chainId)
	authDomainTypeHash = ethcrypto.Keccak256(
		[]byte("EIP712Domain(string name,string version,uint256 chainId)"),
	)

	// EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)
	exchangeDomainTypeHash = ethcrypto.Keccak256(
		[]byte("EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"),
	)

	// ClobAuth(address address,uint256 timestamp,uint256 nonce)
	clobAuthTypeHash = ethcrypto.Keccak256(
		[]byte("ClobAuth(address address,uint256 timestamp,uint256 nonce)"),
	)

	orderTypeHash = ethcrypto.Keccak256(
		[]byte("Order(uint256 salt,address maker,address signer,address taker,uint256 tokenId,uint256 makerAmount,uint256 takerAmount,uint256 expiration,uint256 nonce,uint256 feeRateBps,uint8 side,uint8 signatureType)"),
	)
)

// OrderPayload carries the 12 signed fields of a CLOB order. Addresses and
// uint256 values travel as strings to survive JSON round trips without
// precision loss.
type OrderPayload struct {
	Salt          string `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	Side          int    `json:"side"`          // 0 = BUY, 1 = SELL
	SignatureType int    `json:"signatureType"` // 0 = EOA, 1 = POLY_PROXY, 2 = POLY_GNOSIS_SAFE
}

// Signer produces the two EIP-712 signatures the CLOB requires: ClobAuth for
// deriving API credentials, and Order for placing orders. Domain separators
// are computed once at construction.
type Signer struct {
	key         *ecdsa.PrivateKey
	address     common.Address
	chainID     int
	authDomain  []byte
	orderDomain []byte
}

// NewSigner builds a Signer from a hex private key (0x prefix optional) and
// chain id (137 for Polygon mainnet).
func NewSigner(privateKeyHex string, chainID int) (*Signer, error) {
	pk, err := ethcrypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("crypto: parse private key: %w", err)
	}

	s := &Signer{
		key:     pk,
		address: ethcrypto.PubkeyToAddress(pk.PublicKey),
		chainID: chainID,
	}
	s.authDomain = authDomainSeparator("ClobAuthDomain", "1", chainID)
	s.orderDomain = exchangeDomainSeparator("Polymarket CTF Exchange", "1", chainID, common.HexToAddress(ExchangeAddress))
	return s, nil
}

// Address returns the EOA address derived from the private key.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignAuth signs the ClobAuth message used by /auth/derive-api-key and
// /auth/api-key. Returns a 0x-prefixed 65-byte hex signature.
func (s *Signer) SignAuth(timestamp, nonce int64) (string, error) {
	structHash := ethcrypto.Keccak256(concat(
		clobAuthTypeHash,
		common.LeftPadBytes(s.address.Bytes(), 32),
		uint256Bytes(big.NewInt(timestamp)),
		uint256Bytes(big.NewInt(nonce)),
	))
	return s.sign(typedDataDigest(s.authDomain, structHash))
}

// SignOrder signs an order payload against the CTF Exchange domain.
func (s *Signer) SignOrder(o OrderPayload) (string, error) {
	structHash, err := orderStructHash(o)
	if err != nil {
		return "", err
	}
	return s.sign(typedDataDigest(s.orderDomain, structHash))
}

func (s *Signer) sign(digest []byte) (string, error) {
	sig, err := ethcrypto.Sign(digest, s.key)
	if err != nil {
		return "", fmt.Errorf("crypto: sign digest: %w", err)
	}
	// go-ethereum yields v in {0,1}; the CLOB expects {27,28}.
	if sig[64] < 27 {
		sig[64] += 27
	}
	return "0x" + hex.EncodeToString(sig), nil
}

func authDomainSeparator(name, version string, chainID int) []byte {
	return ethcrypto.Keccak256(concat(
		authDomainTypeHash,
		ethcrypto.Keccak256([]byte(name)),
		ethcrypto.Keccak256([]byte(version)),
		uint256Bytes(big.NewInt(int64(chainID))),
	))
}

func exchangeDomainSeparator(name, version string, chainID int, verifying common.Address) []byte {
	return ethcrypto.Keccak256(concat(
		exchangeDomainTypeHash,
		ethcrypto.Keccak256([]byte(name)),
		ethcrypto.Keccak256([]byte(version)),
		uint256Bytes(big.NewInt(int64(chainID))),
		common.LeftPadBytes(verifying.Bytes(), 32),
	))
}

// typedDataDigest computes keccak256("\x19\x01" || domain || structHash).
func typedDataDigest(domainSep, structHash []byte) []byte {
	return ethcrypto.Keccak256(concat([]byte{0x19, 0x01}, domainSep, structHash))
}

func orderStructHash(o OrderPayload) ([]byte, error) {
	nums := make([]*big.Int, 0, 6)
	for _, f := range []struct {
		name, val string
	}{
		{"salt", o.Salt},
		{"tokenId", o.TokenID},
		{"makerAmount", o.MakerAmount},
		{"takerAmount", o.TakerAmount},
		{"expiration", o.Expiration},
		{"nonce", o.Nonce},
	} {
		n, ok := new(big.Int).SetString(f.val, 10)
		if !ok {
			return nil, fmt.Errorf("crypto: order field %s: invalid uint256 %q", f.name, f.val)
		}
		nums = append(nums, n)
	}
	feeRate, ok := new(big.Int).SetString(o.FeeRateBps, 10)
	if !ok {
		return nil, fmt.Errorf("crypto: order field feeRateBps: invalid uint256 %q", o.FeeRateBps)
	}

	return ethcrypto.Keccak256(concat(
		orderTypeHash,
		uint256Bytes(nums[0]),
		common.LeftPadBytes(common.HexToAddress(o.Maker).Bytes(), 32),
		common.LeftPadBytes(common.HexToAddress(o.Signer).Bytes(), 32),
		common.LeftPadBytes(common.HexToAddress(o.Taker).Bytes(), 32),
		uint256Bytes(nums[1]),
		uint256Bytes(nums[2]),
		uint256Bytes(nums[3]),
		uint256Bytes(nums[4]),
		uint256Bytes(nums[5]),
		uint256Bytes(feeRate),
		uint256Bytes(big.NewInt(int64(o.Side))),
		uint256Bytes(big.NewInt(int64(o.SignatureType))),
	)), nil
}

// uint256Bytes renders n as 32 big-endian bytes.
func uint256Bytes(n *big.Int) []byte {
	b := n.Bytes()
	if len(b) >= 32 {
		return b[:32]
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

func concat(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	buf := make([]byte, 0, n)
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return buf
}
