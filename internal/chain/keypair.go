package chain

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/blake2b"
)

// ed25519 signature scheme flag in Sui serialized keys and signatures
const ed25519Flag byte = 0x00

// intent prefix for TransactionData: scope, version, app id
var transactionIntent = []byte{0, 0, 0}

var ErrInvalidKey = errors.New("invalid ed25519 private key")

// Keypair is an ed25519 Sui account key
type Keypair struct {
	priv    ed25519.PrivateKey
	address string
}

// ParseKeypair accepts a base64 key (flag||seed or bare seed, as exported by
// the Sui keystore) or a hex-encoded 32-byte seed.
func ParseKeypair(raw string) (*Keypair, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidKey)
	}

	var seed []byte
	if b, err := hexutil.Decode(ensure0x(raw)); err == nil && len(b) == ed25519.SeedSize {
		seed = b
	} else if b, err := base64.StdEncoding.DecodeString(raw); err == nil {
		switch {
		case len(b) == ed25519.SeedSize+1 && b[0] == ed25519Flag:
			seed = b[1:]
		case len(b) == ed25519.SeedSize:
			seed = b
		default:
			return nil, fmt.Errorf("%w: %d decoded bytes", ErrInvalidKey, len(b))
		}
	} else {
		return nil, fmt.Errorf("%w: neither hex nor base64", ErrInvalidKey)
	}

	return NewKeypair(seed), nil
}

// NewKeypair derives a keypair from a 32-byte seed
func NewKeypair(seed []byte) *Keypair {
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)

	h := blake2b.Sum256(append([]byte{ed25519Flag}, pub...))
	return &Keypair{priv: priv, address: hexutil.Encode(h[:])}
}

// Address is the 0x-prefixed Sui address of the key
func (k *Keypair) Address() string { return k.address }

// PublicKey returns the raw ed25519 public key
func (k *Keypair) PublicKey() ed25519.PublicKey {
	return k.priv.Public().(ed25519.PublicKey)
}

// SignTransaction signs BCS transaction bytes and returns the base64
// serialized signature: flag || signature || public key.
func (k *Keypair) SignTransaction(txBytes []byte) string {
	digest := TransactionDigest(txBytes)
	sig := ed25519.Sign(k.priv, digest[:])

	out := make([]byte, 0, 1+ed25519.SignatureSize+ed25519.PublicKeySize)
	out = append(out, ed25519Flag)
	out = append(out, sig...)
	out = append(out, k.PublicKey()...)
	return base64.StdEncoding.EncodeToString(out)
}

// TransactionDigest is the blake2b-256 hash a transaction signature covers
func TransactionDigest(txBytes []byte) [32]byte {
	msg := make([]byte, 0, len(transactionIntent)+len(txBytes))
	msg = append(msg, transactionIntent...)
	msg = append(msg, txBytes...)
	return blake2b.Sum256(msg)
}

func ensure0x(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return "0x" + s[2:]
	}
	return "0x" + s
}
