// Package vault implements the custodial escrow key store. Keys are generated
// per requesting identity, encrypted with AES-256-GCM under a process-wide
// secret and only ever decrypted inside SignTx. Error paths are scrubbed: no
// key material reaches logs or persisted failure reasons.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/core-coin/go-core/v2/core/types"
	"github.com/core-coin/go-core/v2/crypto"
	"golang.org/x/crypto/sha3"

	"github.com/coinlaunch/launchbot/internal/models"
	"github.com/coinlaunch/launchbot/pkg/logger"
)

// algorithm tags the cipher used for key material at rest.
const algorithm = "aes-256-gcm"

type Vault struct {
	logger *logger.Logger
	repo   models.Repository

	// cipherKey is derived from the vault secret and never persisted.
	cipherKey [32]byte
	networkID *big.Int

	// locks serializes signing per identity so two concurrent mints cannot
	// race on the same wallet nonce.
	locks sync.Map
}

// NewVault derives the symmetric key from the secret and returns the vault.
// An empty secret is a configuration error: custody must not run unkeyed.
func NewVault(secret string, networkID *big.Int, repo models.Repository, logger *logger.Logger) (*Vault, error) {
	if secret == "" {
		return nil, fmt.Errorf("vault secret is required: %w", models.ErrUnconfigured)
	}
	return &Vault{
		logger:    logger,
		repo:      repo,
		cipherKey: sha3.Sum256([]byte(secret)),
		networkID: networkID,
	}, nil
}

// GetOrCreate returns the escrow wallet address for the identity, generating
// and persisting a new encrypted keypair on first use. Idempotent.
func (v *Vault) GetOrCreate(username string) (string, error) {
	wallet, err := v.repo.GetEscrowWallet(username)
	if err == nil {
		return wallet.Address, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return "", err
	}

	key, err := crypto.GenerateKey(rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to generate escrow key: %w", err)
	}
	address := crypto.PubkeyToAddress(key.PublicKey())

	ciphertext, nonce, err := v.encrypt(hex.EncodeToString(crypto.MarshalPrivateKey(key)))
	if err != nil {
		return "", err
	}

	wallet = &models.EscrowWallet{
		Username:      username,
		Address:       address.Hex(),
		EncryptedKey:  ciphertext,
		Nonce:         nonce,
		Algorithm:     algorithm,
		CreatedAt:     time.Now().Unix(),
		FeesCollected: "0",
	}
	if err := v.repo.AddEscrowWallet(wallet); err != nil {
		// A concurrent caller may have created the wallet first; the stored
		// row wins so the address stays stable.
		if existing, getErr := v.repo.GetEscrowWallet(username); getErr == nil {
			return existing.Address, nil
		}
		return "", err
	}

	v.logger.Info("Generated new escrow wallet ", "username ", username, " address ", wallet.Address)
	return wallet.Address, nil
}

// Address returns the escrow wallet address for the identity, or ErrNotFound.
func (v *Vault) Address(username string) (string, error) {
	wallet, err := v.repo.GetEscrowWallet(username)
	if err != nil {
		return "", err
	}
	return wallet.Address, nil
}

// SignTx signs the transaction with the identity's escrow key and updates the
// wallet's last-used timestamp.
func (v *Vault) SignTx(username string, tx *types.Transaction) (*types.Transaction, error) {
	lock := v.lockFor(username)
	lock.Lock()
	defer lock.Unlock()

	wallet, err := v.repo.GetEscrowWallet(username)
	if err != nil {
		return nil, err
	}
	if wallet.Algorithm != algorithm {
		return nil, fmt.Errorf("escrow key for %s uses unsupported cipher %q", username, wallet.Algorithm)
	}

	keyHex, err := v.decrypt(wallet.EncryptedKey, wallet.Nonce)
	if err != nil {
		// Deliberately generic: the underlying error must not surface.
		return nil, fmt.Errorf("failed to decrypt escrow key material for %s", username)
	}

	key, err := crypto.UnmarshalPrivateKeyHex(keyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to load escrow key material for %s", username)
	}

	signed, err := types.SignTx(tx, types.NewNucleusSigner(v.networkID), key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := v.repo.TouchEscrowWallet(username, time.Now().Unix()); err != nil {
		v.logger.Error("Failed to update escrow wallet last-used time ", "error ", err)
	}

	return signed, nil
}

func (v *Vault) lockFor(username string) *sync.Mutex {
	lock, _ := v.locks.LoadOrStore(username, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// encrypt seals the plaintext and returns hex-encoded ciphertext and nonce.
func (v *Vault) encrypt(plaintext string) (string, string, error) {
	block, err := aes.NewCipher(v.cipherKey[:])
	if err != nil {
		return "", "", fmt.Errorf("failed to initialize cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", "", fmt.Errorf("failed to initialize cipher: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(sealed), hex.EncodeToString(nonce), nil
}

func (v *Vault) decrypt(ciphertextHex, nonceHex string) (string, error) {
	ciphertext, err := hex.DecodeString(ciphertextHex)
	if err != nil {
		return "", err
	}
	nonce, err := hex.DecodeString(nonceHex)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(v.cipherKey[:])
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
