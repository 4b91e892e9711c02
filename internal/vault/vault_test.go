package vault

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/core-coin/go-core/v2/common"
	"github.com/core-coin/go-core/v2/core/types"
	"github.com/stretchr/testify/require"

	"github.com/coinlaunch/launchbot/internal/models"
	"github.com/coinlaunch/launchbot/internal/repository"
	"github.com/coinlaunch/launchbot/pkg/logger"
)

var testNetworkID = big.NewInt(1)

func init() {
	common.DefaultNetworkID = common.NetworkID(testNetworkID.Int64())
}

func newTestVault(t *testing.T, secret string) (*Vault, *repository.Memory) {
	t.Helper()
	repo := repository.NewMemory()
	v, err := NewVault(secret, testNetworkID, repo, logger.NewNop())
	require.NoError(t, err)
	return v, repo
}

func TestNewVaultRequiresSecret(t *testing.T) {
	_, err := NewVault("", testNetworkID, repository.NewMemory(), logger.NewNop())
	require.ErrorIs(t, err, models.ErrUnconfigured)
}

func TestGetOrCreateIsStable(t *testing.T) {
	v, _ := newTestVault(t, "test-secret")

	first, err := v.GetOrCreate("alice")
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := v.GetOrCreate("alice")
	require.NoError(t, err)
	require.Equal(t, first, second)

	other, err := v.GetOrCreate("bob")
	require.NoError(t, err)
	require.NotEqual(t, first, other)
}

func TestKeyMaterialIsEncryptedAtRest(t *testing.T) {
	v, repo := newTestVault(t, "test-secret")

	_, err := v.GetOrCreate("alice")
	require.NoError(t, err)

	wallet, err := repo.GetEscrowWallet("alice")
	require.NoError(t, err)
	require.Equal(t, "aes-256-gcm", wallet.Algorithm)
	require.NotEmpty(t, wallet.EncryptedKey)
	require.NotEmpty(t, wallet.Nonce)

	// The stored blob is ciphertext, not a marshalled private key.
	raw, err := hex.DecodeString(wallet.EncryptedKey)
	require.NoError(t, err)
	require.Greater(t, len(raw), 57) // GCM tag on top of the key bytes
}

func TestSignTxRoundTrip(t *testing.T) {
	v, _ := newTestVault(t, "test-secret")

	address, err := v.GetOrCreate("alice")
	require.NoError(t, err)

	tx := types.NewTransaction(0, common.Address{}, big.NewInt(1), 21000, big.NewInt(1), nil)
	signed, err := v.SignTx("alice", tx)
	require.NoError(t, err)

	sender, err := types.NewNucleusSigner(testNetworkID).Sender(signed)
	require.NoError(t, err)
	require.Equal(t, address, sender.Hex())
}

func TestSignTxUnknownIdentity(t *testing.T) {
	v, _ := newTestVault(t, "test-secret")

	tx := types.NewTransaction(0, common.Address{}, big.NewInt(1), 21000, big.NewInt(1), nil)
	_, err := v.SignTx("nobody", tx)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestSignTxWrongSecretIsScrubbed(t *testing.T) {
	v, repo := newTestVault(t, "test-secret")
	_, err := v.GetOrCreate("alice")
	require.NoError(t, err)

	// A vault keyed with a different secret cannot decrypt, and the error
	// must stay generic.
	wrong, err := NewVault("other-secret", testNetworkID, repo, logger.NewNop())
	require.NoError(t, err)

	tx := types.NewTransaction(0, common.Address{}, big.NewInt(1), 21000, big.NewInt(1), nil)
	_, err = wrong.SignTx("alice", tx)
	require.Error(t, err)
	require.Equal(t, "failed to decrypt escrow key material for alice", err.Error())
}

func TestSignTxUpdatesLastUsed(t *testing.T) {
	v, repo := newTestVault(t, "test-secret")
	_, err := v.GetOrCreate("alice")
	require.NoError(t, err)

	tx := types.NewTransaction(0, common.Address{}, big.NewInt(1), 21000, big.NewInt(1), nil)
	_, err = v.SignTx("alice", tx)
	require.NoError(t, err)

	wallet, err := repo.GetEscrowWallet("alice")
	require.NoError(t, err)
	require.NotZero(t, wallet.LastUsedAt)
}
