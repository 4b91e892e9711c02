package blockchain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/core-coin/go-core/v2/common"
	"github.com/core-coin/go-core/v2/core/types"

	"github.com/coinlaunch/launchbot/internal/models"
	"github.com/coinlaunch/launchbot/pkg/logger"
)

// Mock is a deterministic ChainService used in mock mode and in tests.
// No network calls are made; balances and receipts live in memory.
type Mock struct {
	logger    *logger.Logger
	networkID *big.Int

	mu       sync.Mutex
	balances map[string]*big.Int
	nonces   map[string]uint64
	// minted records submitted create transactions by hash.
	minted    map[string]*models.CreatedToken
	pending   map[string]bool
	fundCount int

	estimate uint64
	price    *big.Int

	// revertNext and omitEventNext make the next confirmed create fail,
	// for exercising the authoritative-failure paths.
	revertNext    bool
	omitEventNext bool
}

func NewMock(networkID *big.Int, logger *logger.Logger) *Mock {
	return &Mock{
		logger:    logger,
		networkID: networkID,
		balances:  make(map[string]*big.Int),
		nonces:    make(map[string]uint64),
		minted:    make(map[string]*models.CreatedToken),
		pending:   make(map[string]bool),
		estimate:  300000,
		price:     big.NewInt(1000000000),
	}
}

func (m *Mock) NetworkID() *big.Int {
	return m.networkID
}

// SetBalance seeds an address balance.
func (m *Mock) SetBalance(address string, amount *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[address] = new(big.Int).Set(amount)
}

// RevertNextCreate makes the next submitted create confirm as reverted.
func (m *Mock) RevertNextCreate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revertNext = true
}

// OmitEventNextCreate makes the next submitted create confirm without a TokenCreated event.
func (m *Mock) OmitEventNextCreate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.omitEventNext = true
}

// FundCount returns how many funding transfers were performed.
func (m *Mock) FundCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fundCount
}

func (m *Mock) BalanceAt(_ context.Context, address string) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if balance, ok := m.balances[address]; ok {
		return new(big.Int).Set(balance), nil
	}
	return big.NewInt(0), nil
}

func (m *Mock) EnergyPrice(context.Context) (*big.Int, error) {
	return new(big.Int).Set(m.price), nil
}

func (m *Mock) EstimateCreate(context.Context, string, string, string, *big.Int) (uint64, error) {
	return m.estimate, nil
}

func (m *Mock) PendingNonceAt(_ context.Context, address string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nonces[address], nil
}

func (m *Mock) BuildCreateTx(nonce uint64, value *big.Int, energyLimit uint64, energyPrice *big.Int, name, symbol string) (*types.Transaction, error) {
	return types.NewTransaction(nonce, common.Address{}, value, energyLimit, energyPrice, []byte(name+"|"+symbol)), nil
}

func (m *Mock) BuildTransferTx(nonce uint64, to string, value *big.Int, energyPrice *big.Int) (*types.Transaction, error) {
	toAddr, err := common.HexToAddress(to)
	if err != nil {
		return nil, fmt.Errorf("failed to parse destination address: %w", err)
	}
	return types.NewTransaction(nonce, toAddr, value, transferEnergyLimit, energyPrice, nil), nil
}

func (m *Mock) SendTransaction(_ context.Context, tx *types.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	signer := types.NewNucleusSigner(m.networkID)
	sender, err := signer.Sender(tx)
	if err != nil {
		return fmt.Errorf("failed to recover sender: %w", err)
	}
	m.nonces[sender.Hex()] = tx.Nonce() + 1

	hash := tx.Hash().Hex()
	if len(tx.Data()) > 0 {
		// A create call: fabricate the minted token from the tx hash.
		m.minted[hash] = &models.CreatedToken{
			TokenAddress: common.BytesToAddress(tx.Hash().Bytes()).Hex(),
			Creator:      sender.Hex(),
		}
	}
	m.logger.Debug("MOCK: transaction accepted ", "tx ", hash)
	return nil
}

func (m *Mock) Fund(_ context.Context, to string, amount *big.Int) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	balance, ok := m.balances[to]
	if !ok {
		balance = big.NewInt(0)
	}
	m.balances[to] = new(big.Int).Add(balance, amount)
	m.fundCount++
	m.logger.Debug("MOCK: funded wallet ", "to ", to, " amount ", amount.String())
	return fmt.Sprintf("0xf%063d", m.fundCount), nil
}

func (m *Mock) WaitMined(context.Context, string) error {
	return nil
}

func (m *Mock) CheckMint(_ context.Context, txHash string) (*models.CreatedToken, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pending[txHash] {
		return nil, true, nil
	}
	if m.revertNext {
		m.revertNext = false
		return nil, false, models.ErrOnChainRevert
	}
	if m.omitEventNext {
		m.omitEventNext = false
		return nil, false, models.ErrEventNotFound
	}
	created, ok := m.minted[txHash]
	if !ok {
		return nil, true, nil
	}
	return created, false, nil
}
