package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	core "github.com/core-coin/go-core/v2"
	"github.com/core-coin/go-core/v2/accounts/abi"
	"github.com/core-coin/go-core/v2/common"
	"github.com/core-coin/go-core/v2/core/types"
	"github.com/core-coin/go-core/v2/crypto"
	"github.com/core-coin/go-core/v2/xcbclient"

	"github.com/coinlaunch/launchbot/internal/config"
	"github.com/coinlaunch/launchbot/internal/models"
	"github.com/coinlaunch/launchbot/pkg/logger"
)

const (
	// rpcTimeout bounds every single RPC call
	rpcTimeout = 10 * time.Second
	// receiptPollInterval is how often WaitMined re-checks for a receipt
	receiptPollInterval = 2 * time.Second
	// transferEnergyLimit is the energy limit of a plain value transfer
	transferEnergyLimit = uint64(21000)
)

// Gocore is the live ChainService over a go-core JSON-RPC endpoint.
type Gocore struct {
	logger *logger.Logger
	config *config.Config
	apiURL string
	client *xcbclient.Client

	launchpad    common.Address
	launchpadABI abi.ABI
	networkID    *big.Int

	// fundingKey is nil when funding is not configured.
	fundingKey  *crypto.PrivateKey
	fundingAddr common.Address
	// fundingMu serializes funding-wallet sends to keep its nonce sequence intact.
	fundingMu sync.Mutex
}

// NewGocore creates a new Gocore instance. It fails with ErrUnconfigured when
// the RPC URL or the launchpad contract address is missing.
func NewGocore(cfg *config.Config, logger *logger.Logger) (*Gocore, error) {
	if cfg.ChainRPCURL == "" {
		return nil, fmt.Errorf("CHAIN_RPC_URL is missing: %w", models.ErrUnconfigured)
	}
	if cfg.LaunchpadAddress == "" {
		return nil, fmt.Errorf("LAUNCHPAD_ADDRESS is missing: %w", models.ErrUnconfigured)
	}
	return &Gocore{apiURL: cfg.ChainRPCURL, logger: logger, config: cfg, networkID: cfg.NetworkID}, nil
}

// Run connects to the RPC endpoint and prepares the contract bindings.
func (g *Gocore) Run() error {
	if err := g.ConnectToRPC(); err != nil {
		return fmt.Errorf("failed to connect to the core RPC server: %w", err)
	}
	if err := g.BuildBindings(); err != nil {
		return fmt.Errorf("failed to build bindings: %w", err)
	}
	if g.config.FundingPrivateKey != "" {
		key, err := crypto.UnmarshalPrivateKeyHex(g.config.FundingPrivateKey)
		if err != nil {
			return fmt.Errorf("failed to parse funding wallet key: %w", err)
		}
		g.fundingKey = key
		g.fundingAddr = crypto.PubkeyToAddress(key.PublicKey())
		g.logger.Info("Funding wallet configured ", "address ", g.fundingAddr.Hex())
	} else {
		g.logger.Warn("FUNDING_PRIVATE_KEY not set - escrow wallets cannot be funded")
	}
	return nil
}

func (g *Gocore) ConnectToRPC() error {
	client, err := xcbclient.Dial(g.apiURL)
	if err != nil {
		return fmt.Errorf("failed to connect to the core RPC server: %w", err)
	}
	g.client = client
	return nil
}

func (g *Gocore) BuildBindings() error {
	launchpad, err := common.HexToAddress(g.config.LaunchpadAddress)
	if err != nil {
		return fmt.Errorf("failed to parse launchpad contract address: %w", err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(LaunchpadABI))
	if err != nil {
		return fmt.Errorf("failed to parse launchpad ABI: %w", err)
	}

	g.launchpad = launchpad
	g.launchpadABI = parsedABI
	return nil
}

func (g *Gocore) Close() error {
	if g.client != nil {
		g.client.Close()
	}
	return nil
}

func (g *Gocore) NetworkID() *big.Int {
	return g.networkID
}

func (g *Gocore) BalanceAt(ctx context.Context, address string) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	addr, err := common.HexToAddress(address)
	if err != nil {
		return nil, fmt.Errorf("failed to parse address: %w", err)
	}
	balance, err := g.client.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

func (g *Gocore) EnergyPrice(ctx context.Context) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	price, err := g.client.SuggestEnergyPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get energy price: %w", err)
	}
	return price, nil
}

func (g *Gocore) EstimateCreate(ctx context.Context, from, name, symbol string, value *big.Int) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	fromAddr, err := common.HexToAddress(from)
	if err != nil {
		return 0, fmt.Errorf("failed to parse from address: %w", err)
	}
	data, err := g.launchpadABI.Pack("create", name, symbol)
	if err != nil {
		return 0, fmt.Errorf("failed to pack create call: %w", err)
	}

	estimate, err := g.client.EstimateEnergy(ctx, core.CallMsg{
		From:  fromAddr,
		To:    &g.launchpad,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to estimate create call: %w", err)
	}
	return estimate, nil
}

func (g *Gocore) PendingNonceAt(ctx context.Context, address string) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	addr, err := common.HexToAddress(address)
	if err != nil {
		return 0, fmt.Errorf("failed to parse address: %w", err)
	}
	nonce, err := g.client.PendingNonceAt(ctx, addr)
	if err != nil {
		return 0, fmt.Errorf("failed to get nonce: %w", err)
	}
	return nonce, nil
}

func (g *Gocore) BuildCreateTx(nonce uint64, value *big.Int, energyLimit uint64, energyPrice *big.Int, name, symbol string) (*types.Transaction, error) {
	data, err := g.launchpadABI.Pack("create", name, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to pack create call: %w", err)
	}
	return types.NewTransaction(nonce, g.launchpad, value, energyLimit, energyPrice, data), nil
}

func (g *Gocore) BuildTransferTx(nonce uint64, to string, value *big.Int, energyPrice *big.Int) (*types.Transaction, error) {
	toAddr, err := common.HexToAddress(to)
	if err != nil {
		return nil, fmt.Errorf("failed to parse destination address: %w", err)
	}
	return types.NewTransaction(nonce, toAddr, value, transferEnergyLimit, energyPrice, nil), nil
}

func (g *Gocore) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()

	if err := g.client.SendTransaction(ctx, tx); err != nil {
		return fmt.Errorf("failed to send transaction: %w", err)
	}
	return nil
}

// Fund sends the amount from the funding wallet to the address and waits for
// the transfer to confirm.
func (g *Gocore) Fund(ctx context.Context, to string, amount *big.Int) (string, error) {
	if g.fundingKey == nil {
		return "", fmt.Errorf("FUNDING_PRIVATE_KEY not configured: %w", models.ErrUnconfigured)
	}

	g.fundingMu.Lock()
	defer g.fundingMu.Unlock()

	price, err := g.EnergyPrice(ctx)
	if err != nil {
		return "", err
	}

	balance, err := g.BalanceAt(ctx, g.fundingAddr.Hex())
	if err != nil {
		return "", err
	}
	cost := new(big.Int).Mul(price, new(big.Int).SetUint64(transferEnergyLimit))
	required := new(big.Int).Add(amount, cost)
	if balance.Cmp(required) < 0 {
		return "", fmt.Errorf("funding wallet holds %s, needs %s: %w", balance, required, models.ErrInsufficientFunding)
	}

	nonce, err := g.PendingNonceAt(ctx, g.fundingAddr.Hex())
	if err != nil {
		return "", err
	}
	tx, err := g.BuildTransferTx(nonce, to, amount, price)
	if err != nil {
		return "", err
	}
	signed, err := types.SignTx(tx, types.NewNucleusSigner(g.networkID), g.fundingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign funding transaction: %w", err)
	}
	if err := g.SendTransaction(ctx, signed); err != nil {
		return "", err
	}

	hash := signed.Hash().Hex()
	g.logger.Info("Funding escrow wallet ", "to ", to, " amount ", amount.String(), " tx ", hash)
	if err := g.WaitMined(ctx, hash); err != nil {
		return hash, err
	}
	return hash, nil
}

// WaitMined blocks until the transaction is mined or ctx expires.
func (g *Gocore) WaitMined(ctx context.Context, txHash string) error {
	hash := common.HexToHash(txHash)
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := g.transactionReceipt(ctx, hash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return models.ErrOnChainRevert
			}
			return nil
		}
		if !errors.Is(err, core.NotFound) {
			g.logger.Debug("Receipt not yet available ", "tx ", txHash, " error ", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// CheckMint looks up the receipt of a create transaction.
func (g *Gocore) CheckMint(ctx context.Context, txHash string) (*models.CreatedToken, bool, error) {
	receipt, err := g.transactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		if errors.Is(err, core.NotFound) {
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("failed to get transaction receipt: %w", err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, false, models.ErrOnChainRevert
	}

	created, err := ParseTokenCreated(g.launchpadABI, g.launchpad, receipt)
	if err != nil {
		return nil, false, err
	}
	return created, false, nil
}

func (g *Gocore) transactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, rpcTimeout)
	defer cancel()
	return g.client.TransactionReceipt(ctx, hash)
}
