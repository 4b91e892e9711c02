package blockchain

import (
	"github.com/core-coin/go-core/v2/accounts/abi"
	"github.com/core-coin/go-core/v2/common"
	"github.com/core-coin/go-core/v2/core/types"

	"github.com/coinlaunch/launchbot/internal/models"
)

// LaunchpadABI is the ABI of the launchpad (bonding curve manager) contract.
// Only create and the emitted events are used here; the trading events are
// consumed by the indexer.
const LaunchpadABI = `[{"inputs":[{"internalType":"string","name":"name","type":"string"},{"internalType":"string","name":"symbol","type":"string"}],"name":"create","outputs":[],"stateMutability":"payable","type":"function"},{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"tokenAddress","type":"address"},{"indexed":true,"internalType":"address","name":"creator","type":"address"},{"indexed":false,"internalType":"string","name":"name","type":"string"},{"indexed":false,"internalType":"string","name":"symbol","type":"string"}],"name":"TokenCreated","type":"event"},{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"tokenAddress","type":"address"},{"indexed":true,"internalType":"address","name":"buyer","type":"address"},{"indexed":false,"internalType":"uint256","name":"amount","type":"uint256"},{"indexed":false,"internalType":"uint256","name":"cost","type":"uint256"}],"name":"TokensBought","type":"event"},{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"tokenAddress","type":"address"},{"indexed":true,"internalType":"address","name":"seller","type":"address"},{"indexed":false,"internalType":"uint256","name":"amount","type":"uint256"},{"indexed":false,"internalType":"uint256","name":"proceeds","type":"uint256"}],"name":"TokensSold","type":"event"},{"anonymous":false,"inputs":[{"indexed":true,"internalType":"address","name":"tokenAddress","type":"address"},{"indexed":false,"internalType":"uint256","name":"tokenAmount","type":"uint256"},{"indexed":false,"internalType":"uint256","name":"coreAmount","type":"uint256"}],"name":"LiquidityAdded","type":"event"}]`

// ParseTokenCreated extracts the created token and creator addresses from the
// TokenCreated event log of a confirmed create receipt. Both addresses are
// indexed, so they come straight out of the topics.
func ParseTokenCreated(launchpadABI abi.ABI, launchpad common.Address, receipt *types.Receipt) (*models.CreatedToken, error) {
	eventID := launchpadABI.Events["TokenCreated"].ID

	for _, log := range receipt.Logs {
		if log.Address != launchpad {
			continue
		}
		if len(log.Topics) < 3 || log.Topics[0] != eventID {
			continue
		}
		return &models.CreatedToken{
			TokenAddress: common.BytesToAddress(log.Topics[1].Bytes()).Hex(),
			Creator:      common.BytesToAddress(log.Topics[2].Bytes()).Hex(),
		}, nil
	}

	return nil, models.ErrEventNotFound
}
