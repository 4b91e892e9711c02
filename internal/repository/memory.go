package repository

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/coinlaunch/launchbot/internal/models"
	"github.com/shopspring/decimal"
)

// Memory is an in-memory Repository with the same conditional-transition
// semantics as the postgres implementation. It backs tests and mock mode.
type Memory struct {
	mu sync.Mutex

	nextID      int64
	intents     map[int64]*models.Intent
	wallets     map[string]*models.EscrowWallet
	credentials map[string]*models.OAuthCredential
	cursors     map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		nextID:      1,
		intents:     make(map[int64]*models.Intent),
		wallets:     make(map[string]*models.EscrowWallet),
		credentials: make(map[string]*models.OAuthCredential),
		cursors:     make(map[string]string),
	}
}

func (m *Memory) CreateIntent(intent *models.Intent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.intents {
		if existing.PostID == intent.PostID {
			return models.ErrDuplicatePost
		}
		if existing.Status != models.StatusFailed {
			if existing.Name == intent.Name {
				return models.ErrDuplicateName
			}
			if existing.Symbol == intent.Symbol {
				return models.ErrDuplicateSymbol
			}
		}
	}

	intent.ID = m.nextID
	m.nextID++
	if intent.CreatedAt == 0 {
		intent.CreatedAt = time.Now().Unix()
	}
	stored := *intent
	m.intents[stored.ID] = &stored
	return nil
}

func (m *Memory) GetIntent(id int64) (*models.Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	intent, ok := m.intents[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *intent
	return &copied, nil
}

func (m *Memory) IntentsByStatus(status models.IntentStatus, limit int) ([]*models.Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var intents []*models.Intent
	for _, intent := range m.intents {
		if intent.Status == status {
			copied := *intent
			intents = append(intents, &copied)
		}
	}
	sortOldestFirst(intents)
	if limit > 0 && len(intents) > limit {
		intents = intents[:limit]
	}
	return intents, nil
}

func (m *Memory) IntentsByRequester(username string, status models.IntentStatus) ([]*models.Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var intents []*models.Intent
	for _, intent := range m.intents {
		if intent.RequesterUsername == username && intent.Status == status {
			copied := *intent
			intents = append(intents, &copied)
		}
	}
	sortOldestFirst(intents)
	return intents, nil
}

func (m *Memory) TransitionIntent(id int64, from, to models.IntentStatus, patch map[string]interface{}) (*models.Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	intent, ok := m.intents[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if intent.Status != from {
		return nil, models.ErrStaleState
	}

	intent.Status = to
	applyPatch(intent, patch)
	copied := *intent
	return &copied, nil
}

func (m *Memory) RecordIntentFailure(id int64, status models.IntentStatus, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	intent, ok := m.intents[id]
	if !ok {
		return models.ErrNotFound
	}
	intent.Status = status
	intent.ProcessingError = reason
	return nil
}

func (m *Memory) GetEscrowWallet(username string) (*models.EscrowWallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wallet, ok := m.wallets[username]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *wallet
	return &copied, nil
}

func (m *Memory) AddEscrowWallet(wallet *models.EscrowWallet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.wallets[wallet.Username]; ok {
		return fmt.Errorf("escrow wallet already exists for %s", wallet.Username)
	}
	wallet.ID = m.nextID
	m.nextID++
	if wallet.FeesCollected == "" {
		wallet.FeesCollected = "0"
	}
	stored := *wallet
	m.wallets[stored.Username] = &stored
	return nil
}

func (m *Memory) TouchEscrowWallet(username string, lastUsedAt int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wallet, ok := m.wallets[username]
	if !ok {
		return models.ErrNotFound
	}
	wallet.LastUsedAt = lastUsedAt
	return nil
}

func (m *Memory) AddEscrowFees(username string, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	wallet, ok := m.wallets[username]
	if !ok {
		return models.ErrNotFound
	}
	total, err := decimal.NewFromString(wallet.FeesCollected)
	if err != nil {
		total = decimal.Zero
	}
	wallet.FeesCollected = total.Add(amount).String()
	return nil
}

func (m *Memory) GetOAuthCredential(service string) (*models.OAuthCredential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	credential, ok := m.credentials[service]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *credential
	return &copied, nil
}

func (m *Memory) SaveOAuthCredential(credential *models.OAuthCredential) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *credential
	m.credentials[stored.Service] = &stored
	return nil
}

func (m *Memory) GetCursor(name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursors[name], nil
}

func (m *Memory) SetCursor(name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursors[name] = value
	return nil
}

func sortOldestFirst(intents []*models.Intent) {
	sort.Slice(intents, func(i, j int) bool {
		if intents[i].CreatedAt != intents[j].CreatedAt {
			return intents[i].CreatedAt < intents[j].CreatedAt
		}
		return intents[i].ID < intents[j].ID
	})
}

func applyPatch(intent *models.Intent, patch map[string]interface{}) {
	for key, value := range patch {
		switch key {
		case "token_address":
			intent.TokenAddress = value.(string)
		case "creator":
			intent.Creator = value.(string)
		case "escrow_wallet":
			intent.EscrowWallet = value.(string)
		case "pinned_logo_url":
			intent.PinnedLogoURL = value.(string)
		case "mint_tx_hash":
			intent.MintTxHash = value.(string)
		case "comment_post_id":
			intent.CommentPostID = value.(string)
		case "processing_error":
			intent.ProcessingError = value.(string)
		case "minted_at":
			intent.MintedAt = value.(int64)
		case "commented_at":
			intent.CommentedAt = value.(int64)
		}
	}
}
