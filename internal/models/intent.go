package models

// IntentStatus is the lifecycle state of a launch intent.
type IntentStatus string

const (
	// StatusAwaitingMint is the initial state, set at ingestion.
	StatusAwaitingMint IntentStatus = "AWAITING_MINT"
	// StatusMinting means a poller instance has claimed the intent for minting.
	// Transient: must be re-verified against the chain after a crash.
	StatusMinting IntentStatus = "MINTING"
	// StatusMinted means the create transaction confirmed and the token address is recorded.
	StatusMinted IntentStatus = "MINTED"
	// StatusCommenting means a poller instance has claimed the intent for the confirmation reply.
	// Transient: must be re-verified against the social API after a crash.
	StatusCommenting IntentStatus = "COMMENTING"
	// StatusCommented is the terminal success state.
	StatusCommented IntentStatus = "COMMENTED"
	// StatusFailed is the terminal mint-stage failure state.
	StatusFailed IntentStatus = "FAILED"
	// StatusCommentFailed is the terminal comment-stage failure state.
	// The token exists on chain; only the reply was lost.
	StatusCommentFailed IntentStatus = "COMMENT_FAILED"
)

// Terminal reports whether no further automatic processing happens for the status.
func (s IntentStatus) Terminal() bool {
	return s == StatusCommented || s == StatusFailed || s == StatusCommentFailed
}

// Intent is one requested token launch and its processing state.
// Rows are never deleted; terminal states plus ProcessingError form the audit trail.
type Intent struct {
	// ID is the unique identifier for the intent.
	ID int64 `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	// PostID is the social post that requested the launch. One intent per post.
	PostID string `json:"post_id" gorm:"column:post_id;unique;not null"`
	// Name is the requested token name.
	Name string `json:"name" gorm:"column:name;not null"`
	// Symbol is the requested token symbol.
	Symbol string `json:"symbol" gorm:"column:symbol;not null"`
	// RequesterID is the social account id of the requesting user.
	RequesterID string `json:"requester_id" gorm:"column:requester_id;not null"`
	// RequesterUsername is the social handle of the requesting user,
	// and the key of the escrow wallet used to mint.
	RequesterUsername string `json:"requester_username" gorm:"column:requester_username;index;not null"`
	// Status is the lifecycle state. Mutated only through conditional transitions.
	Status IntentStatus `json:"status" gorm:"column:status;index;not null"`
	// TokenAddress is the minted token contract address. Empty until minted, then immutable.
	TokenAddress string `json:"token_address" gorm:"column:token_address"`
	// Creator is the on-chain creator recorded in the TokenCreated event (the escrow wallet).
	Creator string `json:"creator" gorm:"column:creator"`
	// EscrowWallet is the escrow wallet address used for the mint.
	EscrowWallet string `json:"escrow_wallet" gorm:"column:escrow_wallet"`
	// LogoURL is the source image attached to the post or the author's profile image.
	LogoURL string `json:"logo_url" gorm:"column:logo_url"`
	// PinnedLogoURL is the pinned copy of the logo. Empty when pinning failed; never blocks minting.
	PinnedLogoURL string `json:"pinned_logo_url" gorm:"column:pinned_logo_url"`
	// MintTxHash is the hash of the submitted create transaction.
	MintTxHash string `json:"mint_tx_hash" gorm:"column:mint_tx_hash"`
	// CommentPostID is the id of the published confirmation reply.
	CommentPostID string `json:"comment_post_id" gorm:"column:comment_post_id"`
	// ProcessingError is the last failure reason, kept for the audit trail.
	ProcessingError string `json:"processing_error" gorm:"column:processing_error"`
	// CreatedAt is the unix time the intent was ingested.
	CreatedAt int64 `json:"created_at" gorm:"column:created_at;index"`
	// MintedAt is the unix time the create transaction confirmed.
	MintedAt int64 `json:"minted_at" gorm:"column:minted_at"`
	// CommentedAt is the unix time the confirmation reply was published.
	CommentedAt int64 `json:"commented_at" gorm:"column:commented_at"`
}

// TableName specifies the table name for GORM
func (Intent) TableName() string {
	return "intents"
}
