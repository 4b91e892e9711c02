package models

// EscrowWallet is a custodially generated keypair, one per requesting identity.
// The private key is stored encrypted and never leaves the vault in plaintext.
type EscrowWallet struct {
	// ID is the unique identifier for the escrow wallet.
	ID int64 `json:"id" gorm:"column:id;primaryKey;autoIncrement"`
	// Username is the social handle the wallet belongs to.
	Username string `json:"username" gorm:"column:username;unique;not null"`
	// Address is the wallet address, derived from the key at creation and immutable.
	Address string `json:"address" gorm:"column:address;unique;not null"`
	// EncryptedKey is the hex-encoded ciphertext of the private key.
	EncryptedKey string `json:"-" gorm:"column:encrypted_key;not null"`
	// Nonce is the hex-encoded cipher nonce used for EncryptedKey.
	Nonce string `json:"-" gorm:"column:nonce;not null"`
	// Algorithm tags the cipher the key was encrypted with.
	Algorithm string `json:"-" gorm:"column:algorithm;not null"`
	// CreatedAt is the unix time the wallet was generated.
	CreatedAt int64 `json:"created_at" gorm:"column:created_at"`
	// LastUsedAt is the unix time of the last signing operation.
	LastUsedAt int64 `json:"last_used_at" gorm:"column:last_used_at"`
	// FeesCollected is the cumulative amount claimed from this wallet, as a decimal string.
	FeesCollected string `json:"fees_collected" gorm:"column:fees_collected;default:0"`
}

// TableName specifies the table name for GORM
func (EscrowWallet) TableName() string {
	return "escrow_wallets"
}
