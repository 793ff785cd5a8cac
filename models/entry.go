// models/entry.go
package models

import "time"

// Entry is one quest participant, keyed by wallet address and email.
// Only EasterEggSolved ever changes after creation, and only false → true.
type Entry struct {
	ID                string    `gorm:"primaryKey;type:uuid" bson:"_id" json:"id"`
	Email             string    `gorm:"type:varchar(320);not null;uniqueIndex:idx_entries_email" bson:"email" json:"email"`
	WalletAddress     string    `gorm:"type:varchar(128);not null;uniqueIndex:idx_entries_wallet_address" bson:"walletAddress" json:"walletAddress"`
	EasterEggUnlocked bool      `gorm:"not null" bson:"easterEggUnlocked" json:"easterEggUnlocked"`
	EasterEggSolved   bool      `gorm:"not null;index" bson:"easterEggSolved" json:"easterEggSolved"`
	CreatedAt         time.Time `gorm:"not null" bson:"createdAt" json:"createdAt"`
}
