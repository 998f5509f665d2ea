package model

import (
	"time"
)

// PlayerKey is the engine key pair bound to one signing address.
// Rows are insert-once: the first stored key for an address is authoritative.
type PlayerKey struct {
	Address    string `gorm:"primaryKey;size:42"` // lower-case 0x address
	SecretKey  string `gorm:"not null"`
	PublicKey  string `gorm:"not null"`
	PublicKeyX string `gorm:"not null"`
	PublicKeyY string `gorm:"not null"`
	CreatedAt  time.Time
}

func AllModels() []interface{} {
	return []interface{}{
		&PlayerKey{},
	}
}
