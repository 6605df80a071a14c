package models

// LedgerModel is the auto-increment primary key every ledger table starts with.
type LedgerModel struct {
	ID uint `gorm:"primaryKey"`
}

// GetID returns the primary key.
func (m LedgerModel) GetID() uint {
	return m.ID
}

// All returns one value of every model, for drift checks.
func All() []any {
	return []any{&User{}, &Account{}, &Sale{}}
}
