// Package models contains GORM persistence models for tables whose schema is
// owned by the migration ledger. They are separate from domain entities to keep
// the domain layer free of ORM concerns, and `migrate check` compares them
// against the ledger so a model can never silently drift from its table.
//
// Structure:
// - base.go: the auto-increment key shared by every ledger table
// - auth.go: auth app (User)
// - books.go: books app (Account, Sale) and their domain mappers
package models
