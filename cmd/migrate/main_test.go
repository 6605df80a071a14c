package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xerocraft/backend/internal/domain/ledger"
)

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitLedgerError, exitCode(fmt.Errorf("down books 0009_missing: %w", ledger.ErrNodeNotFound)))
	assert.Equal(t, exitLedgerError, exitCode(ledger.ErrIrreversible))
	assert.Equal(t, exitFailure, exitCode(errors.New("dial tcp 127.0.0.1:5432: connection refused")))
}

func TestExitCode_UnknownMigration(t *testing.T) {
	_, err := run(t, sqliteConfig(t), "up", "books", "0999_missing")
	assert.Error(t, err)
	assert.Equal(t, exitLedgerError, exitCode(err))
}
