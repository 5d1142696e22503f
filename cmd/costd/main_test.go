package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/costing-engine/internal/config"
	"github.com/Spok95/costing-engine/internal/domain/containers"
)

func TestOpenLedgerStore(t *testing.T) {
	var cfg config.Config

	cfg.Ledger.Driver = config.DriverMemory
	s, closeFn, err := openLedgerStore(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &containers.MemoryStore{}, s)
	require.NoError(t, closeFn())

	cfg.Ledger.Driver = config.DriverSQLite
	cfg.Ledger.SQLitePath = filepath.Join(t.TempDir(), "nested", "ledger.db")
	s, closeFn, err = openLedgerStore(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &containers.SQLiteStore{}, s)
	require.NoError(t, closeFn())

	cfg.Ledger.Driver = config.DriverPostgres
	_, _, err = openLedgerStore(cfg, nil)
	require.Error(t, err)

	cfg.Ledger.Driver = "etcd"
	_, _, err = openLedgerStore(cfg, nil)
	require.Error(t, err)
}
