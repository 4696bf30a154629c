package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"washika-dao/config"
	"washika-dao/db"
	"washika-dao/models"
)

func testConfig(path string) *config.Config {
	params := models.DefaultParams()
	return &config.Config{
		LevelDB: config.LevelDBConfig{Path: path},
		Governance: config.GovernanceConfig{
			Authority:         "ST1DEPLOYER",
			VotingDelay:       params.VotingDelay,
			VotingPeriod:      params.VotingPeriod,
			ProposalThreshold: params.ProposalThreshold,
			QuorumVotes:       params.QuorumVotes,
		},
		Timelock: config.TimelockConfig{Principal: "washika-timelock", Delay: 2, GracePeriod: 5},
	}
}

func TestInspectDoesNotCreateStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo")
	_, err := openInspectServices(testConfig(path))
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestInspectDoesNotWriteGenesis(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger")
	ldb, err := db.NewLevelDB(path)
	require.NoError(t, err)
	require.NoError(t, ldb.Close())

	_, err = openInspectServices(testConfig(path))
	require.ErrorContains(t, err, "no ledger state")

	// still uninitialized, so the server bootstraps it on first start
	svc, err := openServices(context.Background(), testConfig(path), nil)
	require.NoError(t, err)
	authority, err := svc.engine.Authority()
	require.NoError(t, err)
	assert.Equal(t, models.Principal("ST1DEPLOYER"), authority)
	require.NoError(t, svc.db.Close())

	svc, err = openInspectServices(testConfig(path))
	require.NoError(t, err)
	defer svc.db.Close()
	views, err := svc.engine.Proposals()
	require.NoError(t, err)
	assert.Empty(t, views)
}
