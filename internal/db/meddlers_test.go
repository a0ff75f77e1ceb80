package db

import (
	"os"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/russross/meddler"
	"github.com/stretchr/testify/require"
)

type meddlerRow struct {
	ID      int64           `meddler:"id,pk"`
	Address common.Address  `meddler:"address,address"`
	Hash    common.Hash     `meddler:"hash,hash"`
	OptAddr *common.Address `meddler:"opt_addr,address"`
	OptHash *common.Hash    `meddler:"opt_hash,hash"`
}

func TestMeddlers_RoundTrip(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "meddler_test_*.db")
	require.NoError(t, err)
	tmpFile.Close()
	defer os.Remove(tmpFile.Name())

	database, err := NewSQLiteDB(tmpFile.Name())
	require.NoError(t, err)
	defer database.Close()

	_, err = database.Exec(`CREATE TABLE rows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		address TEXT NOT NULL,
		hash TEXT NOT NULL,
		opt_addr TEXT,
		opt_hash TEXT
	)`)
	require.NoError(t, err)

	addr := common.HexToAddress("0x1234567890123456789012345678901234567890")
	hash := common.HexToHash("0xabcdef")

	require.NoError(t, meddler.Insert(database, "rows", &meddlerRow{
		Address: addr,
		Hash:    hash,
	}))

	var row meddlerRow
	require.NoError(t, meddler.QueryRow(database, &row, `SELECT * FROM rows WHERE id = 1`))
	require.Equal(t, addr, row.Address)
	require.Equal(t, hash, row.Hash)
	require.Nil(t, row.OptAddr)
	require.Nil(t, row.OptHash)

	require.NoError(t, meddler.Insert(database, "rows", &meddlerRow{
		Address: addr,
		Hash:    hash,
		OptAddr: &addr,
		OptHash: &hash,
	}))

	var row2 meddlerRow
	require.NoError(t, meddler.QueryRow(database, &row2, `SELECT * FROM rows WHERE id = 2`))
	require.NotNil(t, row2.OptAddr)
	require.Equal(t, addr, *row2.OptAddr)
	require.NotNil(t, row2.OptHash)
	require.Equal(t, hash, *row2.OptHash)
}
