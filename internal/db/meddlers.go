package db

import (
	"database/sql"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/russross/meddler"
)

func init() {
	meddler.Register("address", AddressMeddler{})
	meddler.Register("hash", HashMeddler{})
}

// AddressMeddler converts between common.Address and the hex string stored in
// the database. Nil pointers map to NULL.
type AddressMeddler struct{}

func (AddressMeddler) PreRead(fieldAddr interface{}) (scanTarget interface{}, err error) {
	return new(sql.NullString), nil
}

func (AddressMeddler) PostRead(fieldAddr, scanTarget interface{}) error {
	ns, ok := scanTarget.(*sql.NullString)
	if !ok {
		return fmt.Errorf("expected *sql.NullString, got %T", scanTarget)
	}

	switch ptr := fieldAddr.(type) {
	case **common.Address:
		if !ns.Valid {
			*ptr = nil
			return nil
		}
		address := common.HexToAddress(ns.String)
		*ptr = &address
		return nil
	case *common.Address:
		if !ns.Valid {
			*ptr = common.Address{}
			return nil
		}
		*ptr = common.HexToAddress(ns.String)
		return nil
	default:
		return fmt.Errorf("expected *common.Address or **common.Address, got %T", fieldAddr)
	}
}

func (AddressMeddler) PreWrite(field interface{}) (saveValue interface{}, err error) {
	switch v := field.(type) {
	case *common.Address:
		if v == nil {
			return nil, nil
		}
		return v.Hex(), nil
	case common.Address:
		return v.Hex(), nil
	default:
		return nil, fmt.Errorf("expected common.Address or *common.Address, got %T", field)
	}
}

// HashMeddler converts between common.Hash and the hex string stored in the
// database. Nil pointers map to NULL.
type HashMeddler struct{}

func (HashMeddler) PreRead(fieldAddr interface{}) (scanTarget interface{}, err error) {
	return new(sql.NullString), nil
}

func (HashMeddler) PostRead(fieldAddr, scanTarget interface{}) error {
	ns, ok := scanTarget.(*sql.NullString)
	if !ok {
		return fmt.Errorf("expected *sql.NullString, got %T", scanTarget)
	}

	switch ptr := fieldAddr.(type) {
	case **common.Hash:
		if !ns.Valid {
			*ptr = nil
			return nil
		}
		hash := common.HexToHash(ns.String)
		*ptr = &hash
		return nil
	case *common.Hash:
		if !ns.Valid {
			*ptr = common.Hash{}
			return nil
		}
		*ptr = common.HexToHash(ns.String)
		return nil
	default:
		return fmt.Errorf("expected *common.Hash or **common.Hash, got %T", fieldAddr)
	}
}

func (HashMeddler) PreWrite(field interface{}) (saveValue interface{}, err error) {
	switch v := field.(type) {
	case *common.Hash:
		if v == nil {
			return nil, nil
		}
		return v.Hex(), nil
	case common.Hash:
		return v.Hex(), nil
	default:
		return nil, fmt.Errorf("expected common.Hash or *common.Hash, got %T", field)
	}
}
