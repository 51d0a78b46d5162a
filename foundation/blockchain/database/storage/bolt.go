package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/HamaKinger/blockchain/foundation/blockchain/database"
	"github.com/boltdb/bolt"
)

// BoltFile is the name of the bolt database inside the database directory.
const BoltFile = "chain.db"

var (
	blocksBucket = []byte("blocks")
	ledgerBucket = []byte("ledger")
	snapshotKey  = []byte("snapshot")
)

// Bolt persists blocks keyed by index and the ledger snapshot in an
// embedded bolt database.
type Bolt struct {
	db *bolt.DB
}

// NewBolt opens or creates the bolt database inside the directory.
func NewBolt(dbPath string) (*Bolt, error) {
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(filepath.Join(dbPath, BoltFile), 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{blocksBucket, ledgerBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &Bolt{db: db}, nil
}

// Close implements the database.Serializer interface.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// Write implements the database.Serializer interface.
func (b *Bolt) Write(block database.Block) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return putBlock(tx.Bucket(blocksBucket), block)
	})
}

// Replace implements the database.Serializer interface.
func (b *Bolt) Replace(blocks []database.Block) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(blocksBucket); err != nil {
			return err
		}

		bucket, err := tx.CreateBucket(blocksBucket)
		if err != nil {
			return err
		}

		for _, block := range blocks {
			if err := putBlock(bucket, block); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadAll implements the database.Serializer interface. Keys are big endian
// indexes so the cursor walks the chain in order.
func (b *Bolt) ReadAll() ([]database.Block, error) {
	var blocks []database.Block

	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(blocksBucket).ForEach(func(k, v []byte) error {
			var block database.Block
			if err := json.Unmarshal(v, &block); err != nil {
				return fmt.Errorf("decode block %d: %w", binary.BigEndian.Uint64(k), err)
			}
			blocks = append(blocks, block)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return blocks, nil
}

// SaveLedger implements the database.Snapshotter interface.
func (b *Bolt) SaveLedger(entries []database.LedgerEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(ledgerBucket).Put(snapshotKey, data)
	})
}

// LoadLedger implements the database.Snapshotter interface.
func (b *Bolt) LoadLedger() ([]database.LedgerEntry, error) {
	var entries []database.LedgerEntry

	err := b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(ledgerBucket).Get(snapshotKey)
		if len(data) == 0 {
			return nil
		}
		return json.Unmarshal(data, &entries)
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func putBlock(bucket *bolt.Bucket, block database.Block) error {
	data, err := json.Marshal(block)
	if err != nil {
		return err
	}

	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, block.Index)

	return bucket.Put(key, data)
}
