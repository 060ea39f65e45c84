package receipt

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

const bucketName = "receipts"

// DB defines the interface for database operations
type DB interface {
	// CreateReceipt saves an extracted receipt
	CreateReceipt(ctx context.Context, receipt *StoredReceipt) error

	// ListReceipts returns a user's receipts, newest first
	ListReceipts(ctx context.Context, userID string) ([]*StoredReceipt, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB.
// Receipts live in one nested bucket per user under the receipts bucket.
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// CreateReceipt saves a receipt to the database
func (b *BoltDB) CreateReceipt(ctx context.Context, receipt *StoredReceipt) error {
	if receipt.UserID == "" {
		return fmt.Errorf("receipt %s has no user", receipt.ID)
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		userBucket, err := tx.Bucket([]byte(bucketName)).CreateBucketIfNotExists([]byte(receipt.UserID))
		if err != nil {
			return fmt.Errorf("creating user bucket: %w", err)
		}
		data, err := json.Marshal(receipt)
		if err != nil {
			return fmt.Errorf("marshaling receipt: %w", err)
		}
		return userBucket.Put([]byte(receipt.ID), data)
	})
}

// ListReceipts returns all receipts of a user, newest first
func (b *BoltDB) ListReceipts(ctx context.Context, userID string) ([]*StoredReceipt, error) {
	receipts := make([]*StoredReceipt, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		userBucket := tx.Bucket([]byte(bucketName)).Bucket([]byte(userID))
		if userBucket == nil {
			return nil
		}
		return userBucket.ForEach(func(k, v []byte) error {
			var receipt StoredReceipt
			if err := json.Unmarshal(v, &receipt); err != nil {
				return fmt.Errorf("unmarshaling receipt: %w", err)
			}
			receipts = append(receipts, &receipt)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(receipts, func(i, j int) bool {
		return receipts[i].CreatedAt.After(receipts[j].CreatedAt)
	})
	return receipts, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
