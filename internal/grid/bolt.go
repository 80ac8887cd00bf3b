package grid

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const boltBucketCells = "cells" // key: row(uint32 BE) + col(uint32 BE) -> cell text

// Bolt is a file-backed Store for single-host deployments.
// Keys sort row-major, so a row read is a single cursor range.
type Bolt struct {
	storage *bbolt.DB
}

// NewBolt opens (or creates) a grid database at path.
func NewBolt(path string) (*Bolt, error) {
	instance, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, &StoreError{Op: "open", Kind: ErrUnavailable, Err: err}
	}

	if err := instance.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucketCells))
		return err
	}); err != nil {
		_ = instance.Close()
		return nil, &StoreError{Op: "open", Kind: ErrUnavailable, Err: err}
	}

	return &Bolt{storage: instance}, nil
}

// Close releases the database file.
func (b *Bolt) Close() error {
	return b.storage.Close()
}

func cellKey(row, col int) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint32(k[:4], uint32(row))
	binary.BigEndian.PutUint32(k[4:], uint32(col))
	return k
}

func splitKey(k []byte) (row, col int) {
	return int(binary.BigEndian.Uint32(k[:4])), int(binary.BigEndian.Uint32(k[4:]))
}

func (b *Bolt) ReadCell(_ context.Context, row, col int) (string, error) {
	if err := checkCoords("read cell", row, col); err != nil {
		return "", err
	}
	var out string
	err := b.storage.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket([]byte(boltBucketCells)).Get(cellKey(row, col)); v != nil {
			out = string(v)
		}
		return nil
	})
	if err != nil {
		return "", &StoreError{Op: "read cell", Row: row, Col: col, Kind: ErrUnavailable, Err: err}
	}
	return out, nil
}

func (b *Bolt) ReadRow(_ context.Context, row int) ([]string, error) {
	if err := checkCoords("read row", row, 1); err != nil {
		return nil, err
	}
	var out []string
	err := b.storage.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(boltBucketCells)).Cursor()
		for k, v := c.Seek(cellKey(row, 0)); k != nil; k, v = c.Next() {
			r, col := splitKey(k)
			if r != row {
				break
			}
			for len(out) < col {
				out = append(out, "")
			}
			out[col-1] = string(v)
		}
		return nil
	})
	if err != nil {
		return nil, &StoreError{Op: "read row", Row: row, Kind: ErrUnavailable, Err: err}
	}
	return out, nil
}

func (b *Bolt) ReadColumn(_ context.Context, col int) ([]string, error) {
	if err := checkCoords("read column", 1, col); err != nil {
		return nil, err
	}
	var out []string
	err := b.storage.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(boltBucketCells)).ForEach(func(k, v []byte) error {
			if len(k) != 8 {
				return fmt.Errorf("malformed cell key %x", k)
			}
			row, c := splitKey(k)
			if c != col {
				return nil
			}
			for len(out) < row {
				out = append(out, "")
			}
			out[row-1] = string(v)
			return nil
		})
	})
	if err != nil {
		return nil, &StoreError{Op: "read column", Col: col, Kind: ErrUnavailable, Err: err}
	}
	return out, nil
}

func (b *Bolt) WriteCell(_ context.Context, row, col int, text string) error {
	if err := checkCoords("write cell", row, col); err != nil {
		return err
	}
	err := b.storage.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(boltBucketCells))
		if text == "" {
			return bucket.Delete(cellKey(row, col))
		}
		return bucket.Put(cellKey(row, col), []byte(text))
	})
	if err != nil {
		return &StoreError{Op: "write cell", Row: row, Col: col, Kind: ErrUnavailable, Err: err}
	}
	return nil
}
