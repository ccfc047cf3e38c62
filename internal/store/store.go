// Package store persists the round history in a bbolt database.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.dedis.ch/protobuf"
	bolt "go.etcd.io/bbolt"

	"github.com/theotime2005/blocklucky/internal/models"
)

var roundsBucket = []byte("rounds")

// ErrNotSequential is returned when a round is appended out of order.
var ErrNotSequential = errors.New("round index is not the next in sequence")

// roundRecord is the on-disk form of a RoundSummary.
type roundRecord struct {
	RoundID     uint64
	Winner      []byte
	Prize       []byte
	TicketCount uint64
	CompletedAt int64
}

// Archive stores completed rounds keyed by their history index.
type Archive struct {
	db *bolt.DB
}

// Open opens or creates the archive at path.
func Open(path string) (*Archive, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(roundsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Archive{db: db}, nil
}

// Close releases the database file.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Append writes the summary at index. Records are append-only: index must
// equal the number of stored rounds.
func (a *Archive) Append(index int, s models.RoundSummary) error {
	buf, err := protobuf.Encode(toRecord(s))
	if err != nil {
		return fmt.Errorf("encoding round %d: %w", s.RoundID, err)
	}
	return a.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(roundsBucket)
		next := 0
		if k, _ := b.Cursor().Last(); k != nil {
			next = int(binary.BigEndian.Uint64(k)) + 1
		}
		if index != next {
			return fmt.Errorf("%w: got %d, want %d", ErrNotSequential, index, next)
		}
		return b.Put(key(index), buf)
	})
}

// All returns every stored round in history order.
func (a *Archive) All() ([]models.RoundSummary, error) {
	var out []models.RoundSummary
	err := a.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(roundsBucket).ForEach(func(k, v []byte) error {
			rec := &roundRecord{}
			if err := protobuf.Decode(v, rec); err != nil {
				return fmt.Errorf("decoding round at %d: %w", binary.BigEndian.Uint64(k), err)
			}
			out = append(out, rec.summary())
			return nil
		})
	})
	return out, err
}

func key(index int) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(index))
	return k
}

func toRecord(s models.RoundSummary) *roundRecord {
	prize := s.Prize
	if prize == nil {
		prize = new(big.Int)
	}
	return &roundRecord{
		RoundID:     s.RoundID,
		Winner:      s.Winner.Bytes(),
		Prize:       prize.Bytes(),
		TicketCount: s.TicketCount,
		CompletedAt: s.CompletedAt.Unix(),
	}
}

func (r *roundRecord) summary() models.RoundSummary {
	return models.RoundSummary{
		RoundID:     r.RoundID,
		Winner:      common.BytesToAddress(r.Winner),
		Prize:       new(big.Int).SetBytes(r.Prize),
		TicketCount: r.TicketCount,
		CompletedAt: time.Unix(r.CompletedAt, 0),
	}
}
