// Package results keeps a history of simulation runs in LevelDB.
package results

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	leveldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
	"golang.org/x/exp/slices"

	"github.com/sarchlab/rvsim/timing/config"
	"github.com/sarchlab/rvsim/timing/pipeline"
)

// ErrInvalidName is returned for run names that are empty or contain '/'.
var ErrInvalidName = errors.New("invalid run name")

const runPrefix = "run/"

// Record is the outcome of one run.
type Record struct {
	Name   string    `json:"name"`
	Binary string    `json:"binary,omitempty"`
	Time   time.Time `json:"time"`

	Config *config.Config      `json:"config"`
	Stats  pipeline.Statistics `json:"stats"`

	Cycles  uint64  `json:"cycles"`
	Retired uint64  `json:"retired"`
	IPC     float64 `json:"ipc"`

	// Stop is the reason the run ended.
	Stop string `json:"stop"`
	// Error is the fault message of a failed run.
	Error string `json:"error,omitempty"`
}

// NewRecord summarizes the current state of a pipeline.
func NewRecord(name, binary string, p *pipeline.Pipeline, stop pipeline.StopReason, runErr error) *Record {
	s := p.Stats()
	r := &Record{
		Name:    name,
		Binary:  binary,
		Time:    time.Now().UTC(),
		Config:  p.Config(),
		Stats:   s,
		Cycles:  s.Cycles(p.Clock()),
		Retired: s.Retired,
		IPC:     s.IPC(p.Clock()),
		Stop:    stop.String(),
	}
	if runErr != nil {
		r.Error = runErr.Error()
	}
	return r
}

// Store is a run history. Records are keyed by run name and time, so
// listing a name returns its runs oldest first.
type Store struct {
	db *leveldb.DB
}

// Open opens or creates a store at path. An empty path opens an in-memory
// store.
func Open(path string) (*Store, error) {
	var db *leveldb.DB
	var err error

	if path == "" {
		db, err = leveldb.Open(leveldbstorage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open results at %s: %w", path, err)
	}

	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func checkName(name string) error {
	if name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func recordKey(name string, t time.Time) []byte {
	return []byte(fmt.Sprintf("%s%s/%020d", runPrefix, name, t.UnixNano()))
}

// Put stores r.
func (s *Store) Put(r *Record) error {
	if err := checkName(r.Name); err != nil {
		return err
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return s.db.Put(recordKey(r.Name, r.Time), data, nil)
}

// List returns the runs of name, oldest first. An empty name lists every
// run, grouped by name.
func (s *Store) List(name string) ([]Record, error) {
	prefix := runPrefix
	if name != "" {
		if err := checkName(name); err != nil {
			return nil, err
		}
		prefix += name + "/"
	}

	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()

	var records []Record
	for iter.Next() {
		var r Record
		if err := json.Unmarshal(iter.Value(), &r); err != nil {
			return nil, fmt.Errorf("decode %s: %w", iter.Key(), err)
		}
		records = append(records, r)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}

	return records, nil
}

// Latest returns the most recent run of name.
func (s *Store) Latest(name string) (*Record, bool, error) {
	records, err := s.List(name)
	if err != nil || len(records) == 0 {
		return nil, false, err
	}
	return &records[len(records)-1], true, nil
}

// Names returns the distinct run names in the store, sorted.
func (s *Store) Names() ([]string, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(runPrefix)), nil)
	defer iter.Release()

	var names []string
	for iter.Next() {
		rest := strings.TrimPrefix(string(iter.Key()), runPrefix)
		name, _, _ := strings.Cut(rest, "/")
		if len(names) == 0 || names[len(names)-1] != name {
			names = append(names, name)
		}
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}

	slices.Sort(names)
	return slices.Compact(names), nil
}

// Delete removes every run of name.
func (s *Store) Delete(name string) error {
	if err := checkName(name); err != nil {
		return err
	}

	batch := new(leveldb.Batch)
	iter := s.db.NewIterator(util.BytesPrefix([]byte(runPrefix+name+"/")), nil)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return err
	}

	return s.db.Write(batch, nil)
}
