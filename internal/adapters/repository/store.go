// Package repository owns the durable vendor store: one memory image
// partitioned into regions that hold the identifier counter and the four
// entity collections.
package repository

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/okian/vendorhub/internal/domain/model"
	"github.com/okian/vendorhub/internal/domain/types"
	"github.com/okian/vendorhub/internal/storage/collection"
	"github.com/okian/vendorhub/internal/storage/idgen"
	"github.com/okian/vendorhub/internal/storage/memmgr"
	"github.com/okian/vendorhub/internal/storage/memory"
	"github.com/okian/vendorhub/pkg/logger"
	"github.com/okian/vendorhub/pkg/metrics"
)

// Region tags. Part of the on-disk format.
const (
	TagCounter   uint8 = 0
	TagVendors   uint8 = 10
	TagServices  uint8 = 11
	TagContracts uint8 = 12
	TagFeedback  uint8 = 13
)

// Collection names used in stats and metrics.
const (
	NameVendors   = "vendors"
	NameServices  = "services"
	NameContracts = "contracts"
	NameFeedback  = "feedback"
)

// Store guards the identifier generator and all collections with one
// RWMutex. Update runs a whole operation under the write lock so readers
// never observe a half-applied mutation.
type Store struct {
	mu     sync.RWMutex
	mem    memory.Memory
	closer io.Closer
	closed bool

	mgr       *memmgr.Manager
	ids       *idgen.Generator
	vendors   *collection.Collection[model.Vendor]
	services  *collection.Collection[model.Service]
	contracts *collection.Collection[model.Contract]
	feedback  *collection.Collection[model.Feedback]

	log          logger.Logger
	bucketPages  int
	maxPages     int64
	syncOnCommit bool
}

// Open opens the store image at path, creating it when absent. An empty path
// opens an ephemeral in-process image.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	s := newStore(opts)
	if path == "" {
		return s.attach(ctx, memory.NewVector(memory.WithMaxPages(s.maxPages)), nil)
	}
	f, err := memory.OpenFile(path, memory.WithMaxPages(s.maxPages))
	if err != nil {
		return nil, err
	}
	st, err := s.attach(ctx, f, f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return st, nil
}

// OpenMemory opens a store over an existing memory. The caller keeps
// ownership of mem.
func OpenMemory(ctx context.Context, mem memory.Memory, opts ...Option) (*Store, error) {
	return newStore(opts).attach(ctx, mem, nil)
}

func newStore(opts []Option) *Store {
	s := &Store{log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) attach(ctx context.Context, mem memory.Memory, closer io.Closer) (*Store, error) {
	var mopts []memmgr.Option
	if s.bucketPages > 0 {
		mopts = append(mopts, memmgr.WithBucketPages(s.bucketPages))
	}
	mgr, err := memmgr.Init(mem, mopts...)
	if err != nil {
		return nil, fmt.Errorf("init partitions: %w", err)
	}

	s.mem, s.closer, s.mgr = mem, closer, mgr
	if err := s.openRegions(); err != nil {
		return nil, err
	}
	s.warnTorn(ctx)
	if err := s.reconcile(ctx); err != nil {
		return nil, fmt.Errorf("recover: %w", err)
	}
	if err := mem.Sync(); err != nil {
		return nil, fmt.Errorf("sync: %w", err)
	}
	s.publishMetrics()

	s.log.Info(ctx, "store opened",
		logger.Uint64("last_id", s.ids.Current()),
		logger.Int("vendors", s.vendors.Len()),
		logger.Int("services", s.services.Len()),
		logger.Int("contracts", s.contracts.Len()),
		logger.Int("feedback", s.feedback.Len()),
		logger.Int("memory_bytes", int(mem.Size())),
	)
	return s, nil
}

func (s *Store) openRegions() error {
	region := func(tag uint8) (*memmgr.Region, error) {
		r, err := s.mgr.Region(tag)
		if err != nil {
			return nil, fmt.Errorf("region %d: %w", tag, err)
		}
		return r, nil
	}

	barrier := collection.WithCommitBarrier(s.syncOnCommit)

	r, err := region(TagCounter)
	if err != nil {
		return err
	}
	if s.ids, err = idgen.Open(r); err != nil {
		return fmt.Errorf("open id counter: %w", err)
	}

	if r, err = region(TagVendors); err != nil {
		return err
	}
	if s.vendors, err = collection.Open[model.Vendor](r, model.VendorCodec{}, barrier); err != nil {
		return fmt.Errorf("open %s: %w", NameVendors, err)
	}
	if r, err = region(TagServices); err != nil {
		return err
	}
	if s.services, err = collection.Open[model.Service](r, model.ServiceCodec{}, barrier); err != nil {
		return fmt.Errorf("open %s: %w", NameServices, err)
	}
	if r, err = region(TagContracts); err != nil {
		return err
	}
	if s.contracts, err = collection.Open[model.Contract](r, model.ContractCodec{}, barrier); err != nil {
		return fmt.Errorf("open %s: %w", NameContracts, err)
	}
	if r, err = region(TagFeedback); err != nil {
		return err
	}
	if s.feedback, err = collection.Open[model.Feedback](r, model.FeedbackCodec{}, barrier); err != nil {
		return fmt.Errorf("open %s: %w", NameFeedback, err)
	}
	return nil
}

// warnTorn logs collections whose last insert was lost in a crash.
func (s *Store) warnTorn(ctx context.Context) {
	for name, torn := range map[string]bool{
		NameVendors:   s.vendors.Torn(),
		NameServices:  s.services.Torn(),
		NameContracts: s.contracts.Torn(),
		NameFeedback:  s.feedback.Torn(),
	} {
		if torn {
			s.log.Warn(ctx, "dropped torn slot", logger.String("collection", name))
		}
	}
}

// Update runs fn with write access. fn must finish all validation before its
// first write: there is no rollback, and a returned error leaves earlier
// writes in place.
func (s *Store) Update(fn func(tx *Tx) error) error {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		metrics.RecordStoreWriteLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if s.closed {
		return ErrClosed
	}
	tx := &Tx{s: s, writable: true}
	err := fn(tx)
	if tx.wrote {
		if s.syncOnCommit {
			if serr := s.mem.Sync(); serr != nil && err == nil {
				err = fmt.Errorf("sync: %w", serr)
			}
		}
		s.publishMetrics()
	}
	return err
}

// View runs fn with read access. Concurrent Views proceed in parallel.
func (s *Store) View(fn func(tx *Tx) error) error {
	start := time.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	defer func() {
		metrics.RecordStoreReadLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if s.closed {
		return ErrClosed
	}
	return fn(&Tx{s: s})
}

// Stats reports record counts and image size.
func (s *Store) Stats() types.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats()
}

func (s *Store) stats() types.Stats {
	pages := make(map[uint8]int64)
	for _, r := range s.mgr.Regions() {
		pages[r.Tag] = r.Pages
	}
	col := func(name string, tag uint8, records int, slots int64) types.CollectionStats {
		return types.CollectionStats{Name: name, Tag: tag, Records: records, Slots: slots, Pages: pages[tag]}
	}
	return types.Stats{
		LastID:      s.ids.Current(),
		MemoryBytes: s.mem.Size(),
		BucketPages: s.mgr.BucketPages(),
		Collections: []types.CollectionStats{
			col(NameVendors, TagVendors, s.vendors.Len(), s.vendors.Slots()),
			col(NameServices, TagServices, s.services.Len(), s.services.Slots()),
			col(NameContracts, TagContracts, s.contracts.Len(), s.contracts.Slots()),
			col(NameFeedback, TagFeedback, s.feedback.Len(), s.feedback.Slots()),
		},
	}
}

func (s *Store) publishMetrics() {
	st := s.stats()
	for _, c := range st.Collections {
		metrics.UpdateCollectionRecords(c.Name, c.Records, c.Slots)
		metrics.UpdateRegionPages(c.Name, c.Pages)
	}
	metrics.UpdateLastID(st.LastID)
	metrics.UpdateMemoryBytes(st.MemoryBytes)
}

// Backup streams a consistent copy of the memory image to w. Writers are
// blocked for the duration.
func (s *Store) Backup(w io.Writer) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}
	n, err := io.Copy(w, memory.Reader(s.mem))
	if err != nil {
		return n, fmt.Errorf("copy image: %w", err)
	}
	return n, nil
}

// Close syncs the image and releases the data file. Further calls fail
// with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.closed = true

	err := s.mem.Sync()
	if s.closer != nil {
		if cerr := s.closer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}
