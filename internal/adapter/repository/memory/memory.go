// Package memory provides the in-process registry of shortened URLs.
//
// Records live in a fixed set of shards selected by hashing the short code, so
// inserts and reaps only lock the shard that owns the code. Each record guards
// its own click ledger, which lets redirects of different codes append clicks
// without contending with each other.
//
// Expired records are removed lazily when a read discovers them, or in bulk by
// Reap. A record that is never read again after it expires stays in memory
// until the next Reap.
package memory

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/vadimbarashkov/shorturls/internal/entity"
	"github.com/vadimbarashkov/shorturls/internal/shortcode"
)

const (
	defaultShards = 32

	// attemptsPerLength is how many generated codes are tried before the code
	// length grows by one.
	attemptsPerLength = 8
)

type record struct {
	url entity.URL // never modified after insert; url.Clicks stays nil

	mu     sync.Mutex
	clicks []entity.Click
}

func (r *record) snapshot() *entity.URL {
	r.mu.Lock()
	clicks := make([]entity.Click, len(r.clicks))
	copy(clicks, r.clicks)
	r.mu.Unlock()

	url := r.url
	url.Clicks = clicks

	return &url
}

func (r *record) append(click entity.Click) {
	r.mu.Lock()
	r.clicks = append(r.clicks, click)
	r.mu.Unlock()
}

type shard struct {
	mu      sync.RWMutex
	records map[string]*record
}

func (s *shard) get(shortCode string) (*record, bool) {
	s.mu.RLock()
	rec, ok := s.records[shortCode]
	s.mu.RUnlock()

	return rec, ok
}

// insert stores rec unless its short code is held by a record that is live at now.
// An expired occupant is replaced.
func (s *shard) insert(rec *record, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[rec.url.ShortCode]; ok && !existing.url.IsExpired(now) {
		return false
	}
	s.records[rec.url.ShortCode] = rec

	return true
}

// remove deletes rec if it is still the record mapped to its short code.
func (s *shard) remove(rec *record) {
	s.mu.Lock()
	if s.records[rec.url.ShortCode] == rec {
		delete(s.records, rec.url.ShortCode)
	}
	s.mu.Unlock()
}

// Option configures a URLRepository.
type Option func(*URLRepository)

// WithShards sets the number of shards the registry is split into.
func WithShards(n int) Option {
	return func(r *URLRepository) {
		if n > 0 {
			r.shardCount = n
		}
	}
}

// WithCodeLength sets the length of generated short codes.
func WithCodeLength(n int) Option {
	return func(r *URLRepository) {
		if n >= shortcode.MinLength && n <= shortcode.MaxLength {
			r.codeLength = n
		}
	}
}

// WithGenerator replaces the function used to produce candidate short codes.
func WithGenerator(generate func(length int) string) Option {
	return func(r *URLRepository) {
		r.generate = generate
	}
}

// WithClock replaces the source of the current time.
func WithClock(now func() time.Time) Option {
	return func(r *URLRepository) {
		r.now = now
	}
}

// URLRepository is a concurrency-safe in-memory registry of shortened URLs
// and their click ledgers. The zero value is not usable; use NewURLRepository.
type URLRepository struct {
	shardCount int
	shards     []*shard
	codeLength int
	generate   func(length int) string
	newID      func() string
	now        func() time.Time
}

// NewURLRepository creates an empty registry.
func NewURLRepository(opts ...Option) *URLRepository {
	r := &URLRepository{
		shardCount: defaultShards,
		codeLength: shortcode.DefaultLength,
		generate:   shortcode.Generate,
		newID:      uuid.NewString,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	r.shards = make([]*shard, r.shardCount)
	for i := range r.shards {
		r.shards[i] = &shard{records: make(map[string]*record)}
	}

	return r
}

func (r *URLRepository) shardFor(shortCode string) *shard {
	return r.shards[xxhash.Sum64String(shortCode)%uint64(len(r.shards))]
}

func (r *URLRepository) newRecord(shortCode, originalURL string, validity time.Duration, now time.Time) *record {
	return &record{
		url: entity.URL{
			ID:          r.newID(),
			ShortCode:   shortCode,
			OriginalURL: originalURL,
			CreatedAt:   now,
			ExpiresAt:   now.Add(validity),
		},
	}
}

// Create registers originalURL under shortCode, or under a generated code when
// shortCode is empty. The record stays resolvable for validity, which must be
// positive.
//
// It returns entity.ErrShortCodeExists if the requested short code belongs to
// a live record, and entity.ErrMaxRetriesExceeded if no free code could be
// generated up to the maximum code length.
func (r *URLRepository) Create(originalURL string, validity time.Duration, shortCode string) (*entity.URL, error) {
	const op = "adapter.repository.memory.URLRepository.Create"

	if validity <= 0 {
		panic(fmt.Sprintf("%s: non-positive validity %s", op, validity))
	}

	now := r.now()

	if shortCode != "" {
		rec := r.newRecord(shortCode, originalURL, validity, now)
		if !r.shardFor(shortCode).insert(rec, now) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
		}

		return rec.snapshot(), nil
	}

	for length := r.codeLength; length <= shortcode.MaxLength; length++ {
		for i := 0; i < attemptsPerLength; i++ {
			code := r.generate(length)
			rec := r.newRecord(code, originalURL, validity, now)

			if r.shardFor(code).insert(rec, now) {
				return rec.snapshot(), nil
			}
		}
	}

	return nil, fmt.Errorf("%s: %w", op, entity.ErrMaxRetriesExceeded)
}

// Lookup returns the live record for shortCode. An expired record is removed
// and reported as entity.ErrURLNotFound.
func (r *URLRepository) Lookup(shortCode string) (*entity.URL, error) {
	const op = "adapter.repository.memory.URLRepository.Lookup"

	now := r.now()
	s := r.shardFor(shortCode)

	rec, ok := s.get(shortCode)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	if rec.url.IsExpired(now) {
		s.remove(rec)
		return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	return rec.snapshot(), nil
}

// Stats is Lookup under the name used for read-only reporting.
func (r *URLRepository) Stats(shortCode string) (*entity.URL, error) {
	return r.Lookup(shortCode)
}

// RecordClick appends click to the ledger of the live record for shortCode.
// Unknown and expired codes are ignored.
func (r *URLRepository) RecordClick(shortCode string, click entity.Click) {
	now := r.now()
	s := r.shardFor(shortCode)

	rec, ok := s.get(shortCode)
	if !ok {
		return
	}

	if rec.url.IsExpired(now) {
		s.remove(rec)
		return
	}

	rec.append(click)
}

// List returns all live records, newest first. Expired records found along the
// way are removed.
func (r *URLRepository) List() []*entity.URL {
	now := r.now()

	var live, expired []*record

	for _, s := range r.shards {
		s.mu.RLock()
		for _, rec := range s.records {
			if rec.url.IsExpired(now) {
				expired = append(expired, rec)
				continue
			}
			live = append(live, rec)
		}
		s.mu.RUnlock()
	}

	for _, rec := range expired {
		r.shardFor(rec.url.ShortCode).remove(rec)
	}

	urls := make([]*entity.URL, 0, len(live))
	for _, rec := range live {
		urls = append(urls, rec.snapshot())
	}

	slices.SortFunc(urls, func(a, b *entity.URL) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return urls
}

// Reap removes every expired record and returns how many were removed.
func (r *URLRepository) Reap() int {
	now := r.now()
	n := 0

	for _, s := range r.shards {
		s.mu.Lock()
		for code, rec := range s.records {
			if rec.url.IsExpired(now) {
				delete(s.records, code)
				n++
			}
		}
		s.mu.Unlock()
	}

	return n
}

// Len returns the number of records held, including expired ones not yet reaped.
func (r *URLRepository) Len() int {
	n := 0

	for _, s := range r.shards {
		s.mu.RLock()
		n += len(s.records)
		s.mu.RUnlock()
	}

	return n
}
