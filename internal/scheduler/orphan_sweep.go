// Package scheduler runs periodic maintenance of the local library.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/foxtales/internal/database"
	"github.com/mrlokans/foxtales/internal/database/books"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronSchedule checks a five-field cron expression.
func ValidateCronSchedule(schedule string) error {
	_, err := cronParser.Parse(schedule)
	return err
}

// OrphanSweeper drops content databases whose book record is gone, which is
// what an interrupted removal leaves behind.
type OrphanSweeper struct {
	store    *database.Store
	books    *books.Repository
	schedule string

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	isSweeping bool
}

// NewOrphanSweeper creates a new sweeper instance
func NewOrphanSweeper(store *database.Store, repo *books.Repository, schedule string) *OrphanSweeper {
	return &OrphanSweeper{
		store:    store,
		books:    repo,
		schedule: schedule,
		cron:     cron.New(cron.WithParser(cronParser)),
	}
}

// Start schedules the sweep. It stops when ctx is cancelled.
func (s *OrphanSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if err := ValidateCronSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.Sweep(context.Background()); err != nil {
			log.Printf("Orphan sweep: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule orphan sweep: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true
	log.Printf("Orphan sweep scheduler: started with schedule '%s'. Next run: %v", s.schedule, s.nextRunLocked())

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop waits for a running sweep and stops the scheduler.
func (s *OrphanSweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	stopCtx := s.cron.Stop()
	<-stopCtx.Done()

	s.isRunning = false
	log.Printf("Orphan sweep scheduler: stopped")
}

// IsRunning returns whether the scheduler is active
func (s *OrphanSweeper) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the next sweep will occur
func (s *OrphanSweeper) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextRunLocked()
}

func (s *OrphanSweeper) nextRunLocked() *time.Time {
	if !s.isRunning {
		return nil
	}
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// Sweep drops orphaned content databases now and returns their names.
// Overlapping sweeps are skipped.
func (s *OrphanSweeper) Sweep(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	if s.isSweeping {
		s.mu.Unlock()
		log.Printf("Orphan sweep: skipped (already sweeping)")
		return nil, nil
	}
	s.isSweeping = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSweeping = false
		s.mu.Unlock()
	}()

	// Databases are listed before records are read: a record is always
	// saved before its content, so a book downloaded meanwhile is never
	// taken for an orphan.
	names, err := s.store.ListDatabases()
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}

	records, err := s.books.ListBooks(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(records))
	for _, record := range records {
		known[books.ContentDatabase(record.Identifier)] = true
	}

	var dropped []string
	for _, name := range names {
		if _, ok := database.BookIDFromContentDatabase(name); !ok || known[name] {
			continue
		}
		if err := s.store.DropDatabase(ctx, name); err != nil {
			return dropped, err
		}
		dropped = append(dropped, name)
	}

	if len(dropped) > 0 {
		log.Printf("Orphan sweep: dropped %d content database(s): %v", len(dropped), dropped)
	}
	return dropped, nil
}
