// Package tasks runs book downloads in the background on a backlite queue.
//
// The queue keeps its own SQLite file next to the library databases, so a
// download queued before a restart is picked up again on the next start.
package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"
)

// DatabaseFile is the task queue database inside the data directory. The
// extension keeps it out of the library store's database listing.
const DatabaseFile = "tasks.sqlite"

// Client owns the download queue and its workers.
type Client struct {
	queue   *backlite.Client
	db      *sql.DB
	workers int
	running atomic.Bool
}

// NewClient opens (or creates) the queue database in dataDir and installs
// the backlite schema.
func NewClient(dataDir string, cfg Config) (*Client, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := openQueueDB(filepath.Join(dataDir, DatabaseFile), cfg.Workers)
	if err != nil {
		return nil, err
	}

	queue, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          taskLogger{},
	})
	if err == nil {
		err = queue.Install()
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up download queue: %w", err)
	}

	return &Client{queue: queue, db: db, workers: cfg.Workers}, nil
}

// openQueueDB opens the queue file in WAL mode with room for every worker
// plus enqueues and status lookups from HTTP handlers.
func openQueueDB(path string, workers int) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_timeout=5000&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	db.SetMaxOpenConns(workers + 5)
	db.SetMaxIdleConns(workers + 2)
	db.SetConnMaxLifetime(time.Hour)
	return db, nil
}

// Register adds queues. All queues must be registered before Start.
func (c *Client) Register(queues ...backlite.Queue) {
	for _, q := range queues {
		c.queue.Register(q)
	}
}

// Start launches the workers and returns. Later calls do nothing.
func (c *Client) Start(ctx context.Context) {
	if !c.running.CompareAndSwap(false, true) {
		return
	}
	log.Printf("[TASK] Download queue running with %d worker(s)", c.workers)
	c.queue.Start(ctx)
}

// Stop waits for in-flight downloads. It returns false when ctx expired
// first; those downloads are released and retried after the next start.
func (c *Client) Stop(ctx context.Context) bool {
	if !c.running.Load() {
		return true
	}

	drained := c.queue.Stop(ctx)
	if drained {
		log.Println("[TASK] Download queue drained")
	} else {
		log.Println("[TASK] Download queue stop timed out, unfinished downloads will be retried")
	}
	return drained
}

// Close releases the queue database. Call it after Stop.
func (c *Client) Close() error {
	return c.db.Close()
}

// Add begins enqueueing tasks; call Save on the result.
func (c *Client) Add(tasks ...backlite.Task) *backlite.TaskAddOp {
	return c.queue.Add(tasks...)
}

// Lookup returns the state of a queued task by ID as reported to API
// clients: pending, running, success, failure or not_found.
func (c *Client) Lookup(ctx context.Context, taskID string) (string, error) {
	status, err := c.queue.Status(ctx, taskID)
	if err != nil {
		return "", fmt.Errorf("look up task %s: %w", taskID, err)
	}
	return StatusName(status), nil
}

var statusNames = map[backlite.TaskStatus]string{
	backlite.TaskStatusPending:  "pending",
	backlite.TaskStatusRunning:  "running",
	backlite.TaskStatusSuccess:  "success",
	backlite.TaskStatusFailure:  "failure",
	backlite.TaskStatusNotFound: "not_found",
}

// StatusName renders a backlite status.
func StatusName(status backlite.TaskStatus) string {
	if name, ok := statusNames[status]; ok {
		return name
	}
	return "unknown"
}

// taskLogger routes backlite's log lines through the standard logger.
type taskLogger struct{}

func (taskLogger) Info(message string, params ...any) {
	log.Printf("[TASK] "+message, params...)
}

func (taskLogger) Error(message string, params ...any) {
	log.Printf("[TASK ERROR] "+message, params...)
}
