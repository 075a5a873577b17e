package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/groblegark/propkeep/internal/store"
)

// Destination is the interface for a backup target (S3, git, etc.).
type Destination interface {
	// Write sends the snapshot blob to the destination.
	Write(ctx context.Context, data []byte) error
}

// Scheduler runs periodic snapshot backups to one or more destinations.
type Scheduler struct {
	store        store.Store
	destinations []Destination
	interval     time.Duration
	passphrase   string // non-empty seals each snapshot before upload
	logger       *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that exports the store to the given
// destinations at the specified interval. When passphrase is non-empty each
// snapshot is sealed before it leaves the process.
func NewScheduler(s store.Store, destinations []Destination, interval time.Duration, passphrase string, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		store:        s,
		destinations: destinations,
		interval:     interval,
		passphrase:   passphrase,
		logger:       logger,
	}
}

// Start begins periodic backups. It runs an initial backup immediately, then
// on each tick.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for the current backup (if any) to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	// Run once immediately at startup.
	s.backupOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.backupOnce(ctx)
		}
	}
}

func (s *Scheduler) backupOnce(ctx context.Context) {
	var buf bytes.Buffer
	counts, err := Export(ctx, s.store, &buf)
	if err != nil {
		s.logger.Error("backup export failed", "err", err)
		return
	}
	data := buf.Bytes()

	if s.passphrase != "" {
		sealed, err := Seal(data, s.passphrase)
		if err != nil {
			s.logger.Error("backup seal failed", "err", err)
			return
		}
		data = sealed
	}

	for i, dest := range s.destinations {
		if err := dest.Write(ctx, data); err != nil {
			s.logger.Error("backup destination write failed", "destination", fmt.Sprintf("%d", i), "err", err)
		}
	}

	s.logger.Info("backup completed",
		"destinations", len(s.destinations),
		"properties", counts.Properties,
		"audit_rows", counts.AuditRows,
		"bytes", len(data))
}
