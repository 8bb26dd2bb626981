package watcher

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/faxcloud/analyzer/internal/analysis"
	"github.com/faxcloud/analyzer/internal/reports"
)

const processedDir = "processed"
const failedDir = "failed"

// Watcher polls an inbox directory and imports every export file
// dropped into it. Processed files move to inbox/processed, failed ones
// to inbox/failed, so a restart never re-imports or loses a file.
type Watcher struct {
	inbox    string
	interval time.Duration
	service  *reports.Service

	ctx       context.Context
	cancel    context.CancelFunc
	running   int32
	healthy   bool
	lastRunAt time.Time
}

func New(inbox string, interval time.Duration, service *reports.Service) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		inbox:    inbox,
		interval: interval,
		service:  service,
		healthy:  true,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (w *Watcher) Start() {
	for _, dir := range []string{w.inbox, filepath.Join(w.inbox, processedDir), filepath.Join(w.inbox, failedDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Printf("[watcher] create %s: %v", dir, err)
		}
	}
	go func() {
		w.runOnce()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-w.ctx.Done():
				return
			case <-ticker.C:
				w.runOnce()
			}
		}
	}()
	log.Printf("[watcher] watching %s every %s", w.inbox, w.interval)
}

func (w *Watcher) Stop() {
	w.cancel()
}

func (w *Watcher) IsHealthy() bool      { return w.healthy }
func (w *Watcher) LastRunAt() time.Time { return w.lastRunAt }
func (w *Watcher) IsRunning() bool      { return atomic.LoadInt32(&w.running) == 1 }

// ManualTrigger runs a single scan immediately.
func (w *Watcher) ManualTrigger() {
	go w.runOnce()
}

// runOnce scans the inbox and imports every new export file.
func (w *Watcher) runOnce() {
	if !atomic.CompareAndSwapInt32(&w.running, 0, 1) {
		return
	}
	defer atomic.StoreInt32(&w.running, 0)

	ctx := w.ctx
	w.lastRunAt = time.Now()
	w.healthy = true

	entries, err := os.ReadDir(w.inbox)
	if err != nil {
		log.Printf("[watcher] read inbox: %v", err)
		w.healthy = false
		return
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".csv") {
			continue
		}
		w.processFile(ctx, entry.Name())
	}
}

func (w *Watcher) processFile(ctx context.Context, name string) {
	path := filepath.Join(w.inbox, name)
	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("[watcher] read %s: %v", name, err)
		return
	}

	outcome, err := w.service.ImportFile(ctx, name, data, analysis.RunContext{})
	if errors.Is(err, reports.ErrDuplicate) {
		log.Printf("[watcher] %s already imported, archiving", name)
		w.moveTo(path, processedDir, name)
		return
	}
	if err != nil {
		log.Printf("[watcher] import %s failed: %v", name, err)
		w.moveTo(path, failedDir, name)
		return
	}

	log.Printf("[watcher] imported %s: report=%s rows=%d errors=%d",
		name, outcome.Report.ID, outcome.Result.Statistics.Total, outcome.Result.Statistics.Errors)
	w.moveTo(path, processedDir, name)
}

func (w *Watcher) moveTo(path, dir, name string) {
	dest := filepath.Join(w.inbox, dir, time.Now().UTC().Format("20060102T150405")+"-"+name)
	if err := os.Rename(path, dest); err != nil {
		log.Printf("[watcher] move %s to %s: %v", name, dir, err)
	}
}
