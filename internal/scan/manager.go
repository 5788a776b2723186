package scan

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mnj/dupdupninja-v2/internal/cancel"
	"github.com/mnj/dupdupninja-v2/internal/db"
)

// ErrAlreadyRunning is returned when a scan is started while one is in
// progress against the same Manager.
var ErrAlreadyRunning = errors.New("a scan is already in progress")

// ErrNoActiveScan is returned when Cancel is called with no scan running.
var ErrNoActiveScan = errors.New("no scan is currently running")

// ActiveScan holds live information about the running scan.
type ActiveScan struct {
	Root      string
	StartedAt time.Time
	Progress  *Progress
}

// Manager enforces the single-active-scan invariant across every entry
// point that can start a scan: the async Start/Cancel pair below and the
// synchronous RunBlocking used by the C ABI (abi/engine.go). It is not
// bound to a particular store or root — each call supplies its own,
// matching the ABI's per-call db_path/root_path arguments.
type Manager struct {
	mu       sync.Mutex
	scanning bool
	active   *ActiveScan
	cancelFn func()
}

// NewManager creates an idle Manager.
func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) beginScan(root string, progress *Progress) (*ActiveScan, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scanning {
		return nil, false
	}
	m.scanning = true
	active := &ActiveScan{Root: root, StartedAt: time.Now(), Progress: progress}
	m.active = active
	return active, true
}

func (m *Manager) endScan() {
	m.mu.Lock()
	m.scanning = false
	m.active = nil
	m.cancelFn = nil
	m.mu.Unlock()
}

// Start launches an asynchronous scan of root against store. Returns an
// ActiveScan snapshot, or ErrAlreadyRunning if a scan is already in
// progress.
func (m *Manager) Start(parentCtx context.Context, store *db.Store, root string, opts Options, onProgress ProgressFunc) (*ActiveScan, <-chan Result, error) {
	progress := &Progress{}
	active, ok := m.beginScan(root, progress)
	if !ok {
		return nil, nil, ErrAlreadyRunning
	}

	tok := cancel.New()
	m.mu.Lock()
	m.cancelFn = tok.Cancel
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		select {
		case <-parentCtx.Done():
			tok.Cancel()
		case <-done:
		}
	}()

	resultCh := make(chan Result, 1)
	go func() {
		defer close(done)
		res := Run(store, root, tok, opts, progress, onProgress)
		resultCh <- res
		m.endScan()
	}()

	return active, resultCh, nil
}

// RunBlocking runs one scan of root against store synchronously under an
// externally supplied cancel token, enforcing the same single-active-scan
// invariant as Start. This backs the C ABI's scan_folder_to_sqlite family
// (abi/scan.go), which blocks the caller's thread for the duration of the
// scan and drives cancellation through a pre-existing token handle rather
// than a context.Context it owns. A non-zero totals seeds Phase 1 from a
// prior PreScan, exactly as RunFromTotals does.
func (m *Manager) RunBlocking(store *db.Store, root string, tok *cancel.Token, opts Options, progress *Progress, totals PreScanResult, onProgress ProgressFunc) (Result, error) {
	if _, ok := m.beginScan(root, progress); !ok {
		return Result{}, ErrAlreadyRunning
	}
	m.mu.Lock()
	m.cancelFn = tok.Cancel
	m.mu.Unlock()
	defer m.endScan()

	return RunFromTotals(store, root, tok, opts, progress, totals, onProgress), nil
}

// Cancel stops the currently running scan. Returns ErrNoActiveScan if idle.
func (m *Manager) Cancel() (*ActiveScan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil, ErrNoActiveScan
	}
	snap := *m.active
	m.cancelFn()
	return &snap, nil
}

// ActiveScan returns a snapshot of the running scan, or nil when idle.
func (m *Manager) ActiveScan() *ActiveScan {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	snap := *m.active
	return &snap
}
