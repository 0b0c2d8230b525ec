// Package transaction records the filesystem changes of a batch so they can
// be kept or reversed together.
package transaction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/locvowork/vacation_reports/internal/logger"
)

var (
	ErrInvalidTransition = errors.New("invalid transaction state transition")
	ErrNotActive         = errors.New("no active transaction")
)

type State int

const (
	StateIdle State = iota
	StateActive
	StateCommitted
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	}
	return "unknown"
}

var transitions = map[State][]State{
	StateIdle:       {StateActive},
	StateActive:     {StateCommitted, StateRolledBack},
	StateCommitted:  {StateIdle},
	StateRolledBack: {StateIdle},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type OpKind string

const (
	OpCreateFile      OpKind = "create_file"
	OpCreateDirectory OpKind = "create_directory"
	OpDeleteFile      OpKind = "delete_file"
)

// Operation is one recorded mutation. BackupPath is empty when there was
// nothing to snapshot.
type Operation struct {
	Kind       OpKind
	Path       string
	Meta       map[string]string
	BackupPath string
}

// FailedOperation is an operation rollback could not reverse.
type FailedOperation struct {
	Operation Operation
	Err       error
}

func (f FailedOperation) Error() string {
	return fmt.Sprintf("%s %s: %v", f.Operation.Kind, f.Operation.Path, f.Err)
}

func (f FailedOperation) Unwrap() error { return f.Err }

type RollbackResult struct {
	Reversed int
	Failed   []FailedOperation
	// Kept lists directories left in place because they were not empty.
	Kept []string
}

func (r RollbackResult) OK() bool { return len(r.Failed) == 0 }

// Manager holds at most one active transaction.
type Manager struct {
	mu        sync.Mutex
	state     State
	ops       []Operation
	backupDir string
	seq       int
	now       func() time.Time
}

func NewManager() *Manager {
	return &Manager{now: time.Now}
}

func (m *Manager) setState(to State) error {
	if !canTransition(m.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.state, to)
	}
	m.state = to
	return nil
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Active() bool { return m.State() == StateActive }

// Operations returns a copy of the recorded operations.
func (m *Manager) Operations() []Operation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Operation, len(m.ops))
	copy(out, m.ops)
	return out
}

func (m *Manager) BackupDir() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.backupDir
}

// Begin starts a transaction. It returns false, changing nothing, when one
// is already active or the backup directory cannot be created.
func (m *Manager) Begin(ctx context.Context, backupDir string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateIdle {
		logger.WarnLog(ctx, "transaction already %s", m.state)
		return false
	}
	if backupDir != "" {
		if err := os.MkdirAll(backupDir, 0o755); err != nil {
			logger.ErrorLog(ctx, err, "create backup dir %s", backupDir)
			return false
		}
	}
	if err := m.setState(StateActive); err != nil {
		return false
	}
	m.ops = nil
	m.seq = 0
	m.backupDir = backupDir
	logger.InfoLog(ctx, "transaction started (backup dir %q)", backupDir)
	return true
}

// AddFileCreation records that path is about to be written. An existing
// file is snapshotted first. Outside a transaction this does nothing.
func (m *Manager) AddFileCreation(ctx context.Context, path string, meta map[string]string) error {
	return m.addFileOp(ctx, OpCreateFile, path, meta)
}

// AddFileDeletion records that path is about to be removed.
func (m *Manager) AddFileDeletion(ctx context.Context, path string, meta map[string]string) error {
	return m.addFileOp(ctx, OpDeleteFile, path, meta)
}

func (m *Manager) addFileOp(ctx context.Context, kind OpKind, path string, meta map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateActive {
		return nil
	}

	op := Operation{Kind: kind, Path: path, Meta: meta}
	if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() && m.backupDir != "" {
		m.seq++
		now := m.now()
		name := fmt.Sprintf("backup_%s_%06d_%d_%s", now.Format("20060102_150405"), now.Nanosecond()/1000, m.seq, filepath.Base(path))
		backup := filepath.Join(m.backupDir, name)
		if err := copyFile(path, backup); err != nil {
			return fmt.Errorf("snapshot %s: %w", path, err)
		}
		op.BackupPath = backup
		logger.DebugLog(ctx, "snapshot %s -> %s", path, backup)
	}
	m.ops = append(m.ops, op)
	return nil
}

// AddDirectoryCreation records a directory made by this transaction.
func (m *Manager) AddDirectoryCreation(ctx context.Context, path string, meta map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateActive {
		return nil
	}
	m.ops = append(m.ops, Operation{Kind: OpCreateDirectory, Path: path, Meta: meta})
	return nil
}

// Commit keeps every change and discards the snapshots.
func (m *Manager) Commit(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateActive {
		return ErrNotActive
	}
	if m.backupDir != "" {
		if err := os.RemoveAll(m.backupDir); err != nil {
			return fmt.Errorf("remove backup dir: %w", err)
		}
	}
	count := len(m.ops)
	m.reset()
	_ = m.setState(StateCommitted)
	_ = m.setState(StateIdle)
	logger.InfoLog(ctx, "transaction committed (%d operations)", count)
	return nil
}

// Rollback reverses every operation, newest first. A failing step is logged
// and collected; the remaining steps still run. The transaction always ends.
// Directories holding the backup directory are reversed after it is removed.
func (m *Manager) Rollback(ctx context.Context) (RollbackResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res RollbackResult
	if m.state != StateActive {
		return res, ErrNotActive
	}

	var holding []Operation
	for i := len(m.ops) - 1; i >= 0; i-- {
		op := m.ops[i]
		if op.Kind == OpCreateDirectory && m.holdsBackup(op.Path) {
			holding = append(holding, op)
			continue
		}
		res.apply(ctx, op)
	}

	if m.backupDir != "" {
		if err := os.RemoveAll(m.backupDir); err != nil {
			logger.WarnLog(ctx, "remove backup dir %s: %v", m.backupDir, err)
		}
	}
	for _, op := range holding {
		res.apply(ctx, op)
	}
	m.reset()
	_ = m.setState(StateRolledBack)
	_ = m.setState(StateIdle)

	if res.OK() {
		logger.InfoLog(ctx, "transaction rolled back (%d operations)", res.Reversed)
	} else {
		logger.WarnLog(ctx, "transaction rolled back with %d failures", len(res.Failed))
	}
	return res, nil
}

func (r *RollbackResult) apply(ctx context.Context, op Operation) {
	kept, err := reverse(op)
	switch {
	case err != nil:
		logger.ErrorLog(ctx, err, "rollback %s %s", op.Kind, op.Path)
		r.Failed = append(r.Failed, FailedOperation{Operation: op, Err: err})
	case kept:
		logger.WarnLog(ctx, "directory %s is not empty, leaving it", op.Path)
		r.Kept = append(r.Kept, op.Path)
	default:
		r.Reversed++
	}
}

// holdsBackup reports whether dir is the backup directory or one of its
// parents.
func (m *Manager) holdsBackup(dir string) bool {
	if m.backupDir == "" {
		return false
	}
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(m.backupDir))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func (m *Manager) reset() {
	m.ops = nil
	m.backupDir = ""
	m.seq = 0
}

func reverse(op Operation) (kept bool, err error) {
	switch op.Kind {
	case OpCreateFile:
		if op.BackupPath != "" {
			return false, copyFile(op.BackupPath, op.Path)
		}
		if err := os.Remove(op.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return false, err
		}
		return false, nil
	case OpDeleteFile:
		if op.BackupPath == "" {
			return false, nil
		}
		return false, copyFile(op.BackupPath, op.Path)
	case OpCreateDirectory:
		info, err := os.Stat(op.Path)
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if !info.IsDir() {
			return false, fmt.Errorf("%s is not a directory", op.Path)
		}
		entries, err := os.ReadDir(op.Path)
		if err != nil {
			return false, err
		}
		if len(entries) > 0 {
			return true, nil
		}
		return false, os.Remove(op.Path)
	}
	return false, fmt.Errorf("unknown operation %q", op.Kind)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
