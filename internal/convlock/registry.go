// Package convlock provides cross-process advisory claims on conversations.
//
// Advance is never safe to run twice concurrently for the same conversation,
// and the in-process guard cannot see a second roundtable process driving
// the same persisted conversation. The Registry claims a conversation with
// an exclusive lock file under the data directory; a second process fails
// with ErrAlreadyClaimed until the first releases it. Claims from dead
// processes on the same host are detected and taken over.
package convlock

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/roundtable-dev/roundtable/internal/errors"
)

// Sentinel errors returned by registry operations.
var (
	// ErrAlreadyClaimed is returned when a conversation is already claimed by
	// another live process.
	ErrAlreadyClaimed = errors.New("conversation already claimed by another process")

	// ErrNotClaimed is returned when releasing a conversation this registry
	// never claimed.
	ErrNotClaimed = errors.New("conversation is not claimed by this process")
)

// Claim records which process owns a conversation.
type Claim struct {
	ConversationID string    `json:"conversation_id"`
	PID            int       `json:"pid"`
	Hostname       string    `json:"hostname"`
	ClaimedAt      time.Time `json:"claimed_at"`
}

// Registry claims conversations via exclusive lock files. Safe for
// concurrent use within a process; exclusion across processes comes from
// O_EXCL file creation.
type Registry struct {
	dir string

	mu    sync.Mutex
	owned map[string]bool
}

// NewRegistry creates a Registry storing lock files under dataDir/locks.
func NewRegistry(dataDir string) *Registry {
	return &Registry{
		dir:   filepath.Join(dataDir, "locks"),
		owned: make(map[string]bool),
	}
}

// Claim takes exclusive ownership of a conversation. A claim held by a dead
// process on this host is removed and retaken.
func (r *Registry) Claim(conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.owned[conversationID] {
		return nil
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return errors.Wrapf(err, "convlock: create lock dir")
	}

	if err := r.writeClaim(conversationID); err == nil {
		r.owned[conversationID] = true
		return nil
	} else if !os.IsExist(err) {
		return errors.Wrapf(err, "convlock: claim %q", conversationID)
	}

	existing, err := r.readClaim(conversationID)
	if err == nil && r.stale(existing) {
		if err := os.Remove(r.lockPath(conversationID)); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "convlock: remove stale claim for %q", conversationID)
		}
		if err := r.writeClaim(conversationID); err != nil {
			if os.IsExist(err) {
				return errors.Wrapf(ErrAlreadyClaimed, "conversation %q", conversationID)
			}
			return errors.Wrapf(err, "convlock: claim %q", conversationID)
		}
		r.owned[conversationID] = true
		return nil
	}

	if err == nil {
		return errors.Wrapf(ErrAlreadyClaimed, "conversation %q (pid %d on %s)", conversationID, existing.PID, existing.Hostname)
	}
	return errors.Wrapf(ErrAlreadyClaimed, "conversation %q", conversationID)
}

// Release gives up ownership of a conversation.
func (r *Registry) Release(conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.owned[conversationID] {
		return errors.Wrapf(ErrNotClaimed, "conversation %q", conversationID)
	}
	delete(r.owned, conversationID)

	if err := os.Remove(r.lockPath(conversationID)); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "convlock: release %q", conversationID)
	}
	return nil
}

// ReleaseAll gives up every claim this registry holds. Called on shutdown.
func (r *Registry) ReleaseAll() error {
	r.mu.Lock()
	ids := make([]string, 0, len(r.owned))
	for id := range r.owned {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := r.Release(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Owner returns the recorded claim for a conversation, if any.
func (r *Registry) Owner(conversationID string) (Claim, bool) {
	claim, err := r.readClaim(conversationID)
	if err != nil {
		return Claim{}, false
	}
	return claim, true
}

func (r *Registry) lockPath(conversationID string) string {
	return filepath.Join(r.dir, conversationID+".lock")
}

func (r *Registry) writeClaim(conversationID string) error {
	hostname, _ := os.Hostname()
	claim := Claim{
		ConversationID: conversationID,
		PID:            os.Getpid(),
		Hostname:       hostname,
		ClaimedAt:      time.Now().UTC(),
	}

	f, err := os.OpenFile(r.lockPath(conversationID), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(claim)
}

func (r *Registry) readClaim(conversationID string) (Claim, error) {
	data, err := os.ReadFile(r.lockPath(conversationID))
	if err != nil {
		return Claim{}, err
	}
	var claim Claim
	if err := json.Unmarshal(data, &claim); err != nil {
		return Claim{}, err
	}
	return claim, nil
}

// stale reports whether a claim belongs to a process that no longer exists
// on this host. Claims from other hosts are never considered stale.
func (r *Registry) stale(claim Claim) bool {
	hostname, _ := os.Hostname()
	if claim.Hostname != hostname || claim.PID <= 0 {
		return false
	}
	if claim.PID == os.Getpid() {
		return false
	}

	proc, err := os.FindProcess(claim.PID)
	if err != nil {
		return true
	}
	return proc.Signal(syscall.Signal(0)) != nil
}
