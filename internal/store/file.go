package store

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/roundtable-dev/roundtable/internal/conversation"
	"github.com/roundtable-dev/roundtable/internal/errors"
)

const (
	// conversationsDir is the directory under the data root that holds one
	// subdirectory per conversation.
	conversationsDir = "conversations"

	metaFile      = "conversation.json"
	messagesFile  = "messages.jsonl"
	proposalsFile = "proposals.jsonl"
	votesFile     = "votes.jsonl"
)

// FileStore persists conversations under a data directory. Each conversation
// gets its own subdirectory with a JSON metadata snapshot and append-only
// JSONL logs for messages, proposals, and votes. Writes are serialized via
// a mutex and use O_APPEND.
type FileStore struct {
	dataDir string
	mu      sync.Mutex
}

// NewFileStore creates a FileStore rooted at the given data directory.
// The directory structure is created lazily on first write.
func NewFileStore(dataDir string) *FileStore {
	return &FileStore{dataDir: dataDir}
}

// SaveConversation writes the metadata snapshot via a temp-file rename so a
// crash mid-write never leaves a truncated snapshot.
func (s *FileStore) SaveConversation(conv *conversation.Conversation) error {
	if conv == nil || conv.ID == "" {
		return errors.New("store: conversation with empty ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.dirFor(conv.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "store: create conversation directory")
	}

	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "store: marshal conversation")
	}

	path := filepath.Join(dir, metaFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errors.Wrapf(err, "store: write conversation snapshot")
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, "store: commit conversation snapshot")
	}
	return nil
}

// LoadConversation reads a conversation's metadata snapshot.
func (s *FileStore) LoadConversation(id string) (*conversation.Conversation, error) {
	data, err := os.ReadFile(filepath.Join(s.dirFor(id), metaFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrConversationNotFound, "store: load %q", id)
		}
		return nil, errors.Wrapf(err, "store: read conversation snapshot")
	}

	var conv conversation.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, errors.Wrapf(err, "store: unmarshal conversation %q", id)
	}
	return &conv, nil
}

// ListConversations scans the conversations directory, newest first.
// Returns an empty slice if the data directory does not exist yet.
func (s *FileStore) ListConversations() ([]*conversation.Conversation, error) {
	entries, err := os.ReadDir(filepath.Join(s.dataDir, conversationsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "store: list conversations")
	}

	var out []*conversation.Conversation
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		conv, err := s.LoadConversation(entry.Name())
		if err != nil {
			// Skip directories without a readable snapshot
			continue
		}
		out = append(out, conv)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// AppendMessage appends a message to the conversation's message log.
func (s *FileStore) AppendMessage(msg conversation.Message) error {
	if msg.ConversationID == "" {
		return errors.New("store: message with empty conversation ID")
	}
	return appendJSONL(s, msg.ConversationID, messagesFile, msg)
}

// Messages returns a conversation's messages in append order.
func (s *FileStore) Messages(conversationID string) ([]conversation.Message, error) {
	return readJSONL[conversation.Message](s, conversationID, messagesFile)
}

// AppendProposal records a proposal in the proposal log.
func (s *FileStore) AppendProposal(p conversation.Proposal) error {
	if p.ConversationID == "" {
		return errors.New("store: proposal with empty conversation ID")
	}
	return appendJSONL(s, p.ConversationID, proposalsFile, p)
}

// Proposals returns a conversation's proposals in append order.
func (s *FileStore) Proposals(conversationID string) ([]conversation.Proposal, error) {
	return readJSONL[conversation.Proposal](s, conversationID, proposalsFile)
}

// AppendVote records a ballot in the append-only vote log.
func (s *FileStore) AppendVote(v conversation.Vote) error {
	if v.ConversationID == "" {
		return errors.New("store: vote with empty conversation ID")
	}
	return appendJSONL(s, v.ConversationID, votesFile, v)
}

// Votes replays the vote log and returns effective ballots, latest per
// (proposal, participant).
func (s *FileStore) Votes(conversationID string) ([]conversation.Vote, error) {
	log, err := readJSONL[conversation.Vote](s, conversationID, votesFile)
	if err != nil {
		return nil, err
	}
	return dedupeVotes(log), nil
}

// dirFor returns the directory for a given conversation.
func (s *FileStore) dirFor(conversationID string) string {
	return filepath.Join(s.dataDir, conversationsDir, conversationID)
}

// appendJSONL marshals v and appends it as one line to the named log file.
// Writes are serialized under the store mutex.
func appendJSONL(s *FileStore, conversationID, file string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.dirFor(conversationID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "store: create conversation directory")
	}

	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "store: marshal %s entry", file)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(filepath.Join(dir, file), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "store: open %s for append", file)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "store: append to %s", file)
	}
	return f.Close()
}

// readJSONL reads all entries from the named log file.
// Returns nil (not error) if the file does not exist.
func readJSONL[T any](s *FileStore, conversationID, file string) ([]T, error) {
	f, err := os.Open(filepath.Join(s.dirFor(conversationID), file))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "store: open %s", file)
	}
	defer func() { _ = f.Close() }()

	var out []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var v T
		if err := json.Unmarshal(line, &v); err != nil {
			// Skip malformed lines rather than failing entirely
			continue
		}
		out = append(out, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "store: scan %s", file)
	}
	return out, nil
}
