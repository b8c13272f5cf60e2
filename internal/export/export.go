// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/zhai-tui/internal/util"
)

// ErrEmpty is returned when a transcript without messages is exported.
var ErrEmpty = errors.New("transcript has no messages")

// =============================================================================
// TRANSCRIPT
// =============================================================================

// Entry is one rendered message.
type Entry struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	Time time.Time `json:"time"`
}

// Transcript collects the messages of one run. It is safe for concurrent
// use; the REPL appends from the submit goroutine while commands read it.
type Transcript struct {
	mu        sync.Mutex
	user      string
	createdAt time.Time
	entries   []Entry
	now       func() time.Time
}

// NewTranscript starts an empty transcript for user.
func NewTranscript(user string) *Transcript {
	return &Transcript{user: user, createdAt: time.Now(), now: time.Now}
}

// Add appends a message.
func (t *Transcript) Add(role, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, Entry{Role: role, Text: text, Time: t.now()})
}

// SetUser changes the user the transcript is attributed to.
func (t *Transcript) SetUser(user string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.user = user
}

// User returns the user the transcript is attributed to.
func (t *Transcript) User() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.user
}

// Clear drops all messages and restarts the creation time.
func (t *Transcript) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = nil
	t.createdAt = t.now()
}

// Entries returns a copy of the messages in display order.
func (t *Transcript) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// CreatedAt returns when the transcript was started or last cleared.
func (t *Transcript) CreatedAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.createdAt
}

// Last returns the most recent message with the given role.
func (t *Transcript) Last(role string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := len(t.entries) - 1; i >= 0; i-- {
		if t.entries[i].Role == role {
			return t.entries[i], true
		}
	}
	return Entry{}, false
}

// snapshot is the immutable view exporters render.
type snapshot struct {
	User      string    `json:"user"`
	CreatedAt time.Time `json:"created_at"`
	Messages  []Entry   `json:"messages"`
}

func (t *Transcript) snapshot() (snapshot, error) {
	if t == nil {
		return snapshot{}, errors.New("transcript is nil")
	}
	s := snapshot{User: t.User(), CreatedAt: t.CreatedAt(), Messages: t.Entries()}
	if len(s.Messages) == 0 {
		return snapshot{}, ErrEmpty
	}
	return s, nil
}

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter renders a transcript in one format.
type Exporter interface {
	// Export converts a transcript to the target format.
	Export(t *Transcript) ([]byte, error)

	// FileExtension returns the file extension, with the dot.
	FileExtension() string

	// MimeType returns the MIME type of the output.
	MimeType() string
}

// ForPath picks an exporter from the extension of path. Unknown or
// missing extensions get HTML.
func ForPath(path string) Exporter {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return NewMarkdownExporter()
	case ".json":
		return NewJSONExporter()
	default:
		return NewHTMLExporter()
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// WriteFile exports t to path, choosing the format with ForPath. An empty
// path gets DefaultFilename in the current directory. The file is written
// atomically with 0600 permissions, since transcripts are private. The
// path written is returned.
func WriteFile(t *Transcript, path string) (string, error) {
	exporter := ForPath(path)
	if path == "" {
		path = DefaultFilename(t, exporter)
	}

	content, err := exporter.Export(t)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}
	if err := util.AtomicWriteFile(path, content, 0600); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// DefaultFilename names an export after its user and the current time.
func DefaultFilename(t *Transcript, exporter Exporter) string {
	user := ""
	if t != nil {
		user = t.User()
	}
	return fmt.Sprintf("zhai_%s_%s%s",
		sanitizeFilename(user),
		time.Now().Format("20060102_150405"),
		exporter.FileExtension(),
	)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	const maxLen = 50
	runes := []rune(s)
	if len(runes) > maxLen {
		runes = runes[:maxLen]
	}

	result := make([]rune, 0, len(runes))
	for _, r := range runes {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			result = append(result, '-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			result = append(result, '_')
		case r < 32 || r == 127:
			result = append(result, '-')
		default:
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return "transcript"
	}
	return string(result)
}

// transcriptTitle heads every export format.
func transcriptTitle(user string) string {
	if user == "" {
		return "翟助手 transcript"
	}
	return "翟助手 transcript - " + user
}

// roleLabel returns the display label for a message role.
func roleLabel(role string) string {
	switch role {
	case "user":
		return "You"
	case "bot":
		return "翟助手"
	case "error":
		return "Error"
	case "":
		return "Unknown"
	default:
		runes := []rune(role)
		return strings.ToUpper(string(runes[0])) + string(runes[1:])
	}
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// formatShortTimestamp formats a timestamp for inline display.
func formatShortTimestamp(t time.Time) string {
	return t.Format("15:04:05")
}
