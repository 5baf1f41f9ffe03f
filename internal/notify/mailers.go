package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileMailer writes each message as an .eml file into a directory. It is
// meant for development and for deployments that hand mail to another
// process.
type FileMailer struct {
	dir  string
	from string
	now  func() time.Time
}

// NewFileMailer creates a mailer writing into dir.
func NewFileMailer(dir, from string) *FileMailer {
	return &FileMailer{dir: dir, from: from, now: time.Now}
}

// Send writes the rendered message to a new file.
func (m *FileMailer) Send(_ context.Context, recipient string, email Email) error {
	if err := os.MkdirAll(m.dir, 0750); err != nil {
		return fmt.Errorf("failed to create mail directory: %w", err)
	}
	now := m.now()
	name := fmt.Sprintf("%s-%s.eml", now.UTC().Format("20060102T150405.000000000Z"), uuid.NewString())
	path := filepath.Join(m.dir, name)

	// Write to a temp name first so readers never see a partial message.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, Render(m.from, recipient, email, now), 0640); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// SentEmail is a message recorded by MemoryMailer.
type SentEmail struct {
	Recipient string
	Subject   string
	Body      string
}

// MemoryMailer records messages instead of sending them. Recipients can be
// made to fail with FailFor.
type MemoryMailer struct {
	mu       sync.Mutex
	sent     []SentEmail
	failures map[string]error
}

// NewMemoryMailer creates an empty in-memory mailer.
func NewMemoryMailer() *MemoryMailer {
	return &MemoryMailer{failures: make(map[string]error)}
}

// FailFor makes every Send to recipient return err.
func (m *MemoryMailer) FailFor(recipient string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[recipient] = err
}

// Send records the message or returns the configured failure.
func (m *MemoryMailer) Send(_ context.Context, recipient string, email Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failures[recipient]; ok {
		return err
	}
	m.sent = append(m.sent, SentEmail{Recipient: recipient, Subject: email.Subject(), Body: email.Body()})
	return nil
}

// Sent returns the recorded messages in send order.
func (m *MemoryMailer) Sent() []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentEmail, len(m.sent))
	copy(out, m.sent)
	return out
}
