package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"redditcollector/pkg/logger"
)

const currentVersion = 1

// Checkpoint records how far post collection got through the user list
type Checkpoint struct {
	LastProcessedUsername string    `json:"last_processed_username"`
	Subreddit             string    `json:"subreddit,omitempty"`
	UsersProcessed        int       `json:"users_processed"`
	RunID                 string    `json:"run_id,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
	Version               int       `json:"version"`
}

// Age is the time since the checkpoint was last written
func (c *Checkpoint) Age() time.Duration {
	return time.Since(c.UpdatedAt)
}

// Manager handles checkpoint operations
type Manager struct {
	checkpointPath string
	logger         logger.Logger
	mu             sync.Mutex
}

// NewManager creates a checkpoint manager for the file at path
func NewManager(path string, log logger.Logger) (*Manager, error) {
	if path == "" {
		return nil, fmt.Errorf("checkpoint path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Manager{
		checkpointPath: path,
		logger:         log,
	}, nil
}

// Path returns the checkpoint file location
func (m *Manager) Path() string {
	return m.checkpointPath
}

// Create starts a fresh checkpoint for a collection run
func (m *Manager) Create(subreddit, runID string) *Checkpoint {
	now := time.Now().UTC()
	return &Checkpoint{
		Subreddit: subreddit,
		RunID:     runID,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   currentVersion,
	}
}

// Load loads an existing checkpoint. It returns nil, nil when none exists.
func (m *Manager) Load() (*Checkpoint, error) {
	data, err := os.ReadFile(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var checkpoint Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	checkpoint.LastProcessedUsername = strings.ToLower(strings.TrimSpace(checkpoint.LastProcessedUsername))

	m.logger.DebugWithFields("Checkpoint loaded", map[string]interface{}{
		"last_processed_username": checkpoint.LastProcessedUsername,
		"users_processed":         checkpoint.UsersProcessed,
		"updated_at":              checkpoint.UpdatedAt,
	})

	return &checkpoint, nil
}

// Save writes the checkpoint to disk atomically
func (m *Manager) Save(checkpoint *Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	checkpoint.UpdatedAt = time.Now().UTC()
	if checkpoint.Version == 0 {
		checkpoint.Version = currentVersion
	}

	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	file, err := os.CreateTemp(filepath.Dir(m.checkpointPath), filepath.Base(m.checkpointPath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}
	tempPath := file.Name()

	if _, err := file.Write(append(data, '\n')); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, m.checkpointPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	return nil
}

// Record marks username as the last fully processed user and saves
func (m *Manager) Record(checkpoint *Checkpoint, username string) error {
	checkpoint.LastProcessedUsername = strings.ToLower(strings.TrimSpace(username))
	checkpoint.UsersProcessed++
	if err := m.Save(checkpoint); err != nil {
		return err
	}

	m.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"username":        checkpoint.LastProcessedUsername,
		"users_processed": checkpoint.UsersProcessed,
	})
	return nil
}

// Delete removes the checkpoint file
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	m.logger.Info("Checkpoint deleted")
	return nil
}

// Exists checks if a checkpoint file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}
