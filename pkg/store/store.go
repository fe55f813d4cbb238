package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"redditcollector/pkg/config"
	"redditcollector/pkg/logger"
)

// Manager owns users.csv and posts.csv. Appends are incremental; the posts
// table is only rewritten wholesale by LoadAllPosts and RewritePosts.
type Manager struct {
	usersPath  string
	postsPath  string
	backupPath string
	backup     bool
	logger     logger.Logger

	mu       sync.RWMutex
	users    map[string]struct{} // nil until first needed
	posts    map[uint64]struct{} // nil until first needed
	backedUp bool
}

// NewManager creates a store rooted at the configured data directory
func NewManager(cfg config.StorageConfig, log logger.Logger) (*Manager, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if cfg.DataDirectory != "" {
		if err := os.MkdirAll(cfg.DataDirectory, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	postsPath := cfg.Path(cfg.PostsFile)
	return &Manager{
		usersPath:  cfg.Path(cfg.UsersFile),
		postsPath:  postsPath,
		backupPath: postsPath + ".bak.zst",
		backup:     cfg.BackupOnRewrite,
		logger:     log,
	}, nil
}

// UsersPath returns the location of users.csv
func (m *Manager) UsersPath() string { return m.usersPath }

// PostsPath returns the location of posts.csv
func (m *Manager) PostsPath() string { return m.postsPath }

// BackupPath returns where the pre-rewrite backup of posts.csv is written
func (m *Manager) BackupPath() string { return m.backupPath }

// AppendUsers appends rows to users.csv, creating it with a header if needed
func (m *Manager) AppendUsers(rows []User) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.loadUsersLocked(); err != nil {
		return 0, err
	}

	batch := make([]User, 0, len(rows))
	for _, u := range rows {
		u = u.Normalize()
		if u.Username == "" {
			continue
		}
		batch = append(batch, u)
	}
	if len(batch) == 0 {
		return 0, nil
	}

	err := appendFile(m.usersPath, func(header bool) ([]byte, error) {
		return encodeUsers(batch, header)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to append users: %w", err)
	}

	for _, u := range batch {
		m.users[u.Username] = struct{}{}
	}
	m.logger.DebugWithFields("Users appended", map[string]interface{}{
		"rows": len(batch),
		"path": m.usersPath,
	})
	return len(batch), nil
}

// AppendPosts appends the rows whose fingerprint is not yet recorded and
// returns how many were written.
func (m *Manager) AppendPosts(rows []Post) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.loadPostsLocked(); err != nil {
		return 0, err
	}

	batch := make([]Post, 0, len(rows))
	prints := make([]uint64, 0, len(rows))
	pending := make(map[uint64]struct{}, len(rows))
	for _, p := range rows {
		p = p.Normalize()
		fp := p.Fingerprint()
		if _, ok := m.posts[fp]; ok {
			continue
		}
		if _, ok := pending[fp]; ok {
			continue
		}
		pending[fp] = struct{}{}
		batch = append(batch, p)
		prints = append(prints, fp)
	}
	if len(batch) == 0 {
		return 0, nil
	}

	err := appendFile(m.postsPath, func(header bool) ([]byte, error) {
		return encodePosts(batch, header)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to append posts: %w", err)
	}

	for _, fp := range prints {
		m.posts[fp] = struct{}{}
	}
	return len(batch), nil
}

// HasUser reports whether username already appears in users.csv
func (m *Manager) HasUser(username string) (bool, error) {
	if err := m.ensureUsers(); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.users[normalizeName(username)]
	return ok, nil
}

// HasPost reports whether a row with the same base columns is already stored
func (m *Manager) HasPost(p Post) (bool, error) {
	if err := m.ensurePosts(); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.posts[p.Fingerprint()]
	return ok, nil
}

// LoadUsers reads users.csv in file order. A missing file yields no rows.
func (m *Manager) LoadUsers() ([]User, error) {
	var users []User
	err := table(m.usersPath, []string{"username"}, func(_ int, col func(string) string) error {
		users = append(users, User{Username: col("username"), Subreddit: col("subreddit")})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (m *Manager) readPosts() ([]Post, error) {
	var posts []Post
	err := table(m.postsPath, basePostColumns, func(_ int, col func(string) string) error {
		p, err := decodePost(col)
		if err != nil {
			return err
		}
		posts = append(posts, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// LoadAllPosts reads posts.csv in file order and drops exact duplicates,
// keeping the first occurrence. The file is rewritten only when something
// was removed. It returns the kept rows and the number removed.
func (m *Manager) LoadAllPosts() ([]Post, int, error) {
	posts, err := m.readPosts()
	if err != nil {
		return nil, 0, err
	}

	seen := make(map[uint64]struct{}, len(posts))
	kept := posts[:0]
	for _, p := range posts {
		fp := p.Fingerprint()
		if _, ok := seen[fp]; ok {
			continue
		}
		seen[fp] = struct{}{}
		kept = append(kept, p)
	}

	removed := len(posts) - len(kept)
	if removed > 0 {
		if err := m.RewritePosts(kept); err != nil {
			return nil, 0, err
		}
		m.logger.InfoWithFields("Duplicate posts removed", map[string]interface{}{
			"removed": removed,
			"kept":    len(kept),
		})
	}
	return kept, removed, nil
}

// RewritePosts replaces posts.csv with rows. The previous file is backed up
// once per Manager before the first rewrite when backups are enabled.
func (m *Manager) RewritePosts(rows []Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backup && !m.backedUp {
		written, err := backupFile(m.postsPath, m.backupPath)
		if err != nil {
			return fmt.Errorf("failed to back up posts: %w", err)
		}
		if written {
			m.logger.DebugWithFields("Posts backed up", map[string]interface{}{
				"path": m.backupPath,
			})
		}
		m.backedUp = true
	}

	err := writeAtomic(m.postsPath, func(w io.Writer) error {
		return writePosts(w, rows, true)
	})
	if err != nil {
		return fmt.Errorf("failed to rewrite posts: %w", err)
	}

	prints := make(map[uint64]struct{}, len(rows))
	for _, p := range rows {
		prints[p.Fingerprint()] = struct{}{}
	}
	m.posts = prints
	return nil
}

// LastPostUsername returns the username on the final row of posts.csv, or ""
// when the file is absent or has no rows.
func (m *Manager) LastPostUsername() (string, error) {
	var last string
	err := table(m.postsPath, []string{"username"}, func(_ int, col func(string) string) error {
		last = col("username")
		return nil
	})
	if err != nil {
		return "", err
	}
	return normalizeName(last), nil
}

// Stats summarizes the stored tables
type Stats struct {
	UserRows    int
	UniqueUsers int
	PostRows    int
}

// Stats counts the rows of both tables
func (m *Manager) Stats() (Stats, error) {
	users, err := m.LoadUsers()
	if err != nil {
		return Stats{}, err
	}
	var posts int
	err = table(m.postsPath, []string{"username"}, func(int, func(string) string) error {
		posts++
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		UserRows:    len(users),
		UniqueUsers: len(Usernames(users)),
		PostRows:    posts,
	}, nil
}

func (m *Manager) ensureUsers() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadUsersLocked()
}

func (m *Manager) ensurePosts() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadPostsLocked()
}

func (m *Manager) loadUsersLocked() error {
	if m.users != nil {
		return nil
	}
	users, err := m.LoadUsers()
	if err != nil {
		return err
	}
	m.users = make(map[string]struct{}, len(users))
	for _, u := range users {
		m.users[normalizeName(u.Username)] = struct{}{}
	}
	return nil
}

func (m *Manager) loadPostsLocked() error {
	if m.posts != nil {
		return nil
	}
	posts, err := m.readPosts()
	if err != nil {
		return err
	}
	m.posts = make(map[uint64]struct{}, len(posts))
	for _, p := range posts {
		m.posts[p.Fingerprint()] = struct{}{}
	}
	return nil
}

// appendFile writes the encoded rows with one write call followed by fsync.
// encode is told whether the file still needs its header.
func appendFile(path string, encode func(header bool) ([]byte, error)) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	data, err := encode(info.Size() == 0)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to encode rows: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	return f.Close()
}

// writeAtomic writes path through a temporary sibling file that is synced
// and renamed into place.
func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil && !errors.Is(err, os.ErrNotExist) {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
