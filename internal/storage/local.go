package storage

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// StatementsDir is the subdirectory uploaded bank statements are kept under.
const StatementsDir = "statements"

var ErrOutsideBase = errors.New("path escapes storage directory")

// LocalStorage handles file storage on the local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	// Ensure the base directory exists
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage directory: %w", err)
	}
	return &LocalStorage{basePath: abs}, nil
}

// Save writes data under subDir/YYYY/MM with a random name that keeps the
// original extension, and returns the path relative to the base directory.
func (s *LocalStorage) Save(data []byte, filename string, subDir string) (string, error) {
	dir := filepath.Join(s.basePath, subDir, time.Now().Format("2006/01"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	uniqueFilename := fmt.Sprintf("%s%s", generateID(), ext)
	filePath := filepath.Join(dir, uniqueFilename)

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	relPath, _ := filepath.Rel(s.basePath, filePath)
	return relPath, nil
}

// Read returns the contents of a stored file
func (s *LocalStorage) Read(relativePath string) ([]byte, error) {
	full, err := s.SafeFullPath(relativePath)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

// Delete removes a file
func (s *LocalStorage) Delete(relativePath string) error {
	full, err := s.SafeFullPath(relativePath)
	if err != nil {
		return err
	}
	return os.Remove(full)
}

// Exists checks if a file exists
func (s *LocalStorage) Exists(relativePath string) bool {
	full, err := s.SafeFullPath(relativePath)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return err == nil
}

// SafeFullPath resolves relativePath against the base directory and rejects
// anything that would land outside it.
func (s *LocalStorage) SafeFullPath(relativePath string) (string, error) {
	full := filepath.Join(s.basePath, filepath.Clean("/"+relativePath))
	if full != s.basePath && !strings.HasPrefix(full, s.basePath+string(filepath.Separator)) {
		return "", ErrOutsideBase
	}
	return full, nil
}

// generateID creates a unique identifier for filenames
func generateID() string {
	bytes := make([]byte, 16)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// StatementExtensions returns the accepted statement file extensions
func StatementExtensions() map[string]bool {
	return map[string]bool{
		".csv":  true,
		".xlsx": true,
	}
}

// IsStatementFile checks the upload's extension
func IsStatementFile(filename string) bool {
	return StatementExtensions()[strings.ToLower(filepath.Ext(filename))]
}

// MaxFileSize returns the maximum allowed file size (10MB)
func MaxFileSize() int64 {
	return 10 * 1024 * 1024 // 10 MB
}
