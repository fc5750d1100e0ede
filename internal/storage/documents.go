package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DocumentStore persists the original document attached to a purchase
// invoice and returns a path that can be stored on the invoice record.
type DocumentStore interface {
	Save(invoiceNumber string, r io.Reader) (string, error)
}

// LocalDocumentStore writes invoice documents under a base directory on
// local disk. Files are written to a temp name first and renamed into
// place so a crashed upload never leaves a half-written document behind.
type LocalDocumentStore struct {
	baseDir string
}

func NewLocalDocumentStore(baseDir string) (*LocalDocumentStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create document directory %s: %w", baseDir, err)
	}
	return &LocalDocumentStore{baseDir: baseDir}, nil
}

func (s *LocalDocumentStore) Save(invoiceNumber string, r io.Reader) (string, error) {
	name := fmt.Sprintf("%s_%s.pdf", sanitizeFilename(invoiceNumber), time.Now().Format("20060102_150405"))
	finalPath := filepath.Join(s.baseDir, name)

	tmp, err := os.CreateTemp(s.baseDir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to close document: %w", err)
	}

	if err := os.Rename(tmpName, finalPath); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to store document: %w", err)
	}

	return finalPath, nil
}

// sanitizeFilename keeps invoice numbers from escaping the base directory
// or producing invalid filenames.
func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", "..", "_", " ", "_")
	out := replacer.Replace(s)
	if out == "" {
		out = "invoice"
	}
	return out
}
