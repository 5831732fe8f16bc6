package services

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/daybook/apiserver/internal/storage"
	"github.com/google/uuid"
)

const exportContentType = "application/gzip"

// ExportService builds tar.gz snapshots of a user's data and uploads them
// to object storage. It is only wired when a storage backend is configured.
type ExportService struct {
	todos    TodoRepository
	journals JournalRepository
	storage  *storage.Storage
}

func NewExportService(todos TodoRepository, journals JournalRepository, st *storage.Storage) *ExportService {
	return &ExportService{todos: todos, journals: journals, storage: st}
}

// Export snapshots the user's todos and journal entries as JSON files
// inside a tar.gz archive, uploads the archive and returns its object key.
func (s *ExportService) Export(ctx context.Context, userID uuid.UUID) (string, error) {
	todos, err := s.todos.ListByUser(ctx, userID)
	if err != nil {
		return "", err
	}
	entries, err := s.journals.ListByUser(ctx, userID)
	if err != nil {
		return "", err
	}

	archive, err := buildExportArchive(map[string]any{
		"todos.json":   todos,
		"journal.json": entries,
	})
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("exports/%s/%d.tar.gz", userID, time.Now().Unix())
	if err := s.storage.Put(ctx, key, bytes.NewReader(archive), int64(len(archive)), exportContentType); err != nil {
		return "", err
	}
	return key, nil
}

func buildExportArchive(files map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)

	for name, value := range files {
		data, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return nil, err
		}
		header := &tar.Header{
			Name:    name,
			Mode:    0o644,
			Size:    int64(len(data)),
			ModTime: time.Now(),
		}
		if err := tw.WriteHeader(header); err != nil {
			return nil, err
		}
		if _, err := tw.Write(data); err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
