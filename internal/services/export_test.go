package services

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/daybook/apiserver/internal/storage"
	"github.com/daybook/apiserver/types"
	"github.com/google/uuid"
)

type capturedObject struct {
	key         string
	data        []byte
	size        int64
	contentType string
}

type fakeStorageBackend struct {
	objects []capturedObject
}

func (b *fakeStorageBackend) EnsureBucket(ctx context.Context) error { return nil }

func (b *fakeStorageBackend) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.objects = append(b.objects, capturedObject{key: key, data: data, size: size, contentType: contentType})
	return nil
}

func (b *fakeStorageBackend) Bucket() string { return "test-bucket" }

func TestExport(t *testing.T) {
	ctx := context.Background()
	todos := newFakeTodoRepo()
	journals := newFakeJournalRepo()
	backend := &fakeStorageBackend{}
	svc := NewExportService(todos, journals, storage.NewStorage(backend))

	alice := uuid.New()
	bob := uuid.New()
	if _, err := todos.Create(ctx, types.Todo{Title: "alice todo", UserID: &alice, Status: types.TodoStatusPending}); err != nil {
		t.Fatalf("create todo: %v", err)
	}
	if _, err := todos.Create(ctx, types.Todo{Title: "bob todo", UserID: &bob, Status: types.TodoStatusPending}); err != nil {
		t.Fatalf("create todo: %v", err)
	}
	entryDate := time.Date(2026, time.August, 3, 20, 0, 0, 0, time.Local)
	if _, err := journals.Create(ctx, types.JournalEntry{EntryDate: entryDate, Content: "alice entry", UserID: &alice}); err != nil {
		t.Fatalf("create entry: %v", err)
	}

	key, err := svc.Export(ctx, alice)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.HasPrefix(key, "exports/"+alice.String()+"/") || !strings.HasSuffix(key, ".tar.gz") {
		t.Fatalf("unexpected object key %q", key)
	}

	if len(backend.objects) != 1 {
		t.Fatalf("expected 1 uploaded object, got %d", len(backend.objects))
	}
	obj := backend.objects[0]
	if obj.key != key {
		t.Fatalf("uploaded key %q, returned key %q", obj.key, key)
	}
	if obj.contentType != "application/gzip" {
		t.Fatalf("content type = %q", obj.contentType)
	}
	if obj.size != int64(len(obj.data)) {
		t.Fatalf("declared size %d, actual %d", obj.size, len(obj.data))
	}

	files := readArchive(t, obj.data)
	todosJSON, ok := files["todos.json"]
	if !ok {
		t.Fatal("archive missing todos.json")
	}
	journalJSON, ok := files["journal.json"]
	if !ok {
		t.Fatal("archive missing journal.json")
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files in archive, got %d", len(files))
	}

	var exportedTodos []types.Todo
	if err := json.Unmarshal(todosJSON, &exportedTodos); err != nil {
		t.Fatalf("decode todos.json: %v", err)
	}
	if len(exportedTodos) != 1 || exportedTodos[0].Title != "alice todo" {
		t.Fatalf("unexpected todos payload: %+v", exportedTodos)
	}

	var exportedEntries []types.JournalEntry
	if err := json.Unmarshal(journalJSON, &exportedEntries); err != nil {
		t.Fatalf("decode journal.json: %v", err)
	}
	if len(exportedEntries) != 1 || exportedEntries[0].Content != "alice entry" {
		t.Fatalf("unexpected journal payload: %+v", exportedEntries)
	}
}

func TestExportEmptyAccount(t *testing.T) {
	ctx := context.Background()
	backend := &fakeStorageBackend{}
	svc := NewExportService(newFakeTodoRepo(), newFakeJournalRepo(), storage.NewStorage(backend))

	if _, err := svc.Export(ctx, uuid.New()); err != nil {
		t.Fatalf("export: %v", err)
	}

	files := readArchive(t, backend.objects[0].data)
	var exportedTodos []types.Todo
	if err := json.Unmarshal(files["todos.json"], &exportedTodos); err != nil {
		t.Fatalf("decode todos.json: %v", err)
	}
	if len(exportedTodos) != 0 {
		t.Fatalf("expected empty todos, got %d", len(exportedTodos))
	}
}

func readArchive(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	gr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open gzip: %v", err)
	}
	defer gr.Close()

	files := make(map[string][]byte)
	tr := tar.NewReader(gr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("read tar: %v", err)
		}
		content, err := io.ReadAll(tr)
		if err != nil {
			t.Fatalf("read %s: %v", header.Name, err)
		}
		files[header.Name] = content
	}
	return files
}
