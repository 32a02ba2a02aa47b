package backup

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/flasherpro/console/internal/database"
)

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu       sync.Mutex
	objects  map[string][]byte
	modified map[string]time.Time
	putErr   error
}

func newMockS3() *mockS3Client {
	return &mockS3Client{
		objects:  make(map[string][]byte),
		modified: make(map[string]time.Time),
	}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, _ := io.ReadAll(input.Body)
	m.objects[*input.Key] = data
	m.modified[*input.Key] = time.Now().UTC()
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) ListObjectsV2(_ context.Context, input *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := &s3.ListObjectsV2Output{}
	for key := range m.objects {
		if input.Prefix != nil && !strings.HasPrefix(key, *input.Prefix) {
			continue
		}
		mod := m.modified[key]
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(key),
			LastModified: &mod,
		})
	}
	return out, nil
}

func (m *mockS3Client) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *input.Key)
	delete(m.modified, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestManagerDisabledWithoutConfig(t *testing.T) {
	m := NewManager(Config{}, nil, testLogger())
	if m.Status().State != StateDisabled {
		t.Errorf("state = %q, want %q", m.Status().State, StateDisabled)
	}
	if m.Enabled() {
		t.Error("Enabled() = true for unconfigured manager")
	}
	if _, err := m.RunNow(context.Background()); err == nil {
		t.Error("RunNow on disabled manager should fail")
	}
}

func TestManagerIdleWithConfig(t *testing.T) {
	m := NewManager(Config{
		S3: S3Config{Bucket: "backups", AccessKey: "key", SecretKey: "secret"},
	}, nil, testLogger())
	if m.Status().State != StateIdle {
		t.Errorf("state = %q, want %q", m.Status().State, StateIdle)
	}
}

func TestRunNowUploadsSnapshot(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	m := NewManager(Config{
		S3: S3Config{Bucket: "backups", AccessKey: "key", SecretKey: "secret", Prefix: "console"},
	}, db, testLogger())
	mock := newMockS3()
	m.client = mock

	key, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if !strings.HasPrefix(key, "console/console-") {
		t.Errorf("object key = %q, want console/ prefix", key)
	}

	data, ok := mock.objects[key]
	if !ok {
		t.Fatalf("uploaded object %q not found", key)
	}
	// SQLite files start with a fixed 16-byte header string.
	if !bytes.HasPrefix(data, []byte("SQLite format 3")) {
		t.Error("uploaded snapshot is not a sqlite database")
	}

	status := m.Status()
	if status.State != StateIdle || status.LastBackup == nil || status.LastKey != key {
		t.Errorf("status after backup = %+v", status)
	}
}

func TestRunNowEncryptsWithPassphrase(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	m := NewManager(Config{
		S3:         S3Config{Bucket: "backups", AccessKey: "key", SecretKey: "secret"},
		Passphrase: "hunter2",
	}, db, testLogger())
	mock := newMockS3()
	m.client = mock

	key, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if !strings.HasSuffix(key, ".db.enc") {
		t.Errorf("object key = %q, want .db.enc suffix", key)
	}

	data := mock.objects[key]
	if bytes.HasPrefix(data, []byte("SQLite format 3")) {
		t.Fatal("snapshot uploaded in plaintext despite passphrase")
	}

	plain, err := Decrypt(data, "hunter2")
	if err != nil {
		t.Fatalf("decrypt snapshot: %v", err)
	}
	if !bytes.HasPrefix(plain, []byte("SQLite format 3")) {
		t.Error("decrypted snapshot is not a sqlite database")
	}
}

func TestCleanupDeletesOldObjects(t *testing.T) {
	m := NewManager(Config{
		S3:            S3Config{Bucket: "backups", AccessKey: "key", SecretKey: "secret"},
		RetentionDays: 7,
	}, nil, testLogger())
	mock := newMockS3()
	m.client = mock

	mock.objects["console-old.db"] = []byte("old")
	mock.modified["console-old.db"] = time.Now().UTC().AddDate(0, 0, -10)
	mock.objects["console-new.db"] = []byte("new")
	mock.modified["console-new.db"] = time.Now().UTC()

	if err := m.Cleanup(context.Background()); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if _, ok := mock.objects["console-old.db"]; ok {
		t.Error("old backup not deleted")
	}
	if _, ok := mock.objects["console-new.db"]; !ok {
		t.Error("recent backup deleted")
	}
}

func TestStartStopNoConfig(t *testing.T) {
	m := NewManager(Config{}, nil, testLogger())
	m.Start(context.Background())
	m.Stop()
}
