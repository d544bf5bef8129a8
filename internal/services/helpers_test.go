package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"agora/internal/db"
	"agora/internal/models"
	"agora/internal/storage"
	"agora/internal/utils"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var bg = context.Background()

// newTestDB opens a private in-memory SQLite database for the test.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func newTestCache(t *testing.T) *utils.QueryCache {
	t.Helper()
	c, err := utils.NewQueryCache(100, time.Minute)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	return c
}

// fakeStore is an in-memory ObjectStore.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string]int64
	deleted []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string]int64{}}
}

func (f *fakeStore) put(key string, size int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = size
}

func (f *fakeStore) deletedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func (f *fakeStore) PresignPut(_ context.Context, key, contentType string, ttl time.Duration) (string, error) {
	return "https://upload.example.com/" + key + "?sig=test", nil
}

func (f *fakeStore) Head(_ context.Context, key string) (storage.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	size, ok := f.objects[key]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrNotFound
	}
	return storage.ObjectInfo{Size: size}, nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStore) URL(key string) string {
	return "https://cdn.example.com/" + key
}

type fixture struct {
	db    *gorm.DB
	store *fakeStore
	svc   *Services
}

func newFixture(t *testing.T, admins ...string) *fixture {
	t.Helper()
	gdb := newTestDB(t)
	store := newFakeStore()
	return &fixture{
		db:    gdb,
		store: store,
		svc:   New(gdb, newTestCache(t), store, Options{AdminEmails: admins}),
	}
}

func (f *fixture) user(t *testing.T, name string) models.User {
	t.Helper()
	u, err := f.svc.Users.Register(bg, RegisterInput{
		Name:     name,
		Email:    strings.ToLower(name) + "@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return u
}

func (f *fixture) post(t *testing.T, userID, content string) models.Post {
	t.Helper()
	p, err := f.svc.Posts.Create(bg, userID, PostInput{Content: content})
	if err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}

func (f *fixture) comment(t *testing.T, userID, postID, parentID, content string) models.Comment {
	t.Helper()
	c, err := f.svc.Comments.Create(bg, userID, CommentInput{PostID: postID, ParentCommentID: parentID, Content: content})
	if err != nil {
		t.Fatalf("create comment: %v", err)
	}
	return c
}

// wantKind fails unless err is a *Error of kind with the given message.
func wantKind(t *testing.T, err error, kind *Error, msg string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", kind.Kind)
	}
	var se *Error
	if !errors.As(err, &se) || se.Kind != kind.Kind {
		t.Fatalf("err = %v (%T), want kind %v", err, err, kind.Kind)
	}
	if msg != "" && se.Message != msg {
		t.Fatalf("message = %q, want %q", se.Message, msg)
	}
}
