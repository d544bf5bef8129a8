package services

import (
	"context"
	"log"
	"sync"
	"time"

	"agora/internal/storage"
)

const (
	janitorQueueSize = 1000
	janitorBatchSize = 50
)

// Janitor 异步删除对象存储中不再被引用的附件文件
type Janitor struct {
	store    storage.ObjectStore
	queue    chan string
	pending  map[string]bool
	mu       sync.Mutex
	interval time.Duration
}

func NewJanitor(store storage.ObjectStore) *Janitor {
	return &Janitor{
		store:    store,
		queue:    make(chan string, janitorQueueSize),
		pending:  make(map[string]bool),
		interval: 500 * time.Millisecond,
	}
}

// Schedule 将文件加入删除队列，同一 key 在处理前只入队一次
func (j *Janitor) Schedule(keys ...string) {
	if j == nil || j.store == nil {
		return
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		j.mu.Lock()
		if j.pending[key] {
			j.mu.Unlock()
			continue
		}
		j.pending[key] = true
		j.mu.Unlock()

		select {
		case j.queue <- key:
		default:
			j.mu.Lock()
			delete(j.pending, key)
			j.mu.Unlock()
			log.Printf("janitor: queue full, dropping %s", key)
		}
	}
}

// Run drains the queue in batches until ctx is cancelled, then flushes.
func (j *Janitor) Run(ctx context.Context) {
	batch := make([]string, 0, janitorBatchSize)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case key := <-j.queue:
			batch = append(batch, key)
			if len(batch) >= janitorBatchSize {
				j.processBatch(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				j.processBatch(batch)
				batch = batch[:0]
			}
		case <-ctx.Done():
			j.processBatch(batch)
			j.Flush()
			return
		}
	}
}

// Flush processes everything currently queued.
func (j *Janitor) Flush() {
	if j == nil {
		return
	}
	var batch []string
	for {
		select {
		case key := <-j.queue:
			batch = append(batch, key)
		default:
			j.processBatch(batch)
			return
		}
	}
}

// Pending reports how many keys are waiting to be deleted.
func (j *Janitor) Pending() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.pending)
}

func (j *Janitor) processBatch(keys []string) {
	if len(keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, key := range keys {
		if err := j.store.Delete(ctx, key); err != nil {
			log.Printf("janitor: delete %s: %v", key, err)
		}
		j.mu.Lock()
		delete(j.pending, key)
		j.mu.Unlock()
	}
}
