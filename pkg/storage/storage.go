// Package storage holds small byte blobs (cmd/cherrysniff archives each
// commit's canonical diff text here) in Bolt or S3, optionally behind a
// size-bounded LRU cache (CachedStorage) so that reads of a cached object
// do not go back to the permanent tier. An object evicted from the cache is
// fetched from the permanent tier again on its next read.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.etcd.io/bbolt"
)

// ErrNotFound is returned by Get when no object exists under the given id.
var ErrNotFound = errors.New("storage: not found")

// Storage stores byte blobs, addressed by an opaque id. Objects are
// expected to be small (patch text, commit metadata); callers needing
// streaming transfer should not use this interface. Storage must never
// delete objects on its own initiative.
type Storage interface {
	// Get returns ErrNotFound if id does not exist.
	Get(ctx context.Context, id string) ([]byte, error)
	// Put overwrites any existing object at id.
	Put(ctx context.Context, id string, data []byte) error
	// Del removes the object at id; it is not an error if id does not exist.
	Del(ctx context.Context, id string) error
}

// ListStorage adds enumeration to Storage.
type ListStorage interface {
	Storage
	// List invokes cb once per stored object. Callers must not retain b
	// past the call; copy it if needed.
	List(ctx context.Context, cb func(id string, b []byte) error) error
}

type dbStorage struct {
	db         *bbolt.DB
	bucketName []byte
}

var _ ListStorage = (*dbStorage)(nil)

// NewDBStorage wraps a Bolt database as a ListStorage, creating bucketName
// if it does not already exist.
func NewDBStorage(db *bbolt.DB, bucketName string) (ListStorage, error) {
	name := []byte(bucketName)
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(name)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("storage: creating bucket %q: %w", bucketName, err)
	}
	return &dbStorage{db: db, bucketName: name}, nil
}

func (m *dbStorage) Get(ctx context.Context, id string) ([]byte, error) {
	var val []byte
	err := m.db.View(func(tx *bbolt.Tx) error {
		val = append(val, tx.Bucket(m.bucketName).Get([]byte(id))...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(val) == 0 {
		return nil, ErrNotFound
	}
	return val, nil
}

func (m *dbStorage) Put(ctx context.Context, id string, data []byte) error {
	return m.db.Batch(func(tx *bbolt.Tx) error {
		return tx.Bucket(m.bucketName).Put([]byte(id), data)
	})
}

func (m *dbStorage) Del(ctx context.Context, id string) error {
	return m.db.Batch(func(tx *bbolt.Tx) error {
		return tx.Bucket(m.bucketName).Delete([]byte(id))
	})
}

func (m *dbStorage) List(ctx context.Context, cb func(id string, b []byte) error) error {
	return m.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(m.bucketName).ForEach(func(k, v []byte) error {
			return cb(string(k), v)
		})
	})
}

var gzipWriterPool = sync.Pool{
	New: func() any { return &gzip.Writer{} },
}

// GzipStorage wraps a Storage, transparently gzip-compressing payloads
// before they reach the wrapped layer and decompressing them on Get. It is
// meant to sit directly in front of permanent storage, where archived patch
// payloads benefit most from compression; a CachedStorage in front of it
// caches the decompressed bytes, so decompression only happens on a cache
// miss.
type GzipStorage struct {
	next Storage
}

// NewGzipStorage wraps next with gzip compression.
func NewGzipStorage(next Storage) *GzipStorage {
	return &GzipStorage{next: next}
}

var _ Storage = (*GzipStorage)(nil)

func (g *GzipStorage) Put(ctx context.Context, id string, data []byte) error {
	var buf bytes.Buffer
	zw := gzipWriterPool.Get().(*gzip.Writer)
	zw.Reset(&buf)
	defer gzipWriterPool.Put(zw)

	if _, err := zw.Write(data); err != nil {
		return fmt.Errorf("storage: gzip compressing payload %q: %w", id, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("storage: gzip closing payload %q: %w", id, err)
	}
	return g.next.Put(ctx, id, buf.Bytes())
}

func (g *GzipStorage) Get(ctx context.Context, id string) ([]byte, error) {
	compressed, err := g.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("storage: gzip opening payload %q: %w", id, err)
	}
	defer zr.Close()
	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("storage: gzip reading payload %q: %w", id, err)
	}
	return data, nil
}

func (g *GzipStorage) Del(ctx context.Context, id string) error {
	return g.next.Del(ctx, id)
}

type cachedObject struct {
	id          string
	size        uint64
	lastAccess  time.Time
	lastAccessM sync.Mutex
	ready       chan struct{}
}

func (c *cachedObject) access() {
	n := time.Now()
	if c.lastAccessM.TryLock() {
		c.lastAccess = n
		c.lastAccessM.Unlock()
	}
}

// CachedStorage fronts a permanent Storage with a size-bounded ListStorage
// cache, evicting the least-recently-used objects from the cache (never
// from permanent) once maxSize is exceeded.
type CachedStorage struct {
	cache     ListStorage
	permanent Storage
	maxSize   uint64

	sync.RWMutex
	objects  map[string]*cachedObject
	cleaning chan struct{}
}

const cleanSleep = time.Second

// NewCachedStorage builds a CachedStorage, pre-loading its in-memory index
// from whatever cache already holds.
func NewCachedStorage(cache ListStorage, permanent Storage, maxSize uint64) (*CachedStorage, error) {
	objects := make(map[string]*cachedObject)
	ready := make(chan struct{})
	close(ready)
	err := cache.List(context.Background(), func(id string, b []byte) error {
		objects[id] = &cachedObject{id: id, size: uint64(len(b)), lastAccess: time.Now(), ready: ready}
		return nil
	})
	if err != nil {
		return nil, err
	}
	c := &CachedStorage{
		cache:     cache,
		permanent: permanent,
		maxSize:   maxSize,
		objects:   objects,
		cleaning:  make(chan struct{}, 1),
	}
	go c.cleaner()
	return c, nil
}

var _ Storage = (*CachedStorage)(nil)

func (c *CachedStorage) cacheSize() uint64 {
	var sz uint64
	c.RLock()
	for _, obj := range c.objects {
		sz += obj.size
	}
	c.RUnlock()
	return sz
}

func (c *CachedStorage) evict(els []*cachedObject) {
	c.RLock()
	defer c.RUnlock()
	for _, el := range els {
		if _, ok := c.objects[el.id]; ok {
			continue // recreated in the meantime
		}
		if err := c.cache.Del(context.Background(), el.id); err != nil {
			log.Printf("storage: error evicting %s from cache: %v", el.id, err)
		}
	}
}

func (c *CachedStorage) doClean() {
	c.Lock()
	defer c.Unlock()

	objects := make([]*cachedObject, 0, len(c.objects))
	var sz uint64
	for _, obj := range c.objects {
		objects = append(objects, obj)
		obj.lastAccessM.Lock()
		sz += obj.size
	}

	slices.SortFunc(objects, func(i, j *cachedObject) int {
		return i.lastAccess.Compare(j.lastAccess)
	})

	collectTarget := (sz - c.maxSize) + c.maxSize/20
	var collected uint64
	var del []*cachedObject

	for i, obj := range objects {
		if collected >= collectTarget {
			if del == nil {
				del = objects[:i]
			}
			obj.lastAccessM.Unlock()
		} else {
			collected += obj.size
			delete(c.objects, obj.id)
		}
	}
	if del == nil {
		del = objects
	}

	go c.evict(del)
}

func (c *CachedStorage) cleaner() {
	for range c.cleaning {
		if c.cacheSize() >= c.maxSize {
			c.doClean()
		}
		time.Sleep(cleanSleep)
	}
}

func (c *CachedStorage) cacheHas(id string) bool {
	c.RLock()
	obj, ok := c.objects[id]
	c.RUnlock()
	if !ok {
		return false
	}
	<-obj.ready
	if obj.size == 0 {
		return false
	}
	obj.access()
	return true
}

func (c *CachedStorage) cacheStore(ctx context.Context, id string, b []byte, x *cachedObject) {
	if err := c.cache.Put(ctx, id, b); err != nil {
		log.Printf("storage: cache rejected Put: %v", err)
		return
	}
	x.lastAccess = time.Now()
	x.size = uint64(len(b))

	select {
	case c.cleaning <- struct{}{}:
	default:
	}
}

// Get implements Storage: a cache hit serves directly; a miss pulls from
// permanent storage and populates the cache, with only one goroutine per id
// ever fetching from permanent concurrently.
func (c *CachedStorage) Get(ctx context.Context, id string) ([]byte, error) {
	if c.cacheHas(id) {
		return c.cache.Get(ctx, id)
	}

	co, ours := &cachedObject{id: id, ready: make(chan struct{})}, false
	c.Lock()
	if existing, ok := c.objects[id]; ok {
		co = existing
	} else {
		c.objects[id] = co
		ours = true
	}
	c.Unlock()

	if !ours {
		<-co.ready
		if co.size > 0 {
			return c.cache.Get(ctx, id)
		}
		return nil, ErrNotFound
	}

	defer close(co.ready)
	b, err := c.permanent.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cacheStore(ctx, id, b, co)
	return b, nil
}

// Put implements Storage, writing through to permanent storage first.
func (c *CachedStorage) Put(ctx context.Context, id string, data []byte) error {
	if err := c.permanent.Put(ctx, id, data); err != nil {
		return err
	}

	co := &cachedObject{id: id, ready: make(chan struct{})}
	c.Lock()
	c.objects[id] = co
	c.Unlock()

	defer close(co.ready)
	c.cacheStore(ctx, id, data, co)
	return nil
}

// Del implements Storage, removing from permanent storage first, then best-
// effort from the cache.
func (c *CachedStorage) Del(ctx context.Context, id string) error {
	if err := c.permanent.Del(ctx, id); err != nil {
		return err
	}

	c.Lock()
	_, existed := c.objects[id]
	delete(c.objects, id)
	c.Unlock()
	if !existed {
		return nil
	}

	if err := c.cache.Del(ctx, id); err != nil {
		log.Printf("storage: cache rejected Del: %v", err)
	}
	return nil
}
