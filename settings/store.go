// Package settings is the hierarchical, dot-path configuration store with
// change watchers. Every mutation is persisted as one JSON blob into a
// storage.Backend; persistence is best effort.
package settings

import (
	"context"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "github.com/leeforge/globaltree/errors"
	"github.com/leeforge/globaltree/json"
	"github.com/leeforge/globaltree/logging"
	"github.com/leeforge/globaltree/storage"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// DefaultStorageKey is the slot the whole tree is stored under.
const DefaultStorageKey = "global-tree-config"

// WatchFunc is called after a watched path (or one of its descendants)
// changed. Values are snapshots and may be nil when absent.
type WatchFunc func(newValue, oldValue any)

type watcher struct {
	id uint64
	fn WatchFunc
}

// Store is safe for concurrent use. Watch callbacks run after the store
// lock is released, so they may read or write the store.
type Store struct {
	mu       sync.RWMutex
	data     map[string]any
	watchers map[string][]watcher
	nextID   uint64

	backend    storage.Backend
	storageKey string
	persistMu  sync.Mutex
	seq        uint64 // bumped under mu for every encoded tree
	written    uint64 // last seq handed to the backend, under persistMu
	timeout    time.Duration
	logger     logging.Logger
}

type Option func(*Store)

func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.logger = logging.OrNop(l) }
}

func WithStorageKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.storageKey = key
		}
	}
}

// WithTimeout bounds each backend call.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

// New creates a store and loads any tree previously persisted in backend.
// A nil backend keeps the store purely in memory.
func New(backend storage.Backend, opts ...Option) *Store {
	s := &Store{
		data:       make(map[string]any),
		watchers:   make(map[string][]watcher),
		backend:    backend,
		storageKey: DefaultStorageKey,
		timeout:    5 * time.Second,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.load()
	return s
}

// Get returns the value at path. Reading through a non-mapping segment
// reports ok=false. The empty path returns the whole tree.
func (s *Store) Get(path string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := lookup(s.data, path)
	return deepCopy(v), ok
}

// GetOr returns the value at path or def when absent.
func (s *Store) GetOr(path string, def any) any {
	if v, ok := s.Get(path); ok {
		return v
	}
	return def
}

func (s *Store) GetString(path, def string) string {
	v, ok := s.Get(path)
	if !ok {
		return def
	}
	out, err := cast.ToStringE(v)
	if err != nil {
		return def
	}
	return out
}

func (s *Store) GetInt(path string, def int) int {
	v, ok := s.Get(path)
	if !ok {
		return def
	}
	out, err := cast.ToIntE(v)
	if err != nil {
		return def
	}
	return out
}

func (s *Store) GetBool(path string, def bool) bool {
	v, ok := s.Get(path)
	if !ok {
		return def
	}
	out, err := cast.ToBoolE(v)
	if err != nil {
		return def
	}
	return out
}

func (s *Store) GetFloat(path string, def float64) float64 {
	v, ok := s.Get(path)
	if !ok {
		return def
	}
	out, err := cast.ToFloat64E(v)
	if err != nil {
		return def
	}
	return out
}

// Has reports whether path resolves to a value.
func (s *Store) Has(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := lookup(s.data, path)
	return ok
}

// Set writes value at path, creating intermediate mappings and replacing
// scalar intermediates.
func (s *Store) Set(path string, value any) {
	segments := split(path)
	if len(segments) == 0 {
		s.logger.Warn("settings: ignoring set on empty path")
		return
	}

	s.mu.Lock()
	pending := s.capture(segments)
	parent := s.data
	for _, seg := range segments[:len(segments)-1] {
		next, ok := parent[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			parent[seg] = next
		}
		parent = next
	}
	parent[segments[len(segments)-1]] = normalize(value)
	s.resolve(pending)
	snap := s.encode()
	s.mu.Unlock()

	s.persist(snap)
	notify(s.logger, pending)
}

// Delete removes the value at path. Deleting a missing path is a no-op.
func (s *Store) Delete(path string) {
	segments := split(path)
	if len(segments) == 0 {
		return
	}

	s.mu.Lock()
	parentValue, ok := lookup(s.data, strings.Join(segments[:len(segments)-1], "."))
	parent, isMap := parentValue.(map[string]any)
	last := segments[len(segments)-1]
	if !ok || !isMap {
		s.mu.Unlock()
		return
	}
	if _, exists := parent[last]; !exists {
		s.mu.Unlock()
		return
	}
	pending := s.capture(segments)
	delete(parent, last)
	s.resolve(pending)
	snap := s.encode()
	s.mu.Unlock()

	s.persist(snap)
	notify(s.logger, pending)
}

// Clear drops every entry and every watcher.
func (s *Store) Clear() {
	s.mu.Lock()
	s.data = make(map[string]any)
	s.watchers = make(map[string][]watcher)
	snap := s.encode()
	s.mu.Unlock()

	s.persist(snap)
}

// All returns a deep copy of the whole tree.
func (s *Store) All() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return deepCopy(s.data).(map[string]any)
}

// Keys returns the sorted top-level keys.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Update sets every entry of values. Keys may be dot paths.
func (s *Store) Update(values map[string]any) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		s.Set(k, values[k])
	}
}

// Reset clears the store, then applies defaults.
func (s *Store) Reset(defaults map[string]any) {
	s.Clear()
	s.Update(defaults)
}

// Watch registers fn for path. fn fires when path itself or anything below
// it changes. The returned func unregisters it.
func (s *Store) Watch(path string, fn WatchFunc) (unsubscribe func()) {
	key := strings.Join(split(path), ".")

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.watchers[key] = append(s.watchers[key], watcher{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			list := s.watchers[key]
			for i, w := range list {
				if w.id == id {
					s.watchers[key] = append(list[:i:i], list[i+1:]...)
					break
				}
			}
			if len(s.watchers[key]) == 0 {
				delete(s.watchers, key)
			}
		})
	}
}

// notification is one watched path affected by a mutation.
type notification struct {
	path     string
	watchers []watcher
	oldValue any
	newValue any
}

// capture snapshots the old value of the changed path and of every
// ancestor with watchers, nearest first. Callers hold s.mu.
func (s *Store) capture(segments []string) []notification {
	var pending []notification
	for i := len(segments); i >= 1; i-- {
		path := strings.Join(segments[:i], ".")
		list := s.watchers[path]
		if len(list) == 0 {
			continue
		}
		old, _ := lookup(s.data, path)
		pending = append(pending, notification{
			path:     path,
			watchers: append([]watcher(nil), list...),
			oldValue: deepCopy(old),
		})
	}
	return pending
}

// resolve fills the post-mutation values. Callers hold s.mu.
func (s *Store) resolve(pending []notification) {
	for i := range pending {
		v, _ := lookup(s.data, pending[i].path)
		pending[i].newValue = deepCopy(v)
	}
}

func notify(logger logging.Logger, pending []notification) {
	for _, n := range pending {
		for _, w := range n.watchers {
			err := apperrors.Recover(func() error {
				w.fn(n.newValue, n.oldValue)
				return nil
			})
			if err != nil {
				logger.Error("settings watcher failed", zap.String("path", n.path), zap.Error(err))
			}
		}
	}
}

type snapshot struct {
	seq  uint64
	blob string
}

// encode serializes the tree. Callers hold s.mu.
func (s *Store) encode() snapshot {
	if s.backend == nil {
		return snapshot{}
	}
	blob, err := json.MarshalToString(s.data)
	if err != nil {
		s.logger.Error("settings: encode failed", zap.Error(apperrors.NewPersistence("encode", err)))
		return snapshot{}
	}
	s.seq++
	return snapshot{seq: s.seq, blob: blob}
}

// persist writes snap unless a newer tree was already written.
func (s *Store) persist(snap snapshot) {
	if s.backend == nil || snap.blob == "" {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if snap.seq <= s.written {
		return
	}
	s.written = snap.seq

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.backend.Set(ctx, s.storageKey, snap.blob); err != nil {
		s.logger.Error("settings: save failed",
			zap.String("key", s.storageKey),
			zap.Error(apperrors.NewPersistence("save", err)))
	}
}

func (s *Store) load() {
	if s.backend == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	blob, ok, err := s.backend.Get(ctx, s.storageKey)
	if err != nil {
		s.logger.Error("settings: load failed",
			zap.String("key", s.storageKey),
			zap.Error(apperrors.NewPersistence("load", err)))
		return
	}
	if !ok || blob == "" {
		return
	}
	var tree map[string]any
	if err := json.UnmarshalFromString(blob, &tree); err != nil {
		s.logger.Error("settings: stored tree is corrupt",
			zap.String("key", s.storageKey),
			zap.Error(apperrors.NewPersistence("decode", err)))
		return
	}
	if tree != nil {
		s.data = tree
	}
}

func split(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

func lookup(root map[string]any, path string) (any, bool) {
	segments := split(path)
	var current any = root
	for _, seg := range segments {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// normalize stores composite values in the shape a reload would produce:
// typed maps, slices and structs become map[string]any and []any trees
// detached from the caller. Scalars are kept as given.
func normalize(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
	default:
		return rv.Interface()
	}
	raw, err := json.Marshal(rv.Interface())
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}
