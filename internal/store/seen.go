package store

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// SeenTracks is a thread-safe membership store for track IDs the user's
// library already contains. Recommendation fetches consult it to avoid
// resurfacing tracks the user already has. A Bloom filter front rejects
// most misses without touching the map; the LRU bounds memory.
type SeenTracks struct {
	trackIDs               map[string]struct{}
	bloom                  *bloom.BloomFilter
	lru                    *lru.Cache[string, struct{}]
	mutex                  sync.RWMutex
	maxTracks              int
	bloomFalsePositiveRate float64
}

// NewSeenTracks creates a seen-track store with the given capacity and
// Bloom false positive rate.
func NewSeenTracks(maxTracks int, bloomFalsePositiveRate float64) *SeenTracks {
	if maxTracks <= 0 {
		panic("maxTracks must be positive")
	}

	lruCache, _ := lru.New[string, struct{}](maxTracks)
	bloomFilter := bloom.NewWithEstimates(uint(maxTracks), bloomFalsePositiveRate)

	return &SeenTracks{
		trackIDs:               make(map[string]struct{}),
		bloom:                  bloomFilter,
		lru:                    lruCache,
		maxTracks:              maxTracks,
		bloomFalsePositiveRate: bloomFalsePositiveRate,
	}
}

// Has checks whether a track ID is already known.
func (st *SeenTracks) Has(trackID string) bool {
	st.mutex.RLock()
	defer st.mutex.RUnlock()

	if !st.bloom.TestString(trackID) {
		return false
	}

	_, exists := st.trackIDs[trackID]
	return exists
}

// Add records a track ID.
func (st *SeenTracks) Add(trackID string) {
	st.mutex.Lock()
	defer st.mutex.Unlock()

	if _, exists := st.trackIDs[trackID]; exists {
		return
	}

	st.trackIDs[trackID] = struct{}{}
	st.bloom.AddString(trackID)
	st.lru.Add(trackID, struct{}{})

	if len(st.trackIDs) > st.maxTracks {
		st.evictOldest()
	}
}

// Load clears the store and loads the provided track IDs.
func (st *SeenTracks) Load(trackIDs []string) {
	st.mutex.Lock()
	defer st.mutex.Unlock()

	st.clear()

	for _, trackID := range trackIDs {
		if trackID != "" {
			st.trackIDs[trackID] = struct{}{}
			st.bloom.AddString(trackID)
			st.lru.Add(trackID, struct{}{})
		}
	}

	for len(st.trackIDs) > st.maxTracks {
		st.evictOldest()
	}
}

// Size returns the number of track IDs currently stored.
func (st *SeenTracks) Size() int {
	st.mutex.RLock()
	defer st.mutex.RUnlock()
	return len(st.trackIDs)
}

// Clear removes all track IDs from the store.
func (st *SeenTracks) Clear() {
	st.mutex.Lock()
	defer st.mutex.Unlock()
	st.clear()
}

func (st *SeenTracks) clear() {
	st.trackIDs = make(map[string]struct{})
	st.bloom = bloom.NewWithEstimates(uint(st.maxTracks), st.bloomFalsePositiveRate)
	st.lru.Purge()
}

func (st *SeenTracks) evictOldest() {
	if st.lru.Len() == 0 {
		return
	}

	oldestKey, _, ok := st.lru.GetOldest()
	if !ok {
		return
	}

	delete(st.trackIDs, oldestKey)
	st.lru.Remove(oldestKey)
}
