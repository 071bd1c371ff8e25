package h2

import (
	"sort"
	"sync"
)

// Streams is the per-session stream table: a sorted slice keyed by
// stream id, same shape as the teacher's original Streams type, but
// guarded by a mutex since the session's read loop and the
// application goroutines that write through the session all reach
// into it concurrently.
type Streams struct {
	mu   sync.Mutex
	list []*Stream
}

func (strms *Streams) Insert(s *Stream) {
	strms.mu.Lock()
	defer strms.mu.Unlock()

	i := sort.Search(len(strms.list), func(i int) bool {
		return strms.list[i].id >= s.id
	})
	if i < len(strms.list) && strms.list[i].id == s.id {
		strms.list[i] = s
		return
	}
	strms.list = append(strms.list, nil)
	copy(strms.list[i+1:], strms.list[i:])
	strms.list[i] = s
}

func (strms *Streams) Del(id uint32) *Stream {
	strms.mu.Lock()
	defer strms.mu.Unlock()

	i := sort.Search(len(strms.list), func(i int) bool {
		return strms.list[i].id >= id
	})
	if i < len(strms.list) && strms.list[i].id == id {
		s := strms.list[i]
		strms.list = append(strms.list[:i], strms.list[i+1:]...)
		return s
	}
	return nil
}

func (strms *Streams) Get(id uint32) *Stream {
	strms.mu.Lock()
	defer strms.mu.Unlock()

	i := sort.Search(len(strms.list), func(i int) bool {
		return strms.list[i].id >= id
	})
	if i < len(strms.list) && strms.list[i].id == id {
		return strms.list[i]
	}
	return nil
}

// Len reports the number of live streams, used against
// MAX_CONCURRENT_STREAMS (spec §4.4's admission check).
func (strms *Streams) Len() int {
	strms.mu.Lock()
	defer strms.mu.Unlock()
	return len(strms.list)
}

// Each calls fn for every stream in ascending id order. fn must not
// call back into Streams (Insert/Del/Get would deadlock).
func (strms *Streams) Each(fn func(*Stream)) {
	strms.mu.Lock()
	list := make([]*Stream, len(strms.list))
	copy(list, strms.list)
	strms.mu.Unlock()

	for _, s := range list {
		fn(s)
	}
}
