package orchestrator

// #region imports
import (
	"sync"

	"github.com/or4cl3-ai-1/Chatron9/internal/ethics"
	"github.com/or4cl3-ai-1/Chatron9/internal/plan"
)

// #endregion

// DefaultHistoryCapacity bounds the in-memory response log.
const DefaultHistoryCapacity = 1000

// #region entry

type historyEntry struct {
	request  plan.PlanningRequest
	response plan.PlanningResponse
	verdict  ethics.Verdict
}

// #endregion

// #region ring

// responseLog is a fixed-capacity ring of stored responses, indexed by request
// id. Appending past capacity evicts the oldest entry and its index.
type responseLog struct {
	mu    sync.RWMutex
	buf   []historyEntry
	next  uint64 // total entries ever appended
	index map[string]uint64
}

func newResponseLog(capacity int) *responseLog {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &responseLog{
		buf:   make([]historyEntry, capacity),
		index: make(map[string]uint64, capacity),
	}
}

func (l *responseLog) put(e historyEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	capacity := uint64(len(l.buf))
	slot := l.next % capacity
	if l.next >= capacity {
		evicted := l.buf[slot].response.RequestID
		if seq, ok := l.index[evicted]; ok && seq == l.next-capacity {
			delete(l.index, evicted)
		}
	}
	l.buf[slot] = e
	l.index[e.response.RequestID] = l.next
	l.next++
}

func (l *responseLog) len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return int(min(l.next, uint64(len(l.buf))))
}

func (l *responseLog) get(requestID string) (historyEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	seq, ok := l.index[requestID]
	if !ok {
		return historyEntry{}, false
	}
	return l.buf[seq%uint64(len(l.buf))], true
}

// recent returns up to limit entries, oldest first.
func (l *responseLog) recent(limit int) []historyEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	capacity := uint64(len(l.buf))
	n := min(l.next, capacity)
	if limit < 0 {
		limit = 0
	}
	if uint64(limit) < n {
		n = uint64(limit)
	}
	out := make([]historyEntry, 0, n)
	for seq := l.next - n; seq < l.next; seq++ {
		out = append(out, l.buf[seq%capacity])
	}
	return out
}

// find scans from newest to oldest.
func (l *responseLog) find(match func(historyEntry) bool) (historyEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	capacity := uint64(len(l.buf))
	n := min(l.next, capacity)
	for i := uint64(1); i <= n; i++ {
		e := l.buf[(l.next-i)%capacity]
		if match(e) {
			return e, true
		}
	}
	return historyEntry{}, false
}

// #endregion
