package voice

import (
	"sync"
	"time"

	"github.com/ashureev/wellness-companion/internal/domain"
)

// Clip is one synthesized reply.
type Clip struct {
	Audio     []byte
	Language  domain.Language
	Text      string
	CreatedAt time.Time
}

// ContentType is the MIME type served for clips.
const ContentType = "audio/mpeg"

// ClipStore keeps the most recent clip for each user.
type ClipStore struct {
	mu    sync.RWMutex
	clips map[string]Clip
}

// NewClipStore creates an empty store.
func NewClipStore() *ClipStore {
	return &ClipStore{clips: make(map[string]Clip)}
}

// Put replaces userID's clip.
func (s *ClipStore) Put(userID string, clip Clip) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clips[userID] = clip
}

// Latest returns userID's most recent clip.
func (s *ClipStore) Latest(userID string) (Clip, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clip, ok := s.clips[userID]
	return clip, ok
}

// Prune drops clips created before cutoff and reports how many were removed.
func (s *ClipStore) Prune(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for userID, clip := range s.clips {
		if clip.CreatedAt.Before(cutoff) {
			delete(s.clips, userID)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored clips.
func (s *ClipStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clips)
}
