package form

import (
	"sync"
	"time"
)

// NoticeTTL is how long an error message stays visible.
const NoticeTTL = 5 * time.Second

// Notice is the error region of the page. Each Show schedules its own clear;
// a clear that fires after a newer Show still empties the region.
type Notice struct {
	mu  sync.Mutex
	msg string
	ttl time.Duration
}

func NewNotice(ttl time.Duration) *Notice {
	return &Notice{ttl: ttl}
}

func (n *Notice) Show(msg string) {
	n.mu.Lock()
	n.msg = msg
	n.mu.Unlock()

	time.AfterFunc(n.ttl, n.Clear)
}

func (n *Notice) Clear() {
	n.mu.Lock()
	n.msg = ""
	n.mu.Unlock()
}

func (n *Notice) Message() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.msg
}

func (n *Notice) TTL() time.Duration {
	return n.ttl
}
