package tracker

import (
	"net/url"
	"sync"
)

// ComparePolicy decides which part of a location counts as a navigation.
type ComparePolicy int

const (
	// PathOnly fires a pageview only when the path changes.
	PathOnly ComparePolicy = iota
	// PathAndQuery also fires when only the query string changes.
	PathAndQuery
)

// Navigator remembers the last location that produced a pageview. The
// fragment is never compared.
type Navigator struct {
	mu     sync.Mutex
	policy ComparePolicy
	last   string
	seen   bool
}

func NewNavigator(policy ComparePolicy) *Navigator {
	return &Navigator{policy: policy}
}

func (n *Navigator) key(u *url.URL) string {
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	if n.policy == PathAndQuery && u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}

// Reset records u as the current location without comparing.
func (n *Navigator) Reset(u *url.URL) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.last = n.key(u)
	n.seen = true
}

// Changed records u and reports whether it differs from the previous location.
func (n *Navigator) Changed(u *url.URL) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	k := n.key(u)
	if n.seen && k == n.last {
		return false
	}
	n.last = k
	n.seen = true
	return true
}
