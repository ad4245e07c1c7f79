package appinfo

import (
	"sync/atomic"
	"time"
)

var StartTime time.Time

var (
	PublishedPosts atomic.Int64
	PublishedPages atomic.Int64
)

// ContentPublished: Called when a post or page becomes visible
func ContentPublished(isPost bool) {
	if isPost {
		PublishedPosts.Add(1)
	} else {
		PublishedPages.Add(1)
	}
}

// ContentUnpublished: Called when a post or page is deleted or hidden
func ContentUnpublished(isPost bool) {
	if isPost {
		PublishedPosts.Add(-1)
	} else {
		PublishedPages.Add(-1)
	}
}

// SetInitialStats: Writes the first data received from the database when the server starts up.
func SetInitialStats(posts, pages int64) {
	PublishedPosts.Store(posts)
	PublishedPages.Store(pages)
}
