// Package freshness decides whether a derived artifact is stale relative to
// its upstream inputs. All functions are pure: they are called on every read
// path, not just before regeneration, and never touch timestamps.
package freshness

import (
	"time"

	"content-service/internal/model"
)

// Status is the tri-state freshness of a derived artifact. Absent is
// distinct from Stale: an absent artifact has nothing to invalidate, and
// callers surface it differently ("generate" vs "regenerate (stale)").
type Status string

const (
	Absent Status = "absent"
	Fresh  Status = "fresh"
	Stale  Status = "stale"
)

// TopicsStatus reports the freshness of an item's topic set. The artifact
// timestamp is the latest topic timestamp; the dependency is the owning
// item. A dependency edit at exactly the artifact time is not stale.
func TopicsStatus(item *model.Item, topics []model.Topic) Status {
	if len(topics) == 0 {
		return Absent
	}
	if item.UpdatedAt.After(latestTopicTime(topics)) {
		return Stale
	}
	return Fresh
}

// ContentStatus reports the freshness of an item's generated content. The
// dependency set is the owning item plus all of its topics; the artifact is
// stale only when a dependency timestamp is strictly later than the
// content's.
func ContentStatus(item *model.Item, topics []model.Topic, content *model.GeneratedContent) Status {
	if content == nil {
		return Absent
	}
	dep := item.UpdatedAt
	if len(topics) > 0 {
		if t := latestTopicTime(topics); t.After(dep) {
			dep = t
		}
	}
	if dep.After(content.UpdatedAt) {
		return Stale
	}
	return Fresh
}

func latestTopicTime(topics []model.Topic) time.Time {
	var latest time.Time
	for _, t := range topics {
		ts := t.UpdatedAt
		if t.CreatedAt.After(ts) {
			ts = t.CreatedAt
		}
		if ts.After(latest) {
			latest = ts
		}
	}
	return latest
}
