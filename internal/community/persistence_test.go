package community

import (
	"context"
	"sync"
)

// memoryPersistence mimics the database so hydration can be exercised without PostgreSQL.
type memoryPersistence struct {
	mu         sync.Mutex
	posts      map[string]Post
	replies    map[string]Reply
	postLikes  map[string]map[string]bool
	replyLikes map[string]map[string]bool
	reports    map[string]Report
	members    map[string]Member
	actions    []AdminAction
}

func newMemoryPersistence() *memoryPersistence {
	return &memoryPersistence{
		posts:      map[string]Post{},
		replies:    map[string]Reply{},
		postLikes:  map[string]map[string]bool{},
		replyLikes: map[string]map[string]bool{},
		reports:    map[string]Report{},
		members:    map[string]Member{},
	}
}

func (m *memoryPersistence) Snapshot(context.Context) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := &Snapshot{PostLikes: map[string][]string{}, ReplyLikes: map[string][]string{}}
	for _, p := range m.posts {
		snap.Posts = append(snap.Posts, p)
	}
	for _, r := range m.replies {
		snap.Replies = append(snap.Replies, r)
	}
	for user, set := range m.postLikes {
		for id := range set {
			snap.PostLikes[user] = append(snap.PostLikes[user], id)
		}
	}
	for user, set := range m.replyLikes {
		for id := range set {
			snap.ReplyLikes[user] = append(snap.ReplyLikes[user], id)
		}
	}
	for _, r := range m.reports {
		snap.Reports = append(snap.Reports, r)
	}
	for _, mem := range m.members {
		snap.Members = append(snap.Members, mem)
	}
	snap.Actions = append(snap.Actions, m.actions...)
	return snap, nil
}

func (m *memoryPersistence) SavePost(_ context.Context, post Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts[post.ID] = post
	return nil
}

func like(sets map[string]map[string]bool, user, id string, liked bool) {
	if sets[user] == nil {
		sets[user] = map[string]bool{}
	}
	if liked {
		sets[user][id] = true
		return
	}
	delete(sets[user], id)
}

func (m *memoryPersistence) SavePostLike(_ context.Context, post Post, userID string, liked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts[post.ID] = post
	like(m.postLikes, userID, post.ID, liked)
	return nil
}

func (m *memoryPersistence) SaveReply(_ context.Context, reply Reply, post Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies[reply.ID] = reply
	m.posts[post.ID] = post
	return nil
}

func (m *memoryPersistence) SaveReplyLike(_ context.Context, reply Reply, userID string, liked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies[reply.ID] = reply
	like(m.replyLikes, userID, reply.ID, liked)
	return nil
}

func (m *memoryPersistence) DeletePost(_ context.Context, postID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.posts, postID)
	for id, r := range m.replies {
		if r.PostID == postID {
			delete(m.replies, id)
		}
	}
	for _, set := range m.postLikes {
		delete(set, postID)
	}
	return nil
}

func (m *memoryPersistence) SaveReport(_ context.Context, report Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[report.ID] = report
	return nil
}

func (m *memoryPersistence) SaveMember(_ context.Context, member Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members[member.ID] = member
	return nil
}

func (m *memoryPersistence) AppendAction(_ context.Context, action AdminAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions = append(m.actions, action)
	return nil
}

func (m *memoryPersistence) SavePostViews(_ context.Context, views map[string]int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, n := range views {
		if p, ok := m.posts[id]; ok && n > p.Views {
			p.Views = n
			m.posts[id] = p
		}
	}
	return nil
}
