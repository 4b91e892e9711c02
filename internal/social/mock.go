package social

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/coinlaunch/launchbot/internal/models"
	"github.com/coinlaunch/launchbot/pkg/logger"
)

// MockReply is a reply recorded by the mock social client.
type MockReply struct {
	Text        string
	InReplyToID string
}

// Mock is an in-memory SocialService used in mock mode and in tests. Mentions
// are fed in with EnqueueMention and drained by SearchMentions in order.
type Mock struct {
	logger *logger.Logger

	mu      sync.Mutex
	queue   []*models.SocialPost
	replies []MockReply
	users   map[string]*models.SocialUser
	nextID  int

	// failReplies makes ReplyToPost fail with the given error until cleared.
	failReplies error
	// rejectOnce makes the next ReplyToPost fail once, to exercise retries.
	rejectOnce error
}

func NewMockSocial(logger *logger.Logger) *Mock {
	return &Mock{
		logger: logger,
		users:  make(map[string]*models.SocialUser),
		nextID: 9000,
	}
}

// EnqueueMention queues a post for the next SearchMentions call.
func (m *Mock) EnqueueMention(post *models.SocialPost) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, post)
}

// AddUser registers a user for UserByID lookups.
func (m *Mock) AddUser(user *models.SocialUser) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
}

// Replies returns the replies posted so far.
func (m *Mock) Replies() []MockReply {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockReply, len(m.replies))
	copy(out, m.replies)
	return out
}

// FailReplies makes every ReplyToPost fail with err; pass nil to clear.
func (m *Mock) FailReplies(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failReplies = err
}

// RejectNextReply makes only the next ReplyToPost fail with err.
func (m *Mock) RejectNextReply(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejectOnce = err
}

func (m *Mock) ReplyToPost(_ context.Context, text, inReplyToID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rejectOnce != nil {
		err := m.rejectOnce
		m.rejectOnce = nil
		return "", err
	}
	if m.failReplies != nil {
		return "", m.failReplies
	}

	m.nextID++
	m.replies = append(m.replies, MockReply{Text: text, InReplyToID: inReplyToID})
	m.logger.Debug("MOCK: reply posted ", "in_reply_to ", inReplyToID)
	return strconv.Itoa(m.nextID), nil
}

func (m *Mock) UserByID(_ context.Context, id string) (*models.SocialUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.users[id]; ok {
		return user, nil
	}
	return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
}

func (m *Mock) SearchMentions(_ context.Context, sinceID string) ([]*models.SocialPost, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	posts := make([]*models.SocialPost, 0, len(m.queue))
	newest := sinceID
	for _, post := range m.queue {
		if sinceID != "" && post.ID <= sinceID {
			continue
		}
		posts = append(posts, post)
		if post.ID > newest {
			newest = post.ID
		}
	}
	m.queue = nil
	return posts, newest, nil
}

func (m *Mock) AuthURL() (string, string, error) {
	return "https://example.invalid/authorize", "mock-state", nil
}

func (m *Mock) ExchangeCode(context.Context, string, string) error {
	return nil
}

func (m *Mock) Authenticated() bool {
	return true
}
