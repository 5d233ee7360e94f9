package testutil

import (
	"context"
	"sync"

	"github.com/fitclub/billing/internal/domain/user"
	"github.com/fitclub/billing/internal/notification"
	"github.com/samber/lo"
)

var _ notification.Dispatcher = (*RecordingNotifier)(nil)

// RecordingNotifier keeps every message instead of delivering it
type RecordingNotifier struct {
	mu     sync.Mutex
	chat   []notification.Message
	member map[string][]notification.Message
}

func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{member: make(map[string][]notification.Message)}
}

func (n *RecordingNotifier) Notify(ctx context.Context, msg notification.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.chat = append(n.chat, msg)
}

func (n *RecordingNotifier) NotifyMember(ctx context.Context, u *user.User, msg notification.Message) {
	if u == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.member[u.ID] = append(n.member[u.ID], msg)
}

// Messages returns the chat messages sent so far
func (n *RecordingNotifier) Messages() []notification.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification.Message(nil), n.chat...)
}

// Titles returns the titles of the chat messages sent so far
func (n *RecordingNotifier) Titles() []string {
	return lo.Map(n.Messages(), func(m notification.Message, _ int) string { return m.Title })
}

// MemberMessages returns the member e-mails sent to userID
func (n *RecordingNotifier) MemberMessages(userID string) []notification.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification.Message(nil), n.member[userID]...)
}
