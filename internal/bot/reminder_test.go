package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/susu3304/lootsplit/internal/db"
	"go.uber.org/zap"
)

type fakeReminderStore struct {
	due     []db.ReminderDue
	pending map[int64][]db.Transfer
	sent    map[int64]time.Time
	delayed map[int64]time.Time
}

func (f *fakeReminderStore) DueReminders(context.Context, time.Time) ([]db.ReminderDue, error) {
	return f.due, nil
}

func (f *fakeReminderStore) ListTransfers(_ context.Context, groupID int64, status string) ([]db.Transfer, error) {
	if status != db.StatusPending {
		return nil, errors.New("unexpected status filter")
	}
	return f.pending[groupID], nil
}

func (f *fakeReminderStore) MarkReminderSent(_ context.Context, groupID int64, _ time.Time, next time.Time) error {
	f.sent[groupID] = next
	return nil
}

func (f *fakeReminderStore) DelayReminder(_ context.Context, groupID int64, next time.Time) error {
	f.delayed[groupID] = next
	return nil
}

type sentMessage struct {
	channelID string
	content   string
}

type fakeSession struct {
	messages []sentMessage
	fail     map[string]error
	attempts map[string]int
}

func (f *fakeSession) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.attempts[channelID]++
	if err := f.fail[channelID]; err != nil {
		return nil, err
	}
	f.messages = append(f.messages, sentMessage{channelID, content})
	return &discordgo.Message{}, nil
}

func newTestWorker() (*reminderWorker, *fakeReminderStore, *fakeSession, time.Time) {
	store := &fakeReminderStore{
		pending: map[int64][]db.Transfer{},
		sent:    map[int64]time.Time{},
		delayed: map[int64]time.Time{},
	}
	session := &fakeSession{fail: map[string]error{}, attempts: map[string]int{}}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	w := newReminderWorker(session, store, zap.NewNop())
	w.now = func() time.Time { return now }
	w.retryWait = func() time.Duration { return 0 }
	return w, store, session, now
}

func TestReminderTickSendsPendingTransfers(t *testing.T) {
	w, store, session, now := newTestWorker()
	store.due = []db.ReminderDue{{GroupID: 1, GroupName: "Knights", ChannelID: "c1", IntervalMinutes: 60}}
	store.pending[1] = []db.Transfer{{From: "Gandalf", To: "Frodo", Amount: 150000, Status: db.StatusPending}}

	w.tick(context.Background())

	require.Len(t, session.messages, 1)
	assert.Equal(t, "c1", session.messages[0].channelID)
	assert.Contains(t, session.messages[0].content, "Knights: 1 pending transfer(s)")
	assert.Contains(t, session.messages[0].content, "- Gandalf → Frodo: 150,000 gp")
	assert.Equal(t, now.Add(time.Hour), store.sent[1])
	assert.Empty(t, store.delayed)
}

func TestReminderTickSkipsGroupsWithoutPending(t *testing.T) {
	w, store, session, _ := newTestWorker()
	store.due = []db.ReminderDue{{GroupID: 2, GroupName: "Empty", ChannelID: "c2", IntervalMinutes: 60}}

	w.tick(context.Background())

	assert.Empty(t, session.messages)
	assert.Empty(t, store.sent)
}

func TestReminderTickDelaysOnFailure(t *testing.T) {
	w, store, session, now := newTestWorker()
	store.due = []db.ReminderDue{
		{GroupID: 1, GroupName: "Knights", ChannelID: "broken", IntervalMinutes: 60},
		{GroupID: 2, GroupName: "Paladins", ChannelID: "c2", IntervalMinutes: 1},
	}
	store.pending[1] = []db.Transfer{{From: "A", To: "B", Amount: 1}}
	store.pending[2] = []db.Transfer{{From: "C", To: "D", Amount: 2}}
	session.fail["broken"] = errors.New("missing access")

	w.tick(context.Background())

	assert.Equal(t, 1, session.attempts["broken"])
	assert.Equal(t, now.Add(2*time.Minute), store.delayed[1])
	require.Len(t, session.messages, 1)
	assert.Equal(t, now.Add(time.Minute), store.sent[2])
}

func TestReminderBackoffCappedByInterval(t *testing.T) {
	w, store, session, now := newTestWorker()
	store.due = []db.ReminderDue{{GroupID: 1, GroupName: "Knights", ChannelID: "slow", IntervalMinutes: 1}}
	store.pending[1] = []db.Transfer{{From: "A", To: "B", Amount: 1}}
	session.fail["slow"] = context.DeadlineExceeded

	w.tick(context.Background())

	assert.Equal(t, 2, session.attempts["slow"])
	assert.Equal(t, now.Add(time.Minute), store.delayed[1])
}

func TestReminderWorkerStops(t *testing.T) {
	w, _, _, _ := newTestWorker()
	w.interval = time.Millisecond
	w.start(context.Background())
	w.stop()
}
