package bot

import (
	"context"
	"math/rand"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/lootsplit/internal/db"
	"github.com/susu3304/lootsplit/internal/lootsplit"
	"go.uber.org/zap"
)

// ReminderStore is what the reminder worker reads and updates. *db.DB satisfies it.
type ReminderStore interface {
	DueReminders(ctx context.Context, now time.Time) ([]db.ReminderDue, error)
	ListTransfers(ctx context.Context, groupID int64, status string) ([]db.Transfer, error)
	MarkReminderSent(ctx context.Context, groupID int64, sentAt time.Time, nextDue time.Time) error
	DelayReminder(ctx context.Context, groupID int64, nextDue time.Time) error
}

// reminderWorker periodically posts pending transfer reminders to group channels.
type reminderWorker struct {
	store     ReminderStore
	session   reminderSession
	logger    *zap.Logger
	stopChan  chan struct{}
	done      chan struct{}
	interval  time.Duration
	retryWait func() time.Duration
	now       func() time.Time
}

// Minimal session interface for sending channel messages.
type reminderSession interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

func newReminderWorker(session reminderSession, store ReminderStore, logger *zap.Logger) *reminderWorker {
	return &reminderWorker{
		store:    store,
		session:  session,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
		interval: time.Minute,
		retryWait: func() time.Duration {
			return time.Duration(300+rand.Intn(500)) * time.Millisecond
		},
		now: time.Now,
	}
}

func (w *reminderWorker) start(ctx context.Context) {
	if w == nil || w.store == nil {
		return
	}
	go w.loop(ctx)
}

func (w *reminderWorker) stop() {
	if w == nil || w.store == nil {
		return
	}
	close(w.stopChan)
	<-w.done
}

func (w *reminderWorker) loop(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.tick(ctx)
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *reminderWorker) tick(ctx context.Context) {
	now := w.now()
	targets, err := w.store.DueReminders(ctx, now)
	if err != nil {
		w.logger.Warn("reminder: failed to load due reminders", zap.Error(err))
		return
	}

	for _, t := range targets {
		log := w.logger.With(zap.Int64("group_id", t.GroupID), zap.String("channel_id", t.ChannelID))

		pending, err := w.store.ListTransfers(ctx, t.GroupID, db.StatusPending)
		if err != nil {
			log.Warn("reminder: failed to load pending transfers", zap.Error(err))
			continue
		}
		if len(pending) == 0 {
			continue
		}

		msg := lootsplit.PendingSummary(t.GroupName, pending) + "\nMark transfers as paid on the group page.\n\nThis message was posted automatically."
		if err := w.sendWithRetry(ctx, t.ChannelID, msg); err != nil {
			log.Warn("reminder: failed to send message", zap.Error(err))
			// Back off so a broken channel is not retried every minute.
			backoff := 2 * time.Minute
			if t.IntervalMinutes > 0 {
				max := time.Duration(t.IntervalMinutes) * time.Minute
				if backoff > max {
					backoff = max
				}
			}
			if derr := w.store.DelayReminder(ctx, t.GroupID, now.Add(backoff)); derr != nil {
				log.Warn("reminder: failed to delay reminder", zap.Error(derr))
			}
			continue
		}

		next := now.Add(time.Duration(t.IntervalMinutes) * time.Minute)
		if err := w.store.MarkReminderSent(ctx, t.GroupID, now, next); err != nil {
			log.Warn("reminder: failed to mark reminder sent", zap.Error(err))
		}
	}
}

func (w *reminderWorker) sendWithRetry(ctx context.Context, channelID, content string) error {
	const attemptTimeout = 12 * time.Second
	const maxAttempts = 2

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		_, err := w.session.ChannelMessageSend(channelID, content, discordgo.WithContext(sendCtx))
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if !db.IsTimeout(err) {
			return err
		}
		time.Sleep(w.retryWait())
	}
	return lastErr
}
