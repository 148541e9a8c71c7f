package lootsplit

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/susu3304/lootsplit/internal/bless"
	"github.com/susu3304/lootsplit/internal/db"
	"github.com/susu3304/lootsplit/internal/hunt"
	"go.uber.org/zap"
)

var (
	ErrEmptyInput     = errors.New("please enter session data")
	ErrNoSession      = errors.New("no hunt has been imported in this channel")
	ErrUnknownPlayer  = errors.New("player is not part of the imported hunt")
	ErrNegativeAmount = errors.New("extra waste must not be negative")
)

// TransferStore persists a single transfer record.
type TransferStore interface {
	CreateTransfer(ctx context.Context, nt db.NewTransfer) (*db.Transfer, error)
}

// Service keeps the last imported hunt of each channel together with the
// extra waste entered for its players.
type Service struct {
	mu        sync.Mutex
	store     map[string]*entry
	transfers TransferStore
	logger    *zap.Logger
	retryWait func() time.Duration
}

type entry struct {
	parsed     *hunt.Session
	extraWaste map[string]int64
}

func (e *entry) session() *hunt.Session {
	return e.parsed.WithExtraWaste(e.extraWaste)
}

func NewService(transfers TransferStore, logger *zap.Logger) *Service {
	return &Service{
		store:     make(map[string]*entry),
		transfers: transfers,
		logger:    logger,
		retryWait: func() time.Duration {
			return time.Duration(300+rand.Intn(500)) * time.Millisecond
		},
	}
}

// Import parses text and makes it the channel's current hunt. Extra waste
// starts at zero for every player.
func (s *Service) Import(channelID, text string) (*hunt.Session, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	parsed, err := hunt.Parse(text)
	if err != nil {
		return nil, err
	}

	waste := make(map[string]int64, len(parsed.Players))
	for _, p := range parsed.Players {
		waste[p.Name] = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.store[channelID] = &entry{parsed: parsed, extraWaste: waste}
	s.logger.Debug("hunt imported",
		zap.String("channel_id", channelID),
		zap.Int("players", len(parsed.Players)),
		zap.Int("transfers", len(parsed.Transfers)))
	return parsed, nil
}

// SetExtraWaste replaces a player's extra waste and returns the recomputed hunt.
func (s *Service) SetExtraWaste(channelID, player string, amount int64) (*hunt.Session, error) {
	if amount < 0 {
		return nil, ErrNegativeAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.store[channelID]
	if !ok {
		return nil, ErrNoSession
	}
	if _, ok := e.parsed.Player(player); !ok {
		return nil, ErrUnknownPlayer
	}
	e.extraWaste[player] = amount
	return e.session(), nil
}

// AddBlessing adds the full blessing price for level to a player's extra waste.
// It returns the price added and the recomputed hunt.
func (s *Service) AddBlessing(channelID, player string, level int) (int64, *hunt.Session, error) {
	costs, err := bless.Cost(level, false)
	if err != nil {
		return 0, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.store[channelID]
	if !ok {
		return 0, nil, ErrNoSession
	}
	if _, ok := e.parsed.Player(player); !ok {
		return 0, nil, ErrUnknownPlayer
	}
	e.extraWaste[player] += costs.AllSevenWithTwist
	return costs.AllSevenWithTwist, e.session(), nil
}

// Current returns the channel's hunt with extra waste applied.
func (s *Service) Current(channelID string) (*hunt.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.store[channelID]
	if !ok {
		return nil, ErrNoSession
	}
	return e.session(), nil
}

// ExtraWaste returns a copy of the extra waste entered for the channel's hunt.
func (s *Service) ExtraWaste(channelID string) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.store[channelID]
	if !ok {
		return nil, ErrNoSession
	}
	out := make(map[string]int64, len(e.extraWaste))
	for k, v := range e.extraWaste {
		out[k] = v
	}
	return out, nil
}

func (s *Service) Clear(channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.store[channelID]; !ok {
		return ErrNoSession
	}
	delete(s.store, channelID)
	return nil
}

// TransferError reports a transfer that could not be saved.
type TransferError struct {
	Transfer hunt.Transfer
	Err      error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s -> %s (%d): %v", e.Transfer.From, e.Transfer.To, e.Transfer.Amount, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// SaveTransfers stores transfers for a group one record at a time. A failed
// record is logged and skipped; the rest are still attempted. It returns the
// number of records created and a *TransferError per failed record, joined.
func (s *Service) SaveTransfers(ctx context.Context, groupID int64, createdBy string, transfers []hunt.Transfer) (int, error) {
	var errs []error
	created := 0
	for _, t := range transfers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if t.Amount <= 0 {
			continue
		}
		nt := db.NewTransfer{
			GroupID:   groupID,
			From:      t.From,
			To:        t.To,
			Amount:    t.Amount,
			Status:    db.StatusPending,
			CreatedBy: createdBy,
		}
		if err := s.createWithRetry(ctx, nt); err != nil {
			s.logger.Warn("failed to create transfer",
				zap.Int64("group_id", groupID),
				zap.String("from", t.From),
				zap.String("to", t.To),
				zap.Int64("amount", t.Amount),
				zap.Error(err))
			errs = append(errs, &TransferError{Transfer: t, Err: err})
			continue
		}
		created++
	}
	s.logger.Info("transfers saved",
		zap.Int64("group_id", groupID),
		zap.Int("created", created),
		zap.Int("failed", len(errs)))
	return created, errors.Join(errs...)
}

func (s *Service) createWithRetry(ctx context.Context, nt db.NewTransfer) error {
	const attemptTimeout = 10 * time.Second
	const maxAttempts = 2

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		_, err := s.transfers.CreateTransfer(attemptCtx, nt)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if !db.IsTimeout(err) || ctx.Err() != nil {
			return err
		}
		time.Sleep(s.retryWait())
	}
	return lastErr
}

// Summary renders a hunt as plain text suitable for a chat message.
func Summary(sess *hunt.Session, extraWaste map[string]int64) string {
	var b strings.Builder

	var meta []string
	if sess.Duration != nil {
		meta = append(meta, "Duration: "+*sess.Duration)
	}
	if sess.LootType != nil {
		meta = append(meta, "Loot type: "+*sess.LootType)
	}
	if len(meta) > 0 {
		fmt.Fprintln(&b, strings.Join(meta, " | "))
	}
	fmt.Fprintf(&b, "Total profit: %s gp | Total waste: %s gp\n", gp(sess.TotalProfit), gp(sess.TotalWaste))
	fmt.Fprintf(&b, "Profit per player: %s gp | Waste per player: %s gp\n", gp(sess.ProfitPerPlayer), gp(sess.WastePerPlayer))

	fmt.Fprintf(&b, "\nPlayers (%d):\n", len(sess.Players))
	for _, p := range sess.Players {
		name := p.Name
		if p.IsLeader {
			name += " (Leader)"
		}
		supplies := gp(p.Supplies)
		if w := extraWaste[p.Name]; w > 0 {
			supplies += fmt.Sprintf(" (+%s extra)", gp(w))
		}
		fmt.Fprintf(&b, "- %s: loot %s / supplies %s / balance %s", name, gp(p.Loot), supplies, gp(p.Balance))
		if p.Damage != nil {
			fmt.Fprintf(&b, " / damage %s", gp(*p.Damage))
		}
		if p.Healing != nil {
			fmt.Fprintf(&b, " / healing %s", gp(*p.Healing))
		}
		b.WriteString("\n")
	}

	if len(sess.Transfers) == 0 {
		b.WriteString("\nNo transfers needed.\n")
		return b.String()
	}
	b.WriteString("\nTransfers:\n")
	for _, t := range sess.Transfers {
		fmt.Fprintf(&b, "- %s → %s: %s gp  `%s`\n", t.From, t.To, gp(t.Amount), hunt.TransferCommand(t))
	}
	return b.String()
}

// PendingSummary lists stored pending transfers grouped by payer.
func PendingSummary(groupName string, transfers []db.Transfer) string {
	if len(transfers) == 0 {
		return fmt.Sprintf("%s: no pending transfers.", groupName)
	}
	sorted := make([]db.Transfer, len(transfers))
	copy(sorted, transfers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].From < sorted[j].From })

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d pending transfer(s)\n", groupName, len(sorted))
	for _, t := range sorted {
		fmt.Fprintf(&b, "- %s → %s: %s gp\n", t.From, t.To, gp(t.Amount))
	}
	return b.String()
}

func gp(v int64) string {
	return humanize.Comma(v)
}
