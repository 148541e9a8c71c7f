package hunt

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoPlayers is returned when a log contains no recognisable participant.
var ErrNoPlayers = errors.New("no players found in session data")

var (
	reDuration      = regexp.MustCompile(`Session:\s*(\S+)`)
	reLootType      = regexp.MustCompile(`Loot Type:\s*(\S+)`)
	reTotalLoot     = regexp.MustCompile(`(?m)^ ?Loot: ([\d,]+)`)
	reTotalSupplies = regexp.MustCompile(`(?m)^ ?Supplies: ([\d,]+)`)
	reStat          = regexp.MustCompile(`^(Loot|Supplies|Balance|Damage|Healing):\s*(.+)$`)
	reLeader        = regexp.MustCompile(`\s*\(Leader\)\s*$`)
	reLeadingInt    = regexp.MustCompile(`^\s*([+-]?\d+)`)
)

// Prefixes of header lines that never describe a participant.
var headerPrefixes = []string{"Session data:", "Session:", "Loot Type:"}

// Prefixes that are session totals when not indented and player stats when indented.
var totalPrefixes = []string{"Loot:", "Supplies:", "Balance:"}

// Prefixes that rule out a line as a player name.
var reservedPrefixes = []string{"Session", "Loot", "Supplies", "Balance", "Damage", "Healing", "From"}

// Parse reads a party hunt log and returns the session with its settlement.
// Malformed numbers and unknown lines are tolerated; the only failure is a log
// without players, reported as ErrNoPlayers.
func Parse(text string) (*Session, error) {
	var acc accumulator

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		indented := isIndented(raw)

		if isHeader(line, indented) {
			continue
		}

		if indented && acc.active() {
			acc.stat(line)
			continue
		}

		if line == "Leader" || line == "leader" {
			continue
		}

		if isPlayerName(line) {
			acc.flush()
			acc.begin(line)
		}
	}
	acc.flush()

	if len(acc.players) == 0 {
		return nil, ErrNoPlayers
	}
	normalizeOptional(acc.players)

	s := &Session{
		Players:       acc.players,
		Duration:      matchString(reDuration, text),
		LootType:      matchString(reLootType, text),
		TotalLoot:     matchNumber(reTotalLoot, text),
		TotalSupplies: matchNumber(reTotalSupplies, text),
	}
	s.Settlement = Settle(s.Players)
	return s, nil
}

// accumulator collects stats for the player currently being read.
// current is nil between players.
type accumulator struct {
	players []Player
	current *Player
}

func (a *accumulator) active() bool {
	return a.current != nil
}

func (a *accumulator) begin(name string) {
	a.current = &Player{Name: name}
}

func (a *accumulator) stat(line string) {
	m := reStat.FindStringSubmatch(line)
	if m == nil {
		return
	}
	v := ParseNumber(strings.TrimSpace(m[2]))
	switch m[1] {
	case "Loot":
		a.current.Loot = v
	case "Supplies":
		a.current.Supplies = v
	case "Balance":
		a.current.Balance = v
	case "Damage":
		a.current.Damage = &v
	case "Healing":
		a.current.Healing = &v
	}
}

// flush appends the current player, if any, and resets the accumulator.
func (a *accumulator) flush() {
	if a.current == nil {
		return
	}
	p := *a.current
	a.current = nil

	p.IsLeader = strings.Contains(p.Name, "(Leader)")
	p.Name = strings.TrimSpace(reLeader.ReplaceAllString(p.Name, ""))
	if p.Name == "" {
		return
	}
	a.players = append(a.players, p)
}

func isIndented(raw string) bool {
	return strings.HasPrefix(raw, "\t") || strings.HasPrefix(raw, "  ")
}

func isHeader(line string, indented bool) bool {
	if hasAnyPrefix(line, headerPrefixes) {
		return true
	}
	return !indented && hasAnyPrefix(line, totalPrefixes)
}

func isPlayerName(line string) bool {
	return !hasAnyPrefix(line, reservedPrefixes) && !strings.Contains(line, ":")
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// normalizeOptional gives every player a damage (healing) value once any
// player reports one, so the columns are either present for all rows or absent.
func normalizeOptional(players []Player) {
	var damage, healing bool
	for _, p := range players {
		damage = damage || p.Damage != nil
		healing = healing || p.Healing != nil
	}
	for i := range players {
		if damage && players[i].Damage == nil {
			players[i].Damage = new(int64)
		}
		if healing && players[i].Healing == nil {
			players[i].Healing = new(int64)
		}
	}
}

// ParseNumber reads the leading integer of s after removing thousands
// separators. Anything unreadable yields 0.
func ParseNumber(s string) int64 {
	m := reLeadingInt.FindStringSubmatch(strings.ReplaceAll(s, ",", ""))
	if m == nil {
		return 0
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func matchString(re *regexp.Regexp, text string) *string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v := strings.TrimSpace(m[1])
	return &v
}

func matchNumber(re *regexp.Regexp, text string) *int64 {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v := ParseNumber(m[1])
	return &v
}
