package hunt

// Player is one participant of a party hunt as reported by the session log.
// Balance is taken from the log as-is and is not reconciled with Loot and Supplies.
type Player struct {
	Name     string `json:"name" yaml:"name"`
	Loot     int64  `json:"loot" yaml:"loot"`
	Supplies int64  `json:"supplies" yaml:"supplies"`
	Balance  int64  `json:"balance" yaml:"balance"`
	Damage   *int64 `json:"damage,omitempty" yaml:"damage,omitempty"`
	Healing  *int64 `json:"healing,omitempty" yaml:"healing,omitempty"`
	IsLeader bool   `json:"isLeader" yaml:"isLeader"`
}

// Transfer is an instruction for From to pay Amount to To.
type Transfer struct {
	From   string `json:"from" yaml:"from"`
	To     string `json:"to" yaml:"to"`
	Amount int64  `json:"amount" yaml:"amount"`
}

// Settlement is the result of equalising profit between players.
type Settlement struct {
	TotalProfit     int64      `json:"totalProfit" yaml:"totalProfit"`
	TotalWaste      int64      `json:"totalWaste" yaml:"totalWaste"`
	ProfitPerPlayer int64      `json:"profitPerPlayer" yaml:"profitPerPlayer"`
	WastePerPlayer  int64      `json:"wastePerPlayer" yaml:"wastePerPlayer"`
	Transfers       []Transfer `json:"transfers" yaml:"transfers"`
}

// Session is a parsed party hunt log together with its settlement.
type Session struct {
	Players []Player `json:"players" yaml:"players"`
	Settlement `yaml:",inline"`

	// Header metadata. Nil when the log does not contain it.
	Duration      *string `json:"duration,omitempty" yaml:"duration,omitempty"`
	LootType      *string `json:"lootType,omitempty" yaml:"lootType,omitempty"`
	TotalLoot     *int64  `json:"totalLoot,omitempty" yaml:"totalLoot,omitempty"`
	TotalSupplies *int64  `json:"totalSupplies,omitempty" yaml:"totalSupplies,omitempty"`
}

// HasDamage reports whether the log carried a damage column.
func (s *Session) HasDamage() bool {
	for _, p := range s.Players {
		if p.Damage != nil {
			return true
		}
	}
	return false
}

// HasHealing reports whether the log carried a healing column.
func (s *Session) HasHealing() bool {
	for _, p := range s.Players {
		if p.Healing != nil {
			return true
		}
	}
	return false
}

// Player returns the player with the given name.
func (s *Session) Player(name string) (Player, bool) {
	for _, p := range s.Players {
		if p.Name == name {
			return p, true
		}
	}
	return Player{}, false
}
