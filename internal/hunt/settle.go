package hunt

import (
	"fmt"
	"math"
	"sort"
)

// Remaining excess or deficit below this is treated as settled.
const settleEpsilon = 0.01

// Settle computes totals, per-player shares and the transfers that bring every
// player to an equal share of the total profit. An empty player list yields an
// empty settlement.
func Settle(players []Player) Settlement {
	res := Settlement{Transfers: []Transfer{}}
	if len(players) == 0 {
		return res
	}

	n := int64(len(players))
	for _, p := range players {
		res.TotalProfit += p.Balance
		res.TotalWaste += p.Supplies
	}

	exact := float64(res.TotalProfit) / float64(n)
	res.ProfitPerPlayer = roundHalfUp(exact)
	res.WastePerPlayer = roundHalfUp(float64(res.TotalWaste) / float64(n))

	remainder := res.TotalProfit - res.ProfitPerPlayer*n
	res.Transfers = ComputeTransfers(players, exact, remainder)
	return res
}

type adjustment struct {
	name       string
	difference int64
}

// ComputeTransfers pairs players above their target balance with players below
// it, largest first. Every player targets round(exactShare); the first
// |remainder| players in list order target one more (remainder > 0) or one
// less (remainder < 0).
func ComputeTransfers(players []Player, exactShare float64, remainder int64) []Transfer {
	transfers := []Transfer{}
	if len(players) == 0 {
		return transfers
	}

	target := roundHalfUp(exactShare)
	adjustCount := remainder
	if adjustCount < 0 {
		adjustCount = -adjustCount
	}

	var givers, receivers []adjustment
	for i, p := range players {
		t := target
		if int64(i) < adjustCount {
			if remainder > 0 {
				t++
			} else {
				t--
			}
		}
		a := adjustment{name: p.Name, difference: p.Balance - t}
		switch {
		case a.difference > 0:
			givers = append(givers, a)
		case a.difference < 0:
			receivers = append(receivers, a)
		}
	}

	sort.SliceStable(givers, func(i, j int) bool { return givers[i].difference > givers[j].difference })
	sort.SliceStable(receivers, func(i, j int) bool { return receivers[i].difference < receivers[j].difference })

	gi, ri := 0, 0
	for gi < len(givers) && ri < len(receivers) {
		g := &givers[gi]
		r := &receivers[ri]

		amount := g.difference
		if -r.difference < amount {
			amount = -r.difference
		}
		if amount > 0 {
			transfers = append(transfers, Transfer{From: g.name, To: r.name, Amount: amount})
		}

		g.difference -= amount
		r.difference += amount

		if float64(g.difference) < settleEpsilon {
			gi++
		}
		if math.Abs(float64(r.difference)) < settleEpsilon {
			ri++
		}
	}
	return transfers
}

// roundHalfUp rounds to the nearest integer with halves rounded towards
// positive infinity, so 2.5 becomes 3 and -2.5 becomes -2.
func roundHalfUp(x float64) int64 {
	return int64(math.Floor(x + 0.5))
}

// TransferCommand renders the in-game bank instruction for t.
func TransferCommand(t Transfer) string {
	return fmt.Sprintf("transfer %d to %s", t.Amount, t.To)
}
