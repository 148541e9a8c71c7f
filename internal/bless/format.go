package bless

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// Names maps each blessing key to its in-game name, in shop order.
var Names = []struct {
	Key  string
	Name string
}{
	{WisdomOfSolitude, "Wisdom of Solitude"},
	{SparkOfThePhoenix, "Spark of the Phoenix"},
	{FireOfTheSuns, "Fire of the Suns"},
	{SpiritualShielding, "Spiritual Shielding"},
	{EmbraceOfTibia, "Embrace of Tibia"},
	{HeartOfTheMountain, "Heart of the Mountain"},
	{BloodOfTheMountain, "Blood of the Mountain"},
	{TwistOfFate, "Twist of Fate"},
}

// Summary renders costs as plain text, one blessing per line followed by the totals.
func Summary(level int, inquisition bool, c Costs) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Blessings for level %d", level)
	if inquisition {
		b.WriteString(" (Inquisition)")
	}
	b.WriteString("\n")
	for _, n := range Names {
		fmt.Fprintf(&b, "- %s: %s gp\n", n.Name, humanize.Comma(c.Individual[n.Key]))
	}
	fmt.Fprintf(&b, "\nFive regular: %s gp\n", humanize.Comma(c.FiveRegular))
	fmt.Fprintf(&b, "All seven: %s gp\n", humanize.Comma(c.AllSeven))
	fmt.Fprintf(&b, "All seven + Twist of Fate: %s gp\n", humanize.Comma(c.AllSevenWithTwist))
	return b.String()
}
