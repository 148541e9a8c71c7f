// Package bless prices character blessings by level.
package bless

import (
	"errors"
	"math"
)

var ErrInvalidLevel = errors.New("level must be at least 1")

// Individual blessing keys.
const (
	WisdomOfSolitude   = "wisdomOfSolitude"
	SparkOfThePhoenix  = "sparkOfThePhoenix"
	FireOfTheSuns      = "fireOfTheSuns"
	SpiritualShielding = "spiritualShielding"
	EmbraceOfTibia     = "embraceOfTibia"
	HeartOfTheMountain = "heartOfTheMountain"
	BloodOfTheMountain = "bloodOfTheMountain"
	TwistOfFate        = "twistOfFate"
)

var regularBlessings = []string{WisdomOfSolitude, SparkOfThePhoenix, FireOfTheSuns, SpiritualShielding, EmbraceOfTibia}

// Surcharge for buying the five regular blessings at once from the Inquisition.
const inquisitionMarkup = 0.10

type Costs struct {
	FiveRegular       int64            `json:"fiveRegular" yaml:"fiveRegular"`
	AllSeven          int64            `json:"allSeven" yaml:"allSeven"`
	AllSevenWithTwist int64            `json:"allSevenWithTwist" yaml:"allSevenWithTwist"`
	Individual        map[string]int64 `json:"individual" yaml:"individual"`
}

// Cost returns blessing prices for a character of the given level.
func Cost(level int, inquisition bool) (Costs, error) {
	if level < 1 {
		return Costs{}, ErrInvalidLevel
	}

	regular := regularPrice(level)
	enhanced := enhancedPrice(level)

	c := Costs{Individual: make(map[string]int64, 8)}
	for _, name := range regularBlessings {
		c.Individual[name] = regular
	}
	c.Individual[HeartOfTheMountain] = enhanced
	c.Individual[BloodOfTheMountain] = enhanced
	c.Individual[TwistOfFate] = regular

	c.FiveRegular = regular * int64(len(regularBlessings))
	if inquisition {
		c.FiveRegular = int64(math.Round(float64(c.FiveRegular) * (1 + inquisitionMarkup)))
	}
	c.AllSeven = c.FiveRegular + 2*enhanced
	c.AllSevenWithTwist = c.AllSeven + c.Individual[TwistOfFate]
	return c, nil
}

func regularPrice(level int) int64 {
	l := int64(level)
	switch {
	case l <= 30:
		return 2000
	case l <= 120:
		return 200 * (l - 20)
	default:
		return 20000 + 75*(l-120)
	}
}

func enhancedPrice(level int) int64 {
	l := int64(level)
	switch {
	case l <= 30:
		return 2600
	case l <= 120:
		return 260 * (l - 20)
	default:
		return 26000 + 100*(l-120)
	}
}
