package commands

import (
	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/lootsplit/internal/bless"
)

func runBless(opts []*discordgo.ApplicationCommandInteractionDataOption) reply {
	level := getIntOption(opts, "level")
	if level == nil {
		return textReply("level is required.")
	}
	inquisition := false
	if v := getBoolOption(opts, "inquisition"); v != nil {
		inquisition = *v
	}

	costs, err := bless.Cost(int(*level), inquisition)
	if err != nil {
		return textReply("Level must be at least 1.")
	}
	return textReply(bless.Summary(int(*level), inquisition, costs))
}
