package commands

import "github.com/bwmarrin/discordgo"

func GetCommands() []*discordgo.ApplicationCommand {
	minLevel := float64(1)
	return []*discordgo.ApplicationCommand{
		{
			Name:         "hunt",
			Description:  "Split the loot of a party hunt",
			DMPermission: boolPtr(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "import",
					Description: "Paste a party hunt session log",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "waste",
					Description: "Set extra waste for a player (replaces the previous value)",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "player",
							Description: "Character name as shown in the log",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "amount",
							Description: "Extra waste in gold",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "bless",
					Description: "Add the full blessing price to a player's extra waste",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "player",
							Description: "Character name as shown in the log",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "level",
							Description: "Character level",
							Required:    true,
							MinValue:    &minLevel,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "show",
					Description: "Show the current split",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "clear",
					Description: "Forget the hunt imported in this channel",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "save",
					Description: "Save the transfers to a group and remind this channel until paid",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "group_id",
							Description: "Group ID from the web dashboard",
							Required:    true,
						},
					},
				},
			},
		},
		{
			Name:        "bless",
			Description: "Blessing prices for a character level",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "level",
					Description: "Character level",
					Required:    true,
					MinValue:    &minLevel,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "inquisition",
					Description: "Buy the five regular blessings at the Inquisition",
				},
			},
		},
	}
}

func boolPtr(b bool) *bool {
	return &b
}
