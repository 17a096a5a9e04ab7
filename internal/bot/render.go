package bot

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"fresherwatch/internal/domain"
	"fresherwatch/internal/scrape"
)

const embedColor = 0x3498db

func postingEmbed(p domain.JobPosting) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title: p.Title,
		URL:   p.Link,
		Color: embedColor,
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Source: " + p.Source.Label(),
		},
	}

	addField := func(name, value string) {
		if value == "" {
			return
		}
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name:   name,
			Value:  value,
			Inline: true,
		})
	}
	addField("Company", p.Company)
	addField("Location", p.Location)
	addField("Qualification", p.Qualification)
	addField("Experience", p.Experience)

	return e
}

func warningNote(ws []scrape.Warning) string {
	if len(ws) == 0 {
		return ""
	}
	names := make([]string, 0, len(ws))
	for _, w := range ws {
		names = append(names, w.Source.Label())
	}
	return fmt.Sprintf("Note: %s unavailable this time; results are partial.", strings.Join(names, ", "))
}
