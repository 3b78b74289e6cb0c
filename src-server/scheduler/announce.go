package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"attendex/src-server/entity"

	"github.com/bwmarrin/discordgo"
)

// Announcer posts new arrivals of an event.
type Announcer interface {
	Announce(ctx context.Context, event entity.Event, arrivals []entity.AttendanceRecord) error
}

// Discord's limits per embed and per message.
const (
	embedFields      = 25
	embedsPerMessage = 10
)

type discordAnnouncer struct {
	session   *discordgo.Session
	channelID string
	loc       *time.Location
}

func NewDiscordAnnouncer(session *discordgo.Session, channelID string, loc *time.Location) Announcer {
	return &discordAnnouncer{session: session, channelID: channelID, loc: loc}
}

func (d *discordAnnouncer) Announce(ctx context.Context, event entity.Event, arrivals []entity.AttendanceRecord) error {
	embeds := ArrivalEmbeds(event, arrivals, d.loc)
	for start := 0; start < len(embeds); start += embedsPerMessage {
		batch := embeds[start:min(start+embedsPerMessage, len(embeds))]
		if _, err := d.session.ChannelMessageSendEmbeds(d.channelID, batch, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("(*discordAnnouncer).Announce: %w", err)
		}
	}
	return nil
}

// ArrivalEmbeds renders arrivals as Discord embeds of at most 25 fields each,
// with times in loc.
func ArrivalEmbeds(event entity.Event, arrivals []entity.AttendanceRecord, loc *time.Location) []*discordgo.MessageEmbed {
	if loc == nil {
		loc = time.UTC
	}
	title := fmt.Sprintf("%s: %d new arrivals", event.Name, len(arrivals))
	if len(arrivals) == 1 {
		title = event.Name + ": 1 new arrival"
	}
	var embeds []*discordgo.MessageEmbed
	for start := 0; start < len(arrivals); start += embedFields {
		chunk := arrivals[start:min(start+embedFields, len(arrivals))]
		embed := &discordgo.MessageEmbed{
			Title: title,
			Color: 0x4f46e5,
		}
		if start > 0 {
			embed.Title = event.Name + " (continued)"
		}
		for _, r := range chunk {
			value := "arrived"
			if r.ArrivedAt != nil {
				value = r.ArrivedAt.In(loc).Format("15:04")
			}
			if r.Punctuality != "" {
				value += " · " + strings.ToLower(strings.ReplaceAll(r.Punctuality, "_", " "))
			}
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:   fmt.Sprintf("%s (%s)", r.Name, r.Identifier),
				Value:  value,
				Inline: true,
			})
		}
		embeds = append(embeds, embed)
	}
	return embeds
}
