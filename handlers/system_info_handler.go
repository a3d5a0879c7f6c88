package handlers

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"starboard-bot/bot"
	"starboard-bot/model"
	"starboard-bot/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

type systemStats struct {
	Platform      string
	Kernel        string
	CPUCount      int
	CPUPercent    float64
	MemUsed       uint64
	MemTotal      uint64
	MemPercent    float64
	Goroutines    int
	Latency       time.Duration
	Guilds        int
	OpenConns     int
	Rows          model.RowCounts
	Uptime        time.Duration
	ConfigVersion uint64
}

var startedAt = time.Now()

func SystemInfoHandler(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if err := utils.DeferResponse(s, i, true); err != nil {
		log.WithError(err).Error("Failed to defer system info response")
		return
	}

	ctx, cancel := context.WithTimeout(b.Context(), commandTimeout)
	defer cancel()
	stats, err := collectSystemStats(ctx, b)
	if err != nil {
		log.WithError(err).Error("Failed to collect system info")
		utils.SendFollowUpError(s, i.Interaction, "Failed to collect system information.")
		return
	}
	utils.SendFollowUpEmbed(s, i.Interaction, systemInfoEmbed(stats, time.Now()))
}

func collectSystemStats(ctx context.Context, b *bot.Bot) (systemStats, error) {
	var stats systemStats

	// Host probes are best effort.
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		stats.CPUCount = n
	}
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		stats.CPUPercent = pct[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats.MemUsed, stats.MemTotal, stats.MemPercent = vm.Used, vm.Total, vm.UsedPercent
	}
	if info, err := host.InfoWithContext(ctx); err == nil {
		stats.Platform = info.Platform + " " + info.PlatformVersion
		stats.Kernel = info.KernelVersion
	}

	stats.Goroutines = runtime.NumGoroutine()
	stats.Uptime = time.Since(startedAt)
	stats.ConfigVersion = b.GetConfig().Version
	if s := b.GetSession(); s != nil {
		stats.Latency = s.HeartbeatLatency()
		if s.State != nil {
			s.State.RLock()
			stats.Guilds = len(s.State.Guilds)
			s.State.RUnlock()
		}
	}
	stats.OpenConns = b.GetDB().Stats().OpenConnections

	rows, err := bot.CountRows(ctx, b.Store)
	if err != nil {
		return stats, err
	}
	stats.Rows = rows
	return stats, nil
}

func systemInfoEmbed(st systemStats, now time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "System Information",
		Color: 0x5865F2, // Discord Blurple
		Fields: []*discordgo.MessageEmbedField{
			{Name: "💻 OS", Value: orUnknown(st.Platform), Inline: true},
			{Name: "🔧 Kernel", Value: orUnknown(st.Kernel), Inline: true},
			{Name: "🐹 Go", Value: runtime.Version(), Inline: true},
			{Name: "🔼 CPUs", Value: fmt.Sprintf("%d", st.CPUCount), Inline: true},
			{Name: "🔥 CPU usage", Value: fmt.Sprintf("%.1f%%", st.CPUPercent), Inline: true},
			{Name: "🧠 Memory", Value: fmt.Sprintf("%.1f%% (%s / %s)", st.MemPercent, humanize.IBytes(st.MemUsed), humanize.IBytes(st.MemTotal)), Inline: true},
			{Name: "⏱️ WebSocket latency", Value: st.Latency.String(), Inline: true},
			{Name: "🚀 Goroutines", Value: humanize.Comma(int64(st.Goroutines)), Inline: true},
			{Name: "⌛ Uptime", Value: utils.FormatDuration(st.Uptime), Inline: true},
			{Name: "🌍 Guilds", Value: humanize.Comma(int64(st.Guilds)), Inline: true},
			{Name: "🔌 DB connections", Value: humanize.Comma(int64(st.OpenConns)), Inline: true},
			{Name: "⚙️ Config version", Value: fmt.Sprintf("%d", st.ConfigVersion), Inline: true},
			{Name: "🗨️ Tracked messages", Value: humanize.Comma(int64(st.Rows.Messages)), Inline: true},
			{Name: "⭐ Stars", Value: humanize.Comma(int64(st.Rows.Stars)), Inline: true},
			{Name: "📌 Starboard messages", Value: humanize.Comma(int64(st.Rows.StarboardMessages)), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("System monitor・%s", now.Format("15:04")),
		},
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
