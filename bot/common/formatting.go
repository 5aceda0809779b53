package common

import (
	"fmt"
	"strings"
	"time"

	"ledgerbot/models"
)

// FormatPoints formats a point amount with thousand separators
func FormatPoints(points int64) string {
	sign := ""
	if points < 0 {
		sign = "-"
		points = -points
	}

	str := fmt.Sprintf("%d", points)
	n := len(str)
	if n <= 3 {
		return sign + str
	}

	var result strings.Builder
	result.WriteString(sign)
	for i, digit := range str {
		if i > 0 && (n-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(digit)
	}

	return result.String()
}

// FormatPrice renders an effective price, showing the list price when discounted
func FormatPrice(entry *models.CatalogEntry) string {
	if entry.Reward.DiscountPercent > 0 && entry.EffectivePrice != entry.Reward.Cost {
		return fmt.Sprintf("~~%s~~ **%s** points (-%d%%)",
			FormatPoints(entry.Reward.Cost), FormatPoints(entry.EffectivePrice), entry.Reward.DiscountPercent)
	}
	return fmt.Sprintf("**%s** points", FormatPoints(entry.EffectivePrice))
}

// FormatChannelList renders channel identifiers as a bullet list
func FormatChannelList(channels []string) string {
	var b strings.Builder
	for _, channel := range channels {
		b.WriteString("• ")
		b.WriteString(channel)
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// FormatDiscordTimestamp formats a time as a Discord timestamp that displays in user's local timezone
// Format types: "t" = short time, "T" = long time, "d" = short date, "D" = long date,
// "f" = short date/time, "F" = long date/time, "R" = relative time
func FormatDiscordTimestamp(t time.Time, format string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), format)
}
