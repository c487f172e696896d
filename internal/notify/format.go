package notify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/crosspair/spreadbot/internal/domain"
)

// Discord embed colors per signal flavor.
const (
	colorEntryLong  = 0x00FF88 // positive-spread entry
	colorEntryShort = 0xFF3366 // negative-spread entry
	colorClose      = 0xF7931A
)

const messageRule = "─────────────────────"

// telegramMessage renders one alert as a Telegram Markdown message.
func telegramMessage(alert domain.Alert) string {
	sig := alert.Signal
	if sig.Kind == domain.SignalClose {
		return telegramCloseMessage(alert)
	}

	lines := []string{
		"*SPREAD ALERT*",
		"",
		messageRule,
		fmt.Sprintf("*%s SIGNAL*", strings.ToUpper(string(sig.Kind))),
		messageRule,
		"",
		fmt.Sprintf("*Action:* %s", sig.Direction.Action()),
		fmt.Sprintf("*Reason:* %s", sig.Direction.Reason(sig.Observation.SpreadPct)),
		"",
		"*Binance (signal source)*",
		fmt.Sprintf("├─ BTC: $%s (%+.2f%%)", money(sig.Observation.BTC.Price), sig.Observation.BTC.Change24hPct),
		fmt.Sprintf("├─ ETH: $%s (%+.2f%%)", money(sig.Observation.ETH.Price), sig.Observation.ETH.Change24hPct),
		fmt.Sprintf("└─ Spread: %+.2f%%", sig.Observation.SpreadPct),
	}

	for _, venue := range sortedVenues(alert.VenueQuotes) {
		quotes := alert.VenueQuotes[venue]
		lines = append(lines, "", fmt.Sprintf("*%s*", strings.ToUpper(venue)))
		for i, symbol := range []string{"BTC", "ETH"} {
			q, ok := quotes[symbol]
			if !ok {
				continue
			}
			branch := "├─"
			if i == 1 {
				branch = "└─"
			}
			line := fmt.Sprintf("%s %s: $%s", branch, symbol, money(q.Price))
			if q.Bid != 0 && q.Ask != 0 {
				line += fmt.Sprintf(" (B/A: $%s/$%s)", money(q.Bid), money(q.Ask))
			}
			if q.FundingRatePct != nil {
				line += fmt.Sprintf(" | FR: %.4f%%", *q.FundingRatePct)
			}
			lines = append(lines, line)
		}
	}

	lines = append(lines,
		"",
		fmt.Sprintf("%s UTC", sig.CreatedAt.UTC().Format("2006-01-02 15:04:05")),
	)
	return strings.Join(lines, "\n")
}

// telegramCloseMessage renders the close variant with entry context and PnL.
func telegramCloseMessage(alert domain.Alert) string {
	sig := alert.Signal

	lines := []string{
		"*SPREAD ALERT*",
		"",
		messageRule,
		"*CLOSE POSITION SIGNAL*",
		messageRule,
		"",
		"*Action:* Close All Positions",
		fmt.Sprintf("*Reason:* Spread normalized to %+.2f%%", sig.Observation.SpreadPct),
		"",
	}

	if pos := sig.Position; pos != nil {
		pnl := "N/A"
		if sig.EstimatedPnLUSD != nil {
			pnl = fmt.Sprintf("$%+.2f", *sig.EstimatedPnLUSD)
		}
		lines = append(lines,
			"*Position Summary*",
			fmt.Sprintf("├─ Entry Spread: %+.2f%%", pos.EntrySpreadPct),
			fmt.Sprintf("├─ Current Spread: %+.2f%%", sig.Observation.SpreadPct),
			fmt.Sprintf("├─ Duration: %s", pos.DurationString(sig.CreatedAt)),
			fmt.Sprintf("└─ Est. PnL: %s", pnl),
			"",
		)
	}

	lines = append(lines,
		"*Current Prices*",
		fmt.Sprintf("├─ BTC: $%s", money(sig.Observation.BTC.Price)),
		fmt.Sprintf("└─ ETH: $%s", money(sig.Observation.ETH.Price)),
		"",
		fmt.Sprintf("%s UTC", sig.CreatedAt.UTC().Format("2006-01-02 15:04:05")),
	)
	return strings.Join(lines, "\n")
}

// discordEmbed is the webhook embed payload shape.
type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	Fields      []discordField `json:"fields"`
	Footer      discordFooter  `json:"footer"`
	Timestamp   string         `json:"timestamp"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordFooter struct {
	Text string `json:"text"`
}

// buildDiscordEmbed renders one alert as a Discord embed.
func buildDiscordEmbed(alert domain.Alert) discordEmbed {
	sig := alert.Signal
	if sig.Kind == domain.SignalClose {
		return buildDiscordCloseEmbed(alert)
	}

	color := colorEntryLong
	if sig.Direction == domain.ShortBTCLongETH {
		color = colorEntryShort
	}

	fields := []discordField{
		{
			Name:   "BTC",
			Value:  fmt.Sprintf("$%s\n%+.2f%% (24h)", money(sig.Observation.BTC.Price), sig.Observation.BTC.Change24hPct),
			Inline: true,
		},
		{
			Name:   "ETH",
			Value:  fmt.Sprintf("$%s\n%+.2f%% (24h)", money(sig.Observation.ETH.Price), sig.Observation.ETH.Change24hPct),
			Inline: true,
		},
		{
			Name:   "Spread",
			Value:  fmt.Sprintf("%+.2f%%", sig.Observation.SpreadPct),
			Inline: true,
		},
	}

	for _, venue := range sortedVenues(alert.VenueQuotes) {
		quotes := alert.VenueQuotes[venue]
		var parts []string
		for _, symbol := range []string{"BTC", "ETH"} {
			q, ok := quotes[symbol]
			if !ok {
				continue
			}
			line := fmt.Sprintf("%s: $%s", symbol, money(q.Price))
			if q.FundingRatePct != nil {
				line += fmt.Sprintf(" (FR: %.3f%%)", *q.FundingRatePct)
			}
			parts = append(parts, line)
		}
		if len(parts) > 0 {
			fields = append(fields, discordField{
				Name:   titleCase(venue),
				Value:  strings.Join(parts, "\n"),
				Inline: true,
			})
		}
	}

	return discordEmbed{
		Title:       "Spread Entry Signal",
		Description: fmt.Sprintf("**%s**\n%s", sig.Direction.Action(), sig.Direction.Reason(sig.Observation.SpreadPct)),
		Color:       color,
		Fields:      fields,
		Footer:      discordFooter{Text: "spreadbot"},
		Timestamp:   sig.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// buildDiscordCloseEmbed renders the close variant.
func buildDiscordCloseEmbed(alert domain.Alert) discordEmbed {
	sig := alert.Signal

	pnl := "N/A"
	if sig.EstimatedPnLUSD != nil {
		pnl = fmt.Sprintf("$%+.2f", *sig.EstimatedPnLUSD)
	}
	entrySpread := "N/A"
	if sig.Position != nil {
		entrySpread = fmt.Sprintf("%+.2f%%", sig.Position.EntrySpreadPct)
	}

	fields := []discordField{
		{Name: "Current Spread", Value: fmt.Sprintf("%+.2f%%", sig.Observation.SpreadPct), Inline: true},
		{Name: "Entry Spread", Value: entrySpread, Inline: true},
		{Name: "Est. PnL", Value: pnl, Inline: true},
	}

	if pos := sig.Position; pos != nil {
		fields = append(fields, discordField{
			Name: "Position Summary",
			Value: fmt.Sprintf("%s\nBTC @ $%s / ETH @ $%s\nDuration: %s | Size: $%.0f/leg",
				pos.Direction.Action(),
				money(pos.EntryBTCPrice),
				money(pos.EntryETHPrice),
				pos.DurationString(sig.CreatedAt),
				pos.SizeUSD,
			),
			Inline: false,
		})
	}

	return discordEmbed{
		Title:       "Close Position Signal",
		Description: fmt.Sprintf("**Spread Normalized - Take Profit**\nSpread returned to: **%+.2f%%**", sig.Observation.SpreadPct),
		Color:       colorClose,
		Fields:      fields,
		Footer:      discordFooter{Text: "spreadbot"},
		Timestamp:   sig.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// money renders a price with thousands separators and two decimals.
func money(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	dot := strings.IndexByte(s, '.')
	intPart, frac := s[:dot], s[dot:]

	neg := strings.HasPrefix(intPart, "-")
	if neg {
		intPart = intPart[1:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := b.String() + frac
	if neg {
		out = "-" + out
	}
	return out
}

// sortedVenues returns venue names in stable order.
func sortedVenues(quotes map[string]map[string]domain.PriceQuote) []string {
	names := make([]string, 0, len(quotes))
	for name, symbols := range quotes {
		if len(symbols) == 0 {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// titleCase uppercases the first letter only; venue names are ASCII.
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
