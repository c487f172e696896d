package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/crosspair/spreadbot/internal/domain"
)

func entryAlert() domain.Alert {
	funding := 0.0123
	return domain.Alert{
		Signal: domain.Signal{
			ID:        "sig-1",
			Kind:      domain.SignalEntry,
			Direction: domain.LongBTCShortETH,
			Observation: domain.SpreadObservation{
				BTC:       domain.PriceQuote{Symbol: "BTC", Price: 97050.25, Change24hPct: 0.5},
				ETH:       domain.PriceQuote{Symbol: "ETH", Price: 3400.10, Change24hPct: 3.0},
				SpreadPct: 2.5,
			},
			CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
		VenueQuotes: map[string]map[string]domain.PriceQuote{
			"extended": {
				"BTC": {Symbol: "BTC", Price: 97100, Bid: 97099, Ask: 97102, FundingRatePct: &funding},
			},
		},
	}
}

func closeAlert() domain.Alert {
	pnl := 31.25
	return domain.Alert{
		Signal: domain.Signal{
			ID:        "sig-2",
			Kind:      domain.SignalClose,
			Direction: domain.LongBTCShortETH,
			Observation: domain.SpreadObservation{
				BTC:       domain.PriceQuote{Symbol: "BTC", Price: 100900, Change24hPct: 0.2},
				ETH:       domain.PriceQuote{Symbol: "ETH", Price: 3434, Change24hPct: 0.5},
				SpreadPct: 0.3,
			},
			Position: &domain.Position{
				ID:             "pos-1",
				Direction:      domain.LongBTCShortETH,
				EntrySpreadPct: 2.5,
				EntryBTCPrice:  97050.25,
				EntryETHPrice:  3400.10,
				EntryTime:      time.Date(2025, 6, 1, 9, 47, 0, 0, time.UTC),
				SizeUSD:        1000,
			},
			EstimatedPnLUSD: &pnl,
			CreatedAt:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
	}
}

func TestTelegramMessageEntry(t *testing.T) {
	msg := telegramMessage(entryAlert())

	for _, want := range []string{
		"*ENTRY SIGNAL*",
		"*Action:* Long BTC / Short ETH",
		"ETH outperforming BTC by 2.50%",
		"BTC: $97,050.25 (+0.50%)",
		"Spread: +2.50%",
		"*EXTENDED*",
		"(B/A: $97,099.00/$97,102.00)",
		"FR: 0.0123%",
		"2025-06-01 12:00:00 UTC",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q\n%s", want, msg)
		}
	}
}

func TestTelegramMessageClose(t *testing.T) {
	msg := telegramMessage(closeAlert())

	for _, want := range []string{
		"*CLOSE POSITION SIGNAL*",
		"Spread normalized to +0.30%",
		"Entry Spread: +2.50%",
		"Duration: 2h 13m",
		"Est. PnL: $+31.25",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q\n%s", want, msg)
		}
	}
}

func TestDiscordEmbedColors(t *testing.T) {
	embed := buildDiscordEmbed(entryAlert())
	if embed.Color != colorEntryLong {
		t.Errorf("entry color = %#x, want %#x", embed.Color, colorEntryLong)
	}

	short := entryAlert()
	short.Signal.Direction = domain.ShortBTCLongETH
	short.Signal.Observation.SpreadPct = -2.5
	if got := buildDiscordEmbed(short).Color; got != colorEntryShort {
		t.Errorf("short entry color = %#x, want %#x", got, colorEntryShort)
	}

	if got := buildDiscordEmbed(closeAlert()).Color; got != colorClose {
		t.Errorf("close color = %#x, want %#x", got, colorClose)
	}
}

func TestDiscordCloseEmbedFields(t *testing.T) {
	embed := buildDiscordEmbed(closeAlert())

	byName := map[string]string{}
	for _, f := range embed.Fields {
		byName[f.Name] = f.Value
	}
	if got := byName["Est. PnL"]; got != "$+31.25" {
		t.Errorf("pnl field = %q", got)
	}
	if got := byName["Entry Spread"]; got != "+2.50%" {
		t.Errorf("entry spread field = %q", got)
	}
	if !strings.Contains(byName["Position Summary"], "Duration: 2h 13m") {
		t.Errorf("position summary = %q", byName["Position Summary"])
	}
}

func TestMoney(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0.00"},
		{999.5, "999.50"},
		{1000, "1,000.00"},
		{97050.25, "97,050.25"},
		{1234567.89, "1,234,567.89"},
		{-1234.5, "-1,234.50"},
	}
	for _, tc := range cases {
		if got := money(tc.in); got != tc.want {
			t.Errorf("money(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTelegramSend(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottest-token/sendMessage" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	s := NewTelegramSender("test-token", "chat-1")
	s.apiBase = srv.URL

	if err := s.Send(context.Background(), entryAlert()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if captured["parse_mode"] != "Markdown" {
		t.Errorf("parse_mode = %v", captured["parse_mode"])
	}
	if captured["disable_web_page_preview"] != true {
		t.Error("web page preview should be disabled")
	}
	if captured["chat_id"] != "chat-1" {
		t.Errorf("chat_id = %v", captured["chat_id"])
	}
}

func TestTelegramHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottest-token/getMe" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	s := NewTelegramSender("test-token", "chat-1")
	s.apiBase = srv.URL
	if err := s.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"ok": false}`))
	}))
	defer bad.Close()

	s.apiBase = bad.URL
	if err := s.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected error for ok=false")
	}
}

func TestDiscordSend(t *testing.T) {
	var captured struct {
		Content string         `json:"content"`
		Embeds  []discordEmbed `json:"embeds"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewDiscordSender(srv.URL, "role-9")
	if err := s.Send(context.Background(), entryAlert()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if captured.Content != "<@&role-9>" {
		t.Errorf("content = %q, want role mention", captured.Content)
	}
	if len(captured.Embeds) != 1 || captured.Embeds[0].Color != colorEntryLong {
		t.Errorf("embeds = %+v", captured.Embeds)
	}
}

func TestDiscordSendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	s := NewDiscordSender(srv.URL, "")
	if err := s.Send(context.Background(), entryAlert()); err == nil {
		t.Fatal("expected error for 400 response")
	}
}
