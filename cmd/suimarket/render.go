package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/liamashdown/suimarket/internal/journal"
	"github.com/liamashdown/suimarket/internal/market"
	"github.com/liamashdown/suimarket/internal/notify"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0099FF"))
	winnerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2ECC71"))
	resolvedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	favoriteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700"))
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF0000"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))

	cellStyle  = lipgloss.NewStyle().Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Bold(true).PaddingRight(2)
)

// newTable returns a bordered table with styled headers
func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		})
}

// renderFields prints label/value pairs without borders
func renderFields(out io.Writer, rows [][]string) {
	t := table.New().
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderHeader(false).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return labelStyle
			}
			return lipgloss.NewStyle()
		})
	fmt.Fprintln(out, t.Render())
}

func renderMarkets(out io.Writer, views []market.View, now time.Time) {
	if len(views) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("No markets found."))
		return
	}

	t := newTable("ID", "★", "MARKET", "ODDS", "VOLUME", "ENDS", "STATUS")
	for _, v := range views {
		star := " "
		if v.Favorite {
			star = favoriteStyle.Render("★")
		}
		t.Row(strconv.FormatInt(v.ID, 10), star, truncate(v.Name, 48), oddsSummary(v), v.VolumeLabel, orDash(endText(v)), status(v, now))
	}
	fmt.Fprintln(out, t.Render())
}

func renderMarket(out io.Writer, v market.View, now time.Time) {
	fmt.Fprintln(out, headerStyle.Render(v.Name))
	if v.Favorite {
		fmt.Fprintln(out, favoriteStyle.Render("★ favorite"))
	}

	kind := "Yes / No"
	if !v.Binary {
		kind = fmt.Sprintf("%d outcomes", len(v.Outcomes))
	}
	renderFields(out, [][]string{
		{"ID", strconv.FormatInt(v.ID, 10)},
		{"Address", orDash(v.Address)},
		{"Type", kind},
		{"Volume", fmt.Sprintf("%s SUI (%d MIST)", v.VolumeLabel, v.VolumeMist)},
		{"Ends", orDash(endText(v))},
		{"Status", status(v, now)},
	})

	fmt.Fprintln(out)
	winnerRow := -1
	t := newTable("#", "OUTCOME", "CHANCE", "POOL (SUI)")
	for i, o := range v.Outcomes {
		name := o.Name
		if o.Winner {
			winnerRow = i
			name += " ✓ winner"
		}
		t.Row(strconv.Itoa(o.Index), name, fmt.Sprintf("%d%%", o.Percent), o.Pool.StringFixed(4))
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		switch row {
		case table.HeaderRow:
			return headerStyle.Padding(0, 1)
		case winnerRow:
			return winnerStyle.Padding(0, 1)
		default:
			return cellStyle
		}
	})
	fmt.Fprintln(out, t.Render())
	if v.OddsFallback {
		fmt.Fprintln(out, mutedStyle.Render("Odds unavailable, showing an even split."))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, headerStyle.Render("Rules"))
	fmt.Fprintln(out, v.Rules())
}

func renderHistory(out io.Writer, series []market.Series) {
	if len(series) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("No price history."))
		return
	}

	t := newTable("OUTCOME", "FIRST", "LAST", "LOW", "HIGH", "POINTS")
	for _, s := range series {
		if len(s.Points) == 0 {
			t.Row(s.Outcome, "-", "-", "-", "-", "0")
			continue
		}
		low, high := s.Points[0].Percent, s.Points[0].Percent
		for _, p := range s.Points {
			low = min(low, p.Percent)
			high = max(high, p.Percent)
		}
		first, last := s.Points[0], s.Points[len(s.Points)-1]
		t.Row(s.Outcome, percent(first.Percent), percent(last.Percent), percent(low), percent(high), strconv.Itoa(len(s.Points)))
	}
	fmt.Fprintln(out, t.Render())
}

func renderCategories(out io.Writer, categories []market.Category, active string) {
	t := newTable("ID", "CATEGORY")
	for _, c := range categories {
		name := c.Name
		if strings.EqualFold(name, active) {
			name = headerStyle.Render(name + " *")
		}
		t.Row(strconv.FormatInt(c.ID, 10), name)
	}
	fmt.Fprintln(out, t.Render())
}

func renderBets(out io.Writer, bets []journal.BetReceipt) {
	if len(bets) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("No bets recorded."))
		return
	}

	t := newTable("WHEN", "MARKET", "OUTCOME", "STAKE (SUI)", "STATUS", "DIGEST")
	for _, b := range bets {
		statusText := b.Status
		if b.Error != "" {
			statusText = errorStyle.Render(b.Status)
		}
		t.Row(
			time.Unix(b.CreatedTS, 0).Format("2006-01-02 15:04"),
			truncate(b.MarketName, 40),
			b.OutcomeName,
			market.FromMist(b.StakeMist).String(),
			statusText,
			orDash(notify.Short(b.Digest)))
	}
	fmt.Fprintln(out, t.Render())
}

func oddsSummary(v market.View) string {
	parts := make([]string, 0, len(v.Outcomes))
	for _, o := range v.Outcomes {
		parts = append(parts, fmt.Sprintf("%s %d%%", o.Name, o.Percent))
	}
	return truncate(strings.Join(parts, " / "), 40)
}

func percent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

func endText(v market.View) string {
	return strings.TrimPrefix(v.EndLabel, "Ends ")
}

func status(v market.View, now time.Time) string {
	switch {
	case v.Resolved && v.WinnerName() != "":
		return winnerStyle.Render("Resolved: " + v.WinnerName())
	case v.Resolved:
		return resolvedStyle.Render("Resolved")
	case v.Expired(now):
		return resolvedStyle.Render("Awaiting resolution")
	default:
		return "Open"
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
