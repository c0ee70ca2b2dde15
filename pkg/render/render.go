package render

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"insightwire/pkg/telegram"
)

const tableTextLimit = 80

// Table renders scraped rows as a bordered terminal table. Message text is
// truncated to keep rows on one line.
func Table(rows []telegram.Message) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("CHANNEL", "DATE", "VIEWS", "TEXT")

	for _, row := range rows {
		t.Row(
			row.Channel,
			row.Date.Format(time.DateTime),
			strconv.Itoa(row.Views),
			truncate(row.Text),
		)
	}

	return t.Render()
}

// CSV writes scraped rows as comma-separated records with a header line.
func CSV(w io.Writer, rows []telegram.Message) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"channel", "date", "text", "views"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.Channel,
			row.Date.Format(time.RFC3339),
			row.Text,
			strconv.Itoa(row.Views),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func truncate(text string) string {
	flat := strings.Join(strings.Fields(text), " ")

	// Cut on runes so multi-byte text is never split mid-sequence.
	runes := []rune(flat)
	if len(runes) <= tableTextLimit {
		return flat
	}

	return string(runes[:tableTextLimit]) + "..."
}
