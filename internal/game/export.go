package game

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExportRoom appends a summary of a finished game to a text file.
func ExportRoom(r Room, filename string) error {
	if r.GamePhase != PhaseFinished || r.Winner == nil {
		return fmt.Errorf("room %s: %w", r.ID, ErrInvalidPhase)
	}

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(summary(r)); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}
	return nil
}

func summary(r Room) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Codewords Game - Room %s\n", r.ID))
	sb.WriteString(fmt.Sprintf("Started: %s\n", r.CreatedAt.Format("2006-01-02 15:04:05")))
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")

	for _, t := range []Team{TeamRed, TeamBlue} {
		sb.WriteString(fmt.Sprintf("Team %s:\n", t))
		for _, p := range r.Players {
			if p.Team != t {
				continue
			}
			sb.WriteString(fmt.Sprintf("- %s (%s)\n", p.Name, p.Role))
		}
		sb.WriteString(fmt.Sprintf("  cards left: %d\n\n", Remaining(r.Cards, t)))
	}

	sb.WriteString("Board:\n")
	for _, c := range r.Cards {
		mark := " "
		if c.Revealed {
			mark = "x"
		}
		sb.WriteString(fmt.Sprintf("[%s] %2d %-20s %s\n", mark, c.Index, c.Word, c.Role))
	}

	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Winner: %s\n", *r.Winner))
	if assassinRevealed(r.Cards) {
		sb.WriteString("The assassin was revealed.\n")
	}
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")
	return sb.String()
}

func assassinRevealed(cards []Card) bool {
	for _, c := range cards {
		if c.Role == CardAssassin && c.Revealed {
			return true
		}
	}
	return false
}
