package game

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestViewForHidesRolesFromGuessers(t *testing.T) {
	r, _ := RevealCard(guessingRoom(t, 2), 0)

	v := ViewFor(r, "rg")
	if v.You == nil || v.You.ID != "rg" {
		t.Fatalf("expected viewer rg, got %+v", v.You)
	}
	if v.Cards[0].Role != CardRed {
		t.Fatalf("revealed card should show its role, got %q", v.Cards[0].Role)
	}
	for _, c := range v.Cards[1:] {
		if c.Role != "" {
			t.Fatalf("hidden card %d leaks role %s", c.Index, c.Role)
		}
	}
	if r.Cards[1].Role == "" {
		t.Fatal("ViewFor must not modify the room")
	}
	if v.Remaining[TeamRed] != 8 || v.Remaining[TeamBlue] != 8 {
		t.Fatalf("unexpected remaining counts %v", v.Remaining)
	}

	spy := ViewFor(r, "bs")
	for _, c := range spy.Cards {
		if c.Role == "" {
			t.Fatalf("spymaster should see card %d", c.Index)
		}
	}

	anon := ViewFor(r, "")
	if anon.You != nil || anon.Cards[1].Role != "" {
		t.Fatal("unknown viewers get the guesser view")
	}

	done, _ := RevealCard(guessingRoom(t, 2), 24)
	if ViewFor(done, "rg").Cards[1].Role == "" {
		t.Fatal("a finished board is fully visible")
	}
}

func TestExportRoom(t *testing.T) {
	file := filepath.Join(t.TempDir(), "out", "results.txt")

	if err := ExportRoom(guessingRoom(t, 2), file); err == nil {
		t.Fatal("exporting an unfinished game should fail")
	}

	done, _ := RevealCard(guessingRoom(t, 2), 24)
	if err := ExportRoom(done, file); err != nil {
		t.Fatalf("should be able to export: %v", err)
	}
	if err := ExportRoom(done, file); err != nil {
		t.Fatalf("should be able to append: %v", err)
	}
	b, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("should be able to read export: %v", err)
	}
	out := string(b)
	if strings.Count(out, "Room ABC123") != 2 {
		t.Fatalf("expected two appended summaries, got:\n%s", out)
	}
	if !strings.Contains(out, "Winner: blue") || !strings.Contains(out, "assassin was revealed") {
		t.Fatalf("summary misses the outcome:\n%s", out)
	}
}

func TestLoadWords(t *testing.T) {
	file := filepath.Join(t.TempDir(), "words.txt")
	content := "# animals\ncat\n\n  dog  \n#skip\nfox\n"
	if err := os.WriteFile(file, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	words, err := LoadWords(file)
	if err != nil {
		t.Fatalf("should be able to load words: %v", err)
	}
	if strings.Join(words, ",") != "cat,dog,fox" {
		t.Fatalf("unexpected words %v", words)
	}
	if _, err := LoadWords(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatal("missing file should fail")
	}
}
