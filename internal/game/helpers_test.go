package game

import (
	"fmt"
	"testing"
	"time"
)

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func testWords(n int) []string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("word%02d", i)
	}
	return words
}

// fixedBoard lays out red 0-8, blue 9-16, neutral 17-23, assassin 24 when
// red goes first.
func fixedBoard(first Team) []Card {
	cards := make([]Card, BoardSize)
	for i := range cards {
		role := CardNeutral
		switch {
		case i < FirstTeamCards:
			role = CardRoleOf(first)
		case i < FirstTeamCards+SecondTeamCards:
			role = CardRoleOf(first.Other())
		case i == BoardSize-1:
			role = CardAssassin
		}
		cards[i] = Card{Index: i, Word: fmt.Sprintf("word%02d", i), Role: role}
	}
	return cards
}

// lobbyRoom has one spymaster and one guesser per team; red goes first.
func lobbyRoom(t *testing.T) Room {
	t.Helper()
	r, err := NewRoom("ABC123", Player{ID: "rs", Name: "Red Spy", Team: TeamRed, Role: RoleSpymaster}, fixedBoard(TeamRed), TeamRed, testNow, DefaultTTL)
	if err != nil {
		t.Fatalf("should be able to create room: %v", err)
	}
	for _, p := range []Player{
		{ID: "rg", Name: "Red Guess", Team: TeamRed, Role: RoleGuesser},
		{ID: "bs", Name: "Blue Spy", Team: TeamBlue, Role: RoleSpymaster},
		{ID: "bg", Name: "Blue Guess", Team: TeamBlue, Role: RoleGuesser},
	} {
		r, err = Join(r, p)
		if err != nil {
			t.Fatalf("should be able to join %s: %v", p.ID, err)
		}
	}
	return r
}

// guessingRoom is a started game where red has a hint for count.
func guessingRoom(t *testing.T, count int) Room {
	t.Helper()
	r, err := StartGame(lobbyRoom(t))
	if err != nil {
		t.Fatalf("should be able to start: %v", err)
	}
	r, err = SubmitHint(r, Hint{Word: "animals", Count: count, SubmittedBy: "rs", SubmittedAt: testNow})
	if err != nil {
		t.Fatalf("should be able to submit hint: %v", err)
	}
	return r
}

func mustInvariants(t *testing.T, r Room) {
	t.Helper()
	if err := r.CheckInvariants(); err != nil {
		t.Fatalf("invariant broken: %v", err)
	}
}
