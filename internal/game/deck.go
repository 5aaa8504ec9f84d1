package game

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Card distribution for the team that goes first, the other team,
// neutral bystanders and the assassin.
const (
	FirstTeamCards  = 9
	SecondTeamCards = 8
	NeutralCards    = 7
	AssassinCards   = 1
)

// BuildDeck samples 25 distinct words and deals the fixed role distribution
// over them. Words are trimmed and compared exactly, so "Apple" and "apple"
// are two words. Word order and role order are shuffled independently. A nil rng
// uses the runtime-seeded global source.
func BuildDeck(words []string, first Team, rng *rand.Rand) ([]Card, error) {
	if !first.Valid() {
		return nil, fmt.Errorf("first team %q: %w", first, ErrInvalidTeam)
	}
	pool := distinctWords(words)
	if len(pool) < BoardSize {
		return nil, fmt.Errorf("got %d distinct words: %w", len(pool), ErrInsufficientWords)
	}

	shuffle(rng, len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	pool = pool[:BoardSize]

	roles := make([]CardRole, 0, BoardSize)
	roles = appendN(roles, CardRoleOf(first), FirstTeamCards)
	roles = appendN(roles, CardRoleOf(first.Other()), SecondTeamCards)
	roles = appendN(roles, CardNeutral, NeutralCards)
	roles = appendN(roles, CardAssassin, AssassinCards)
	shuffle(rng, len(roles), func(i, j int) { roles[i], roles[j] = roles[j], roles[i] })

	cards := make([]Card, BoardSize)
	for i := range cards {
		cards[i] = Card{Index: i, Word: pool[i], Role: roles[i]}
	}
	return cards, nil
}

func distinctWords(words []string) []string {
	seen := make(map[string]bool, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

func appendN(roles []CardRole, r CardRole, n int) []CardRole {
	for i := 0; i < n; i++ {
		roles = append(roles, r)
	}
	return roles
}

func shuffle(rng *rand.Rand, n int, swap func(i, j int)) {
	if rng == nil {
		rand.Shuffle(n, swap)
		return
	}
	rng.Shuffle(n, swap)
}
