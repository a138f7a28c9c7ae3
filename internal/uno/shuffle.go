package uno

import "math/rand/v2"

// Shuffler returns a permutation of cards. Implementations must not modify the input.
// Test fixtures may return fewer cards than they were given; the engine plays with
// whatever sequence it gets back.
type Shuffler func(cards []Card) []Card

// Randomizer returns an integer in [0, bound).
type Randomizer func(bound int) int

// StandardShuffler shuffles a copy of cards with the global random source.
func StandardShuffler(cards []Card) []Card {
	out := append([]Card(nil), cards...)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// StandardRandomizer draws from the global random source.
func StandardRandomizer(bound int) int {
	return rand.IntN(bound)
}

// SeededShuffler returns a shuffler whose sequence of permutations is fixed by seed.
// It is not safe for concurrent use.
func SeededShuffler(seed uint64) Shuffler {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return func(cards []Card) []Card {
		out := append([]Card(nil), cards...)
		r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		return out
	}
}

// SeededRandomizer returns a randomizer whose sequence is fixed by seed.
// It is not safe for concurrent use.
func SeededRandomizer(seed uint64) Randomizer {
	r := rand.New(rand.NewPCG(seed^0x5851f42d4c957f2d, seed))
	return func(bound int) int {
		return r.IntN(bound)
	}
}
