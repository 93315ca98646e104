package service

import "math/rand/v2"

// shuffleFunc has the signature of rand.Shuffle.
type shuffleFunc func(n int, swap func(i, j int))

// arrangeQuestions decides the local order of the matching question ids.
// ids arrive in ascending order; the position in the result is the local id
// minus one. A random session gets a uniform permutation.
func arrangeQuestions(ids []int, random bool, shuffle shuffleFunc) []int {
	ordered := make([]int, len(ids))
	copy(ordered, ids)
	if random && len(ordered) > 1 {
		if shuffle == nil {
			shuffle = rand.Shuffle
		}
		shuffle(len(ordered), func(i, j int) {
			ordered[i], ordered[j] = ordered[j], ordered[i]
		})
	}
	return ordered
}
