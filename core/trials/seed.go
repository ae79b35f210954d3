package trials

import (
	"fmt"
	"hash/fnv"
)

// TrialSeed derives the seed of trial i from the batch seed.
// Seeds are master XOR fnv1a64("trial_<i>").
func TrialSeed(master int64, i int) int64 {
	return master ^ fnv1a64(fmt.Sprintf("trial_%d", i))
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}
