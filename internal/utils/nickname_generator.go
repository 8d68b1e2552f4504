package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var adjectives = []string{
	"Amber", "Brave", "Cedar", "Clever", "Coral",
	"Golden", "Harvest", "Honest", "Kind", "Maple",
	"Noble", "Prairie", "Quiet", "River", "Rustic",
	"Solar", "Steady", "Summit", "True", "Willow",
}

var nouns = []string{
	"Badger", "Beaver", "Bison", "Crane", "Elk",
	"Falcon", "Fox", "Heron", "Lark", "Lynx",
	"Marmot", "Otter", "Owl", "Raven", "Robin",
	"Salmon", "Sparrow", "Stag", "Trout", "Wren",
}

// GenerateNickname creates a random nickname in the format "Adjective_Noun_XXXX"
// where XXXX is a random 4-digit number. Used when a member registers without
// choosing a display name.
func GenerateNickname() (string, error) {
	adjIdx, err := rand.Int(rand.Reader, big.NewInt(int64(len(adjectives))))
	if err != nil {
		return "", fmt.Errorf("failed to generate random adjective: %w", err)
	}

	nounIdx, err := rand.Int(rand.Reader, big.NewInt(int64(len(nouns))))
	if err != nil {
		return "", fmt.Errorf("failed to generate random noun: %w", err)
	}

	suffix, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("failed to generate random suffix: %w", err)
	}

	nickname := fmt.Sprintf("%s_%s_%04d",
		adjectives[adjIdx.Int64()],
		nouns[nounIdx.Int64()],
		suffix.Int64(),
	)

	return nickname, nil
}
