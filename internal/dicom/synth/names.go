package synth

import (
	"math/rand/v2"
	"strings"
)

// frenchNameProbability is the share of generated patients given a French
// name.
const frenchNameProbability = 0.20

var (
	englishFirstNames = []string{
		"James", "Robert", "Michael", "David", "Thomas", "Daniel", "Andrew", "Kevin",
		"Mary", "Patricia", "Jennifer", "Linda", "Susan", "Karen", "Emily", "Rachel",
	}
	englishLastNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Jones", "Miller", "Davis", "Wilson",
		"Taylor", "Moore", "Clark", "Walker", "Hall", "Young", "King", "Wright",
	}
	frenchFirstNames = []string{
		"Jean", "Pierre", "Michel", "Philippe", "Nicolas", "Julien",
		"Marie", "Nathalie", "Isabelle", "Sophie", "Camille", "Claire",
	}
	frenchLastNames = []string{
		"Martin", "Bernard", "Dubois", "Durand", "Leroy", "Moreau",
		"Lefebvre", "Fournier", "Girard", "Mercier", "Dupont", "Lambert",
	}
)

// PatientName returns the DICOM person name "LAST^First" derived from seed.
// The same seed always yields the same name.
func PatientName(seed uint64) string {
	rng := rand.New(rand.NewPCG(seed, 0x9e3779b97f4a7c15))

	first, last := englishFirstNames, englishLastNames
	if rng.Float64() < frenchNameProbability {
		first, last = frenchFirstNames, frenchLastNames
	}
	return strings.ToUpper(last[rng.IntN(len(last))]) + "^" + first[rng.IntN(len(first))]
}
