package synth

import (
	"math/big"

	"github.com/google/uuid"
)

// uidNamespace scopes name-based UUIDs produced by this package.
var uidNamespace = uuid.MustParse("6f1f3b8e-3c52-4c55-9d64-0e7f6a2b9c11")

// DeterministicUID returns a DICOM UID of the form 2.25.<uuid as integer>
// derived from name. The same name always yields the same UID.
func DeterministicUID(name string) string {
	u := uuid.NewSHA1(uidNamespace, []byte(name))
	return "2.25." + new(big.Int).SetBytes(u[:]).String()
}
