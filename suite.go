package lbvs

import (
	"go.dedis.ch/kyber/v3/suites"
)

// Suite is the group used for ballot signatures and for decoding tagged
// network messages.
var Suite = suites.MustFind("Ed25519")
