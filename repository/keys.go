package repository

import (
	"fmt"

	"washika-dao/models"
)

// Storage key layout. Principals never contain ':' (see models.Principal.Valid)
// and ids are zero padded so that prefix iteration yields id order.
var (
	keyHeight        = []byte("meta:height")
	keySupply        = []byte("meta:supply")
	keyAuthority     = []byte("meta:authority")
	keyParams        = []byte("meta:params")
	keyProposalCount = []byte("meta:proposal-count")

	prefixProposal        = []byte("proposal:")
	prefixBalance         = []byte("balance:")
	prefixCheckpointCount = []byte("checkpoint-count:")
)

func balanceKey(p models.Principal) []byte {
	return append(append([]byte{}, prefixBalance...), p...)
}

func delegateKey(p models.Principal) []byte {
	return []byte("delegate:" + string(p))
}

func checkpointCountKey(p models.Principal) []byte {
	return append(append([]byte{}, prefixCheckpointCount...), p...)
}

func checkpointKey(p models.Principal, index uint64) []byte {
	return []byte(fmt.Sprintf("checkpoint:%s:%020d", p, index))
}

func proposalKey(id uint64) []byte {
	return []byte(fmt.Sprintf("proposal:%020d", id))
}

func receiptKey(id uint64, voter models.Principal) []byte {
	return []byte(fmt.Sprintf("receipt:%020d:%s", id, voter))
}

func latestProposalKey(p models.Principal) []byte {
	return []byte("latest-proposal:" + string(p))
}

func timelockKey(id uint64) []byte {
	return []byte(fmt.Sprintf("timelock:%020d", id))
}
