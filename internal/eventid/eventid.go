// Package eventid derives reproducible identities for token events.
package eventid

import (
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"

	"github.com/oldominion/indexer/internal/model"
)

// nonceUnset encodes a null nonce in the digest input. A real nonce of
// zero renders as "0", so null and zero never collide.
const nonceUnset = "unset"

// Precondition errors for operations that cannot carry an identity.
var (
	ErrMissingHash    = errors.New("operation has no hash")
	ErrMissingCounter = errors.New("operation has no counter")
)

// New derives the event id for one (handler type, operation, sub-index)
// triple. The digest is FNV-1a 64-bit over the ordered tuple, rendered as
// a decimal string. It is a pure function of immutable inputs: the same
// logical event recomputed anywhere yields the same id, which is what
// lets downstream storage upsert-by-id when pages overlap or a batch is
// replayed. Collision resistance only needs to cover expected event
// volume, not adversarial input.
func New(handlerType string, op *model.Operation, subIndex int) (string, error) {
	if op == nil {
		return "", fmt.Errorf("event id: nil operation")
	}
	if op.Hash == "" {
		return "", fmt.Errorf("event id for %s: %w", handlerType, ErrMissingHash)
	}
	if op.Counter == 0 {
		return "", fmt.Errorf("event id for %s: %w", handlerType, ErrMissingCounter)
	}

	nonce := nonceUnset
	if op.Nonce != nil {
		nonce = strconv.FormatInt(*op.Nonce, 10)
	}

	h := fnv.New64a()
	h.Write([]byte(handlerType))
	h.Write([]byte{'|'})
	h.Write([]byte(op.Hash))
	h.Write([]byte{'|'})
	h.Write([]byte(strconv.FormatInt(op.Counter, 10)))
	h.Write([]byte{'|'})
	h.Write([]byte(nonce))
	h.Write([]byte{'|'})
	h.Write([]byte(strconv.Itoa(subIndex)))

	return strconv.FormatUint(h.Sum64(), 10), nil
}
