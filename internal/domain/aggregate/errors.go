package aggregate

import (
	"errors"
	"fmt"
)

// ErrMissingSnapshot reports a match with no pre-match snapshot for a participant.
var ErrMissingSnapshot = errors.New("missing rating snapshot")

func missingSnapshot(playerID, matchID int64) error {
	return fmt.Errorf("%w: player %d match %d", ErrMissingSnapshot, playerID, matchID)
}
