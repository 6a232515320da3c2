package testing

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
)

// StartMiniRedis starts an in-process Redis server that is closed when the test completes.
//
// miniredis implements GET/SET/DEL, PUBLISH/SUBSCRIBE and CLIENT SETNAME but not
// INFO, so code that needs a run id must be exercised against a real server or by
// parsing INFO text directly.
func StartMiniRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()

	return miniredis.RunT(t)
}
