package transcribe

import "github.com/Marble879/simpletranscribe/internal/engine"

type Params = engine.Params

// DefaultParams is used whenever a caller passes nil params: greedy decoding
// with a single candidate, everything else left to the engine.
func DefaultParams() Params {
	return Params{
		Strategy: engine.Greedy,
		BestOf:   1,
	}
}
