//go:build expander_noprinter

package format

import (
	"context"
	"fmt"
)

// StrategyPrinter names the built-in token-tree printer.
const StrategyPrinter = "printer"

type missingPrinter struct{}

func (missingPrinter) Name() string { return StrategyPrinter }

func (missingPrinter) Format(context.Context, []byte) ([]byte, error) {
	return nil, fmt.Errorf("%w: printer not compiled into this build", ErrUnavailable)
}

func builtinStrategies() []Strategy {
	return []Strategy{missingPrinter{}}
}
