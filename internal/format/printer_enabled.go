//go:build !expander_noprinter

package format

import "context"

// StrategyPrinter names the built-in token-tree printer.
const StrategyPrinter = "printer"

// Printer is the built-in structured printer strategy.
type Printer struct {
	Options Options
}

// Name implements Strategy.
func (Printer) Name() string { return StrategyPrinter }

// Format implements Strategy.
func (p Printer) Format(ctx context.Context, src []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return printTokens(src, p.Options)
}

func builtinStrategies() []Strategy {
	return []Strategy{Printer{}}
}
