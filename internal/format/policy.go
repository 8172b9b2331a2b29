package format

import (
	"fmt"
	"strings"
)

// Channel selects the toolchain release the external formatter runs from.
type Channel uint8

const (
	ChannelDefault Channel = iota // whatever the PATH proxy picks
	ChannelStable
	ChannelBeta
	ChannelNightly
)

// String returns the string representation of Channel.
func (c Channel) String() string {
	switch c {
	case ChannelDefault:
		return "default"
	case ChannelStable:
		return "stable"
	case ChannelBeta:
		return "beta"
	case ChannelNightly:
		return "nightly"
	default:
		return "unknown"
	}
}

// ParseChannel converts a string to Channel.
func ParseChannel(s string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return ChannelDefault, nil
	case "stable":
		return ChannelStable, nil
	case "beta":
		return ChannelBeta, nil
	case "nightly":
		return ChannelNightly, nil
	default:
		return ChannelDefault, fmt.Errorf("invalid channel: %q (expected: default|stable|beta|nightly)", s)
	}
}

// Edition is the language dialect tag passed to the external formatter.
type Edition uint8

const (
	EditionUnspecified Edition = iota
	Edition2015
	Edition2018
	Edition2021
)

// String returns the edition year, or "unspecified".
func (e Edition) String() string {
	switch e {
	case EditionUnspecified:
		return "unspecified"
	case Edition2015:
		return "2015"
	case Edition2018:
		return "2018"
	case Edition2021:
		return "2021"
	default:
		return "unknown"
	}
}

// ParseEdition converts a year (or "unspecified") to Edition.
func ParseEdition(s string) (Edition, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unspecified":
		return EditionUnspecified, nil
	case "2015":
		return Edition2015, nil
	case "2018":
		return Edition2018, nil
	case "2021":
		return Edition2021, nil
	default:
		return EditionUnspecified, fmt.Errorf("invalid edition: %q (expected: 2015|2018|2021)", s)
	}
}

// DefaultFormatter is the external formatter binary looked up in PATH.
const DefaultFormatter = "rustfmt"

// Policy configures the pipeline. The zero value disables formatting.
type Policy struct {
	Enabled      bool
	Channel      Channel
	Edition      Edition
	AllowFailure bool   // fall back to raw text instead of failing
	Formatter    string // external formatter binary; DefaultFormatter if empty
}

// Disabled returns a policy that passes text through unchanged.
func Disabled() Policy { return Policy{} }

// Enabled returns a policy that formats for edition and fails on error.
func Enabled(edition Edition) Policy {
	return Policy{Enabled: true, Edition: edition}
}

// Full returns an enabled policy with every knob set.
func Full(channel Channel, edition Edition, allowFailure bool) Policy {
	return Policy{Enabled: true, Channel: channel, Edition: edition, AllowFailure: allowFailure}
}

func (p Policy) formatter() string {
	if p.Formatter == "" {
		return DefaultFormatter
	}
	return p.Formatter
}
