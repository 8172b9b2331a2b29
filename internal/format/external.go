package format

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// External runs a formatter subprocess: source on stdin, result on stdout.
type External struct {
	Binary  string
	Channel Channel
	Edition Edition
}

func (e External) binary() string {
	if e.Binary == "" {
		return DefaultFormatter
	}
	return e.Binary
}

// Name implements Strategy.
func (e External) Name() string {
	return strings.TrimSuffix(filepath.Base(e.binary()), ".exe")
}

// Args returns the command-line arguments: toolchain selector first, then edition.
func (e External) Args() []string {
	var args []string
	if e.Channel != ChannelDefault {
		args = append(args, "+"+e.Channel.String())
	}
	if e.Edition != EditionUnspecified {
		args = append(args, "--edition", e.Edition.String())
	}
	return args
}

// Format implements Strategy. There is no timeout; cancel ctx to stop it.
func (e External) Format(ctx context.Context, src []byte) ([]byte, error) {
	bin := e.binary()
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, bin, err)
	}

	cmd := exec.CommandContext(ctx, path, e.Args()...)
	cmd.Stdin = bytes.NewReader(src)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s: %w\n%s", ErrFormatterFailed, bin, err, msg)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrFormatterFailed, bin, err)
	}
	return stdout.Bytes(), nil
}
