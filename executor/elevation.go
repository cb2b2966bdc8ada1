package executor

import (
	"github.com/pkg/errors"

	"github.com/moselab/netbed/shellargs"
)

// Compose turns a Request into the single command line submitted to the
// transport, applying the executor's elevation strategy.
//
// Without a user the command passes through untouched, or wrapped as
// `<shell> -c '<line>'` when a shell is given. With a user, the strategy
// decides the wrapper:
//
//	sudo:  sudo -u <user> [-s <shell>] <command tokens...>
//	su:    su <user> [-s <shell>] -c '<command line>'
//
// The sudo path deliberately round-trips the command through the codec
// (stringify, split, stringify again): the composed wrapper is a token
// vector, and the original command joins it token by token. The codec's
// quoting is reversible, so tokens carrying metacharacters survive the trip.
func Compose(req Request, strategy ElevationStrategy) (string, error) {
	line := req.Line
	if len(req.Command) > 0 {
		line = shellargs.Stringify(req.Command)
	}
	if line == "" {
		return "", errors.New("empty command")
	}

	if req.User == "" {
		if req.Shell != "" {
			return shellargs.Stringify([]string{req.Shell, "-c", line}), nil
		}
		return line, nil
	}

	var prefix, suffix []string
	switch strategy {
	case ElevateSudo:
		tokens, err := shellargs.Split(line)
		if err != nil {
			return "", errors.Wrap(err, "failed to re-split command for sudo elevation")
		}
		prefix = []string{"sudo", "-u", req.User}
		suffix = tokens
	case ElevateSu:
		prefix = []string{"su", req.User}
		suffix = []string{"-c", line}
	default:
		return "", errors.Errorf("unknown elevation strategy %q", strategy)
	}

	if req.Shell != "" {
		prefix = append(prefix, "-s", req.Shell)
	}

	return shellargs.Stringify(append(prefix, suffix...)), nil
}
