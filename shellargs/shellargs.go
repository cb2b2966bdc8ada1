// Package shellargs converts between argument token vectors and single
// shell command lines. Transports accept one command line, not an argv,
// so every composed command passes through Stringify before submission.
package shellargs

import (
	"github.com/kballard/go-shellquote"
	"github.com/pkg/errors"
)

// Stringify quotes each token so that word-splitting the result yields the
// original tokens, and joins them with single spaces. Tokens without
// whitespace or shell metacharacters are passed through unquoted.
func Stringify(tokens []string) string {
	return shellquote.Join(tokens...)
}

// Split breaks a command line back into tokens using shell word-splitting
// rules. It is the inverse of Stringify: Split(Stringify(tokens)) == tokens
// for any token vector, including tokens carrying whitespace, quotes or
// metacharacters.
func Split(line string) ([]string, error) {
	tokens, err := shellquote.Split(line)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to split command line %q", line)
	}
	return tokens, nil
}
