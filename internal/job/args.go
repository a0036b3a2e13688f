package job

import "strings"

// SplitArgs splits a command line into an argument vector, honoring single
// and double quotes. It covers the command shapes this package generates
// (quoted file paths, no shell expansion), which is why a full shell parser
// is not needed.
func SplitArgs(s string) []string {
	var args []string
	var current strings.Builder
	var quote rune
	inArg := false

	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inArg = true
		case r == ' ' || r == '\t':
			if inArg {
				args = append(args, current.String())
				current.Reset()
				inArg = false
			}
		default:
			current.WriteRune(r)
			inArg = true
		}
	}
	if inArg {
		args = append(args, current.String())
	}
	return args
}
