package attach

import "strings"

// JoinPairs rewrites the two-word attachment form ("--file alias path") into the
// single-token form pflag understands ("--file", "alias path"). Values that
// already contain whitespace, and everything after "--", are left untouched.
func JoinPairs(args []string, flags ...string) []string {
	pairFlags := make(map[string]bool, len(flags))
	for _, f := range flags {
		pairFlags[f] = true
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return append(out, args[i:]...)
		}
		out = append(out, arg)
		if !pairFlags[arg] || i+2 >= len(args) {
			continue
		}
		head, path := args[i+1], args[i+2]
		if strings.ContainsAny(head, " \t") || strings.HasPrefix(path, "-") {
			continue
		}
		out = append(out, head+" "+path)
		i += 2
	}
	return out
}
