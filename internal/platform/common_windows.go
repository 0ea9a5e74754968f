//go:build windows

package platform

import "strings"

// buildWindowsCommandLine joins exe and args using the CommandLineToArgvW quoting rules.
func buildWindowsCommandLine(exe string, args []string) string {
	fields := make([]string, 0, 1+len(args))
	for _, arg := range append([]string{exe}, args...) {
		fields = append(fields, quoteWindowsCommandLineArg(arg))
	}

	return strings.Join(fields, " ")
}

func quoteWindowsCommandLineArg(arg string) string {
	if arg == "" {
		return `""`
	}
	if !strings.ContainsAny(arg, " \t\n\v\"") {
		return arg
	}

	var b strings.Builder
	b.WriteByte('"')
	pending := 0
	for i := 0; i < len(arg); i++ {
		c := arg[i]
		switch c {
		case '\\':
			pending++

			continue
		case '"':
			b.WriteString(strings.Repeat(`\`, pending*2+1))
		default:
			b.WriteString(strings.Repeat(`\`, pending))
		}
		pending = 0
		b.WriteByte(c)
	}
	b.WriteString(strings.Repeat(`\`, pending*2))
	b.WriteByte('"')

	return b.String()
}
