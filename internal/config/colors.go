package config

import (
	"strings"

	"github.com/muesli/termenv"
)

// ColorProfile returns the color profile to use for output, it honors the NO_COLOR and
// FORCE_COLOR environment variables. lookupEnv is usually os.LookupEnv.
func ColorProfile(output *termenv.Output, lookupEnv func(string) (string, bool)) termenv.Profile {
	if isSet(lookupEnv, "NO_COLOR") {
		return termenv.Ascii
	}

	profile := output.ColorProfile()

	if profile == termenv.Ascii && isSet(lookupEnv, "FORCE_COLOR") {
		term, _ := lookupEnv("TERM")
		colorterm, _ := lookupEnv("COLORTERM")

		switch {
		case colorterm == "truecolor":
			return termenv.TrueColor
		case strings.Contains(term, "256color"):
			return termenv.ANSI256
		default:
			return termenv.ANSI
		}
	}
	return profile
}

func isSet(lookupEnv func(string) (string, bool), name string) bool {
	s, ok := lookupEnv(name)
	return ok && len(s) != 0 && s != "false" && s != "0"
}
