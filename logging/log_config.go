package logging

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// LoggerPatternConfig sets the level of every logger whose name matches Pattern.
type LoggerPatternConfig struct {
	Pattern string `json:"pattern"`
	Level   string `json:"level"`
}

const (
	// e.g. "foo".
	validLoggerSectionName = `[a-zA-Z0-9]+([_-]*[a-zA-Z0-9]+)*`
	// e.g. "foo" or "*".
	validLoggerSectionNameWithWildcard = `(` + validLoggerSectionName + `|\*)`
	// e.g. "foo.*.foo".
	validLoggerSectionsWithWildcard = validLoggerSectionNameWithWildcard + `(\.` + validLoggerSectionNameWithWildcard + `)*`
	// Restricts above regex to be the entire pattern.
	validLoggerName = `^` + validLoggerSectionsWithWildcard + `$`
)

var loggerPatternRegexp = regexp.MustCompile(validLoggerName)

func validatePattern(pattern string) bool {
	return loggerPatternRegexp.MatchString(pattern)
}

func buildRegexFromPattern(pattern string) string {
	var matcher strings.Builder
	matcher.WriteRune('^')
	for _, ch := range pattern {
		switch ch {
		case '*':
			matcher.WriteString(`.*`)
		case '.':
			matcher.WriteString(`\.`)
		default:
			matcher.WriteRune(ch)
		}
	}
	matcher.WriteRune('$')
	return matcher.String()
}

// Validate checks that the pattern is a dotted logger name, optionally with `*` sections, and that
// the level is known.
func (cfg LoggerPatternConfig) Validate() error {
	if !validatePattern(cfg.Pattern) {
		return errors.Errorf("invalid logger pattern %q", cfg.Pattern)
	}
	if _, err := LevelFromString(cfg.Level); err != nil {
		return err
	}
	return nil
}

// LevelForName returns the level configured for the logger called name. Later patterns take
// precedence over earlier ones. ok is false when no pattern matches.
func LevelForName(name string, patterns []LoggerPatternConfig) (level Level, ok bool) {
	for _, cfg := range patterns {
		if !validatePattern(cfg.Pattern) {
			continue
		}
		matched, err := regexp.MatchString(buildRegexFromPattern(cfg.Pattern), name)
		if err != nil || !matched {
			continue
		}
		parsed, err := LevelFromString(cfg.Level)
		if err != nil {
			continue
		}
		level, ok = parsed, true
	}
	return level, ok
}
