package core

import (
	"strings"

	"github.com/rs/zerolog"
)

// Environment is the deployment the relay runs in. It decides how the relay logs.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

var environmentAliases = map[string]Environment{
	"dev":   Development,
	"local": Development,
	"stage": Staging,
	"test":  Testing,
	"ci":    Testing,
	"prod":  Production,
}

func (e Environment) String() string {
	return string(e)
}

// JSONLogs reports whether logs go out as JSON lines rather than console text.
func (e Environment) JSONLogs() bool {
	return e == Production || e == Staging
}

func (e Environment) LogLevel() zerolog.Level {
	switch e {
	case Production:
		return zerolog.InfoLevel
	case Testing:
		return zerolog.WarnLevel
	default:
		return zerolog.DebugLevel
	}
}

// ParseEnvironment reads APP_ENV. Matching ignores case and surrounding space,
// short aliases such as "prod" are accepted, anything else is Development.
func ParseEnvironment(v string) Environment {
	v = strings.ToLower(strings.TrimSpace(v))
	switch e := Environment(v); e {
	case Development, Staging, Testing, Production:
		return e
	}
	if e, ok := environmentAliases[v]; ok {
		return e
	}
	return Development
}
