package parser

import (
	"regexp"
	"strings"

	"github.com/mediway/labreports/internal/entity"
)

var (
	reIntervalRange  = regexp.MustCompile(`^([<>]?\d+\.?\d*)\s*-\s*(\d+\.?\d*)`)
	reIntervalSingle = regexp.MustCompile(`^([<>])(\d+\.?\d*)`)
)

// NormalizeInterval splits a reference-interval token into bounds.
// Tiers are tried in order and only the first that matches applies:
//
//	"4.5 - 10.2" -> lower 4.5, upper 10.2 (a leading < or > stays on lower)
//	"<5.0"       -> lower NA, upper 5.0
//	">100"       -> lower 100, no upper
//	anything else -> lower is the whole token, no upper
//
// A blank token yields an interval with neither bound.
func NormalizeInterval(token string) entity.ReferenceInterval {
	token = strings.TrimSpace(token)
	if token == "" {
		return entity.ReferenceInterval{}
	}

	if m := reIntervalRange.FindStringSubmatch(token); m != nil {
		return entity.ReferenceInterval{Lower: entity.StrPtr(m[1]), Upper: entity.StrPtr(m[2])}
	}

	if m := reIntervalSingle.FindStringSubmatch(token); m != nil {
		if m[1] == "<" {
			return entity.ReferenceInterval{Lower: entity.StrPtr(entity.NoLowerBound), Upper: entity.StrPtr(m[2])}
		}
		return entity.ReferenceInterval{Lower: entity.StrPtr(m[2])}
	}

	return entity.ReferenceInterval{Lower: entity.StrPtr(token)}
}
