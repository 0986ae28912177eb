package license

import (
	"context"
	"strings"
)

// OfflineVerifier accepts every well-formed key and derives the plan from
// its prefix. It stands in when no licence service is configured.
type OfflineVerifier struct{}

func (OfflineVerifier) Verify(_ context.Context, key, _ string) (Grant, error) {
	prefix, _, _ := strings.Cut(key, "-")
	switch prefix {
	case "TRIAL":
		return Grant{Plan: "trial", DurationDays: 7}, nil
	case "MONTH":
		return Grant{Plan: "monthly", DurationDays: 30}, nil
	case "YEAR":
		return Grant{Plan: "yearly", DurationDays: 365}, nil
	case "LIFE":
		return Grant{Plan: "lifetime", DurationDays: 36500}, nil
	default:
		return Grant{Plan: "standard", DurationDays: 30}, nil
	}
}
