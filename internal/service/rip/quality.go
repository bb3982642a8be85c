package rip

import (
	"fmt"

	"github.com/avoronov/ripstream/internal/client"
	"github.com/avoronov/ripstream/internal/metadata"
)

// resolveQuality picks the effective quality tier for a release: the minimum
// of the configured tier and what the provider advertises. When the release
// falls short of the request and downgrading is disabled, the release fails
// instead of silently dropping tiers.
func resolveQuality(
	requested uint8,
	advertised uint8,
	lowerIfNotAvailable bool,
) (uint8, error) {
	if advertised >= requested {
		return requested, nil
	}

	if !lowerIfNotAvailable {
		return 0, fmt.Errorf("%w: requested %s, source offers %s",
			client.ErrQualityUnavailable,
			metadata.QualityName(requested),
			metadata.QualityName(advertised))
	}

	return advertised, nil
}
