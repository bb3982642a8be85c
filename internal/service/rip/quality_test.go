package rip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avoronov/ripstream/internal/client"
	"github.com/avoronov/ripstream/internal/metadata"
)

// TestResolveQuality tests the effective-quality law: the minimum of the
// requested and advertised tiers, failing instead of downgrading when
// downgrades are disabled.
func TestResolveQuality(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name            string
		requested       uint8
		advertised      uint8
		lowerOK         bool
		expectedQuality uint8
		expectedError   error
	}{
		{
			name:            "advertised matches request",
			requested:       metadata.QualityCD,
			advertised:      metadata.QualityCD,
			expectedQuality: metadata.QualityCD,
		},
		{
			name:            "advertised above request is capped",
			requested:       metadata.QualityLossyHigh,
			advertised:      metadata.QualityHiRes,
			expectedQuality: metadata.QualityLossyHigh,
		},
		{
			name:            "downgrade allowed",
			requested:       metadata.QualityHiRes,
			advertised:      metadata.QualityCD,
			lowerOK:         true,
			expectedQuality: metadata.QualityCD,
		},
		{
			name:          "downgrade refused",
			requested:     metadata.QualityHiRes,
			advertised:    metadata.QualityCD,
			expectedError: client.ErrQualityUnavailable,
		},
		{
			name:            "lossy fallback from lossless request",
			requested:       metadata.QualityCD,
			advertised:      metadata.QualityLossyHigh,
			lowerOK:         true,
			expectedQuality: metadata.QualityLossyHigh,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			quality, err := resolveQuality(tc.requested, tc.advertised, tc.lowerOK)

			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expectedQuality, quality)
		})
	}
}
