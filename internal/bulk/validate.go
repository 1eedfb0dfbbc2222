package bulk

import (
	"errors"
	"fmt"
	"strings"

	"subweave/internal/cuepack"
	"subweave/internal/textutil"
)

// DefaultEchoThreshold is the common-prefix ratio above which a response is
// treated as the provider handing back its input.
const DefaultEchoThreshold = 0.9

var (
	ErrEmptyResponse = errors.New("empty response")
	ErrNoWords       = errors.New("response has no words outside markers")
	ErrMarkerCount   = errors.New("marker count mismatch")
	ErrUnchanged     = errors.New("response is likely unchanged")
)

// Validate checks a provider response against the text that was sent. Both
// are expected to carry the soft marker.
func Validate(source, translated string, echoThreshold float64) error {
	if echoThreshold <= 0 || echoThreshold > 1 {
		echoThreshold = DefaultEchoThreshold
	}
	if strings.TrimSpace(translated) == "" {
		return ErrEmptyResponse
	}
	if len(strings.Fields(stripMarkers(translated))) == 0 {
		return ErrNoWords
	}
	want := strings.Count(source, cuepack.SoftMarker)
	if got := strings.Count(translated, cuepack.SoftMarker); got != want {
		return fmt.Errorf("%w: got %d want %d", ErrMarkerCount, got, want)
	}
	if LikelyUnchanged(source, translated, echoThreshold) {
		return ErrUnchanged
	}
	return nil
}

// LikelyUnchanged compares marker-free folded forms of both texts.
func LikelyUnchanged(source, translated string, threshold float64) bool {
	a := textutil.Fold(stripMarkers(source))
	b := textutil.Fold(stripMarkers(translated))
	if a == b {
		return true
	}
	return textutil.CommonPrefixRatio(a, b) > threshold
}

func stripMarkers(s string) string {
	s = strings.ReplaceAll(s, cuepack.SoftMarker, " ")
	return strings.ReplaceAll(s, cuepack.Placeholder, " ")
}
