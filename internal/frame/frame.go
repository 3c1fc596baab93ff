// Package frame defines the frame index range and the tag naming contract
// shared with the upstream shard producer. Each video frame is logged by the
// producer as one scalar tag named "frame_" plus the zero-padded frame number;
// the playback driver must render exactly the same names to hit them.
package frame

import "fmt"

const (
	// TagPrefix is the fixed prefix of every per-frame tag.
	TagPrefix = "frame_"

	// TagMinWidth is the minimum digit width of the frame number. It is a
	// minimum, not a cap: indices needing more digits render at full length.
	TagMinWidth = 4
)

// Tag renders the searchable tag for a frame index, e.g. Tag(43) == "frame_0043".
func Tag(index int) string {
	return fmt.Sprintf("%s%0*d", TagPrefix, TagMinWidth, index)
}

// Range is a closed frame-index interval [Lower, Upper].
// An inverted range is valid and simply contains no frames.
type Range struct {
	Lower int
	Upper int
}

// Count returns the number of frames in the range.
func (r Range) Count() int {
	if r.Lower > r.Upper {
		return 0
	}
	return r.Upper - r.Lower + 1
}

func (r Range) String() string {
	return fmt.Sprintf("%s..%s", Tag(r.Lower), Tag(r.Upper))
}
