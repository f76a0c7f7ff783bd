package cogify

import "fmt"

// SizeTier buckets a source file by byte size so the conversion can trade
// memory for throughput on small files and stay memory-conservative on
// very large ones.
type SizeTier int

const (
	TierSmall SizeTier = iota
	TierLarge
	TierUltraLarge
)

const (
	// tier boundaries; a file of exactly this size lands in the lower tier
	largeThreshold      = 3 << 29 // 1.5GiB
	ultraLargeThreshold = 7 << 30 // 7GiB
)

func (t SizeTier) String() string {
	switch t {
	case TierLarge:
		return "large"
	case TierUltraLarge:
		return "ultra-large"
	default:
		return "small"
	}
}

type ErrInvalidSize struct {
	Size int64
}

func (err ErrInvalidSize) Error() string {
	return fmt.Sprintf("invalid file size %d bytes", err.Size)
}

// TierFor assigns a byte size to its processing tier. Zero or negative
// sizes (empty or unreadable files) fail rather than defaulting.
func TierFor(size int64) (SizeTier, error) {
	switch {
	case size <= 0:
		return 0, ErrInvalidSize{Size: size}
	case size > ultraLargeThreshold:
		return TierUltraLarge, nil
	case size > largeThreshold:
		return TierLarge, nil
	default:
		return TierSmall, nil
	}
}

// ChunkConfig controls how the reprojection pass reads the source: in one
// go for small files, or in fixed square windows for large ones. Window
// sizes stay fixed for the whole file; adapting them mid-run causes
// striping artifacts at window seams.
type ChunkConfig struct {
	WholeFile     bool
	ChunkSize     int
	MemoryLimitMB int
	SingleBand    bool
	AggressiveGC  bool
	MaxRetries    int
}

var chunkTable = map[SizeTier]ChunkConfig{
	TierSmall: {
		WholeFile:     true,
		ChunkSize:     256, // fallback if whole-file processing fails
		MemoryLimitMB: 500,
		MaxRetries:    3,
	},
	TierLarge: {
		ChunkSize:     512,
		MemoryLimitMB: 300,
		SingleBand:    true,
		AggressiveGC:  true,
		MaxRetries:    3,
	},
	TierUltraLarge: {
		ChunkSize:     256,
		MemoryLimitMB: 150,
		SingleBand:    true,
		AggressiveGC:  true,
		MaxRetries:    5,
	},
}

// Chunking returns the read strategy for the tier.
func (t SizeTier) Chunking() ChunkConfig {
	return chunkTable[t]
}
