package downloadcache

const (
	// MinBufferSize is the smallest transfer buffer
	MinBufferSize = 64 * 1024

	// MaxBufferSize is the largest transfer buffer, used for files of 50 MiB and up
	MaxBufferSize = 1024 * 1024

	unknownSizeBufferSize = 512 * 1024

	mib = 1024 * 1024
)

// BufferSize picks the transfer buffer for a body of total bytes.
// Unknown sizes (negative) get a large buffer; known sizes use bands
// that never shrink as the size grows.
func BufferSize(total int64) int {
	switch {
	case total < 0:
		return unknownSizeBufferSize
	case total < 1*mib:
		return clamp(total/8, MinBufferSize, 128*1024)
	case total < 10*mib:
		return clamp(total/32, 128*1024, 256*1024)
	case total < 50*mib:
		return clamp(total/128, 256*1024, 512*1024)
	default:
		return MaxBufferSize
	}
}

func clamp(v int64, lo, hi int) int {
	if v < int64(lo) {
		return lo
	}
	if v > int64(hi) {
		return hi
	}
	return int(v)
}
