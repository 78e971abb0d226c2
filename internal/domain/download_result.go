package domain

// DownloadResult represents the outcome of a retrieve-or-download call.
// LocalPath is set if and only if Success is true.
type DownloadResult struct {
	// Success reports whether LocalPath points at a verified local file
	Success bool `json:"success"`

	// Error carries the failure detail when Success is false
	Error string `json:"error,omitempty"`

	// URL is the identifier the caller asked for
	URL string `json:"url"`

	// LocalPath is the cached file handed to the model loader
	LocalPath string `json:"local_path,omitempty"`

	// Cached is true when the file was served from the cache without streaming a body
	Cached bool `json:"cached"`

	// BytesWritten is the number of body bytes streamed to disk on a miss
	BytesWritten int64 `json:"bytes_written"`
}

// NewFailedResult builds a failed result for url from err
func NewFailedResult(url string, err error) DownloadResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return DownloadResult{URL: url, Error: msg}
}

// NewCachedResult builds a successful cache-hit result
func NewCachedResult(url, localPath string) DownloadResult {
	return DownloadResult{Success: true, URL: url, LocalPath: localPath, Cached: true}
}

// NewDownloadedResult builds a successful result for a completed transfer
func NewDownloadedResult(url, localPath string, written int64) DownloadResult {
	return DownloadResult{Success: true, URL: url, LocalPath: localPath, BytesWritten: written}
}
