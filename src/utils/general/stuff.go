package general

import (
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
)

func GetCurrentFilepath() string {
	_, filename, _, _ := runtime.Caller(1)
	return filepath.Dir(filename)
}

// GetCurrentDir is the parent of the caller's package directory.
func GetCurrentDir() string {
	_, filename, _, _ := runtime.Caller(1)
	return filepath.Dir(filepath.Dir(filename))
}

// IsValidURL checks that a string parses as a URL with one of the allowed schemes.
// With no schemes given any scheme is accepted.
func IsValidURL(rawURL string, schemes ...string) (bool, string) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return false, "URL is empty"
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Sprintf("Invalid URL format: %v", err)
	}

	scheme := strings.ToLower(parsedURL.Scheme)
	if scheme == "" {
		return false, "URL scheme is missing"
	}
	if len(schemes) > 0 && !ItemInSlice(schemes, scheme) {
		return false, fmt.Sprintf("URL scheme %q is not allowed", scheme)
	}

	if parsedURL.Host == "" {
		return false, "URL host is missing"
	}

	return true, ""
}

func ItemInSlice[T comparable](slice []T, item T) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func NoDuplicateItemsInSlice[T comparable](slice []T) bool {
	seen := make(map[T]bool)
	for _, item := range slice {
		if seen[item] {
			return false
		}
		seen[item] = true
	}
	return true
}

// ChannelAtLoadLevel reports whether a buffered channel is at least loadLevel full.
func ChannelAtLoadLevel[T any](channel chan T, loadLevel float64) bool {
	if cap(channel) == 0 {
		return false
	}
	return float64(len(channel))/float64(cap(channel)) >= loadLevel
}

func GetSystemUsage() map[string]string {
	report := make(map[string]string)

	report["num_cpu"] = fmt.Sprintf("%d", runtime.NumCPU())
	report["num_goroutine"] = fmt.Sprintf("%d", runtime.NumGoroutine())

	memoryUsage := runtime.MemStats{}
	runtime.ReadMemStats(&memoryUsage)
	report["memory_usage"] = fmt.Sprintf("%d", memoryUsage.Alloc)
	report["memory_total"] = fmt.Sprintf("%d", memoryUsage.TotalAlloc)
	report["memory_heap_alloc"] = fmt.Sprintf("%d", memoryUsage.HeapAlloc)
	report["memory_heap_inuse"] = fmt.Sprintf("%d", memoryUsage.HeapInuse)
	report["memory_heap_objects"] = fmt.Sprintf("%d", memoryUsage.HeapObjects)

	return report
}
