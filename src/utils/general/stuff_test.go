//go:build unit

package general

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetCurrentFilepath(t *testing.T) {
	path := GetCurrentFilepath()
	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, "general", filepath.Base(path))
}

func TestGetCurrentDir(t *testing.T) {
	dir := GetCurrentDir()
	assert.True(t, filepath.IsAbs(dir))
	assert.Equal(t, "utils", filepath.Base(dir))
}

func TestIsValidURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		schemes []string
		want    bool
		wantMsg string
	}{
		{"Valid HTTP URL", "http://example.com", nil, true, ""},
		{"Valid websocket URL", "wss://example.com/stream", []string{"ws", "wss"}, true, ""},
		{"Scheme not allowed", "http://example.com", []string{"ws", "wss"}, false, `URL scheme "http" is not allowed`},
		{"Empty URL", "", nil, false, "URL is empty"},
		{"Missing Scheme", "example.com", nil, false, "URL scheme is missing"},
		{"Invalid URL", "http://", nil, false, "URL host is missing"},
		{"Malformed URL", "http:////", nil, false, "URL host is missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, gotMsg := IsValidURL(tt.url, tt.schemes...)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantMsg, gotMsg)
		})
	}
}

func TestItemInSlice(t *testing.T) {
	slice := []string{"apple", "banana", "orange"}
	assert.True(t, ItemInSlice(slice, "banana"))
	assert.False(t, ItemInSlice(slice, "grape"))
	assert.False(t, ItemInSlice([]string{}, "apple"))
}

func TestNoDuplicateItemsInSlice(t *testing.T) {
	assert.True(t, NoDuplicateItemsInSlice([]string{"feeds", "accounts"}))
	assert.False(t, NoDuplicateItemsInSlice([]string{"feeds", "accounts", "feeds"}))
	assert.True(t, NoDuplicateItemsInSlice([]int{}))
}

func TestChannelAtLoadLevel(t *testing.T) {
	channel := make(chan int, 4)
	assert.False(t, ChannelAtLoadLevel(channel, 0.75))
	channel <- 1
	channel <- 2
	channel <- 3
	assert.True(t, ChannelAtLoadLevel(channel, 0.75))
	assert.False(t, ChannelAtLoadLevel(make(chan int), 0.5))
}

func TestGetSystemUsage(t *testing.T) {
	report := GetSystemUsage()
	assert.Contains(t, report, "num_goroutine")
	assert.Contains(t, report, "memory_heap_alloc")
}
