package buildinfo

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	info := Get()

	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.Commit)
	assert.NotEmpty(t, info.BuildTime)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestString(t *testing.T) {
	s := String()
	assert.True(t, strings.HasPrefix(s, Version+" ("))
	assert.Contains(t, s, runtime.Version())
}

func TestUserAgent(t *testing.T) {
	old := Version
	Version = "v9.9.9"
	defer func() { Version = old }()

	assert.Equal(t, "servicelayer-go/v9.9.9 (sl-cli)", UserAgent("sl-cli"))
	assert.Equal(t, "servicelayer-go/v9.9.9", UserAgent(""))
}
