package cli

import (
	"bytes"
	"runtime"
	"strings"
	"testing"

	"github.com/AntoineDao/queenbee/internal/build"
	"github.com/stretchr/testify/assert"
)

func TestVersionCmdRegistration(t *testing.T) {
	t.Parallel()

	found := false
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "version" {
			found = true
			break
		}
	}
	assert.True(t, found, "version command should be registered")
	assert.Contains(t, versionCmd.Aliases, "v")
}

func TestPrintPrettyVersion_MarksDevBuilds(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printPrettyVersion(&buf)
	assert.Equal(t, build.IsDevBuild(), strings.Contains(buf.String(), "(development build)"))

	var plain bytes.Buffer
	printPlainVersion(&plain)
	assert.NotContains(t, plain.String(), "development build")
}

func TestPrintVersion(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		print        func(*bytes.Buffer)
		wantContains []string
	}{
		"plain": {
			print: func(b *bytes.Buffer) { printPlainVersion(b) },
			wantContains: []string{
				"queenbee " + build.Version + "\n",
				"commit: " + build.Commit,
				"go: " + runtime.Version(),
			},
		},
		"pretty": {
			print: func(b *bytes.Buffer) { printPrettyVersion(b) },
			wantContains: []string{
				build.Version,
				build.BuildDate,
				runtime.GOOS + "/" + runtime.GOARCH,
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			tt.print(&buf)
			for _, want := range tt.wantContains {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}
