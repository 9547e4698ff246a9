package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnosticsFlags(t *testing.T) {
	flags := pflag.NewFlagSet("mapmemo", pflag.ContinueOnError)
	diagnosticsFlags(flags)

	tests := []struct {
		name    string
		defined bool
	}{
		{"metrics-listen-addr", true},
		{"pprof-listen-addr", true},
		{"delay-before-start", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := flags.Lookup(tt.name)
			if !tt.defined {
				assert.Nil(t, flag)
				return
			}

			require.NotNil(t, flag)
			assert.Empty(t, flag.DefValue, "diagnostics servers are opt-in")
		})
	}
}

func TestPprofMux(t *testing.T) {
	server := httptest.NewServer(pprofMux())
	defer server.Close()

	tests := []struct {
		path     string
		expected int
	}{
		{"/debug/pprof/", http.StatusOK},
		{"/debug/pprof/cmdline", http.StatusOK},
		{"/metrics", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(server.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.expected, resp.StatusCode)
		})
	}
}
