package app

import (
	"bytes"
	"testing"
)

func TestSetupTracingRejectsUnknownLevel(t *testing.T) {
	if _, err := setupTracing("loud", false, &bytes.Buffer{}); err == nil {
		t.Fatal("unknown level accepted")
	}
}

func TestSetupTracingVerboseOverridesLevel(t *testing.T) {
	// "loud" would be rejected without -verbose.
	stop, err := setupTracing("loud", true, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	stop()
}
