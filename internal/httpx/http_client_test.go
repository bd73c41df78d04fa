package httpx

import (
	"testing"
	"time"
)

func TestExternalHTTPClientDefaults(t *testing.T) {
	client := ExternalHTTPClient()
	if client == nil {
		t.Fatal("ExternalHTTPClient must not be nil")
	}
	if client != externalHTTPClient {
		t.Fatal("ExternalHTTPClient must return the shared client")
	}
	if client.Timeout != defaultExternalHTTPTimeout {
		t.Fatalf("timeout = %s, want %s", client.Timeout, defaultExternalHTTPTimeout)
	}
}

func TestConfigureExternalHTTPClient(t *testing.T) {
	original := externalHTTPClient.Timeout
	t.Cleanup(func() {
		externalHTTPClient.Timeout = original
	})

	if got := ConfigureExternalHTTPClient(0); got != defaultExternalHTTPTimeout {
		t.Fatalf("ConfigureExternalHTTPClient(0) = %s, want %s", got, defaultExternalHTTPTimeout)
	}
	if got := ConfigureExternalHTTPClient(15); got != 15*time.Second {
		t.Fatalf("ConfigureExternalHTTPClient(15) = %s, want %s", got, 15*time.Second)
	}
	if ExternalHTTPClient().Timeout != 15*time.Second {
		t.Fatalf("configured timeout = %s, want %s", ExternalHTTPClient().Timeout, 15*time.Second)
	}
}
