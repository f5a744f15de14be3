package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// StartContainer runs a throwaway container and returns its host:port for
// the given exposed port. The test is skipped when no Docker provider is
// available, and the container is terminated on cleanup.
func StartContainer(t *testing.T, image, port string, waitFor wait.Strategy) string {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{port},
			WaitingFor:   waitFor,
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start %s: %v", image, err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(c); err != nil {
			t.Logf("failed to terminate %s: %v", image, err)
		}
	})

	endpoint, err := c.PortEndpoint(ctx, nat.Port(port), "")
	if err != nil {
		t.Fatalf("failed to get endpoint for %s: %v", image, err)
	}
	return endpoint
}
