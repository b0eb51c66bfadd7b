package sharebox_test

import (
	"context"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/aussiebroadwan/sharebox/pkg/apiclient"
	"github.com/aussiebroadwan/sharebox/pkg/credstore"
	"github.com/aussiebroadwan/sharebox/pkg/slogx"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Common constants and helpers for the devserver end-to-end tests: image
 * build, container setup and logged-in clients.
 */

const (
	testImageName = "sharebox-devserver-test:latest"
	basePath      = "/api/v1"

	// Short enough that tests can outwait it.
	accessTTL = 2 * time.Second
)

// seedUsers are created by the container at startup.
var seedUsers = map[string]string{
	"alice": "alice-pw",
	"bob":   "bob-pw",
	"root":  "root-pw",
}

// TestMain builds the Docker image once before all tests and removes it
// afterwards.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building devserver Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up devserver Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	cmd := exec.CommandContext(context.Background(), "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/sharebox-devserver/Dockerfile",
		"../../../")
	cmd.Stdout = os.Stdout
	return cmd.Run()
}

func cleanupDockerImage() {
	cmd := exec.CommandContext(context.Background(), "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // the image may already be gone
}

// setupDevserver starts the devserver with relaxed auth rate limits, overlaid
// with env, and returns the API base URL.
func setupDevserver(t *testing.T, env map[string]string) string {
	t.Helper()
	ctx := context.Background()

	containerEnv := map[string]string{
		"DEVSERVER_SEED_USERS":    "alice:alice@example.com:alice-pw,bob:bob@example.com:bob-pw,+root:root@example.com:root-pw",
		"DEVSERVER_ACCESS_TTL":    accessTTL.String(),
		"ENV":                     "test",
		"LOG_LEVEL":               "info",
		"LOG_FORMAT":              "json",
		"RATELIMIT_AUTH_REQUESTS": "1000",
		"RATELIMIT_AUTH_BURST":    "1000",
	}
	maps.Copy(containerEnv, env)

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env:          containerEnv,
		WaitingFor: wait.ForHTTP(basePath + "/actuator/health").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	return fmt.Sprintf("http://%s:%s%s", host, mappedPort.Port(), basePath)
}

// login returns a client for a seeded user backed by a fresh memory store.
func login(t *testing.T, baseURL, username string, opts ...apiclient.Option) (*apiclient.Client, *credstore.Memory) {
	t.Helper()

	store := credstore.NewMemory(credstore.TokenPair{})
	opts = append([]apiclient.Option{apiclient.WithLogger(slogx.Discard())}, opts...)
	client := apiclient.New(baseURL, store, opts...)

	_, err := client.Authenticate(t.Context(), username, seedUsers[username])
	require.NoError(t, err)
	return client, store
}

// waitForExpiry sleeps past the access token lifetime.
func waitForExpiry() {
	time.Sleep(accessTTL + 500*time.Millisecond)
}
