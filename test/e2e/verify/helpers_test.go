package verify_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nzassa/verify/pkg/verifysdk"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Common constants and helper functions for verify service end-to-end tests.
 * This includes container setup, token minting, and assertions.
 */

const (
	testImageName = "nzassa-verify-test:latest"

	testIssuer    = "nzassa-auth"
	testJWTSecret = "e2e-shared-secret-not-for-production"
)

// TestMain manages the test lifecycle, builds the Docker image once before
// all tests and cleans it up after all tests complete.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building Verify Service Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up Verify Service Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/verify/Dockerfile",
		"../../../")
	cmd.Dir = "."
	cmd.Stdout = os.Stdout
	cmd.Stderr = nil

	return cmd.Run()
}

func cleanupDockerImage() {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // Ignore errors - image might not exist
}

// setupVerifyContainer starts the verify service in a container and returns
// the base URL. Extra env entries override the defaults, so individual tests
// can flip demo mode or shorten the cooldown.
func setupVerifyContainer(t *testing.T, extraEnv map[string]string) (string, func()) {
	t.Helper()
	ctx := context.Background()

	env := map[string]string{
		"VERIFY_DATABASE_FILE":   "/tmp/verify.db",
		"VERIFY_ISSUER":          testIssuer,
		"VERIFY_JWT_ALGORITHM":   "HS256",
		"VERIFY_JWT_SECRET":      testJWTSecret,
		"VERIFY_RESEND_COOLDOWN": "2s",
		"ENV":                    "test",
		"LOG_LEVEL":              "info",
		"LOG_FORMAT":             "json",
		// Increase rate limits for E2E tests to prevent test failures
		"RATELIMIT_STRICT_REQUESTS":   "1000",
		"RATELIMIT_STRICT_WINDOW_SEC": "60",
		"RATELIMIT_STRICT_BURST":      "1000",
		"RATELIMIT_MODERATE_REQUESTS": "1000",
		"RATELIMIT_MODERATE_BURST":    "1000",
	}
	for k, v := range extraEnv {
		env[k] = v
	}

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env:          env,
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	baseURL := fmt.Sprintf("http://%s:%s", host, mappedPort.Port())

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return baseURL, cleanup
}

// mintToken signs an HS256 access token the way the marketplace auth
// service would, for the given subject and scopes.
func mintToken(t *testing.T, subject string, scopes ...string) string {
	t.Helper()

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":    testIssuer,
		"sub":    subject,
		"iat":    now.Unix(),
		"exp":    now.Add(10 * time.Minute).Unix(),
		"scopes": scopes,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

// newUserClient returns an SDK client authenticated as a fresh subject with
// the verification scope.
func newUserClient(t *testing.T, baseURL, subject string) *verifysdk.Client {
	t.Helper()
	return verifysdk.NewClient(baseURL, mintToken(t, subject, "account:verify"))
}

// newAnonymousClient returns an SDK client without a bearer token.
func newAnonymousClient(baseURL string) *verifysdk.Client {
	return verifysdk.NewClient(baseURL, "")
}

// verifyChannel builds a channel selection request.
func verifyChannel(channel, destination string) verifysdk.SelectChannelRequest {
	return verifysdk.SelectChannelRequest{
		Channel:     channel,
		Destination: destination,
	}
}

// requireAPIError asserts that err is an *APIError with the given code.
func requireAPIError(t *testing.T, err error, code string) *verifysdk.APIError {
	t.Helper()

	require.Error(t, err)
	apiErr, ok := err.(*verifysdk.APIError)
	require.True(t, ok, "expected *verifysdk.APIError, got %T: %v", err, err)
	require.Equal(t, code, apiErr.Code)
	return apiErr
}
