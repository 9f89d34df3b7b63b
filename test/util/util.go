// Package util holds helpers for the bay integration tests.
package util

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const pollInterval = 50 * time.Millisecond

// DockerAvailable reports whether container tests were enabled with
// DOCKER_AVAILABLE=1 and a docker binary is on the path.
func DockerAvailable() bool {
	if os.Getenv("DOCKER_AVAILABLE") != "1" {
		return false
	}
	_, err := exec.LookPath("docker")
	return err == nil
}

// WaitForHTTP polls url until it responds with status.
func WaitForHTTP(ctx context.Context, url string, status int) error {
	return poll(ctx, url, func(code int, _ []byte) bool { return code == status })
}

// WaitForMetric polls a /metrics endpoint until its body contains substr.
func WaitForMetric(ctx context.Context, url, substr string) error {
	return poll(ctx, url, func(_ int, body []byte) bool { return strings.Contains(string(body), substr) })
}

func poll(ctx context.Context, url string, done func(int, []byte) bool) error {
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		if resp, err := http.DefaultClient.Do(req); err == nil {
			body, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if done(resp.StatusCode, body) {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for %s: %w", url, ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}

// StartMosquitto runs an anonymous Mosquitto broker in a container and
// returns its URL and a cleanup function.
func StartMosquitto(ctx context.Context) (string, func(), error) {
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp").WithStartupTimeout(30 * time.Second),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = cont.Terminate(context.Background()) }

	host, err := cont.Host(ctx)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	port, err := cont.MappedPort(ctx, "1883")
	if err != nil {
		cleanup()
		return "", nil, err
	}
	return fmt.Sprintf("tcp://%s:%s", host, port.Port()), cleanup, nil
}
