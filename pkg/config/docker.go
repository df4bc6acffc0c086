package config

import (
	"net"
	"os"
	"sync"
)

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// IsRunningInDocker returns true if the application is running inside a Docker container.
// Detection is based on the presence of /.dockerenv. The result is cached.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

// ResolveHostForDocker maps localhost to host.docker.internal when running in Docker,
// so a containerized server can reach Postgres, Redis or MinIO on the host.
func ResolveHostForDocker(host string) string {
	if !IsRunningInDocker() {
		return host
	}

	if host == "localhost" || host == "127.0.0.1" {
		return "host.docker.internal"
	}

	return host
}

// resolveHostPort applies ResolveHostForDocker to the host part of a host:port endpoint.
func resolveHostPort(endpoint string) string {
	host, port, err := net.SplitHostPort(endpoint)
	if err != nil {
		return ResolveHostForDocker(endpoint)
	}
	return net.JoinHostPort(ResolveHostForDocker(host), port)
}

func (c *Config) resolveServiceHosts() {
	c.Database.Host = ResolveHostForDocker(c.Database.Host)
	if c.Redis.Host != "" {
		c.Redis.Host = ResolveHostForDocker(c.Redis.Host)
	}
	if c.Storage.S3Endpoint != "" {
		c.Storage.S3Endpoint = resolveHostPort(c.Storage.S3Endpoint)
	}
}
