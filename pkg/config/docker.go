package config

import (
	"os"
	"strings"
	"sync"
)

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// IsRunningInDocker reports whether /.dockerenv exists. Cached after the first call.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

// HostResolver rewrites datasource hosts before connecting.
type HostResolver struct {
	inDocker bool
}

// NewHostResolver returns a resolver that rewrites loopback hosts only when
// enabled and the process runs in Docker.
func NewHostResolver(enabled bool) HostResolver {
	return HostResolver{inDocker: enabled && IsRunningInDocker()}
}

// Resolve returns host.docker.internal for loopback hosts inside Docker.
// A SQL Server "host\INSTANCE" keeps its instance suffix.
func (r HostResolver) Resolve(host string) string {
	if !r.inDocker {
		return host
	}

	name, instance, hasInstance := strings.Cut(host, `\`)
	switch strings.ToLower(name) {
	case "localhost", "127.0.0.1", "::1", ".":
		name = "host.docker.internal"
	default:
		return host
	}

	if hasInstance {
		return name + `\` + instance
	}
	return name
}
