package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":5000"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	ServiceFile string   // path to the services manifest (yaml)
	WorkDir     string   // root holding one directory per service
	APIServer   string   // exported to every service as API_SERVER
	ServiceArgs []string // extra arguments passed to every service

	// Readiness detection
	ReadyMarker string // line prefix announcing readiness (ex: "Now listening on")
	ReadyScheme string // scheme the bound address starts with (ex: "http")

	StopGrace time.Duration // time between SIGTERM and kill

	// External redis probe
	ProbeInterval      time.Duration // interval between probe rounds (0 = probe once)
	ProbeTimeout       time.Duration // total time to retry one service per round
	ProbeRetryInterval time.Duration // initial wait between retries (grows exponentially)
	ProbeMaxWait       time.Duration // max wait between retries
	ProbePingTimeout   time.Duration // timeout for each ping attempt
	ProbeWarnThreshold int           // warn after this many attempts
	RedisDT            time.Duration // Redis dial timeout (ex: 5s)
	RedisRT            time.Duration // Redis read timeout (ex: 3s)
	RedisWT            time.Duration // Redis write timeout (ex: 3s)

	AllowedCIDRS []string // optional, restrict access to operational endpoints
	TrustProxy   bool     // true => trust X-Forwarded-For headers
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("MUSTER_LISTEN_PORT", ":5000"),
		ShutdownTimeout: mustDuration("MUSTER_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("MUSTER_LOG_LEVEL", "info"),
		PrettyLog: mustBool("MUSTER_PRETTY_LOG", true),

		// Services
		ServiceFile: getenv("MUSTER_SERVICE_FILE", ""),
		WorkDir:     getenv("MUSTER_WORK_DIR", workingDir()),
		APIServer:   getenv("MUSTER_API_SERVER", "https://localhost:5001"),
		ServiceArgs: splitAndTrim(getenv("MUSTER_SERVICE_ARGS", "")),
		ReadyMarker: getenv("MUSTER_READY_MARKER", "Now listening on"),
		ReadyScheme: getenv("MUSTER_READY_SCHEME", "http"),
		StopGrace:   mustDuration("MUSTER_STOP_GRACE", 5*time.Second),

		// Probe settings
		ProbeInterval:      mustDuration("MUSTER_PROBE_INTERVAL", 30*time.Second),
		ProbeTimeout:       mustDuration("MUSTER_PROBE_TIMEOUT", 10*time.Second),
		ProbeRetryInterval: mustDuration("MUSTER_PROBE_RETRY_INTERVAL", 500*time.Millisecond),
		ProbeMaxWait:       mustDuration("MUSTER_PROBE_MAX_WAIT", 5*time.Second),
		ProbePingTimeout:   mustDuration("MUSTER_PROBE_PING_TIMEOUT", 2*time.Second),
		ProbeWarnThreshold: getenvInt("MUSTER_PROBE_WARN_THRESHOLD", 3),
		RedisDT:            mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:            mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:            mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),

		// Access restrictions
		AllowedCIDRS: parseAllowedIPs(getenv("MUSTER_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("MUSTER_TRUST_PROXY", false),
	}

	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", *cfg)
	}

	return cfg
}

// Validate reports settings that cannot work together. It runs after command
// line flags have been applied.
func (c *Config) Validate() error {
	var errs []error
	if c.ServiceFile == "" {
		errs = append(errs, errors.New("no service file: set MUSTER_SERVICE_FILE or --services"))
	}
	if c.WorkDir == "" {
		errs = append(errs, errors.New("no work directory: set MUSTER_WORK_DIR or --workdir"))
	}
	if c.ListenPort == "" {
		errs = append(errs, errors.New("listen address must not be empty"))
	}
	if c.StopGrace <= 0 {
		errs = append(errs, fmt.Errorf("stop grace must be > 0, got %v", c.StopGrace))
	}
	if c.ReadyMarker == "" {
		errs = append(errs, errors.New("readiness marker must not be empty"))
	}
	return errors.Join(errs...)
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func workingDir() string {
	wd, err := os.Getwd()
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: cannot determine working directory: %v", err))
	}
	return wd
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
