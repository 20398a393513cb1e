package temporalx

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
	temporalsdkclient "go.temporal.io/sdk/client"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/lessonbuddy/lessonbuddy-backend/internal/pkg/logger"
)

// NewClient dials Temporal with retry so the backend can come up before the
// Temporal server does. Returns (nil, nil) when TEMPORAL_ADDRESS is unset and
// chapter generation is disabled.
func NewClient(log *logger.Logger) (temporalsdkclient.Client, error) {
	cfg := LoadConfig()
	if cfg.Address == "" {
		log.Warn("TEMPORAL_ADDRESS not set; chapter generation workflows disabled")
		return nil, nil
	}

	opts := temporalsdkclient.Options{
		HostPort:  cfg.Address,
		Namespace: cfg.Namespace,
		Logger:    log,
	}
	if cfg.ClientCertPath != "" || cfg.ClientKeyPath != "" || cfg.ClientCAPath != "" {
		tlsCfg, err := loadTLSConfig(cfg)
		if err != nil {
			return nil, err
		}
		opts.ConnectionOptions.TLS = tlsCfg
	}

	dialTimeout := durationSecondsFromEnv("TEMPORAL_DIAL_TIMEOUT_SECONDS", 5)
	maxWait := durationSecondsFromEnv("TEMPORAL_DIAL_MAX_WAIT_SECONDS", 60)
	deadline := time.Now().Add(maxWait)

	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		c, err := temporalsdkclient.DialContext(ctx, opts)
		cancel()
		if err == nil {
			if attempt > 1 {
				log.Info("Connected to Temporal", "address", cfg.Address, "namespace", cfg.Namespace, "attempts", attempt)
			}
			if envTrue("TEMPORAL_AUTO_REGISTER_NAMESPACE") {
				if err := ensureNamespace(context.Background(), cfg, log); err != nil {
					c.Close()
					return nil, err
				}
			}
			return c, nil
		}

		if maxWait <= 0 || time.Now().After(deadline) {
			return nil, fmt.Errorf("temporal dial failed (address=%s namespace=%s): %w", cfg.Address, cfg.Namespace, err)
		}
		log.Warn("Temporal not reachable; retrying", "address", cfg.Address, "attempt", attempt, "error", err)
		time.Sleep(clampBackoff(250*time.Millisecond, 5*time.Second, attempt))
	}
}

// ensureNamespace registers the configured namespace when it does not exist.
// Intended for local/self-hosted Temporal; cloud namespaces are
// pre-provisioned.
func ensureNamespace(ctx context.Context, cfg Config, log *logger.Logger) error {
	nsOpts := temporalsdkclient.Options{HostPort: cfg.Address, Logger: log}
	if cfg.ClientCertPath != "" || cfg.ClientKeyPath != "" || cfg.ClientCAPath != "" {
		tlsCfg, err := loadTLSConfig(cfg)
		if err != nil {
			return err
		}
		nsOpts.ConnectionOptions.TLS = tlsCfg
	}
	nsClient, err := temporalsdkclient.NewNamespaceClient(nsOpts)
	if err != nil {
		return fmt.Errorf("temporal namespace ensure: init namespace client: %w", err)
	}
	defer nsClient.Close()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for attempt := 1; ; attempt++ {
		_, err := nsClient.Describe(ctx, cfg.Namespace)
		if err == nil {
			return nil
		}

		var nfe *serviceerror.NamespaceNotFound
		if errors.As(err, &nfe) {
			regErr := nsClient.Register(ctx, &workflowservice.RegisterNamespaceRequest{
				Namespace:                        cfg.Namespace,
				Description:                      "lessonbuddy auto-registered namespace",
				WorkflowExecutionRetentionPeriod: durationpb.New(7 * 24 * time.Hour),
			})
			if regErr == nil {
				log.Info("Registered Temporal namespace", "namespace", cfg.Namespace)
				return nil
			}
			var already *serviceerror.NamespaceAlreadyExists
			if errors.As(regErr, &already) {
				return nil
			}
			if !isRetryableRPC(regErr) {
				return fmt.Errorf("temporal namespace ensure: register namespace: %w", regErr)
			}
			err = regErr
		} else if !isRetryableRPC(err) {
			return fmt.Errorf("temporal namespace ensure: describe namespace: %w", err)
		}

		if ctx.Err() != nil {
			return fmt.Errorf("temporal namespace ensure: timed out (namespace=%s): %w", cfg.Namespace, err)
		}
		log.Warn("Temporal namespace ensure retrying", "namespace", cfg.Namespace, "attempt", attempt, "error", err)
		time.Sleep(clampBackoff(250*time.Millisecond, 5*time.Second, attempt))
	}
}

func loadTLSConfig(cfg Config) (*tls.Config, error) {
	if cfg.ClientCertPath == "" || cfg.ClientKeyPath == "" {
		return nil, fmt.Errorf("temporal tls: both TEMPORAL_CLIENT_CERT_PATH and TEMPORAL_CLIENT_KEY_PATH are required when enabling mTLS")
	}
	cert, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
	if err != nil {
		return nil, fmt.Errorf("temporal tls: load client cert/key: %w", err)
	}
	tlsCfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	if cfg.ClientCAPath != "" {
		pem, err := os.ReadFile(cfg.ClientCAPath)
		if err != nil {
			return nil, fmt.Errorf("temporal tls: read CA: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("temporal tls: invalid CA pem")
		}
		tlsCfg.RootCAs = pool
	}
	return tlsCfg, nil
}

func isRetryableRPC(err error) bool {
	if err == nil {
		return false
	}
	s, ok := status.FromError(err)
	if !ok {
		return errors.Is(err, context.DeadlineExceeded)
	}
	switch s.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}

func envTrue(key string) bool {
	v := strings.TrimSpace(os.Getenv(key))
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

func durationSecondsFromEnv(key string, defSeconds int) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(defSeconds) * time.Second
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return time.Duration(defSeconds) * time.Second
	}
	return time.Duration(n) * time.Second
}

func clampBackoff(base, max time.Duration, attempt int) time.Duration {
	sleep := base
	for i := 1; i < attempt; i++ {
		sleep *= 2
		if sleep >= max {
			return max
		}
	}
	return sleep
}
