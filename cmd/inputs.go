package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"outreach/pkg/config"
	"outreach/pkg/relay"
)

// resolveCredential reads the relay address from the flag or its env var and
// the secret only from the environment.
func resolveCredential(cfg config.RelayConfig, fromFlag string) (relay.Credential, error) {
	address := strings.TrimSpace(fromFlag)
	if address == "" {
		address = strings.TrimSpace(os.Getenv(cfg.AddressEnv))
	}
	if address == "" {
		return relay.Credential{}, fmt.Errorf("sender address is required: pass --from or set %s", cfg.AddressEnv)
	}

	secret := strings.TrimSpace(os.Getenv(cfg.SecretEnv))
	if secret == "" {
		return relay.Credential{}, fmt.Errorf("relay secret is required: set %s", cfg.SecretEnv)
	}

	return relay.Credential{Address: address, Secret: secret}, nil
}

// parseRecipients splits comma-separated values, trims them and drops
// duplicates while keeping first-seen order.
func parseRecipients(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			recipient := strings.TrimSpace(part)
			if recipient == "" {
				continue
			}
			key := strings.ToLower(recipient)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, recipient)
		}
	}

	return out
}

// resolveJobDescription prefers inline text, then a file path; "-" reads stdin.
func resolveJobDescription(text string, path string) (string, error) {
	if value := strings.TrimSpace(text); value != "" {
		return value, nil
	}

	path = strings.TrimSpace(path)
	if path == "" {
		return "", errors.New("job description is required: pass --job or --job-file")
	}

	var (
		content []byte
		err     error
	)
	if path == "-" {
		content, err = readAllStdin()
	} else {
		content, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read job description: %w", err)
	}

	value := strings.TrimSpace(string(content))
	if value == "" {
		return "", errors.New("job description is empty")
	}
	return value, nil
}

var readAllStdin = func() ([]byte, error) {
	return io.ReadAll(os.Stdin)
}
