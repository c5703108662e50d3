package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func parseID(raw, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, raw)
	}
	return id, nil
}

// readSecret returns flagValue, or reads one line from stdin when empty.
func readSecret(cmd *cobra.Command, flagValue, prompt string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(prompt), ": "), err)
	}
	value := strings.TrimRight(line, "\r\n")
	if value == "" {
		return "", errors.New("no value entered")
	}
	return value, nil
}

// parseFields turns key=value pairs into a payload. Values that parse as
// JSON keep their type; anything else is sent as a string.
func parseFields(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("field %q must look like key=value", pair)
		}
		var decoded any
		if err := json.Unmarshal([]byte(value), &decoded); err == nil {
			out[key] = decoded
			continue
		}
		out[key] = value
	}
	return out, nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatDuration(seconds int) string {
	return (time.Duration(seconds) * time.Second).String()
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
