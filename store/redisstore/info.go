package redisstore

import (
	"bufio"
	"strings"
)

// RunIDField is the INFO server field identifying a Redis process.
const RunIDField = "run_id"

// ParseInfo parses the text returned by INFO into a field map.
//
// Section headers ("# Server") and blank lines are skipped. Values keep everything after
// the first colon, so "executable:/usr/bin/redis-server" and address-valued fields parse
// correctly. Later duplicates win.
//
// Parameters:
//   - text: Raw INFO reply
//
// Returns:
//   - map[string]string: Field name to value
func ParseInfo(text string) map[string]string {
	fields := make(map[string]string)

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields[name] = value
	}

	return fields
}
