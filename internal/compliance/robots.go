package compliance

import (
	"bufio"
	"fmt"
	"strings"
)

// maxRobotsLine bounds a single robots.txt line.
const maxRobotsLine = 512 << 10

// robotsGroup is one user-agent group of a robots.txt file.
type robotsGroup struct {
	agents   []string
	disallow []string
}

// parseRobots splits a robots.txt body into groups. Consecutive User-agent
// lines share a group; a User-agent line after any rule starts a new one.
// Lines other than User-agent and Disallow are ignored. A body that cannot
// be scanned to the end is an error, never a partial result.
func parseRobots(body string) ([]robotsGroup, error) {
	var (
		groups  []robotsGroup
		current *robotsGroup
		inRules bool
	)

	sc := bufio.NewScanner(strings.NewReader(body))
	sc.Buffer(make([]byte, 0, 4096), maxRobotsLine)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "user-agent":
			if current == nil || inRules {
				groups = append(groups, robotsGroup{})
				current = &groups[len(groups)-1]
				inRules = false
			}
			current.agents = append(current.agents, strings.ToLower(value))
		case "disallow", "allow":
			if current == nil {
				continue
			}
			inRules = true
			if key == "disallow" {
				current.disallow = append(current.disallow, value)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	return groups, nil
}

// blanketDisallow reports whether a group naming "*" or userAgent disallows
// the whole site.
func blanketDisallow(groups []robotsGroup, userAgent string) bool {
	token := productToken(userAgent)
	for _, g := range groups {
		if !g.appliesTo(token) {
			continue
		}
		for _, path := range g.disallow {
			if path == "/" || path == "/*" {
				return true
			}
		}
	}
	return false
}

func (g robotsGroup) appliesTo(token string) bool {
	for _, a := range g.agents {
		if a == "*" || (token != "" && a == token) {
			return true
		}
	}
	return false
}

// productToken returns the lowercase name part of a user agent, so that
// "ProvImport/1.0 (+https://example.org)" matches a "provimport" group.
func productToken(userAgent string) string {
	token, _, _ := strings.Cut(strings.TrimSpace(userAgent), "/")
	token, _, _ = strings.Cut(token, " ")
	return strings.ToLower(token)
}
