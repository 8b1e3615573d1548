package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rileyhilliard/shipr/internal/errors"
)

// ResolveTarget turns a command-line target reference into a Target.
//
// The reference is either the name of a configured target, or an ad-hoc
// "user@host[:port]" spec. keyOverride replaces the configured key and is
// required for ad-hoc specs.
func (c *Config) ResolveTarget(ref, keyOverride string) (Target, error) {
	if ref == "" {
		return Target{}, errors.New(errors.ErrConfig,
			"No target given",
			"Pass a configured target name or user@host[:port] with --key")
	}

	// viper lowercases map keys, so configured names are case-insensitive.
	if t, ok := c.Targets[strings.ToLower(ref)]; ok {
		if keyOverride != "" {
			t.Key = keyOverride
		}
		return t, nil
	}

	t, err := ParseTargetSpec(ref)
	if err != nil {
		return Target{}, err
	}
	if keyOverride == "" {
		return Target{}, errors.New(errors.ErrConfig,
			fmt.Sprintf("'%s' isn't a configured target and no key was given", ref),
			"Add it under 'targets' in your config, or pass --key <name>")
	}
	t.Key = keyOverride
	return t, nil
}

// ParseTargetSpec parses "user@host[:port]". The key is left empty.
func ParseTargetSpec(spec string) (Target, error) {
	t := Target{Port: 22}

	at := strings.Index(spec, "@")
	if at <= 0 || at == len(spec)-1 {
		return Target{}, errors.New(errors.ErrConfig,
			fmt.Sprintf("'%s' doesn't look like user@host", spec),
			"Use a configured target name or user@host[:port]")
	}
	t.User = spec[:at]
	host := spec[at+1:]

	// Only treat a trailing :digits as a port; bare IPv6 literals need [].
	if strings.HasPrefix(host, "[") {
		end := strings.Index(host, "]")
		if end == -1 {
			return Target{}, errors.New(errors.ErrConfig,
				fmt.Sprintf("Unterminated IPv6 literal in '%s'", spec),
				"Write IPv6 targets as user@[::1]:22")
		}
		rest := host[end+1:]
		host = host[1:end]
		if rest != "" {
			if !strings.HasPrefix(rest, ":") {
				return Target{}, errors.New(errors.ErrConfig,
					fmt.Sprintf("Unexpected text after host in '%s'", spec),
					"Write IPv6 targets as user@[::1]:22")
			}
			port, err := parsePort(rest[1:])
			if err != nil {
				return Target{}, err
			}
			t.Port = port
		}
	} else if idx := strings.LastIndex(host, ":"); idx != -1 {
		port, err := parsePort(host[idx+1:])
		if err != nil {
			return Target{}, err
		}
		t.Port = port
		host = host[:idx]
	}

	if host == "" {
		return Target{}, errors.New(errors.ErrConfig,
			fmt.Sprintf("No host in '%s'", spec),
			"Use user@host[:port]")
	}
	t.Host = host
	return t, nil
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(s)
	if err != nil || port < 1 || port > 65535 {
		return 0, errors.New(errors.ErrConfig,
			fmt.Sprintf("'%s' isn't a valid port", s),
			"Ports are numbers between 1 and 65535")
	}
	return port, nil
}
