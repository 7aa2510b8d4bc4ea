// Copyright 2026 The Procboard Authors
// SPDX-License-Identifier: Apache-2.0

package endpoint

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DefaultPort is the port assumed when a connection string carries none.
const DefaultPort = 8088

// DefaultHostname is the host assumed when a connection string carries
// none.
const DefaultHostname = "127.0.0.1"

// namespaces are the topic namespaces a connection string may select.
// Parse only treats the trailing path segment as a namespace when it
// names one of these, so arbitrary paths survive a round-trip.
var namespaces = map[string]bool{
	"system":  true,
	"log":     true,
	"process": true,
}

// Endpoint describes one procboard server address. Immutable once
// built: construct with Parse or from discrete fields, never mutate a
// value handed to another component.
type Endpoint struct {
	// Protocol is "http" or "https".
	Protocol string

	// Hostname is the server host, never empty after Parse.
	Hostname string

	// Port is the server port, never zero after Parse.
	Port int

	// Path is any mount prefix under which the server is exposed,
	// without leading or trailing slashes. Empty when the server is
	// mounted at the root.
	Path string

	// Namespace selects the topic namespace ("system", "log", or
	// "process"). Empty means the caller has not picked one.
	Namespace string

	// Authorization is the shared-secret token, empty when the server
	// runs without an access gate.
	Authorization string
}

// String renders the endpoint as a connection string. The
// authorization token travels as an auth query parameter, appended
// with ? or & depending on whether a query is already present.
func (e Endpoint) String() string {
	var b strings.Builder

	protocol := e.Protocol
	if protocol == "" {
		protocol = "http"
	}
	hostname := e.Hostname
	if hostname == "" {
		hostname = DefaultHostname
	}
	port := e.Port
	if port == 0 {
		port = DefaultPort
	}

	fmt.Fprintf(&b, "%s://%s:%d", protocol, hostname, port)
	if e.Path != "" {
		b.WriteString("/" + e.Path)
	}
	if e.Namespace != "" {
		b.WriteString("/" + e.Namespace)
	}

	if e.Authorization != "" {
		separator := "?"
		if strings.Contains(b.String(), "?") {
			separator = "&"
		}
		b.WriteString(separator + "auth=" + url.QueryEscape(e.Authorization))
	}

	return b.String()
}

// Parse builds an Endpoint from a connection string. The string may
// carry the authorization token as a prefix before the last @ or as an
// auth query parameter; the prefix wins when both are present. A
// missing http(s) scheme defaults to http, a missing host to
// 127.0.0.1, a missing port to 8088.
func Parse(s string) (Endpoint, error) {
	var e Endpoint

	s = strings.TrimSpace(s)
	if s == "" {
		return e, fmt.Errorf("empty connection string")
	}

	// The authorization prefix ends at the last @ so tokens containing
	// @ survive. Only treat it as a prefix when it precedes the scheme
	// — an @ inside the path or query belongs to the URL.
	if idx := strings.LastIndex(s, "@"); idx >= 0 {
		rest := s[idx+1:]
		if !strings.Contains(s[:idx], "/") {
			e.Authorization = s[:idx]
			s = rest
		}
	}

	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		s = "http://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return Endpoint{}, fmt.Errorf("parsing connection string: %w", err)
	}

	e.Protocol = u.Scheme
	e.Hostname = u.Hostname()
	if e.Hostname == "" {
		e.Hostname = DefaultHostname
	}

	e.Port = DefaultPort
	if portText := u.Port(); portText != "" {
		port, err := strconv.Atoi(portText)
		if err != nil {
			return Endpoint{}, fmt.Errorf("invalid port %q: %w", portText, err)
		}
		e.Port = port
	}

	segments := splitPath(u.Path)
	if len(segments) > 0 && namespaces[segments[len(segments)-1]] {
		e.Namespace = segments[len(segments)-1]
		segments = segments[:len(segments)-1]
	}
	e.Path = strings.Join(segments, "/")

	if e.Authorization == "" {
		e.Authorization = u.Query().Get("auth")
	}

	return e, nil
}

// splitPath returns the non-empty segments of a URL path.
func splitPath(path string) []string {
	var segments []string
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}
