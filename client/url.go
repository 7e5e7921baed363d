package client

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
)

var urlPattern = regexp.MustCompile(`^tcp://(?P<ip>[^:]+):(?P<port>[0-9]{1,5})$`)

// ParseURL parses a tcp://<ip>:<port> literal. The host must be an IPv4 literal; host names
// are rejected.
func ParseURL(url string) (host string, port int, err error) {
	m := urlPattern.FindStringSubmatch(url)
	if m == nil {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidURL, url)
	}

	host = m[urlPattern.SubexpIndex("ip")]
	if !isIPv4(host) {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidURL, url)
	}

	port, err = strconv.Atoi(m[urlPattern.SubexpIndex("port")])
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("%w: port of %q", ErrInvalidURL, url)
	}

	return host, port, nil
}

func isIPv4(host string) bool {
	ip := net.ParseIP(host)
	return ip != nil && ip.To4() != nil && ip.String() == host
}
