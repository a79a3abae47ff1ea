// Package validate provides shared validation functions for addresses typed
// by users.
package validate

import (
	"fmt"
	"strings"
)

const (
	channelServer = "newsletter"
	userServer    = "s.whatsapp.net"
	lidServer     = "lid"
)

// ChannelJID validates a channel address of the form <digits>@newsletter.
func ChannelJID(jid string) error {
	user, server, err := split(jid)
	if err != nil {
		return err
	}
	if server != channelServer {
		return fmt.Errorf("%q is not a channel jid", jid)
	}
	if !digits(user) {
		return fmt.Errorf("%q: channel id must be numeric", jid)
	}
	return nil
}

// UserJID validates an account address on the phone-number or lid server.
func UserJID(jid string) error {
	user, server, err := split(jid)
	if err != nil {
		return err
	}
	if server != userServer && server != lidServer {
		return fmt.Errorf("%q is not a user jid", jid)
	}
	if !digits(user) {
		return fmt.Errorf("%q: user must be numeric", jid)
	}
	return nil
}

// Server validates a bare server address such as s.whatsapp.net.
func Server(host string) error {
	if strings.TrimSpace(host) == "" {
		return fmt.Errorf("cannot be empty")
	}
	if strings.ContainsAny(host, "@ \t") {
		return fmt.Errorf("%q is not a server address", host)
	}
	return nil
}

func split(jid string) (user, server string, err error) {
	if strings.TrimSpace(jid) == "" {
		return "", "", fmt.Errorf("jid is required")
	}
	user, server, ok := strings.Cut(jid, "@")
	if !ok || user == "" || server == "" {
		return "", "", fmt.Errorf("%q is not a jid", jid)
	}
	// device suffix, e.g. 123:4@s.whatsapp.net
	user, _, _ = strings.Cut(user, ":")
	return user, server, nil
}

func digits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
