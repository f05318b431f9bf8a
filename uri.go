package amqp

import (
	"crypto/tls"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// ParseURI parses an amqp[s]://[user[:pass]@]host[:port][/vhost][?options]
// URI into ConnectionParameters. This is intentionally small: URI
// parsing is named as an external collaborator in the design spec,
// so this exists only to make Dial runnable, not as a general-purpose
// configuration DSL.
//
// Recognized query options: heartbeat, connection_timeout (both
// durations, e.g. "30s" or a bare integer of seconds), channel_max,
// frame_max (integers), locale.
func ParseURI(rawURI string) (ConnectionParameters, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return ConnectionParameters{}, errors.Wrap(err, "amqp: parse URI")
	}

	var p ConnectionParameters
	switch u.Scheme {
	case "amqp":
		// plain TCP
	case "amqps":
		p.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	default:
		return ConnectionParameters{}, errors.Errorf("amqp: unsupported URI scheme %q", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		host = "localhost"
	}
	p.Host = host

	port := u.Port()
	if port == "" {
		if p.TLSClientConfig != nil {
			p.Port = 5671
		} else {
			p.Port = 5672
		}
	} else {
		n, err := strconv.Atoi(port)
		if err != nil {
			return ConnectionParameters{}, errors.Wrapf(err, "amqp: invalid port %q", port)
		}
		p.Port = n
	}

	if u.User != nil {
		p.Username = u.User.Username()
		p.Password, _ = u.User.Password()
	} else {
		p.Username = "guest"
		p.Password = "guest"
	}

	if len(u.Path) > 1 {
		vhost, err := url.PathUnescape(u.Path[1:])
		if err != nil {
			return ConnectionParameters{}, errors.Wrap(err, "amqp: invalid vhost")
		}
		p.VHost = vhost
	} else {
		p.VHost = "/"
	}

	q := u.Query()
	if v := q.Get("heartbeat"); v != "" {
		d, err := parseSecondsOrDuration(v)
		if err != nil {
			return ConnectionParameters{}, errors.Wrap(err, "amqp: invalid heartbeat")
		}
		p.Heartbeat = d
	}
	if v := q.Get("connection_timeout"); v != "" {
		d, err := parseSecondsOrDuration(v)
		if err != nil {
			return ConnectionParameters{}, errors.Wrap(err, "amqp: invalid connection_timeout")
		}
		p.ConnectionTimeout = d
	}
	if v := q.Get("channel_max"); v != "" {
		n, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return ConnectionParameters{}, errors.Wrap(err, "amqp: invalid channel_max")
		}
		p.ChannelMax = uint16(n)
	}
	if v := q.Get("frame_max"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return ConnectionParameters{}, errors.Wrap(err, "amqp: invalid frame_max")
		}
		p.FrameMax = uint32(n)
	}
	if v := q.Get("locale"); v != "" {
		p.Locale = v
	}

	return p, nil
}

func parseSecondsOrDuration(v string) (time.Duration, error) {
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs) * time.Second, nil
}

// Addr returns the "host:port" dial address for p.
func (p ConnectionParameters) Addr() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}
