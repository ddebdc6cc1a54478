package chat

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
)

type Class int

const (
	Fatal Class = iota
	Transient
)

func (c Class) String() string {
	if c == Transient {
		return "transient"
	}
	return "fatal"
}

// DefaultTransientStatus lists the server statuses treated as transient.
// 524 is the gateway timeout fronting the public API. 429 is always
// transient and does not need to be listed.
var DefaultTransientStatus = []int{
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	524,
}

// Classifier maps a raw backend error to Transient or Fatal.
type Classifier struct {
	transient map[int]struct{}
}

func NewClassifier(statuses []int) *Classifier {
	c := &Classifier{transient: make(map[int]struct{}, len(statuses))}
	for _, s := range statuses {
		c.transient[s] = struct{}{}
	}
	return c
}

func (c *Classifier) Classify(err error) Class {
	if err == nil {
		return Fatal
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return Transient
		}
		if _, ok := c.transient[apiErr.StatusCode]; ok {
			return Transient
		}
		return Fatal
	}
	if isTransientNetworkError(err) {
		return Transient
	}
	return Fatal
}

func isTransientNetworkError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNRESET, syscall.ETIMEDOUT:
			return true
		case syscall.ECONNREFUSED, syscall.ENETUNREACH, syscall.EHOSTUNREACH:
			return false
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return false
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return isTransientNetworkError(urlErr.Err)
	}

	msg := strings.ToLower(err.Error())
	for _, p := range []string{"certificate", "x509:", "tls:", "no such host", "connection refused"} {
		if strings.Contains(msg, p) {
			return false
		}
	}
	for _, p := range []string{"timeout", "reset by peer", "broken pipe", "eof"} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
