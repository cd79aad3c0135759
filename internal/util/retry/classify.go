package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

// Kind is the transport failure class of an error.
type Kind int

const (
	KindOther Kind = iota
	KindConnReset
	KindConnTimeout
	KindTimeout
	KindDNSNotFound
	KindConnRefused
)

// Code returns the short marker printed for a retry of this kind.
func (k Kind) Code() string {
	switch k {
	case KindConnReset:
		return "R"
	case KindConnTimeout:
		return "TD"
	case KindTimeout:
		return "T"
	case KindDNSNotFound:
		return "NF"
	case KindConnRefused:
		return "RF"
	}
	return ""
}

// String returns a readable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindConnReset:
		return "connection_reset"
	case KindConnTimeout:
		return "connect_timeout"
	case KindTimeout:
		return "timeout"
	case KindDNSNotFound:
		return "dns_not_found"
	case KindConnRefused:
		return "connection_refused"
	}
	return "other"
}

// Classify maps a transport error to its Kind.
// Cancellation is never transient and is reported as KindOther.
func Classify(err error) Kind {
	if err == nil || errors.Is(err, context.Canceled) {
		return KindOther
	}

	switch {
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.EPIPE):
		return KindConnReset
	case errors.Is(err, syscall.ECONNREFUSED):
		return KindConnRefused
	case errors.Is(err, syscall.ETIMEDOUT):
		return KindConnTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		switch {
		case dnsErr.IsNotFound:
			return KindDNSNotFound
		case dnsErr.IsTimeout:
			return KindTimeout
		case dnsErr.IsTemporary:
			// The server refused or failed the query.
			return KindConnRefused
		}
		return KindOther
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	// A peer closing mid-response surfaces as an unexpected EOF.
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return KindConnReset
	}

	return KindOther
}

// IsRetryableTransport reports whether err is a transient transport failure.
func IsRetryableTransport(err error) bool {
	return Classify(err) != KindOther
}
