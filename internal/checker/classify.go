package checker

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// statusReason is the reason recorded for an HTTP error status.
func statusReason(code int) string {
	return fmt.Sprintf("HTTP %d", code)
}

// classify maps a transport error to its failure class.
func classify(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, ErrTooManyRedirects) {
		return ReasonTooManyRedirects
	}
	if errors.Is(err, errInvalidRequest) {
		return ReasonInvalidRequest
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return ReasonTimeout
		}
		return ReasonDNS
	}

	if isTimeout(err) {
		return ReasonTimeout
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return ReasonRefused
	}

	if isTLSError(err) {
		return ReasonTLS
	}

	return ReasonConnection
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isTLSError(err error) bool {
	var (
		recordErr    tls.RecordHeaderError
		verifyErr    *tls.CertificateVerificationError
		authorityErr x509.UnknownAuthorityError
		hostnameErr  x509.HostnameError
		invalidErr   x509.CertificateInvalidError
	)
	switch {
	case errors.As(err, &recordErr),
		errors.As(err, &verifyErr),
		errors.As(err, &authorityErr),
		errors.As(err, &hostnameErr),
		errors.As(err, &invalidErr):
		return true
	}
	return strings.Contains(err.Error(), "tls: ")
}

// isConnectError reports whether err happened before a request reached the
// server, so that the request is safe to send again.
func isConnectError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return false
		}
		return true
	}
	return errors.Is(err, syscall.ECONNRESET)
}
