package client

import "errors"

var (
	// ErrClientConfigNil indicates that a nil ClientConfig was provided.
	ErrClientConfigNil = errors.New("client config is nil")

	// ErrInvalidURL indicates that a target literal is not of the form tcp://<ipv4>:<port>.
	ErrInvalidURL = errors.New("invalid url, expected tcp://<ip>:<port>")

	// ErrInvalidHost indicates that the target host is not an IPv4 literal.
	ErrInvalidHost = errors.New("host is not an IPv4 literal")

	// ErrNotConnected indicates that the client has no open connection.
	ErrNotConnected = errors.New("client not connected")

	// ErrCertFileRequired indicates that a secure client was created without a certificate file.
	ErrCertFileRequired = errors.New("certificate file is required")

	// ErrNoCertificate indicates that the certificate file contains no certificate.
	ErrNoCertificate = errors.New("no certificate found in certificate file")

	// ErrNoPeerCertificate indicates that the server presented no certificate.
	ErrNoPeerCertificate = errors.New("server presented no certificate")
)
