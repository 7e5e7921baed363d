package client

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"
)

// VerifyFunc has the signature of tls.Config.VerifyPeerCertificate.
type VerifyFunc func(rawCerts [][]byte, verifiedChains [][]*x509.Certificate) error

// NewPermissiveVerifier returns a peer verifier that validates the presented chain against
// roots with host as the expected name.
//
// Chain-trust failures (x509.UnknownAuthorityError, e.g. a self-signed certificate that is not
// pinned) and host name mismatches (x509.HostnameError) are tolerated. Every other failure,
// such as an expired certificate, a malformed certificate or an empty chain, is returned.
func NewPermissiveVerifier(roots *x509.CertPool, host string) VerifyFunc {
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(rawCerts) == 0 {
			return ErrNoPeerCertificate
		}

		certs := make([]*x509.Certificate, 0, len(rawCerts))
		for _, raw := range rawCerts {
			cert, err := x509.ParseCertificate(raw)
			if err != nil {
				return fmt.Errorf("parse peer certificate: %w", err)
			}
			certs = append(certs, cert)
		}

		intermediates := x509.NewCertPool()
		for _, cert := range certs[1:] {
			intermediates.AddCert(cert)
		}

		// chain, validity and key usage first, the host name on its own afterwards
		_, err := certs[0].Verify(x509.VerifyOptions{
			Roots:         roots,
			Intermediates: intermediates,
			CurrentTime:   time.Now(),
		})
		var authErr x509.UnknownAuthorityError
		if err != nil && !errors.As(err, &authErr) {
			return err
		}

		var hostErr x509.HostnameError
		if err := certs[0].VerifyHostname(host); err != nil && !errors.As(err, &hostErr) {
			return err
		}

		return nil
	}
}

// LoadCertPool reads path and returns a pool holding its certificates.
// The file may contain one or more PEM certificates or a single DER certificate.
func LoadCertPool(path string) (*x509.CertPool, error) {
	if path == "" {
		return nil, ErrCertFileRequired
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read certificate file: %w", err)
	}

	pool := x509.NewCertPool()
	if block, _ := pem.Decode(data); block != nil {
		if !pool.AppendCertsFromPEM(data) {
			return nil, fmt.Errorf("%w: %s", ErrNoCertificate, path)
		}

		return pool, nil
	}

	cert, err := x509.ParseCertificate(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNoCertificate, path, err)
	}
	pool.AddCert(cert)

	return pool, nil
}
