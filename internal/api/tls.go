package api

import (
	"crypto/tls"
	"log"
	"os"
)

// certPair is the certificate and key configured through the environment.
type certPair struct {
	certFile string
	keyFile  string
}

// serverTLS is nil when the server should listen in plaintext.
var serverTLS *certPair

// InitTLS reads AVATARLINK_TLS_CERT and AVATARLINK_TLS_KEY. Both must be
// set for TLS to be enabled.
func InitTLS() {
	cert := os.Getenv("AVATARLINK_TLS_CERT")
	key := os.Getenv("AVATARLINK_TLS_KEY")
	if cert == "" || key == "" {
		serverTLS = nil
		return
	}
	serverTLS = &certPair{certFile: cert, keyFile: key}
}

// IsTLSEnabled reports whether a certificate pair is configured.
func IsTLSEnabled() bool {
	return serverTLS != nil
}

// LoadTLSConfig builds the server tls.Config from the configured pair.
// A pair that fails to load logs the error and falls back to plaintext.
func LoadTLSConfig() *tls.Config {
	if serverTLS == nil {
		return nil
	}

	cert, err := tls.LoadX509KeyPair(serverTLS.certFile, serverTLS.keyFile)
	if err != nil {
		log.Printf("failed to load TLS certificate pair: %v", err)
		return nil
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
}
