/*
Package tlsutil centralizes TLS hardening for the diagnostics server.

DefaultTLSConfig pins the minimum protocol version to TLS 1.2 and
restricts cipher suites to AEAD constructions. The server manager
installs it whenever a certificate and key are configured.
*/
package tlsutil
