// Package api contains the HTTP surfaces of the server.
//
// The ingress subpackage accepts commands and hands them to the engine; the
// rest subpackage serves read-only status and export endpoints straight from
// storage. The two never share code paths: reads bypass the processor
// entirely.
package api
