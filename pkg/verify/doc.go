/*
Package verify confirms a deployed stack is serving traffic.

Four checks, two severities. Fatal: every declared service must have a
running container (observed through the Docker SDK by compose project
label), and the application must answer a version probe. Advisory: an HTTP
probe of the public entry point, plus direct database and cache connections
through published host ports when the profile publishes any. Advisory
failures are warnings, because external DNS, TLS issuance and port
publication differences between environments make them unreliable signals
right after a deploy.
*/
package verify
