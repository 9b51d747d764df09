// Package config resolves the single immutable Config value of the
// process.
//
// Precedence, lowest first: Default, the YAML file, OIDC_AUTH_* environment
// variables, and finally command-line flags applied by the cmd package.
// Validate runs once on the result; the server never starts with an
// invalid configuration.
//
// Example config.yaml:
//
//	issuer: https://login.example.com/
//	client_id: portal-cli
//	organization: org_123
//	port: 8000
//	target_origin: https://portal.example.com
//	session:
//	  policy: keyed
//	  timeout: 3m
//	backend:
//	  url: https://portal.example.com
//	  forward_cookies: false
//	  secret_header: X-Auth-Secret
//	  secret: s3cr3t
//	log:
//	  level: info
//	  format: json
package config
