// Package config loads terse project configuration.
//
// Values come from, in increasing priority: built-in defaults, a terse.yaml
// or terse.json file, TERSE_* environment variables and bound command-line
// flags. Nested keys map to environment variables with "_" in place of ".",
// so server.port is TERSE_SERVER_PORT.
//
//	server:
//	  host: localhost
//	  port: 3000
//	  shutdownTimeout: 10s
//	render:
//	  lang: en
//	  title: ""
//	  pretty: false
//	live:
//	  enabled: true
//	  path: /_terse/live
//	log:
//	  level: info
//	  format: text
//	pages:
//	  dir: pages
//	watch:
//	  enabled: false
//	  debounce: 100ms
package config
