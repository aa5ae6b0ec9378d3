// Package config loads formplug's file and environment configuration.
//
// Configuration is read from formplug.yaml (or .json/.toml) in the working
// directory, or from an explicit path. Every key can be overridden by an
// environment variable with the FORMPLUG_ prefix, dots replaced by
// underscores (FORMPLUG_LOG_LEVEL, FORMPLUG_SERVER_ADDR).
//
// # Configuration File Structure
//
//	strategy: warn
//	locale: en
//	manifests:
//	  - plugins/survey.yaml
//	log:
//	  level: info
//	  format: text
//	server:
//	  addr: ":8080"
//	  readTimeout: 5s
//	metrics:
//	  enabled: true
//	  namespace: formplug
//
// # Usage
//
//	cfg, err := config.NewLoader().Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Strategy:", cfg.Strategy)
package config
