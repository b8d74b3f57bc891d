// Package config provides configuration parsing for keyed servers.
//
// The configuration is stored in keyed.json. Every field is optional;
// missing values fall back to the server defaults.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "address": ":8080",
//	    "readTimeout": "60s",
//	    "writeTimeout": "10s"
//	  },
//	  "diff": {
//	    "strategy": "shift",
//	    "passiveShifts": false,
//	    "grouping": true
//	  },
//	  "duplicates": "warn",
//	  "metrics": {
//	    "namespace": "keyed"
//	  },
//	  "snapshots": {
//	    "backend": "s3",
//	    "bucket": "keyed-baselines",
//	    "prefix": "prod/",
//	    "region": "eu-west-1"
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sc, err := cfg.ServerConfig()
package config
