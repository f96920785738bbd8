// Package config provides configuration parsing for sill projects.
//
// The configuration is stored in sill.json at the project root.
// This package handles loading, saving, and validating configuration.
//
// # Configuration File Structure
//
//	{
//	  "name": "dashboard",
//	  "listen": {
//	    "host": "localhost",
//	    "port": 8137,
//	    "path": "/bridge"
//	  },
//	  "limits": {
//	    "max_frame": 65536,
//	    "max_markup": 32768
//	  },
//	  "templates": {
//	    "dir": "templates",
//	    "s3": {
//	      "bucket": "sill-assets",
//	      "prefix": "templates/",
//	      "region": "us-east-1"
//	    }
//	  },
//	  "log": {
//	    "level": "info",
//	    "format": "text"
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
//	fmt.Println("Listening on", cfg.ListenAddress())
package config
