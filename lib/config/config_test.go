// config_test.go tests config files
package config

import (
	"testing"
)

// fileToTest is a relative path to the configuration file to test (ie. simpliance/cmd/conf.json)
var fileToTest string = "../../cmd/conf.json"

// TestConfig extracts config from a file and checks values loaded
func TestConfig(t *testing.T) {
	//extract configuration
	conf, err := ExtractConfiguration(fileToTest)
	if err != nil {
		t.Errorf("Error reading config file:%e\n", err)
	} else {
		// lets check the port
		if conf.Port != "8000" {
			t.Errorf("config port is not the expected %s", conf.Port)
		}
		// and the gate dependencies
		if len(conf.WaitFor) != 2 {
			t.Errorf("dependencies do not match the expected %v", conf.WaitFor)
		} else {
			if conf.WaitFor[0].Name != "mongodb" || conf.WaitFor[1].Name != "redis" {
				t.Errorf("dependencies do not match the expected %v", conf.WaitFor)
			}
		}
		// rate limiter defaults
		if conf.RateLimit != 10 || conf.RateWindow != 60 {
			t.Errorf("rate limiter config does not match the expected %d/%d", conf.RateLimit, conf.RateWindow)
		}
	}
}

// TestConfigDefaults checks the defaults are returned when no file is given
func TestConfigDefaults(t *testing.T) {
	conf, err := ExtractConfiguration("")
	if err != nil {
		t.Errorf("Error extracting default config:%e\n", err)
	}
	if conf.DbType != "mongodb" || conf.ChainURL != ChainURLDefault {
		t.Errorf("default config does not match:%+v", conf)
	}
	if conf.WaitInterval != 300 || conf.WaitMax != 60 {
		t.Errorf("default gate config does not match:%+v", conf)
	}
}
