// Package config loads the JSON configuration document described in §6,
// writing a default file on first run when none exists.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config mirrors the recognized options table in §6.
type Config struct {
	ListenAddress                string `json:"listen_address"`
	ROAEndpoint                  string `json:"roa_endpoint"`
	DNSContentEndpointDirectory  string `json:"dns_content_endpoint_directory"`
	DoGitPull                    bool   `json:"do_git_pull"`
	GitRepoURL                   string `json:"git_repo_url"`
	GitRepoLocalPath             string `json:"git_repo_local_path"`
	GitRepoIPv4RouteRelativePath string `json:"git_repo_ipv4_route_relative_path"`
	GitRepoIPv6RouteRelativePath string `json:"git_repo_ipv6_route_relative_path"`
	GitRepoDNSRelativePath       string `json:"git_repo_dns_relative_path"`
	GitRepoInetnumRelativePath   string `json:"git_repo_inetnum_relative_path"`
	GitRepoInet6numRelativePath  string `json:"git_repo_inet6num_relative_path"`
	UpdateIntervalSeconds        int    `json:"update_interval_seconds"`
	DNSPrimaryMaster             string `json:"dns_primary_master"`
	DNSResponsibleParty          string `json:"dns_responsible_party"`
}

// Default returns the built-in defaults, written to disk on first run.
func Default() Config {
	return Config{
		ListenAddress:                ":8080",
		ROAEndpoint:                  "/roa.json",
		DNSContentEndpointDirectory:  "/dns",
		DoGitPull:                    true,
		GitRepoURL:                   "https://git.dn42.dev/dn42/registry.git",
		GitRepoLocalPath:             "./registry",
		GitRepoIPv4RouteRelativePath: "data/route",
		GitRepoIPv6RouteRelativePath: "data/route6",
		GitRepoDNSRelativePath:       "data/dns",
		GitRepoInetnumRelativePath:   "data/inetnum",
		GitRepoInet6numRelativePath:  "data/inet6num",
		UpdateIntervalSeconds:        300,
		DNSPrimaryMaster:             "ns1.dn42.",
		DNSResponsibleParty:          "hostmaster.dn42.",
	}
}

// Load reads path, writing and returning the defaults if path does not
// exist (§6: "Missing configuration file: a default is written on first
// run and the defaults are used.").
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		def := Default()
		if writeErr := writeDefault(path, def); writeErr != nil {
			return Config{}, fmt.Errorf("config: writing default to %s: %w", path, writeErr)
		}
		return def, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

func writeDefault(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
