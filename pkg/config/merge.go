package config

import "dario.cat/mergo"

// mergeOverride merges an override Config on top of base: any
// non-zero field set in override replaces the corresponding field in
// base, via mergo.WithOverride.
func mergeOverride(base, override *Config) error {
	return mergo.Merge(base, override, mergo.WithOverride)
}
