// Package config loads library and CLI configuration from environment
// variables, resolves account credentials from the env or the OS keyring,
// and manages the probe marker file that tells pkg/auth what authenticated
// and login pages look like.
//
// All variables use the DSV_ prefix. Marker files are YAML and can be
// watched for changes so a marker fix reaches a long-running process
// without a restart.
package config
