// Package config provides configuration loading and validation for s3fs.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (S3FS_ prefix)
//  4. CLI flags
//
// Without explicit files, ./s3fs.yaml is read when present.
//
// # Usage
//
//	cfg, err := config.Load([]string{"s3fs.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx = config.WithContext(ctx, cfg)
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with S3FS_ prefix:
//   - server.port → S3FS_SERVER_PORT
//   - storage.root_dir → S3FS_STORAGE_ROOT_DIR
//   - log.format → S3FS_LOG_FORMAT
//
// # Validation
//
// Configuration is validated using struct tags:
//   - Port must be 1-65535
//   - Log level must be debug, info, warn, or error
//   - Log format must be text or json
package config
