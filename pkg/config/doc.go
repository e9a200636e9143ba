// Package config defines trainbin job files.
//
// A job names one conversion: the direction, the binary container, the codec
// on the other side and the ambient settings (progress, staging, logging,
// observability). Jobs are YAML documents:
//
//	name: xor-import
//	direction: import
//	binary_file: s3://datasets/xor.tbin
//	codec:
//	  name: csv
//	  path: ./xor.csv.gz
//	  input_size: 2
//	  ideal_size: 1
//	  options:
//	    headers: "true"
//	progress:
//	  interval: 10000
//	  log: true
//	storage:
//	  region: ${AWS_REGION:-us-east-1}
//	logging:
//	  level: info
//	  encoding: console
//
// # Environment Variable Substitution
//
// ${VAR_NAME} is replaced with the variable's value before parsing, and
// ${VAR_NAME:-fallback} uses fallback when the variable is unset or empty.
// Credentials such as a SQL codec dsn should be passed this way.
//
// # Usage
//
//	job, err := config.Load("job.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Load applies the defaults from NewJob before decoding and calls Validate
// afterwards, so a loaded job is ready to run.
package config
