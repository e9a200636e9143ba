package job

// Register every built-in codec with the global registry
import (
	_ "github.com/ajitpratap0/trainbin/pkg/codec/avro"
	_ "github.com/ajitpratap0/trainbin/pkg/codec/csv"
	_ "github.com/ajitpratap0/trainbin/pkg/codec/jsonl"
	_ "github.com/ajitpratap0/trainbin/pkg/codec/memory"
	_ "github.com/ajitpratap0/trainbin/pkg/codec/sql"
)
