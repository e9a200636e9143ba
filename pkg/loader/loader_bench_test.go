package loader

import (
	"fmt"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/ajitpratap0/trainbin/pkg/codec/memory"
)

// BenchmarkImportExport measures both conversion directions over a memory codec
func BenchmarkImportExport(b *testing.B) {
	for _, recordCount := range []int{1000, 100000} {
		inputs, ideals := records(recordCount, 16, 1)
		path := filepath.Join(b.TempDir(), "bench.tbin")
		seed, err := memory.FromRecords(inputs, ideals)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := NewBinaryDataLoader(seed, WithLogger(zap.NewNop())).ImportToBinary(path); err != nil {
			b.Fatal(err)
		}

		b.Run(fmt.Sprintf("Import_%d", recordCount), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				src, err := memory.FromRecords(inputs, ideals)
				if err != nil {
					b.Fatal(err)
				}
				stats, err := NewBinaryDataLoader(src, WithLogger(zap.NewNop())).ImportToBinary(path)
				if err != nil {
					b.Fatal(err)
				}
				b.ReportMetric(float64(stats.Records)/stats.Elapsed.Seconds(), "records/sec")
			}
		})

		b.Run(fmt.Sprintf("Export_%d", recordCount), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				dst := memory.New(0, 0)
				stats, err := NewBinaryDataLoader(dst, WithLogger(zap.NewNop())).ExportFromBinary(path)
				if err != nil {
					b.Fatal(err)
				}
				b.ReportMetric(float64(stats.Records)/stats.Elapsed.Seconds(), "records/sec")
			}
		})
	}
}
