//go:build bench
// +build bench

package iso8211

import (
	"testing"

	"github.com/ssargent/iso8211/internal/testutil"
)

func BenchmarkRead(b *testing.B) {
	benchmarks := []struct {
		name    string
		records int
	}{
		{name: "small", records: 10},
		{name: "medium", records: 1000},
		{name: "large", records: 10000},
	}

	for _, bm := range benchmarks {
		data := testutil.SampleFile(bm.records)
		b.Run(bm.name, func(b *testing.B) {
			b.SetBytes(int64(len(data)))
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := Read(data); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkParseFormatControls(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := ParseFormatControls("(b11,b14,2(A,I(3)),3b24)"); err != nil {
			b.Fatal(err)
		}
	}
}
