// Package histogramtest writes small NumPy archive fixtures for tests.
package histogramtest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// WriteMatrix writes rows as a 2-D little-endian float64 .npy file. All rows
// must have the same length. Parent directories are created.
func WriteMatrix(t testing.TB, path string, rows [][]float64) {
	t.Helper()
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	var flat []float64
	for i, r := range rows {
		if len(r) != cols {
			t.Fatalf("row %d has %d columns, want %d", i, len(r), cols)
		}
		flat = append(flat, r...)
	}
	write(t, path, "<f8", fmt.Sprintf("(%d, %d)", len(rows), cols), func(buf *bytes.Buffer) {
		for _, v := range flat {
			_ = binary.Write(buf, binary.LittleEndian, math.Float64bits(v))
		}
	})
}

// WriteInt64Matrix writes rows as a 2-D little-endian int64 .npy file.
func WriteInt64Matrix(t testing.TB, path string, rows [][]int64) {
	t.Helper()
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	write(t, path, "<i8", fmt.Sprintf("(%d, %d)", len(rows), cols), func(buf *bytes.Buffer) {
		for _, r := range rows {
			for _, v := range r {
				_ = binary.Write(buf, binary.LittleEndian, v)
			}
		}
	})
}

// WriteVector writes a 1-D little-endian float64 .npy file.
func WriteVector(t testing.TB, path string, v []float64) {
	t.Helper()
	write(t, path, "<f8", fmt.Sprintf("(%d,)", len(v)), func(buf *bytes.Buffer) {
		for _, x := range v {
			_ = binary.Write(buf, binary.LittleEndian, math.Float64bits(x))
		}
	})
}

// WriteTyped writes rows as a 2-D .npy file of the given little-endian dtype
// (<f8, <f4, <i8, <i4, <u8 or <u4). Values are converted with Go conversion
// rules. When fortran is set the data is stored column-major.
func WriteTyped(t testing.TB, path, descr string, fortran bool, rows [][]float64) {
	t.Helper()
	n := len(rows)
	cols := 0
	if n > 0 {
		cols = len(rows[0])
	}
	var flat []float64
	if fortran {
		for j := 0; j < cols; j++ {
			for i := 0; i < n; i++ {
				flat = append(flat, rows[i][j])
			}
		}
	} else {
		for _, r := range rows {
			flat = append(flat, r...)
		}
	}

	var enc func(*bytes.Buffer, float64)
	switch descr {
	case "<f8":
		enc = func(b *bytes.Buffer, v float64) { _ = binary.Write(b, binary.LittleEndian, v) }
	case "<f4":
		enc = func(b *bytes.Buffer, v float64) { _ = binary.Write(b, binary.LittleEndian, float32(v)) }
	case "<i8":
		enc = func(b *bytes.Buffer, v float64) { _ = binary.Write(b, binary.LittleEndian, int64(v)) }
	case "<i4":
		enc = func(b *bytes.Buffer, v float64) { _ = binary.Write(b, binary.LittleEndian, int32(v)) }
	case "<u8":
		enc = func(b *bytes.Buffer, v float64) { _ = binary.Write(b, binary.LittleEndian, uint64(v)) }
	case "<u4":
		enc = func(b *bytes.Buffer, v float64) { _ = binary.Write(b, binary.LittleEndian, uint32(v)) }
	default:
		t.Fatalf("unsupported dtype %q", descr)
	}

	writeOrdered(t, path, descr, fortran, fmt.Sprintf("(%d, %d)", n, cols), func(buf *bytes.Buffer) {
		for _, v := range flat {
			enc(buf, v)
		}
	})
}

func write(t testing.TB, path, descr, shape string, body func(*bytes.Buffer)) {
	t.Helper()
	writeOrdered(t, path, descr, false, shape, body)
}

func writeOrdered(t testing.TB, path, descr string, fortran bool, shape string, body func(*bytes.Buffer)) {
	t.Helper()
	order := "False"
	if fortran {
		order = "True"
	}
	header := fmt.Sprintf("{'descr': '%s', 'fortran_order': %s, 'shape': %s, }", descr, order, shape)
	// magic(6) + version(2) + header length(2) + header must be a multiple of 64.
	pad := 64 - (10+len(header)+1)%64
	if pad == 64 {
		pad = 0
	}
	header += strings.Repeat(" ", pad) + "\n"

	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY")
	buf.WriteByte(1)
	buf.WriteByte(0)
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)
	body(&buf)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Series builds histogram rows with n bins of width binWidth starting at
// start, filling every bin with base except the overrides.
func Series(start, binWidth float64, n int, base float64, overrides map[int]float64) [][]float64 {
	rows := make([][]float64, n)
	for i := 0; i < n; i++ {
		c := base
		if v, ok := overrides[i]; ok {
			c = v
		}
		rows[i] = []float64{start + float64(i)*binWidth, c}
	}
	return rows
}

// DayDir returns <base>/<station>/<MM_YYYY> for day.
func DayDir(base, station string, day time.Time) string {
	return filepath.Join(base, station, day.Format("01_2006"))
}

// WriteDay writes hist_DD.npy and, when raw is non-nil, dev1_DD.npy and
// dev2_DD.npy, each raw file holding raw split into three channel rows.
func WriteDay(t testing.TB, base, station string, day time.Time, hist [][]float64, raw []float64) {
	t.Helper()
	dir := DayDir(base, station, day)
	dd := day.Format("02")
	WriteMatrix(t, filepath.Join(dir, "hist_"+dd+".npy"), hist)
	if raw == nil {
		return
	}
	half := len(raw) / 2
	WriteMatrix(t, filepath.Join(dir, "dev1_"+dd+".npy"), channels(raw[:half]))
	WriteMatrix(t, filepath.Join(dir, "dev2_"+dd+".npy"), channels(raw[half:]))
}

// channels spreads v over three equal-length rows, padding with -1 (a time
// before any fixture window).
func channels(v []float64) [][]float64 {
	n := (len(v) + 2) / 3
	rows := make([][]float64, 3)
	for ch := range rows {
		rows[ch] = make([]float64, n)
		for i := range rows[ch] {
			rows[ch][i] = -1
		}
	}
	for i, x := range v {
		rows[i%3][i/3] = x
	}
	return rows
}
