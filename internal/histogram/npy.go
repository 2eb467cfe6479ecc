package histogram

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/sbinet/npyio/npy"
)

// array is a decoded NumPy array flattened to float64 in row-major order.
type array struct {
	shape []int
	data  []float64
}

func (a array) rows() int {
	if len(a.shape) == 0 {
		return 0
	}
	return a.shape[0]
}

func (a array) cols() int {
	if len(a.shape) < 2 {
		return 1
	}
	return a.shape[1]
}

// row returns a copy of row i of a 2-D array.
func (a array) row(i int) []float64 {
	n := a.cols()
	out := make([]float64, n)
	copy(out, a.data[i*n:(i+1)*n])
	return out
}

// readArray decodes a .npy file. Numeric dtypes are widened to float64 and
// Fortran-ordered arrays are transposed into row-major order.
func readArray(path string) (array, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return array{}, &DataNotFoundError{Path: path, Err: err}
		}
		return array{}, &MalformedDataError{Path: path, Reason: "cannot open", Err: err}
	}
	defer f.Close()

	r, err := npy.NewReader(bufio.NewReader(f))
	if err != nil {
		return array{}, &MalformedDataError{Path: path, Reason: "not a NumPy array file", Err: err}
	}

	shape := append([]int(nil), r.Header.Descr.Shape...)
	if len(shape) > 2 {
		return array{}, &MalformedDataError{Path: path, Reason: fmt.Sprintf("expected at most 2 dimensions, got %d", len(shape))}
	}

	size := 1
	for _, d := range shape {
		size *= d
	}
	if size == 0 {
		return array{shape: shape, data: []float64{}}, nil
	}

	data, err := readNumeric(r)
	if err != nil {
		return array{}, &MalformedDataError{Path: path, Reason: "cannot decode " + r.Header.Descr.Type, Err: err}
	}

	a := array{shape: shape, data: data}
	if len(shape) == 2 && r.Header.Descr.Fortran {
		a.data = transpose(data, shape[0], shape[1])
	}
	return a, nil
}

func readNumeric(r *npy.Reader) ([]float64, error) {
	switch r.Header.Descr.Type {
	case "<f8", "f8", "float64":
		var v []float64
		err := r.Read(&v)
		return v, err
	case "<f4", "f4", "float32":
		var v []float32
		if err := r.Read(&v); err != nil {
			return nil, err
		}
		return widen(v), nil
	case "<i8", "i8", "int64":
		var v []int64
		if err := r.Read(&v); err != nil {
			return nil, err
		}
		return widen(v), nil
	case "<i4", "i4", "int32":
		var v []int32
		if err := r.Read(&v); err != nil {
			return nil, err
		}
		return widen(v), nil
	case "<u8", "u8", "uint64":
		var v []uint64
		if err := r.Read(&v); err != nil {
			return nil, err
		}
		return widen(v), nil
	case "<u4", "u4", "uint32":
		var v []uint32
		if err := r.Read(&v); err != nil {
			return nil, err
		}
		return widen(v), nil
	}
	return nil, fmt.Errorf("unsupported dtype %q", r.Header.Descr.Type)
}

func widen[T float32 | int32 | int64 | uint32 | uint64](v []T) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// transpose converts a column-major rows×cols buffer to row-major.
func transpose(data []float64, rows, cols int) []float64 {
	out := make([]float64, len(data))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out[i*cols+j] = data[j*rows+i]
		}
	}
	return out
}
