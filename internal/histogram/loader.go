// Package histogram loads one station-day of detector data from the NumPy
// archive: the coarse count histogram and the two raw pulse capture files.
//
// Archive layout, per station and day:
//
//	<base>/<station>/<MM_YYYY>/hist_<DD>.npy   coarse histogram, shape [N,2] (timestamp, count)
//	<base>/<station>/<MM_YYYY>/dev1_<DD>.npy   raw channels, shape [C,M], C >= channels
//	<base>/<station>/<MM_YYYY>/dev2_<DD>.npy   raw channels, shape [C,M], C >= channels
//
// The archive is read-only; nothing here writes to it.
package histogram

import (
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/rewired-gh/tetrascan/internal/days"
	"github.com/rewired-gh/tetrascan/internal/models"
)

// DefaultRawChannels is the number of channel rows taken from each raw file.
const DefaultRawChannels = 3

// DayPaths are the archive files for one station-day.
type DayPaths struct {
	Dir  string
	Hist string
	Dev1 string
	Dev2 string
}

// Paths resolves the archive files of a station-day.
func Paths(basePath, stationID string, day time.Time) DayPaths {
	dir := filepath.Join(basePath, stationID, days.FolderName(day))
	suffix := days.FileSuffix(day) + ".npy"
	return DayPaths{
		Dir:  dir,
		Hist: filepath.Join(dir, "hist_"+suffix),
		Dev1: filepath.Join(dir, "dev1_"+suffix),
		Dev2: filepath.Join(dir, "dev2_"+suffix),
	}
}

// Loader reads station-day data. Implementations must be safe to use from
// one goroutine per station.
type Loader interface {
	LoadDay(stationID string, day time.Time) (models.DaySeries, error)
	LoadRaw(stationID string, day time.Time) (models.RawEventStream, error)
}

// FileLoader reads the NumPy archive under BasePath.
type FileLoader struct {
	BasePath string
	Channels int
}

// NewFileLoader creates a FileLoader. Non-positive channels fall back to
// DefaultRawChannels.
func NewFileLoader(basePath string, channels int) *FileLoader {
	if channels <= 0 {
		channels = DefaultRawChannels
	}
	return &FileLoader{BasePath: basePath, Channels: channels}
}

// LoadDay reads the coarse histogram of a station-day.
func (l *FileLoader) LoadDay(stationID string, day time.Time) (models.DaySeries, error) {
	return LoadHist(Paths(l.BasePath, stationID, day).Hist)
}

// LoadRaw reads and merges both raw capture files of a station-day.
func (l *FileLoader) LoadRaw(stationID string, day time.Time) (models.RawEventStream, error) {
	p := Paths(l.BasePath, stationID, day)
	return LoadRaw([]string{p.Dev1, p.Dev2}, l.Channels)
}

// LoadHist decodes a coarse histogram file.
func LoadHist(path string) (models.DaySeries, error) {
	a, err := readArray(path)
	if err != nil {
		return models.DaySeries{}, err
	}
	if a.rows() == 0 || len(a.data) == 0 {
		return models.DaySeries{}, &EmptyDataError{Path: path}
	}
	if len(a.shape) != 2 || a.cols() < 2 {
		return models.DaySeries{}, &MalformedDataError{
			Path:   path,
			Reason: fmt.Sprintf("expected shape [N,2], got %v", a.shape),
		}
	}

	// Counts are taken first; timestamps are then compacted in place over
	// the decoded buffer so no second N-sized float64 slice is allocated.
	n, cols := a.rows(), a.cols()
	counts := make([]int64, n)
	for i := 0; i < n; i++ {
		c := a.data[i*cols+1]
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return models.DaySeries{}, &MalformedDataError{Path: path, Reason: fmt.Sprintf("non-finite count in row %d", i)}
		}
		counts[i] = int64(math.Round(c))
	}
	stamps := a.data
	for i := 0; i < n; i++ {
		stamps[i] = stamps[i*cols]
	}
	series := models.DaySeries{
		Timestamps: stamps[:n:n],
		Counts:     counts,
	}
	if err := series.Validate(); err != nil {
		return models.DaySeries{}, &MalformedDataError{Path: path, Reason: "invalid histogram", Err: err}
	}
	return series, nil
}

// LoadRaw decodes raw capture files and concatenates the first channels rows
// of each, in file order. The result is not sorted.
func LoadRaw(paths []string, channels int) (models.RawEventStream, error) {
	if channels <= 0 {
		channels = DefaultRawChannels
	}
	var stamps []float64
	for _, path := range paths {
		a, err := readArray(path)
		if err != nil {
			return models.RawEventStream{}, err
		}
		if len(a.shape) != 2 || a.rows() < channels {
			return models.RawEventStream{}, &MalformedDataError{
				Path:   path,
				Reason: fmt.Sprintf("expected at least %d channel rows, got shape %v", channels, a.shape),
			}
		}
		for ch := 0; ch < channels; ch++ {
			stamps = append(stamps, a.row(ch)...)
		}
	}
	if stamps == nil {
		stamps = []float64{}
	}
	return models.RawEventStream{Timestamps: stamps}, nil
}
