//Package report exports the result of a filter pipeline as JSON, optionally compressed
//with zstd or gzip depending on the file name.
package report

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strings"

	"github.com/klauspost/compress/zstd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/cdjsvis/atoman"
	"github.com/cdjsvis/atoman/filtering"
	"github.com/cdjsvis/atoman/histo"
)

//Stage is one stage of the pipeline, with its settings.
type Stage struct {
	Kind     string          `json:"kind"`
	Settings json.RawMessage `json:"settings"`
}

//Field summarises a scalar field over the visible atoms.
type Field struct {
	Name      string      `json:"name"`
	N         int         `json:"n"`
	Mean      float64     `json:"mean"`
	StdDev    float64     `json:"stdDev"`
	Min       float64     `json:"min"`
	Max       float64     `json:"max"`
	Histogram *histo.Data `json:"histogram,omitempty"`
}

//Defect is one point defect. Ref and Input are -1 when not applicable.
type Defect struct {
	Kind   string `json:"kind"`
	Ref    int    `json:"ref"`
	Input  int    `json:"input"`
	Input2 int    `json:"input2"`
}

//Defects contains the point defects found and their counts by species.
type Defects struct {
	Vacancies     map[string]int            `json:"vacancies"`
	Interstitials map[string]int            `json:"interstitials"`
	Antisites     map[string]map[string]int `json:"antisites"`
	Splits        map[string]int            `json:"splitInterstitials"`
	Clusters      int                       `json:"clusters"`
	Records       []Defect                  `json:"records"`
}

//Report is the exported form of a pipeline result.
type Report struct {
	Pipeline        string                    `json:"pipeline"`
	ID              string                    `json:"id"`
	Stages          []Stage                   `json:"stages"`
	NAtoms          int                       `json:"nAtoms"`
	Visible         []int                     `json:"visible"`
	Species         map[string]int            `json:"visibleSpecies"`
	Fields          []Field                   `json:"fields,omitempty"`
	Defects         *Defects                  `json:"defects,omitempty"`
	Clusters        [][]int                   `json:"clusters,omitempty"`
	StructureCounts map[string]map[string]int `json:"structureCounts,omitempty"`
	Drift           [3]float64                `json:"drift"`
}

//New builds the report for the last result of P. If bins is positive, each field
//summary includes a histogram with that many bins.
func New(P *filtering.Pipeline, bins int) (*Report, error) {
	R := P.Result()
	if R == nil {
		return nil, atoman.NewError(fmt.Sprintf("pipeline %q has not been applied", P.Name), "report.New", false)
	}
	ref, input := P.Lattices()
	rep := &Report{
		Pipeline:        P.Name,
		ID:              P.ID.String(),
		NAtoms:          input.NAtoms,
		Visible:         R.Visible,
		Species:         make(map[string]int),
		Clusters:        R.Clusters,
		StructureCounts: R.StructureCounts,
		Drift:           R.Drift,
	}
	for _, s := range P.Stages() {
		b, err := json.Marshal(s)
		if err != nil {
			return nil, atoman.NewError("can't encode settings: "+err.Error(), "report.New", false)
		}
		rep.Stages = append(rep.Stages, Stage{Kind: s.Kind().String(), Settings: b})
	}
	for i, n := range R.VisibleSpecieCount {
		rep.Species[input.SpecieInfo(i).Symbol] = n
	}
	names := make([]string, 0, len(R.Scalars))
	for k := range R.Scalars {
		names = append(names, k)
	}
	slices.Sort(names)
	for _, k := range names {
		if f, ok := summary(k, R.Scalars[k], R.Visible, bins); ok {
			rep.Fields = append(rep.Fields, f)
		}
	}
	if R.Defects != nil {
		rep.Defects = defectReport(R, ref, input)
	}
	return rep, nil
}

//summary returns the statistics of the non-NaN values of field for the visible atoms.
func summary(name string, field []float64, visible []int, bins int) (Field, bool) {
	vals := make([]float64, 0, len(visible))
	for _, i := range visible {
		if !math.IsNaN(field[i]) {
			vals = append(vals, field[i])
		}
	}
	if len(vals) == 0 {
		return Field{}, false
	}
	f := Field{Name: name, N: len(vals), Min: floats.Min(vals), Max: floats.Max(vals)}
	f.Mean, f.StdDev = stat.MeanStdDev(vals, nil)
	if len(vals) == 1 {
		f.StdDev = 0
	}
	if bins > 0 {
		f.Histogram = histo.FromValues(vals, bins)
	}
	return f, true
}

func defectReport(R *filtering.Result, ref, input *atoman.Lattice) *Defects {
	D := R.Defects
	ret := &Defects{
		Vacancies:     make(map[string]int),
		Interstitials: make(map[string]int),
		Antisites:     make(map[string]map[string]int),
		Splits:        make(map[string]int),
		Clusters:      len(D.Clusters),
	}
	for i, n := range D.VacancyCount {
		ret.Vacancies[ref.SpecieInfo(i).Symbol] = n
	}
	for i, n := range D.InterstitialCount {
		ret.Interstitials[input.SpecieInfo(i).Symbol] = n
	}
	for i, row := range D.AntisiteCount {
		m := make(map[string]int)
		for j, n := range row {
			if n > 0 {
				m[input.SpecieInfo(j).Symbol] = n
			}
		}
		ret.Antisites[ref.SpecieInfo(i).Symbol] = m
	}
	for i, row := range D.SplitCount {
		for j, n := range row {
			if n > 0 {
				ret.Splits[input.SpecieInfo(i).Symbol+"-"+input.SpecieInfo(j).Symbol] += n
			}
		}
	}
	for _, r := range D.Records() {
		ret.Records = append(ret.Records, Defect{Kind: r.Kind.String(), Ref: r.Ref, Input: r.Input, Input2: r.Input2})
	}
	return ret
}

//Write writes the report as indented JSON to w.
func Write(w io.Writer, rep *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return atoman.NewError("can't write report: "+err.Error(), "report.Write", false)
	}
	return nil
}

//WriteFile writes the report to the file name. Files ending in ".zst" are compressed with zstd
//and those ending in ".gz" with gzip.
func WriteFile(name string, rep *Report) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return atoman.NewError(err.Error(), "report.WriteFile", false)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = atoman.NewError(cerr.Error(), "report.WriteFile", false)
		}
	}()
	var w io.WriteCloser
	switch {
	case strings.HasSuffix(name, ".zst"):
		w, err = zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	case strings.HasSuffix(name, ".gz"):
		w = gzip.NewWriter(f)
	default:
		b := bufio.NewWriter(f)
		w = nopCloser{b}
	}
	if err != nil {
		return atoman.NewError(err.Error(), "report.WriteFile", false)
	}
	if err := Write(w, rep); err != nil {
		w.Close()
		return atoman.Decorate(err, "report.WriteFile")
	}
	if err := w.Close(); err != nil {
		return atoman.NewError(err.Error(), "report.WriteFile", false)
	}
	return nil
}

type nopCloser struct{ *bufio.Writer }

func (n nopCloser) Close() error { return n.Flush() }

//zstd's decoder Close doesn't return an error.
type zstdCloser struct{ *zstd.Decoder }

func (z zstdCloser) Close() error {
	z.Decoder.Close()
	return nil
}

//ReadFile reads a report written by WriteFile.
func ReadFile(name string) (*Report, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, atoman.NewError(err.Error(), "report.ReadFile", false)
	}
	defer f.Close()
	var r io.ReadCloser
	switch {
	case strings.HasSuffix(name, ".zst"):
		var d *zstd.Decoder
		d, err = zstd.NewReader(bufio.NewReader(f))
		r = zstdCloser{d}
	case strings.HasSuffix(name, ".gz"):
		r, err = gzip.NewReader(bufio.NewReader(f))
	default:
		r = io.NopCloser(bufio.NewReader(f))
	}
	if err != nil {
		return nil, atoman.NewError(err.Error(), "report.ReadFile", false)
	}
	defer r.Close()
	rep := new(Report)
	if err := json.NewDecoder(r).Decode(rep); err != nil {
		return nil, atoman.NewError("can't read report: "+err.Error(), "report.ReadFile", false)
	}
	return rep, nil
}
