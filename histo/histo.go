//Package histo implements histograms of per-atom values, and matrices of histograms
//with shared bins, for example one per pair of species.
package histo

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

//Uniform returns the dividers of nbins bins of equal width between min and max.
func Uniform(min, max float64, nbins int) []float64 {
	if nbins < 1 || !(max > min) {
		panic(fmt.Sprintf("atoman/histo.Uniform: can't divide [%v, %v] in %d bins", min, max, nbins))
	}
	d := make([]float64, nbins+1)
	floats.Span(d, min, max)
	return d
}

//FromValues returns a histogram of values with nbins equal bins spanning them.
//The largest value is included in the last bin.
func FromValues(values []float64, nbins int, ID ...int) *Data {
	if len(values) == 0 {
		return NewData(Uniform(0, 1, nbins), nil, ID...)
	}
	min, max := floats.Min(values), floats.Max(values)
	if max == min {
		min, max = min-0.5, max+0.5
	}
	//stretch the last divider a bit so the largest value is counted
	max = math.Nextafter(max, math.Inf(1))
	raw := append([]float64(nil), values...)
	return NewData(Uniform(min, max, nbins), raw, ID...)
}

//Matrix is a matrix of histograms sharing the same dividers, for instance one
//for each pair of species.
type Matrix struct {
	rows, cols int
	d          []*Data //row-major
	dividers   []float64
}

//NewMatrix returns an r x c matrix for histograms with the given dividers.
//The histograms are created by Fill.
func NewMatrix(r, c int, dividers []float64) *Matrix {
	if len(dividers) < 2 {
		panic("atoman/histo.NewMatrix: at least 2 dividers are needed")
	}
	return &Matrix{rows: r, cols: c, d: make([]*Data, r*c), dividers: dividers}
}

//Dims returns the number of rows and columns of the matrix.
func (M *Matrix) Dims() (int, int) {
	return M.rows, M.cols
}

//Fill puts an empty histogram in every position of the matrix, replacing
//whatever was there. The ID of each histogram is its row-major index.
func (M *Matrix) Fill() {
	for i := range M.d {
		M.d[i] = NewData(M.dividers, nil, i)
	}
}

//View returns the histogram in the r,c position in the matrix. It panics if
//the position is out of range.
func (M *Matrix) View(r, c int) *Data {
	if r < 0 || r >= M.rows || c < 0 || c >= M.cols {
		panic(fmt.Sprintf("atoman/histo.Matrix.View: position %d,%d out of range for a %dx%d matrix", r, c, M.rows, M.cols))
	}
	return M.d[M.cols*r+c]
}

//Data is a histogram.
type Data struct {
	id         int
	normalized bool
	total      int
	dividers   []float64
	histo      []float64
}

type jsonData struct {
	ID         int       `json:"id"`
	Normalized bool      `json:"normalized"`
	Total      int       `json:"total"`
	Dividers   []float64 `json:"dividers"`
	Histo      []float64 `json:"histo"`
}

func (D *Data) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonData{ID: D.id, Normalized: D.normalized, Total: D.total, Dividers: D.dividers, Histo: D.histo})
}

func (D *Data) UnmarshalJSON(b []byte) error {
	var a jsonData
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	D.id = a.ID
	D.normalized = a.Normalized
	D.total = a.Total
	D.dividers = a.Dividers
	D.histo = a.Histo
	return nil
}

//ID returns the ID of the histogram
func (D *Data) ID() int {
	return D.id
}

//String returns the ID, the dividers and the bins of the histogram, in 3 lines.
func (D *Data) String() string {
	ret := fmt.Sprintf("ID: %d, Normalized: %v, TotalData: %d\n", D.id, D.normalized, D.total)
	d := make([]string, 0, len(D.dividers)-1)
	h := make([]string, 0, len(D.dividers)-1)
	for i, v := range D.histo {
		d = append(d, fmt.Sprintf("%4.2f-%4.2f", D.dividers[i], D.dividers[i+1]))
		h = append(h, fmt.Sprintf("%9.3f", v))
	}
	return ret + fmt.Sprintf("%s\n%s", strings.Join(d, " "), strings.Join(h, " "))
}

//NewData returns a histogram with the given dividers, containing rawdata, which
//can be nil, and is sorted in place. The ID is -1 unless given.
func NewData(dividers []float64, rawdata []float64, ID ...int) *Data {
	d := new(Data)
	d.dividers = append([]float64(nil), dividers...)
	d.histo = make([]float64, len(dividers)-1)
	if rawdata != nil {
		d.ReHisto(d.dividers, rawdata)
	}
	d.id = -1
	if len(ID) > 0 {
		d.id = ID[0]
	}
	return d
}

//AddData adds points to the histogram. Points outside the dividers
//are counted in the total, but not in any bin.
func (D *Data) AddData(point ...float64) {
	norma := D.normalized
	if norma {
		D.UnNormalize()
	}
	last := len(D.dividers) - 1
	for _, v := range point {
		//first divider larger than v
		j := sort.SearchFloat64s(D.dividers, math.Nextafter(v, math.Inf(1)))
		if j > 0 && j <= last {
			D.histo[j-1]++
		}
	}
	D.total += len(point)
	if norma {
		D.Normalize()
	}
}

//Normalized returns true if the bins are fractions of the total.
func (D *Data) Normalized() bool {
	return D.normalized
}

//Normalize normalizes the histogram
func (D *Data) Normalize() {
	D.normaunnorma(true)
}

//UnNormalize un-normalizes the histogram
func (D *Data) UnNormalize() {
	D.normaunnorma(false)
}

func (D *Data) normaunnorma(normalize bool) {
	if D.total <= 0 || D.normalized == normalize {
		return
	}
	n := float64(D.total)
	D.normalized = normalize
	if normalize {
		n = 1 / float64(D.total)
	}
	floats.Scale(n, D.histo)
}

//Total returns the number of values added to the histogram.
func (D *Data) Total() int {
	return D.total
}

//CopyDividers returns a copy of the dividers, in dest[0] if given and large enough.
func (D *Data) CopyDividers(dest ...[]float64) []float64 {
	d := getCopySlice(len(D.dividers), dest...)
	return floats.ScaleTo(d, 1, D.dividers)
}

//Centers returns the middle point of each bin.
func (D *Data) Centers() []float64 {
	c := make([]float64, len(D.histo))
	for i := range c {
		c[i] = (D.dividers[i] + D.dividers[i+1]) / 2
	}
	return c
}

//Copy returns a copy of the bins, in dest[0] if given and large enough.
func (D *Data) Copy(dest ...[]float64) []float64 {
	d := getCopySlice(len(D.histo), dest...)
	return floats.ScaleTo(d, 1, D.histo)
}

//View returns the bins of the histogram. Changes to them affect the histogram.
func (D *Data) View() []float64 {
	return D.histo
}

//Add adds the histograms a and b, which must not be normalized, putting the result in the receiver.
func (D *Data) Add(a, b *Data) {
	if !floats.Equal(a.dividers, b.dividers) {
		panic("atoman/histo.Data.Add: Dividers must match in added histograms")
	}
	D.dividers = a.CopyDividers(D.dividers)
	if len(D.histo) != len(a.histo) {
		D.histo = make([]float64, len(a.histo))
	}
	floats.AddTo(D.histo, a.histo, b.histo)
	D.total = a.total + b.total
}

//Sum returns the sum of the bins.
func (D *Data) Sum() float64 {
	return floats.Sum(D.histo)
}

//ReHisto recomputes the histogram with the given dividers and data. As with AddData,
//values outside the dividers count in the total, but not in any bin.
func (D *Data) ReHisto(dividers, rawdata []float64) {
	D.total = len(rawdata)
	D.dividers = append(D.dividers[:0], dividers...)
	D.normalized = false
	if rawdata != nil {
		sort.Float64s(rawdata)
		//stat.Histogram panics instead of omitting the values that are off limits
		//so we remove them here before the call.
		maxi := sort.SearchFloat64s(rawdata, dividers[len(dividers)-1])
		mini := sort.SearchFloat64s(rawdata, dividers[0])
		rawdata = rawdata[mini:maxi]
	}
	D.histo = stat.Histogram(nil, dividers, rawdata, nil)
}

func getCopySlice(N int, dest ...[]float64) []float64 {
	if len(dest) > 0 && len(dest[0]) >= N {
		return dest[0][:N]
	}
	return make([]float64, N)
}
