package histo

import (
	"encoding/json"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestHistoIO(Te *testing.T) {
	M := NewMatrix(3, 3, []float64{0, 1, 2, 3, 4, 8})
	M.Fill()
	rawdata := []float64{1, 6, 3, 2, 4, 5, 7, 6, 3.5, 3, 5, 1, 1, 0, 0, 5, 8, 1, 2, 3, 44, 3, 7, 3, 1, 3, 5, 32, 1}
	v := M.View(0, 1)
	v.AddData(rawdata...)
	if !floats.Equal(v.View(), []float64{2, 6, 2, 7, 9}) {
		Te.Errorf("wrong histogram %v", v)
	}
	if v.ID() != 1 || v.Total() != len(rawdata) {
		Te.Errorf("wrong ID or total: %d %d", v.ID(), v.Total())
	}
	j, err := json.Marshal(v)
	if err != nil {
		Te.Fatal(err)
	}
	v2 := new(Data)
	if err := json.Unmarshal(j, v2); err != nil {
		Te.Fatal(err)
	}
	if !floats.Equal(v2.View(), v.View()) || v2.Total() != v.Total() {
		Te.Errorf("histogram changed in JSON round trip: %v", v2)
	}
	N := NewData(M.View(0, 0).CopyDividers(), rawdata)
	if !floats.Equal(N.View(), v.View()) || N.Total() != v.Total() {
		Te.Errorf("NewData and AddData disagree: %v %v", N, v)
	}
}

func TestAddDataAndNormalize(Te *testing.T) {
	D := NewData(Uniform(0, 4, 4), nil)
	D.AddData(0, 0.5, 1, 3.99, 4, -1)
	if !floats.Equal(D.View(), []float64{2, 1, 0, 1}) {
		Te.Errorf("wrong bins %v", D.View())
	}
	if D.Total() != 6 {
		Te.Errorf("wrong total %d", D.Total())
	}
	D.Normalize()
	D.Normalize()
	if v := D.View()[0]; v != 2.0/6 {
		Te.Errorf("wrong normalized value %v", v)
	}
	F := FromValues([]float64{1, 2, 3}, 2)
	if F.Sum() != 3 {
		Te.Errorf("largest value not counted: %v", F)
	}
	if c := F.Centers(); c[0] >= c[1] {
		Te.Errorf("wrong centers %v", c)
	}
}
