package v3

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestNewMatrixAliases(Te *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6}
	A, err := NewMatrix(data)
	if err != nil {
		Te.Fatal(err)
	}
	if A.NVecs() != 2 {
		Te.Errorf("expected 2 vectors, got %d", A.NVecs())
	}
	A.SetVec(1, [3]float64{7, 8, 9})
	if data[3] != 7 || data[5] != 9 {
		Te.Errorf("matrix does not alias its data: %v", data)
	}
	if _, err := NewMatrix([]float64{1, 2}); err == nil {
		Te.Error("expected an error for a slice with a length not divisible by 3")
	}
}

func TestVecOps(Te *testing.T) {
	A, _ := NewMatrix([]float64{0, 0, 0, 2, 2, 2, 4, 4, 4})
	B := Zeros(3)
	B.AddVec(A, [3]float64{1, 1, 1})
	if B.Vec(2) != [3]float64{5, 5, 5} {
		Te.Errorf("AddVec failed: %v", B)
	}
	B.SubVec(B, [3]float64{1, 1, 1})
	if !mat.Equal(A, B) {
		Te.Errorf("SubVec failed: %v", B)
	}
	C := Zeros(2)
	C.SomeVecs(A, []int{2, 0})
	if C.Vec(0) != [3]float64{4, 4, 4} || C.Vec(1) != [3]float64{} {
		Te.Errorf("SomeVecs failed: %v", C)
	}
	m := A.ColMeans(nil)
	if m != [3]float64{2, 2, 2} {
		Te.Errorf("ColMeans failed: %v", m)
	}
	min, max := A.Bounds()
	if min[0] != 0 || max[2] != 4 {
		Te.Errorf("Bounds failed: %v %v", min, max)
	}
	n := A.Norms()
	if math.Abs(n[1]-math.Sqrt(12)) > 1e-12 {
		Te.Errorf("Norms failed: %v", n)
	}
	v := A.VecView(1)
	v.Set(0, 0, -1)
	if A.At(1, 0) != -1 {
		Te.Error("VecView is not a view")
	}
}
