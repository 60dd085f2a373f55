package filtering

import (
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/cdjsvis/atoman"
)

//lattice returns a lattice with atoms of the given species at the given positions.
func lattice(cell atoman.Cell, symbols []string, pos [][3]float64) *atoman.Lattice {
	L := atoman.NewLattice(cell)
	for i, p := range pos {
		L.AddAtom(symbols[i%len(symbols)], p, 0, -1, nil, nil)
	}
	return L
}

//crystal returns the positions of n x n x n unit cells with lattice constant a and the given basis.
func crystal(n int, a float64, basis [][3]float64) [][3]float64 {
	var pos [][3]float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				for _, b := range basis {
					pos = append(pos, [3]float64{(float64(i) + b[0]) * a, (float64(j) + b[1]) * a, (float64(k) + b[2]) * a})
				}
			}
		}
	}
	return pos
}

func TestCropBox(Te *testing.T) {
	L := lattice(atoman.NewCell(20, 20, 20), []string{"Fe"}, [][3]float64{{1, 1, 1}, {6, 6, 6}, {5, 5, 5}})
	P := New("crop", nil, L)
	S := DefaultCropBoxSettings()
	S.Max = [3]float64{5, 5, 5}
	if err := P.AddStage(S); err != nil {
		Te.Fatal(err)
	}
	R, err := P.Apply()
	if err != nil {
		Te.Fatal(err)
	}
	if !slices.Equal(R.Visible, []int{0, 2}) {
		Te.Errorf("expected atoms 0 and 2 to be visible, got %v", R.Visible)
	}
	if R.VisibleSpecieCount[0] != 2 {
		Te.Errorf("expected 2 visible Fe atoms, got %v", R.VisibleSpecieCount)
	}
	S.Invert = true
	R, err = P.Apply()
	if err != nil {
		Te.Fatal(err)
	}
	if !slices.Equal(R.Visible, []int{1}) {
		Te.Errorf("expected only atom 1 with the inverted box, got %v", R.Visible)
	}
}

func TestCompatibility(Te *testing.T) {
	L := lattice(atoman.NewCell(10, 10, 10), []string{"Fe"}, [][3]float64{{1, 1, 1}, {3, 3, 3}})
	P := New("compat", L, L)
	var fce *atoman.FilterCompatibilityError
	if err := P.AddStage(DefaultSpeciesSettings()); err != nil {
		Te.Fatal(err)
	}
	if err := P.AddStage(DefaultPointDefectsSettings()); !errors.As(err, &fce) {
		Te.Fatalf("Point defects can only be the first filter, got %v", err)
	}
	if fce.Conflict != Species.String() {
		Te.Errorf("expected the conflict to be %q, got %q", Species, fce.Conflict)
	}
	P.Clear()
	if err := P.AddStage(DefaultPointDefectsSettings()); err != nil {
		Te.Fatal(err)
	}
	if err := P.AddStage(DefaultCropBoxSettings()); err != nil {
		Te.Errorf("Crop box should be compatible with Point defects: %v", err)
	}
	if err := P.AddStage(DefaultSliceSettings()); err != nil {
		Te.Errorf("Slice should be compatible with Point defects: %v", err)
	}
	for _, s := range []Settings{DefaultSpeciesSettings(), DefaultClusterSettings(), DefaultCropSphereSettings()} {
		if err := P.AddStage(s); !errors.As(err, &fce) {
			Te.Errorf("%v should not be compatible with Point defects, got %v", s.Kind(), err)
		}
	}
	if err := P.MoveStage(0, 2); !errors.As(err, &fce) {
		Te.Errorf("Point defects can't be moved from the first position, got %v", err)
	}
	if err := P.MoveStage(2, 1); err != nil {
		Te.Errorf("reordering the crop stages should work: %v", err)
	}
	if k := P.Stages()[1].Kind(); k != Slice {
		Te.Errorf("expected Slice in position 1, got %v", k)
	}
}

func TestDisplacementMismatch(Te *testing.T) {
	cell := atoman.NewCell(10, 10, 10)
	ref := lattice(cell, []string{"Fe"}, [][3]float64{{1, 1, 1}, {3, 3, 3}, {5, 5, 5}})
	input := lattice(cell, []string{"Fe"}, [][3]float64{{1, 1, 1}, {3, 3, 3}})
	P := New("disp", ref, input)
	var acm *atoman.AtomCountMismatchError
	if err := P.AddStage(DefaultDisplacementSettings()); !errors.As(err, &acm) {
		Te.Fatalf("expected an AtomCountMismatchError, got %v", err)
	}
	if acm.Input != 2 || acm.RefLen != 3 {
		Te.Errorf("wrong counts in error: %d %d", acm.Input, acm.RefLen)
	}
	//the stage itself refuses to run, too.
	st, err := DefaultRegistry().Build(DefaultDisplacementSettings())
	if err != nil {
		Te.Fatal(err)
	}
	if _, err := st.Apply(&Input{Lattice: input, Ref: ref, Visible: []int{0, 1}}); !errors.As(err, &acm) {
		Te.Errorf("expected an AtomCountMismatchError from Apply, got %v", err)
	}
}

func bccIron() *atoman.Lattice {
	const a = 2.87
	return lattice(atoman.NewCell(4*a, 4*a, 4*a), []string{"Fe", "Cr"}, crystal(4, a, [][3]float64{{0, 0, 0}, {0.5, 0.5, 0.5}}))
}

func TestIdempotent(Te *testing.T) {
	L := bccIron()
	P := New("idem", nil, L)
	sp := DefaultSpeciesSettings()
	sp.Visible = []string{"Fe"}
	cn := DefaultCoordinationNumberSettings()
	cn.FilteringEnabled = true
	cn.Min, cn.Max = 0, 100
	cl := DefaultClusterSettings()
	cl.NeighbourRadius = 3
	cl.MinClusterSize = 1
	for _, s := range []Settings{sp, cn, cl} {
		if err := P.AddStage(s); err != nil {
			Te.Fatal(err)
		}
	}
	R1, err := P.Apply()
	if err != nil {
		Te.Fatal(err)
	}
	R2, err := P.Apply()
	if err != nil {
		Te.Fatal(err)
	}
	if len(R1.Visible) != 64 {
		Te.Errorf("expected the 64 Fe atoms to be visible, got %d", len(R1.Visible))
	}
	if !slices.Equal(R1.Visible, R2.Visible) || !slices.Equal(R1.VisibleSpecieCount, R2.VisibleSpecieCount) {
		Te.Errorf("results differ between runs: %v %v", R1.VisibleSpecieCount, R2.VisibleSpecieCount)
	}
	if len(R1.Clusters) != 1 || len(R2.Clusters) != 1 {
		Te.Errorf("expected a single cluster, got %d and %d", len(R1.Clusters), len(R2.Clusters))
	}
	if R1.Pipeline != P.ID {
		Te.Errorf("the result doesn't carry the pipeline ID")
	}
}

func TestStatic(Te *testing.T) {
	L := bccIron()
	P := New("static", nil, L)
	if err := P.AddStage(DefaultChargeSettings()); err != nil {
		Te.Fatal(err)
	}
	P.Static(true)
	if err := P.AddStage(DefaultSpeciesSettings()); err == nil {
		Te.Errorf("static pipelines must refuse new stages")
	}
	if err := P.RemoveStage(0); err == nil {
		Te.Errorf("static pipelines must refuse removing stages")
	}
	if err := P.MoveStage(0, 0); err == nil {
		Te.Errorf("static pipelines must refuse reordering stages")
	}
	if err := P.Clear(); err == nil {
		Te.Errorf("static pipelines must refuse to be cleared")
	}
	if len(P.Stages()) != 1 {
		Te.Errorf("the stages of a static pipeline changed")
	}
	if _, err := P.Apply(); err != nil {
		Te.Errorf("static pipelines can still be applied: %v", err)
	}
	P.SetLattices(nil, bccIron())
	if len(P.Stages()) != 1 {
		Te.Errorf("static pipelines keep their stages with new lattices")
	}
	P.Static(false)
	P.SetLattices(nil, bccIron())
	if len(P.Stages()) != 0 {
		Te.Errorf("non persistent pipelines drop their stages with new lattices")
	}
}

func TestStageIndexOutOfRange(Te *testing.T) {
	P := New("indexes", nil, bccIron())
	if err := P.AddStage(DefaultChargeSettings()); err != nil {
		Te.Fatal(err)
	}
	if err := P.AddStage(DefaultSpeciesSettings()); err != nil {
		Te.Fatal(err)
	}
	for _, i := range []int{-1, 2, 10} {
		if err := P.RemoveStage(i); err == nil {
			Te.Errorf("removing stage %d of 2 should fail", i)
		}
		if err := P.MoveStage(i, 0); err == nil {
			Te.Errorf("moving stage %d of 2 should fail", i)
		}
		if err := P.MoveStage(0, i); err == nil {
			Te.Errorf("moving a stage to position %d of 2 should fail", i)
		}
	}
	st := P.Stages()
	if len(st) != 2 || st[0].Kind() != Charge || st[1].Kind() != Species {
		Te.Errorf("failed calls changed the stages: %v", st)
	}
	if err := P.RemoveStage(1); err != nil || len(P.Stages()) != 1 {
		Te.Errorf("can't remove the last stage: %v", err)
	}
}

func TestFailedStageKeepsResult(Te *testing.T) {
	L := bccIron()
	P := New("fail", nil, L)
	sp := DefaultSpeciesSettings()
	sp.Visible = []string{"Cr"}
	if err := P.AddStage(sp); err != nil {
		Te.Fatal(err)
	}
	R1, err := P.Apply()
	if err != nil {
		Te.Fatal(err)
	}
	sc := DefaultScalarRangeSettings()
	sc.Name = "does not exist"
	if err := P.AddStage(sc); err != nil {
		Te.Fatal(err)
	}
	_, err = P.Apply()
	var see *atoman.StageExecutionError
	if !errors.As(err, &see) {
		Te.Fatalf("expected a StageExecutionError, got %v", err)
	}
	if see.Index != 1 || see.Stage != ScalarRange.String() {
		Te.Errorf("wrong stage in the error: %d %s", see.Index, see.Stage)
	}
	if P.Result() != R1 {
		Te.Errorf("the previous result should be kept after a failure")
	}
	if len(P.Result().Visible) != 64 {
		Te.Errorf("expected 64 Cr atoms in the kept result, got %d", len(P.Result().Visible))
	}
}

type testRecorder struct {
	mu     sync.Mutex
	runs   int
	stages int
	errs   int
}

func (T *testRecorder) ObserveStage(pipeline, stage string, d time.Duration, visible int, err error) {
	T.mu.Lock()
	defer T.mu.Unlock()
	T.stages++
}

func (T *testRecorder) ObserveRun(pipeline string, d time.Duration, visible int, err error) {
	T.mu.Lock()
	defer T.mu.Unlock()
	T.runs++
	if err != nil {
		T.errs++
	}
}

func TestApplyAll(Te *testing.T) {
	L := bccIron()
	rec := &testRecorder{}
	o := DefaultOptions()
	o.Recorder(rec)
	o.Cpus(2)
	var pipelines []*Pipeline
	for _, sym := range []string{"Fe", "Cr", "Ni"} {
		P := New(sym, nil, L, o)
		sp := DefaultSpeciesSettings()
		sp.Visible = []string{sym}
		if err := P.AddStage(sp); err != nil {
			Te.Fatal(err)
		}
		pipelines = append(pipelines, P)
	}
	res, err := ApplyAll(pipelines, 2)
	if err != nil {
		Te.Fatal(err)
	}
	for i, n := range []int{64, 64, 0} {
		if len(res[i].Visible) != n {
			Te.Errorf("pipeline %d: expected %d visible atoms, got %d", i, n, len(res[i].Visible))
		}
	}
	if rec.runs != 3 || rec.stages != 3 || rec.errs != 0 {
		Te.Errorf("unexpected records: %+v", rec)
	}
	//concurrent calls on the same pipeline are fine, and give the same result.
	var wg sync.WaitGroup
	results := make([]*Result, 4)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = pipelines[0].Apply()
		}()
	}
	wg.Wait()
	for _, r := range results {
		if r == nil || !slices.Equal(r.Visible, res[0].Visible) {
			Te.Errorf("concurrent runs gave a different result")
		}
	}
}

func TestDecodeSettings(Te *testing.T) {
	S, err := DecodeSettings(CoordinationNumber, []byte(`{"minCoordNum": 2, "maxCoordNum": 8, "filteringEnabled": true}`))
	if err != nil {
		Te.Fatal(err)
	}
	cn := S.(*CoordinationNumberSettings)
	if cn.Min != 2 || cn.Max != 8 || !cn.FilteringEnabled {
		Te.Errorf("wrong settings decoded: %+v", cn)
	}
	var ise *atoman.InvalidSettingsError
	if _, err := DecodeSettings(CoordinationNumber, []byte(`{"minCoordNum": 3, "maxCoordNum": 2}`)); !errors.As(err, &ise) {
		Te.Errorf("max < min should be invalid, got %v", err)
	}
	if _, err := DecodeSettings(CropSphere, []byte(`{"radius": -1}`)); !errors.As(err, &ise) {
		Te.Errorf("negative radius should be invalid, got %v", err)
	}
	if _, err := DecodeSettings(Slice, []byte(`{"nromal": [0, 0, 1]}`)); !errors.As(err, &ise) {
		Te.Errorf("unknown options should be rejected, got %v", err)
	}
	if _, err := DecodeSettings(AtomID, []byte(`{"filterString": "1-3, 7, 9-x"}`)); !errors.As(err, &ise) {
		Te.Errorf("malformed ID lists should be rejected, got %v", err)
	}
	for _, min := range []int{0, -2} {
		pd := DefaultPointDefectsSettings()
		pd.FindClusters = true
		pd.MinClusterSize = min
		if err := pd.Validate(); !errors.As(err, &ise) || ise.Option != "minClusterSize" {
			Te.Errorf("a minimum cluster size of %d should be invalid, got %v", min, err)
		}
		pd.FindClusters = false
		if err := pd.Validate(); err != nil {
			Te.Errorf("the cluster sizes only matter when clusters are searched: %v", err)
		}
	}
	for _, k := range Kinds() {
		S, err := DefaultSettings(k)
		if err != nil {
			Te.Fatal(err)
		}
		if S.Kind() != k {
			Te.Errorf("default settings for %v have kind %v", k, S.Kind())
		}
		if k == ScalarRange {
			continue //it needs a scalar name
		}
		if err := S.Validate(); err != nil {
			Te.Errorf("default settings for %v are invalid: %v", k, err)
		}
		if pk, err := ParseKind(k.String()); err != nil || pk != k {
			Te.Errorf("can't parse kind %v", k)
		}
	}
}
