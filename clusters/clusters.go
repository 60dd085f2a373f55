/*
 * clusters.go, part of atoman.
 *
 * Copyright 2024 The atoman authors
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

//Package clusters groups atoms into clusters: two atoms belong to the same cluster
//if there is a chain of atoms joining them where each step is not longer than a threshold.
package clusters

import (
	"fmt"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/cdjsvis/atoman"
	"github.com/cdjsvis/atoman/spatial"
)

//Result is the outcome of a cluster analysis.
//Labels[k] is the cluster ID of the k-th atom of the visible list given to Analyze.
//Clusters[id] contains the atom indexes of cluster id, in the order in which they
//appeared in the visible list. Cluster IDs follow the order of the first atom of each cluster.
type Result struct {
	Labels   []int
	Clusters [][]int
}

//Len returns the number of clusters.
func (R *Result) Len() int {
	return len(R.Clusters)
}

//Sizes returns the number of atoms in each cluster.
func (R *Result) Sizes() []int {
	ret := make([]int, len(R.Clusters))
	for i, c := range R.Clusters {
		ret[i] = len(c)
	}
	return ret
}

//KeepSizes returns the atoms, grouped by cluster, that belong to clusters with at least
//min atoms and, if max is positive, at most max atoms, along with the IDs of the kept clusters.
func (R *Result) KeepSizes(min, max int) (atoms []int, kept []int) {
	ok := make([]bool, len(R.Clusters))
	for id, c := range R.Clusters {
		if len(c) >= min && (max <= 0 || len(c) <= max) {
			ok[id] = true
			kept = append(kept, id)
		}
	}
	for id, c := range R.Clusters {
		if ok[id] {
			atoms = append(atoms, c...)
		}
	}
	return atoms, kept
}

//Analyze finds the clusters formed by the atoms in visible, whose positions are in the flat
//slice pos, with neighbouring atoms not further than threshold apart. Distances use the
//minimum image convention along periodic axes when usePBC is true.
func Analyze(pos []float64, visible []int, cell atoman.Cell, threshold float64, usePBC bool) (*Result, error) {
	if !(threshold > 0) {
		return nil, atoman.NewError(fmt.Sprintf("cluster distance threshold must be positive (%v)", threshold), "clusters.Analyze", false)
	}
	R := &Result{Labels: make([]int, len(visible))}
	if len(visible) == 0 {
		return R, nil
	}
	idx, err := spatial.New(pos, visible, cell, threshold)
	if err != nil {
		return nil, atoman.Decorate(err, "clusters.Analyze")
	}
	//graph nodes are positions in the visible list.
	where := make(map[int]int, len(visible))
	for k, a := range visible {
		where[a] = k
	}
	g := simple.NewUndirectedGraph()
	for k := range visible {
		g.AddNode(simple.Node(k))
	}
	for k, a := range visible {
		p := [3]float64{pos[3*a], pos[3*a+1], pos[3*a+2]}
		nb, err := idx.Within(p, threshold, usePBC)
		if err != nil {
			return nil, atoman.Decorate(err, "clusters.Analyze")
		}
		for _, b := range nb {
			l := where[b]
			if l > k {
				g.SetEdge(g.NewEdge(simple.Node(k), simple.Node(l)))
			}
		}
	}
	comps := topo.ConnectedComponents(g)
	compOf := make([]int, len(visible))
	for c, nodes := range comps {
		for _, n := range nodes {
			compOf[n.ID()] = c
		}
	}
	newID := make([]int, len(comps))
	for i := range newID {
		newID[i] = -1
	}
	for k, a := range visible {
		c := compOf[k]
		if newID[c] < 0 {
			newID[c] = len(R.Clusters)
			R.Clusters = append(R.Clusters, nil)
		}
		id := newID[c]
		R.Labels[k] = id
		R.Clusters[id] = append(R.Clusters[id], a)
	}
	return R, nil
}

//Centre returns the geometric centre of the atoms, with positions in pos, unwrapped with the
//minimum image convention with respect to the first atom when usePBC is true.
func Centre(pos []float64, atoms []int, cell atoman.Cell, usePBC bool) [3]float64 {
	var c [3]float64
	if len(atoms) == 0 {
		return c
	}
	first := [3]float64{pos[3*atoms[0]], pos[3*atoms[0]+1], pos[3*atoms[0]+2]}
	for _, a := range atoms {
		d := cell.Delta(first, [3]float64{pos[3*a], pos[3*a+1], pos[3*a+2]}, usePBC)
		for j := 0; j < 3; j++ {
			c[j] += d[j]
		}
	}
	for j := 0; j < 3; j++ {
		c[j] = first[j] + c[j]/float64(len(atoms))
	}
	return cell.Wrap(c)
}
