/*
 * polyhedron.go, part of atoman.
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

package voro

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

//Face ids for faces that don't come from a neighbouring atom.
const (
	wallFace = -1 //a wall of the cell, along a non-periodic axis
	boxFace  = -2 //the limit of the search region
)

const eps = 1e-10

//face is a convex polygon, part of the plane n·x = d, with n a unit vector.
//Its vertices are relative to the atom owning the polyhedron.
type face struct {
	id    int
	n     r3.Vec
	d     float64
	verts []r3.Vec
}

func (f *face) area() float64 {
	var s r3.Vec
	for k := range f.verts {
		s = r3.Add(s, r3.Cross(f.verts[k], f.verts[(k+1)%len(f.verts)]))
	}
	return r3.Norm(s) / 2
}

//polyhedron is a convex polyhedron containing the origin.
type polyhedron struct {
	faces []*face
}

//newBox returns the box going from lo to hi, which must contain the origin.
//ids gives the face id for the lower and upper face along each axis.
func newBox(lo, hi r3.Vec, ids [3][2]int) *polyhedron {
	v := func(x, y, z bool) r3.Vec {
		p := lo
		if x {
			p.X = hi.X
		}
		if y {
			p.Y = hi.Y
		}
		if z {
			p.Z = hi.Z
		}
		return p
	}
	f, t := false, true
	return &polyhedron{faces: []*face{
		{id: ids[0][0], n: r3.Vec{X: -1}, d: -lo.X, verts: []r3.Vec{v(f, f, f), v(f, f, t), v(f, t, t), v(f, t, f)}},
		{id: ids[0][1], n: r3.Vec{X: 1}, d: hi.X, verts: []r3.Vec{v(t, f, f), v(t, t, f), v(t, t, t), v(t, f, t)}},
		{id: ids[1][0], n: r3.Vec{Y: -1}, d: -lo.Y, verts: []r3.Vec{v(f, f, f), v(t, f, f), v(t, f, t), v(f, f, t)}},
		{id: ids[1][1], n: r3.Vec{Y: 1}, d: hi.Y, verts: []r3.Vec{v(f, t, f), v(f, t, t), v(t, t, t), v(t, t, f)}},
		{id: ids[2][0], n: r3.Vec{Z: -1}, d: -lo.Z, verts: []r3.Vec{v(f, f, f), v(f, t, f), v(t, t, f), v(t, f, f)}},
		{id: ids[2][1], n: r3.Vec{Z: 1}, d: hi.Z, verts: []r3.Vec{v(f, f, t), v(t, f, t), v(t, t, t), v(f, t, t)}},
	}}
}

//clip keeps the part of the polyhedron where n·x <= d, adding the new face with the given id.
func (P *polyhedron) clip(n r3.Vec, d float64, id int) {
	outside := false
	for _, f := range P.faces {
		for _, v := range f.verts {
			if r3.Dot(n, v)-d > eps {
				outside = true
				break
			}
		}
		if outside {
			break
		}
	}
	if !outside {
		return
	}
	var cut []r3.Vec
	faces := P.faces[:0]
	for _, f := range P.faces {
		var kept []r3.Vec
		for k, a := range f.verts {
			b := f.verts[(k+1)%len(f.verts)]
			da, db := r3.Dot(n, a)-d, r3.Dot(n, b)-d
			if da <= eps {
				kept = appendDistinct(kept, a)
				if da >= -eps {
					cut = append(cut, a)
				}
			}
			if (da < -eps && db > eps) || (da > eps && db < -eps) {
				p := r3.Add(a, r3.Scale(da/(da-db), r3.Sub(b, a)))
				kept = appendDistinct(kept, p)
				cut = append(cut, p)
			}
		}
		if len(kept) > 1 && near(kept[0], kept[len(kept)-1]) {
			kept = kept[:len(kept)-1]
		}
		if len(kept) >= 3 {
			f.verts = kept
			faces = append(faces, f)
		}
	}
	P.faces = faces
	if nf := newFace(n, d, id, cut); nf != nil {
		P.faces = append(P.faces, nf)
	}
}

func near(a, b r3.Vec) bool {
	return r3.Norm2(r3.Sub(a, b)) < 1e-18
}

func appendDistinct(s []r3.Vec, p r3.Vec) []r3.Vec {
	if len(s) > 0 && near(s[len(s)-1], p) {
		return s
	}
	return append(s, p)
}

//newFace builds the polygon, on the plane n·x = d, with the given points, ordered around their centroid.
func newFace(n r3.Vec, d float64, id int, pts []r3.Vec) *face {
	var uniq []r3.Vec
	for _, p := range pts {
		dup := false
		for _, q := range uniq {
			if near(p, q) {
				dup = true
				break
			}
		}
		if !dup {
			uniq = append(uniq, p)
		}
	}
	if len(uniq) < 3 {
		return nil
	}
	var c r3.Vec
	for _, p := range uniq {
		c = r3.Add(c, p)
	}
	c = r3.Scale(1/float64(len(uniq)), c)
	//any vector not parallel to n
	a := r3.Vec{X: 1}
	if math.Abs(n.X) > 0.9 {
		a = r3.Vec{Y: 1}
	}
	u := r3.Unit(r3.Cross(n, a))
	w := r3.Cross(n, u)
	ang := make([]float64, len(uniq))
	for i, p := range uniq {
		q := r3.Sub(p, c)
		ang[i] = math.Atan2(r3.Dot(q, w), r3.Dot(q, u))
	}
	sort.Sort(byAngle{uniq, ang})
	return &face{id: id, n: n, d: d, verts: uniq}
}

type byAngle struct {
	p []r3.Vec
	a []float64
}

func (b byAngle) Len() int           { return len(b.p) }
func (b byAngle) Less(i, j int) bool { return b.a[i] < b.a[j] }
func (b byAngle) Swap(i, j int) {
	b.p[i], b.p[j] = b.p[j], b.p[i]
	b.a[i], b.a[j] = b.a[j], b.a[i]
}

//volume returns the volume of the polyhedron, as a sum of pyramids with the origin as apex.
func (P *polyhedron) volume() float64 {
	v := 0.0
	for _, f := range P.faces {
		v += f.area() * f.d / 3
	}
	return v
}

//maxVertexDistance returns the distance from the origin to the furthest vertex.
func (P *polyhedron) maxVertexDistance() float64 {
	m := 0.0
	for _, f := range P.faces {
		for _, v := range f.verts {
			m = math.Max(m, r3.Norm(v))
		}
	}
	return m
}
