/*Package v3 implements a Matrix type representing a row-major Nx3 matrix, i.e. a set
of N vectors in 3D space. It is used to represent the cartesian coordinates of sets of
atoms in atoman. It is based on gonum's (gonum.org/v1/gonum/mat) Dense type, with some
additional restrictions because of the fixed number of columns, and some additional
functions that were found useful for handling positions.

A v3.Matrix built with NewMatrix aliases the slice it was built from, so a lattice can
expose its flat position array as a matrix without copying.
*/
package v3
